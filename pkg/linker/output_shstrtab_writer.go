package linker

import (
	"debug/elf"
)

type OutputShStrTabWriter struct {
	OutputWriter
	contents []byte
}

func NewOutputShStrTabWriter() *OutputShStrTabWriter {
	s := &OutputShStrTabWriter{OutputWriter: *NewOutputWriter()}
	s.Name = ".shstrtab"
	s.Shdr.Type = uint32(elf.SHT_STRTAB)
	return s
}

// assigns every named chunk its name offset and fixes this section's size
func (s *OutputShStrTabWriter) UpdateShdr(ctx *Context) {
	s.contents = []byte{0}
	for _, w := range ctx.OutputWriters {
		if w.GetShndx() <= 0 || w.GetName() == "" {
			continue
		}
		w.GetShdr().Name = uint32(len(s.contents))
		s.contents = append(s.contents, []byte(w.GetName())...)
		s.contents = append(s.contents, 0)
	}
	s.Shdr.Size = uint64(len(s.contents))
}

func (s *OutputShStrTabWriter) CopyBuf(ctx *Context) {
	copy(ctx.Buf[s.Shdr.Offset:], s.contents)
}
