package linker

import (
	"debug/elf"
)

// .rela.dyn is sized from the per-file counters the scanner filled in;
// the records themselves are written by the relocation applier at each
// file's base offset.
type OutputRelDynSectionWriter struct {
	OutputWriter
}

func NewOutputRelDynSectionWriter() *OutputRelDynSectionWriter {
	r := &OutputRelDynSectionWriter{OutputWriter: *NewOutputWriter()}
	r.Name = ".rela.dyn"
	r.Shdr.Type = uint32(elf.SHT_RELA)
	r.Shdr.Flags = uint64(elf.SHF_ALLOC)
	r.Shdr.AddrAlign = 8
	r.Shdr.EntSize = uint64(RelaSize)
	return r
}

func (r *OutputRelDynSectionWriter) UpdateShdr(ctx *Context) {
	offset := uint64(0)
	for _, file := range ctx.Args.ObjFiles {
		file.RelDynOffset = offset
		offset += file.NumDynrel * uint64(RelaSize)
	}
	r.Shdr.Size = offset
}
