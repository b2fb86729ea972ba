package linker

import (
	"debug/elf"
)

// The output .opd: one 24-byte descriptor {entry, toc, 0} per registered
// symbol, in registration order.
type OutputOpdSectionWriter struct {
	OutputWriter
	Symbols []*Symbol
}

func NewOutputOpdSectionWriter() *OutputOpdSectionWriter {
	o := &OutputOpdSectionWriter{OutputWriter: *NewOutputWriter()}
	o.Name = ".opd"
	o.Shdr.Type = uint32(elf.SHT_PROGBITS)
	o.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	o.Shdr.AddrAlign = 8
	return o
}

func (o *OutputOpdSectionWriter) AddSymbol(ctx *Context, sym *Symbol) {
	sym.OpdIdx = int32(len(o.Symbols))
	o.Symbols = append(o.Symbols, sym)
	o.Shdr.Size += OpdEntrySize
}

func (o *OutputOpdSectionWriter) CopyBuf(ctx *Context) {
	base := ctx.Buf[o.Shdr.Offset:]
	for i, sym := range o.Symbols {
		ent := base[i*OpdEntrySize:]
		writeU64(ent[0:], sym.GetAddr(ctx, NoPLT|NoOPD))
		writeU64(ent[8:], ctx.TOC.Value)
		writeU64(ent[16:], 0)
	}
}
