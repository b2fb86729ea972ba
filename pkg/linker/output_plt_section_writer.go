package linker

import (
	"debug/elf"
)

type OutputPltSectionWriter struct {
	OutputWriter
	Symbols []*Symbol
}

func NewOutputPltSectionWriter() *OutputPltSectionWriter {
	p := &OutputPltSectionWriter{OutputWriter: *NewOutputWriter()}
	p.Name = ".plt"
	p.Shdr.Type = uint32(elf.SHT_PROGBITS)
	p.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	p.Shdr.AddrAlign = 16
	p.Shdr.Size = PltHdrSize
	return p
}

func (p *OutputPltSectionWriter) AddSymbol(sym *Symbol) {
	sym.PltIdx = int32(len(p.Symbols))
	p.Symbols = append(p.Symbols, sym)
	p.Shdr.Size += PltEntrySize
}

func (p *OutputPltSectionWriter) CopyBuf(ctx *Context) {
	base := ctx.Buf[p.Shdr.Offset:]
	WritePltHeader(ctx, base)
	for _, sym := range p.Symbols {
		WritePltEntry(ctx, base[PltHdrSize+uint64(sym.PltIdx)*PltEntrySize:], sym)
	}
}

// .plt.got is not necessary on PPC64 because range extension thunks
// directly read GOT entries and jump there.
type OutputPltGotSectionWriter struct {
	OutputWriter
}

func NewOutputPltGotSectionWriter() *OutputPltGotSectionWriter {
	p := &OutputPltGotSectionWriter{OutputWriter: *NewOutputWriter()}
	p.Name = ".plt.got"
	p.Shdr.Type = uint32(elf.SHT_PROGBITS)
	p.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_EXECINSTR)
	p.Shdr.AddrAlign = 16
	return p
}
