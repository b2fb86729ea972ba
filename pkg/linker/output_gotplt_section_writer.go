package linker

import (
	"debug/elf"
)

// .got.plt starts with the lazy resolver's descriptor slot (left zero for
// the dynamic linker) followed by one descriptor per PLT symbol. PLT
// thunks read these descriptors directly, so for targets resolved at link
// time the final descriptor is written eagerly.
type OutputGotPltSectionWriter struct {
	OutputWriter
}

func NewOutputGotPltSectionWriter() *OutputGotPltSectionWriter {
	g := &OutputGotPltSectionWriter{OutputWriter: *NewOutputWriter()}
	g.Name = ".got.plt"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	return g
}

func (g *OutputGotPltSectionWriter) UpdateShdr(ctx *Context) {
	g.Shdr.Size = GotPltHdrSize +
		uint64(len(ctx.Plt.Symbols))*GotPltEntrySize
}

func (g *OutputGotPltSectionWriter) CopyBuf(ctx *Context) {
	base := ctx.Buf[g.Shdr.Offset:]

	for _, sym := range ctx.Plt.Symbols {
		ent := base[GotPltHdrSize+uint64(sym.PltIdx)*GotPltEntrySize:]
		if sym.IsImported {
			// the dynamic linker fills the descriptor
			continue
		}
		writeU64(ent[0:], sym.GetAddr(ctx, NoPLT|NoOPD))
		writeU64(ent[8:], ctx.TOC.Value)
		writeU64(ent[16:], 0)
	}
}
