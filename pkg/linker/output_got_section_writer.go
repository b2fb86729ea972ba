package linker

import (
	"debug/elf"
)

// .got holds one 8-byte slot per symbol whose address is read indirectly:
// regular GOT slots (for ELFv1 functions these hold descriptor addresses),
// GOTTP slots for initial-exec TLS, TLSGD pairs, and one module-wide TLSLD
// pair. The TOC anchor is .got's address + 0x8000.
type OutputGotSectionWriter struct {
	OutputWriter
	GotSyms   []*Symbol
	GotTpSyms []*Symbol
	TlsGdSyms []*Symbol
	TlsLdIdx  int64

	numSlots uint64
}

func NewOutputGotSectionWriter() *OutputGotSectionWriter {
	g := &OutputGotSectionWriter{
		OutputWriter: *NewOutputWriter(),
		TlsLdIdx:     -1,
	}
	g.Name = ".got"
	g.Shdr.Type = uint32(elf.SHT_PROGBITS)
	g.Shdr.Flags = uint64(elf.SHF_ALLOC | elf.SHF_WRITE)
	g.Shdr.AddrAlign = 8
	return g
}

func (g *OutputGotSectionWriter) AddGotSym(sym *Symbol) {
	sym.GotIdx = int32(g.numSlots)
	g.numSlots++
	g.GotSyms = append(g.GotSyms, sym)
	g.Shdr.Size += GotEntrySize
}

func (g *OutputGotSectionWriter) AddGotTpSym(sym *Symbol) {
	sym.GotTpIdx = int32(g.numSlots)
	g.numSlots++
	g.GotTpSyms = append(g.GotTpSyms, sym)
	g.Shdr.Size += GotEntrySize
}

// TLSGD takes a pair: module id then dtprel offset
func (g *OutputGotSectionWriter) AddTlsGdSym(sym *Symbol) {
	sym.TlsGdIdx = int32(g.numSlots)
	g.numSlots += 2
	g.TlsGdSyms = append(g.TlsGdSyms, sym)
	g.Shdr.Size += 2 * GotEntrySize
}

func (g *OutputGotSectionWriter) AddTlsLd() {
	if g.TlsLdIdx != -1 {
		return
	}
	g.TlsLdIdx = int64(g.numSlots)
	g.numSlots += 2
	g.Shdr.Size += 2 * GotEntrySize
}

func (g *OutputGotSectionWriter) GetTlsLdAddr(ctx *Context) uint64 {
	return g.Shdr.Addr + uint64(g.TlsLdIdx)*GotEntrySize
}

func (g *OutputGotSectionWriter) CopyBuf(ctx *Context) {
	base := ctx.Buf[g.Shdr.Offset:]

	for _, sym := range g.GotSyms {
		// a function's GOT slot holds its descriptor address
		writeU64(base[uint64(sym.GotIdx)*GotEntrySize:], sym.GetAddr(ctx, NoPLT))
	}
	for _, sym := range g.GotTpSyms {
		writeU64(base[uint64(sym.GotTpIdx)*GotEntrySize:],
			sym.GetAddr(ctx, 0)-ctx.TpAddr)
	}
	for _, sym := range g.TlsGdSyms {
		writeU64(base[uint64(sym.TlsGdIdx)*GotEntrySize:], 1)
		writeU64(base[uint64(sym.TlsGdIdx+1)*GotEntrySize:],
			sym.GetAddr(ctx, 0)-ctx.DtpAddr)
	}
	if g.TlsLdIdx != -1 {
		writeU64(base[uint64(g.TlsLdIdx)*GotEntrySize:], 1)
		writeU64(base[uint64(g.TlsLdIdx+1)*GotEntrySize:], 0)
	}
}
