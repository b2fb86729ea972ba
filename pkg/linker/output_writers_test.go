package linker

import (
	"debug/elf"
	"testing"
)

func TestOpdWriterRecords(t *testing.T) {
	ctx := newTestContext()
	f := newTestObjectFile()

	osec := NewOutputSection(".text", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR), 0)
	osec.Shdr.Addr = 0x10010000
	text := makeTestSection(f, 1, make([]byte, 0x40), nil)
	text.OutputSection = osec

	fn := NewSymbol(f, "fn")
	fn.ElfType = uint8(elf.STT_FUNC)
	fn.SetInputSection(text)
	fn.Value = 0x20

	ctx.Opd.AddSymbol(ctx, fn)
	if !fn.HasOpd() || ctx.Opd.Shdr.Size != OpdEntrySize {
		t.Fatal("AddSymbol did not register the descriptor")
	}

	// with a descriptor, the symbol's plain address is the descriptor
	if fn.GetAddr(ctx, 0) != ctx.Opd.Shdr.Addr {
		t.Errorf("GetAddr = %#x, want the descriptor address %#x",
			fn.GetAddr(ctx, 0), ctx.Opd.Shdr.Addr)
	}
	if fn.GetAddr(ctx, NoOPD) != 0x10010020 {
		t.Errorf("GetAddr(NoOPD) = %#x, want the entry 0x10010020",
			fn.GetAddr(ctx, NoOPD))
	}

	ctx.Buf = make([]byte, OpdEntrySize)
	ctx.Opd.Shdr.Offset = 0
	ctx.Opd.CopyBuf(ctx)

	if readU64(ctx.Buf[0:]) != 0x10010020 {
		t.Errorf("descriptor entry = %#x, want 0x10010020", readU64(ctx.Buf[0:]))
	}
	if readU64(ctx.Buf[8:]) != ctx.TOC.Value {
		t.Errorf("descriptor toc = %#x, want %#x",
			readU64(ctx.Buf[8:]), ctx.TOC.Value)
	}
	if readU64(ctx.Buf[16:]) != 0 {
		t.Errorf("descriptor env = %#x, want 0", readU64(ctx.Buf[16:]))
	}
}

func TestGotWriterSlots(t *testing.T) {
	ctx := newTestContext()
	ctx.TpAddr = 0x10087000
	ctx.DtpAddr = 0x10088000
	f := newTestObjectFile()

	osec := NewOutputSection(".tdata", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_WRITE|elf.SHF_TLS), 0)
	osec.Shdr.Addr = 0x10080000
	tdata := makeTestSection(f, 3, make([]byte, 0x20), nil)
	tdata.OutputSection = osec

	tlsVar := NewSymbol(f, "tls_var")
	tlsVar.SetInputSection(tdata)
	tlsVar.Value = 0x10

	gdVar := NewSymbol(f, "gd_var")
	gdVar.SetInputSection(tdata)
	gdVar.Value = 0x18

	addrSym := NewSymbol(f, "obj")
	addrSym.Value = 0x12345678 // absolute

	ctx.Got.AddGotSym(addrSym)
	ctx.Got.AddGotTpSym(tlsVar)
	ctx.Got.AddTlsGdSym(gdVar)
	ctx.Got.AddTlsLd()
	ctx.Got.AddTlsLd() // idempotent

	// slots: got(1) + gottp(1) + tlsgd pair(2) + tlsld pair(2)
	if ctx.Got.Shdr.Size != 6*GotEntrySize {
		t.Fatalf("got size = %d, want %d", ctx.Got.Shdr.Size, 6*GotEntrySize)
	}

	ctx.Buf = make([]byte, ctx.Got.Shdr.Size)
	ctx.Got.Shdr.Offset = 0
	ctx.Got.CopyBuf(ctx)

	if readU64(ctx.Buf[0:]) != 0x12345678 {
		t.Errorf("got slot = %#x, want 0x12345678", readU64(ctx.Buf[0:]))
	}
	// gottp holds the offset from the thread pointer
	wantTp := uint64(0x10080010) - ctx.TpAddr
	if readU64(ctx.Buf[8:]) != wantTp {
		t.Errorf("gottp slot = %#x, want %#x", readU64(ctx.Buf[8:]), wantTp)
	}
	// tlsgd: module id 1, then the dtp offset
	if readU64(ctx.Buf[16:]) != 1 {
		t.Errorf("tlsgd module id = %#x, want 1", readU64(ctx.Buf[16:]))
	}
	wantDtp := uint64(0x10080018) - ctx.DtpAddr
	if readU64(ctx.Buf[24:]) != wantDtp {
		t.Errorf("tlsgd offset = %#x, want %#x", readU64(ctx.Buf[24:]), wantDtp)
	}
	// tlsld: module id 1, offset 0; DTPREL relocations add the rest
	if readU64(ctx.Buf[32:]) != 1 || readU64(ctx.Buf[40:]) != 0 {
		t.Errorf("tlsld pair = %#x/%#x, want 1/0",
			readU64(ctx.Buf[32:]), readU64(ctx.Buf[40:]))
	}
}

func TestGotPltWriterDescriptors(t *testing.T) {
	ctx := newTestContext()
	f := newTestObjectFile()

	osec := NewOutputSection(".text", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR), 0)
	osec.Shdr.Addr = 0x10010000
	text := makeTestSection(f, 1, make([]byte, 0x40), nil)
	text.OutputSection = osec

	defined := NewSymbol(f, "defined_fn")
	defined.ElfType = uint8(elf.STT_FUNC)
	defined.SetInputSection(text)
	defined.Value = 0x10

	imported := NewSymbol(nil, "imported_fn")
	imported.IsImported = true

	ctx.Plt.AddSymbol(defined)
	ctx.Plt.AddSymbol(imported)

	ctx.GotPlt.UpdateShdr(ctx)
	want := uint64(GotPltHdrSize + 2*GotPltEntrySize)
	if ctx.GotPlt.Shdr.Size != want {
		t.Fatalf("gotplt size = %d, want %d", ctx.GotPlt.Shdr.Size, want)
	}

	ctx.Buf = make([]byte, ctx.GotPlt.Shdr.Size)
	ctx.GotPlt.Shdr.Offset = 0
	ctx.GotPlt.CopyBuf(ctx)

	// a link-time resolved target gets its final descriptor eagerly
	ent := ctx.Buf[GotPltHdrSize:]
	if readU64(ent[0:]) != 0x10010010 {
		t.Errorf("descriptor entry = %#x, want 0x10010010", readU64(ent[0:]))
	}
	if readU64(ent[8:]) != ctx.TOC.Value {
		t.Errorf("descriptor toc = %#x", readU64(ent[8:]))
	}

	// the imported slot stays zero for the dynamic linker
	ent = ctx.Buf[GotPltHdrSize+GotPltEntrySize:]
	if readU64(ent[0:]) != 0 || readU64(ent[8:]) != 0 {
		t.Error("imported descriptor should be left zero")
	}
}

func TestPltWriterLayout(t *testing.T) {
	ctx := newTestContext()

	a := NewSymbol(nil, "a")
	b := NewSymbol(nil, "b")
	ctx.Plt.AddSymbol(a)
	ctx.Plt.AddSymbol(b)

	if a.PltIdx != 0 || b.PltIdx != 1 {
		t.Errorf("plt indices = %d, %d", a.PltIdx, b.PltIdx)
	}
	if ctx.Plt.Shdr.Size != PltHdrSize+2*PltEntrySize {
		t.Errorf("plt size = %d", ctx.Plt.Shdr.Size)
	}
	if b.GetPltAddr(ctx) != ctx.Plt.Shdr.Addr+PltHdrSize+PltEntrySize {
		t.Errorf("plt addr = %#x", b.GetPltAddr(ctx))
	}
}
