package linker

import (
	"debug/elf"
	"testing"
)

func TestAssignOffsetsAndAddresses(t *testing.T) {
	ctx := newTestContext()

	text := NewOutputSection(".text", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR), 0)
	text.Shdr.Size = 0x1234
	text.Shdr.AddrAlign = 4

	data := NewOutputSection(".data", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 1)
	data.Shdr.Size = 0x100
	data.Shdr.AddrAlign = 8

	bss := NewOutputSection(".bss", uint32(elf.SHT_NOBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_WRITE), 2)
	bss.Shdr.Size = 0x4000
	bss.Shdr.AddrAlign = 8

	tdata := NewOutputSection(".tdata", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_WRITE|elf.SHF_TLS), 3)
	tdata.Shdr.Size = 0x20
	tdata.Shdr.AddrAlign = 8

	shstrtab := NewOutputShStrTabWriter()
	shstrtab.Shdr.Size = 0x10

	ehdr := NewOutputEhdrWriter()
	ctx.Got.Shdr.Size = 0x40

	ctx.OutputWriters = []iOutputWriter{
		ehdr, text, ctx.Got, tdata, data, bss, shstrtab,
	}

	filesize := AssignOffsetsAndAddresses(ctx)
	if filesize == 0 {
		t.Fatal("zero file size")
	}

	// every allocated chunk keeps offset congruent to address modulo the
	// page size, so each LOAD segment maps 1:1
	for _, w := range ctx.OutputWriters {
		if !isALLOC(w) || w.GetShdr().Type == uint32(elf.SHT_NOBITS) {
			continue
		}
		shdr := w.GetShdr()
		if shdr.Addr%PageSize != shdr.Offset%PageSize {
			t.Errorf("%s: addr %#x and offset %#x are not congruent",
				w.GetName(), shdr.Addr, shdr.Offset)
		}
	}

	if ehdr.Shdr.Addr != ImageBase {
		t.Errorf("ehdr addr = %#x, want the image base", ehdr.Shdr.Addr)
	}

	// a permission change starts a fresh page
	if text.Shdr.Addr%PageSize != 0 {
		t.Errorf(".text addr = %#x, want page aligned", text.Shdr.Addr)
	}
	if ctx.Got.Shdr.Addr <= text.Shdr.Addr {
		t.Error("writable group should follow the executable group")
	}

	// bss occupies memory but no file bytes
	if bss.Shdr.Addr < data.Shdr.Addr+data.Shdr.Size {
		t.Error(".bss should follow .data in memory")
	}
	if filesize < shstrtab.Shdr.Offset+shstrtab.Shdr.Size {
		t.Error("file size does not cover the trailing chunks")
	}

	if ctx.TLSSegmentAddr != tdata.Shdr.Addr {
		t.Errorf("TLS segment = %#x, want %#x", ctx.TLSSegmentAddr, tdata.Shdr.Addr)
	}
	if ctx.TpAddr != ctx.TLSSegmentAddr+0x7000 ||
		ctx.DtpAddr != ctx.TLSSegmentAddr+0x8000 {
		t.Error("thread pointer biases wrong")
	}
	if ctx.TOC.Value != ctx.Got.Shdr.Addr+0x8000 {
		t.Errorf("TOC = %#x, want .got+0x8000", ctx.TOC.Value)
	}
}

func TestCollectOutputWritersOrder(t *testing.T) {
	ctx := newTestContext()
	CreateSyntheticSections(ctx)

	rodata := GetOutputSection(ctx, ".rodata", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC))
	rodata.Shdr.Size = 0x10
	text := GetOutputSection(ctx, ".text", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR))
	text.Shdr.Size = 0x10
	data := GetOutputSection(ctx, ".data", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_WRITE))
	data.Shdr.Size = 0x10
	debug := GetOutputSection(ctx, ".debug_info", uint32(elf.SHT_PROGBITS), 0)
	debug.Shdr.Size = 0x10

	ctx.Plt.AddSymbol(NewSymbol(nil, "f"))
	ctx.GotPlt.UpdateShdr(ctx)
	ctx.Got.Shdr.Size = 0x8

	CollectOutputWriters(ctx)

	pos := map[string]int{}
	for i, w := range ctx.OutputWriters {
		pos[w.GetName()] = i
	}

	if pos["ehdr"] != 0 || pos["phdr"] != 1 {
		t.Error("ehdr and phdrs must lead the file")
	}
	if !(pos[".rodata"] < pos[".text"]) {
		t.Error("read-only sections precede executable ones")
	}
	if !(pos[".text"] < pos[".data"]) {
		t.Error("executable sections precede writable ones")
	}
	if !(pos[".data"] < pos[".debug_info"]) {
		t.Error("non-alloc sections follow all loaded ones")
	}
	if pos["shdr"] != len(ctx.OutputWriters)-1 {
		t.Error("the section header table goes last")
	}
	if !(pos[".debug_info"] < pos[".shstrtab"]) {
		t.Error(".shstrtab goes after the non-alloc sections")
	}

	// every section-like chunk got a distinct index
	seen := map[int64]bool{}
	for _, w := range ctx.OutputWriters {
		switch w.(type) {
		case *OutputEhdrWriter, *OutputPhdrsWriter, *OutputShdrsWriter:
			continue
		}
		idx := w.GetShndx()
		if idx <= 0 || seen[idx] {
			t.Errorf("%s: bad shndx %d", w.GetName(), idx)
		}
		seen[idx] = true
	}
}

func TestConvertFlagsToSlots(t *testing.T) {
	ctx := newTestContext()
	f := newTestObjectFile()
	f.FirstGlobal = 1
	f.TotalSyms = 3

	gotSym := NewSymbol(f, "needs_got")
	gotSym.Flags.Or(NeedsGot)

	multi := NewSymbol(f, "needs_many")
	multi.Flags.Or(NeedsGot | NeedsPlt | NeedsOpd)

	f.Symbols = []*Symbol{NewSymbol(f, ""), gotSym, multi}
	ctx.Args.ObjFiles = []*ObjectFile{f}

	imported := NewSymbol(nil, "ext")
	imported.IsImported = true
	imported.Flags.Or(NeedsPlt)
	ctx.ImportedSymbols = []*Symbol{imported}

	ctx.NeedsTlsld.Store(true)

	ConvertFlagsToSlots(ctx)
	// running again must not double-allocate
	ConvertFlagsToSlots(ctx)

	if !gotSym.HasGot() || gotSym.HasPlt() {
		t.Error("needs_got converted wrong")
	}
	if !multi.HasGot() || !multi.HasPlt() || !multi.HasOpd() {
		t.Error("needs_many converted wrong")
	}
	if !imported.HasPlt() {
		t.Error("imported symbol did not get a PLT entry")
	}
	if len(ctx.Plt.Symbols) != 2 {
		t.Errorf("plt entries = %d, want 2", len(ctx.Plt.Symbols))
	}
	if ctx.Got.TlsLdIdx == -1 {
		t.Error("TLSLD pair not allocated")
	}
	wantGot := uint64(2*GotEntrySize + 2*GotEntrySize) // 2 slots + tlsld pair
	if ctx.Got.Shdr.Size != wantGot {
		t.Errorf("got size = %d, want %d", ctx.Got.Shdr.Size, wantGot)
	}
}
