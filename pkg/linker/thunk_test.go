package linker

import (
	"debug/elf"
	"testing"
)

func TestThunkFlavors(t *testing.T) {
	ctx := newTestContext()
	f := newTestObjectFile()

	osec := NewOutputSection(".text", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR), 0)
	osec.Shdr.Addr = 0x10010000
	text := makeTestSection(f, 1, make([]byte, 0x40), nil)
	text.OutputSection = osec

	// GOT slot 0 sits exactly -0x8000 from the TOC anchor
	viaGot := NewSymbol(nil, "via_got")
	viaGot.IsImported = true
	viaGot.GotIdx = 0

	viaPlt := NewSymbol(nil, "via_plt")
	viaPlt.IsImported = true
	viaPlt.PltIdx = 0

	local := NewSymbol(f, "local_fn")
	local.SetInputSection(text)
	local.Value = 0x20

	thunk := NewRangeExtensionThunk(osec, 0)
	thunk.AddSymbol(viaGot)
	thunk.AddSymbol(viaPlt)
	thunk.AddSymbol(local)

	buf := make([]byte, thunk.Size())
	thunk.Write(ctx, buf)

	// GOT flavor: addis/ld pair patched with the slot's TOC displacement
	gotDisp := ctx.Got.Shdr.Addr - ctx.TOC.Value // -0x8000
	if readU32(buf[0:]) != 0xf8410028 {
		t.Errorf("got thunk insn 0 = %#x, want std r2,40(r1)", readU32(buf[0:]))
	}
	if readU32(buf[4:]) != 0x3d820000|uint32(higha(gotDisp)) {
		t.Errorf("got thunk higha = %#x", readU32(buf[4:]))
	}
	if readU32(buf[8:]) != 0xe98c0000|uint32(lo(gotDisp)) {
		t.Errorf("got thunk lo = %#x", readU32(buf[8:]))
	}

	// PLT flavor reads the descriptor slot in .got.plt
	pltDisp := viaPlt.GetGotPltAddr(ctx) - ctx.TOC.Value
	p := buf[ThunkSize:]
	if readU32(p[0:]) != 0xf8410028 {
		t.Errorf("plt thunk insn 0 = %#x, want std r2,40(r1)", readU32(p[0:]))
	}
	if readU32(p[4:]) != 0x3d820000|uint32(higha(pltDisp)) {
		t.Errorf("plt thunk higha = %#x", readU32(p[4:]))
	}
	if readU32(p[8:]) != 0x398c0000|uint32(lo(pltDisp)) {
		t.Errorf("plt thunk lo = %#x", readU32(p[8:]))
	}

	// local flavor jumps straight to the entry, no TOC switch
	localDisp := local.GetAddr(ctx, NoOPD) - ctx.TOC.Value
	l := buf[2*ThunkSize:]
	if readU32(l[0:]) != 0x3d820000|uint32(higha(localDisp)) {
		t.Errorf("local thunk higha = %#x", readU32(l[0:]))
	}
	if readU32(l[4:]) != 0x398c0000|uint32(lo(localDisp)) {
		t.Errorf("local thunk lo = %#x", readU32(l[4:]))
	}
	if readU32(l[12:]) != 0x4e800420 { // bctr
		t.Errorf("local thunk insn 3 = %#x, want bctr", readU32(l[12:]))
	}
}

func TestThunkAddSymbolDedup(t *testing.T) {
	osec := NewOutputSection(".text", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR), 0)
	thunk := NewRangeExtensionThunk(osec, 0)

	sym := NewSymbol(nil, "foo")
	a := thunk.AddSymbol(sym)
	b := thunk.AddSymbol(sym)
	if a != b || len(thunk.Symbols) != 1 {
		t.Errorf("AddSymbol did not dedupe: %d %d, %d entries",
			a, b, len(thunk.Symbols))
	}
	if thunk.Size() != ThunkSize {
		t.Errorf("Size = %d, want %d", thunk.Size(), ThunkSize)
	}
}

func TestNeedsThunk(t *testing.T) {
	f := newTestObjectFile()

	osec := NewOutputSection(".text", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR), 0)
	caller := makeTestSection(f, 1, make([]byte, 0x100), nil)
	caller.OutputSection = osec
	caller.Offset = 0

	rel := NewRela(0x10, R_PPC64_REL24, 1, 0)

	near := NewSymbol(f, "near")
	near.SetInputSection(caller)
	near.Value = 0x80
	if needsThunk(caller, &rel, near) {
		t.Error("near same-section call should not need a thunk")
	}

	// same output section but further than a 26-bit branch reaches
	farSec := &InputSection{
		ObjFile: f, Shndx: 1, IsAlive: true,
		OutputSection: osec, Offset: 0x3000000,
	}
	far := NewSymbol(f, "far")
	far.SetInputSection(farSec)
	if !needsThunk(caller, &rel, far) {
		t.Error("out-of-range same-section call should need a thunk")
	}

	imported := NewSymbol(nil, "imported")
	imported.IsImported = true
	if !needsThunk(caller, &rel, imported) {
		t.Error("imported callee always goes through a thunk")
	}

	viaPlt := NewSymbol(f, "via_plt")
	viaPlt.PltIdx = 0
	if !needsThunk(caller, &rel, viaPlt) {
		t.Error("callee with a PLT entry always goes through a thunk")
	}

	// cross-section distance is unknown before layout
	otherOsec := NewOutputSection(".init", uint32(elf.SHT_PROGBITS),
		uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR), 1)
	otherSec := &InputSection{
		ObjFile: f, Shndx: 1, IsAlive: true, OutputSection: otherOsec,
	}
	cross := NewSymbol(f, "cross")
	cross.SetInputSection(otherSec)
	if !needsThunk(caller, &rel, cross) {
		t.Error("cross-section call is registered conservatively")
	}
}
