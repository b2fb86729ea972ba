package linker

import (
	"testing"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// ha compensates for the sign extension the processor applies when the
// low half is added: (ha(x) << 16) + signext(lo(x)) == x for any 32-bit x.
func TestHaLoReconstruct(t *testing.T) {
	vals := []uint64{
		0, 1, 0x7fff, 0x8000, 0xffff, 0x10000, 0x12345, 0x18000,
		0x7fffffff, 0x80000000, 0xfffe8000, 0xffffffff,
	}
	for _, x := range vals {
		got := uint32(ha(x))<<16 + uint32(utils.SignExtend(int64(lo(x)), 15))
		if got != uint32(x) {
			t.Errorf("ha/lo of %#x reconstructs to %#x", x, got)
		}
		diff := uint32(ha(x)) - uint32(hi(x))
		if diff != 0 && diff != 1 {
			t.Errorf("ha(%#x)-hi(%#x) = %d, want 0 or 1", x, x, diff)
		}
	}
}

func TestHaCarry(t *testing.T) {
	// the low half 0x8000 is negative, so ha carries into the high half
	if ha(0x12345) != 0x1 || lo(0x12345) != 0x2345 {
		t.Errorf("ha/lo(0x12345) = %#x/%#x", ha(0x12345), lo(0x12345))
	}
	if ha(0x18000) != 0x2 || hi(0x18000) != 0x1 {
		t.Errorf("ha/hi(0x18000) = %#x/%#x", ha(0x18000), hi(0x18000))
	}
}

func TestHighParts(t *testing.T) {
	x := uint64(0x1122334455667788)
	if high(x) != 0x5566 || higher(x) != 0x3344 || highest(x) != 0x1122 {
		t.Errorf("high parts of %#x wrong", x)
	}
	if higha(0x18000) != 0x2 {
		t.Errorf("higha(0x18000) = %#x", higha(0x18000))
	}
	// the +0x8000 bias can carry all the way into the top half
	if highesta(0x7fffffffffff8000) != 0x8000 {
		t.Errorf("highesta = %#x", highesta(0x7fffffffffff8000))
	}
}

func TestOrCombine(t *testing.T) {
	buf := make([]byte, 4)
	writeU32(buf, 0xe8620000) // ld r3, 0(r2)
	orU16(buf[2:], 0x2344)
	if readU32(buf) != 0xe8622344 {
		t.Errorf("orU16 = %#x, want 0xe8622344", readU32(buf))
	}

	writeU32(buf, 0x48000001) // bl with zero displacement
	orU32(buf, uint32(utils.Bits(0x20, 25, 2))<<2)
	if readU32(buf) != 0x48000021 {
		t.Errorf("orU32 = %#x, want 0x48000021", readU32(buf))
	}
}

func TestWritePltHeader(t *testing.T) {
	ctx := NewContext()
	ctx.Plt = NewOutputPltSectionWriter()
	ctx.GotPlt = NewOutputGotPltSectionWriter()
	ctx.Plt.Shdr.Addr = 0x10030000
	ctx.GotPlt.Shdr.Addr = 0x10050000

	buf := make([]byte, PltHdrSize)
	WritePltHeader(ctx, buf)

	// 11 instructions plus the 8-byte displacement quad at offset 44
	if PltHdrSize != 52 {
		t.Fatalf("PltHdrSize = %d, want 52", PltHdrSize)
	}
	if readU32(buf) != 0x7d8802a6 { // mflr r12
		t.Errorf("first insn = %#x", readU32(buf))
	}
	want := ctx.GotPlt.Shdr.Addr - ctx.Plt.Shdr.Addr - 8
	if readU64(buf[44:]) != want {
		t.Errorf("displacement quad = %#x, want %#x", readU64(buf[44:]), want)
	}
}

func TestWritePltEntry(t *testing.T) {
	ctx := NewContext()
	ctx.Plt = NewOutputPltSectionWriter()
	ctx.Plt.Shdr.Addr = 0x10030000

	sym := NewSymbol(nil, "foo")
	sym.PltIdx = 1

	buf := make([]byte, PltEntrySize)
	WritePltEntry(ctx, buf, sym)

	if readU32(buf) != 0x38000001 { // li r0, 1
		t.Errorf("li = %#x", readU32(buf))
	}
	// the 52-byte header plus entry 0 put entry 1 at plt0+60; its second
	// word branches back -64 relative to its own next address
	if readU32(buf[4:]) != 0x4bffffc0 {
		t.Errorf("b = %#x, want 0x4bffffc0", readU32(buf[4:]))
	}
}
