package linker

import (
	"debug/elf"
	"testing"
)

func newStringSection(f *ObjectFile, contents []byte) *InputSection {
	f.ElfSecHdrs = append(f.ElfSecHdrs, Shdr{
		Name:      12, // reuses the ".data" name slot
		Type:      uint32(elf.SHT_PROGBITS),
		Flags:     uint64(elf.SHF_ALLOC | elf.SHF_MERGE | elf.SHF_STRINGS),
		AddrAlign: 1,
	})
	shndx := uint32(len(f.ElfSecHdrs) - 1)
	f.InputSections = append(f.InputSections, nil)
	isec := makeTestSection(f, shndx, contents, nil)
	isec.P2Align = 0 // byte strings pack without padding
	return isec
}

func TestSplitMergeableSection(t *testing.T) {
	ctx := newTestContext()
	f := newTestObjectFile()
	isec := newStringSection(f, []byte("hello\x00hi\x00"))

	m := splitMergeableSection(ctx, isec)
	if len(m.Strs) != 2 {
		t.Fatalf("fragments = %d, want 2", len(m.Strs))
	}
	if m.FragOffsets[0] != 0 || m.FragOffsets[1] != 6 {
		t.Errorf("offsets = %v, want [0 6]", m.FragOffsets)
	}

	frag, off := m.GetFragment(7)
	if frag != m.Fragments[1] || off != 1 {
		t.Errorf("GetFragment(7) = %p %d, want fragment 1 offset 1", frag, off)
	}
}

func TestMergedSectionDedup(t *testing.T) {
	ctx := newTestContext()
	f := newTestObjectFile()
	g := newTestObjectFile()

	a := splitMergeableSection(ctx, newStringSection(f, []byte("dup\x00only_a\x00")))
	b := splitMergeableSection(ctx, newStringSection(g, []byte("dup\x00only_b\x00")))

	if a.OutputSection != b.OutputSection {
		t.Fatal("same name and flags should merge into one output section")
	}
	if a.Fragments[0] != b.Fragments[0] {
		t.Error("identical strings should share one fragment")
	}
	if a.Fragments[1] == b.Fragments[1] {
		t.Error("distinct strings must not share a fragment")
	}

	msec := a.OutputSection
	msec.AssignFragmentsOffsets()

	// all three distinct strings packed without overlap
	if msec.Shdr.Size != uint64(len("dup\x00")+len("only_a\x00")+len("only_b\x00")) {
		t.Errorf("merged size = %d", msec.Shdr.Size)
	}

	buf := make([]byte, msec.Shdr.Size)
	ctx.Buf = buf
	msec.Shdr.Offset = 0
	msec.CopyBuf(ctx)
	found := string(buf[a.Fragments[0].Offset : a.Fragments[0].Offset+4])
	if found != "dup\x00" {
		t.Errorf("fragment bytes = %q", found)
	}
}
