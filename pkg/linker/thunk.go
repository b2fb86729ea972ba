package linker

import (
	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// A range extension thunk is a block of fixed-size code stubs appended to
// an executable output section. A REL24 call site is redirected here when
// the callee is reached through the PLT or sits outside the branch range.
// Each stub also mediates the %r2 convention: external flavors save the
// caller's TOC and install the callee's from its descriptor.
type RangeExtensionThunk struct {
	OutputSection *OutputSection
	ThunkIdx      int32
	Offset        uint64 // within the output section
	Symbols       []*Symbol

	symIdx map[*Symbol]int32
}

func NewRangeExtensionThunk(osec *OutputSection, thunkIdx int32) *RangeExtensionThunk {
	return &RangeExtensionThunk{
		OutputSection: osec,
		ThunkIdx:      thunkIdx,
		symIdx:        make(map[*Symbol]int32),
	}
}

func (t *RangeExtensionThunk) AddSymbol(sym *Symbol) int32 {
	if idx, ok := t.symIdx[sym]; ok {
		return idx
	}
	idx := int32(len(t.Symbols))
	t.Symbols = append(t.Symbols, sym)
	t.symIdx[sym] = idx
	return idx
}

func (t *RangeExtensionThunk) Size() uint64 {
	return uint64(len(t.Symbols)) * ThunkSize
}

func (t *RangeExtensionThunk) GetAddr(symIdx int32) uint64 {
	return t.OutputSection.Shdr.Addr + t.Offset + uint64(symIdx)*ThunkSize
}

// If the destination has a GOT entry, we save the current %r2, read the
// address of the function descriptor from .got, restore %r2 and jump to
// the function.
var gotThunk = []uint32{
	0xf8410028, // std   %r2, 40(%r1)
	0x3d820000, // addis %r12, %r2,  foo@got@toc@ha
	0xe98c0000, // ld    %r12, foo@got@toc@lo(%r12)
	0xe84c0008, // ld    %r2,  8(%r12)
	0xe98c0000, // ld    %r12, 0(%r12)
	0x7d8903a6, // mtctr %r12
	0x4e800420, // bctr
}

// If the destination is in .plt, the descriptor is read from .got.plt.
var pltThunk = []uint32{
	0xf8410028, // std   %r2, 40(%r1)
	0x3d820000, // addis %r12, %r2,  foo@gotplt@toc@ha
	0x398c0000, // addi  %r12, %r12, foo@gotplt@toc@lo
	0xe84c0008, // ld    %r2,  8(%r12)
	0xe98c0000, // ld    %r12, 0(%r12)
	0x7d8903a6, // mtctr %r12
	0x4e800420, // bctr
}

// If the destination is a non-imported function, we directly jump to the
// function entry address.
var localThunk = []uint32{
	0x3d820000, // addis r12, r2,  foo@toc@ha
	0x398c0000, // addi  r12, r12, foo@toc@lo
	0x7d8903a6, // mtctr r12
	0x4e800420, // bctr
	0x60000000, // nop
	0x60000000, // nop
	0x60000000, // nop
}

func (t *RangeExtensionThunk) CopyBuf(ctx *Context) {
	buf := ctx.Buf[t.OutputSection.Shdr.Offset+t.Offset:]
	t.Write(ctx, buf)
}

// the thunk flavor is chosen per target symbol from its capability set
func (t *RangeExtensionThunk) Write(ctx *Context, buf []byte) {
	utils.Assert(len(gotThunk)*4 == ThunkSize)
	utils.Assert(len(pltThunk)*4 == ThunkSize)
	utils.Assert(len(localThunk)*4 == ThunkSize)

	for i, sym := range t.Symbols {
		loc := buf[i*ThunkSize:]

		switch {
		case sym.HasGot():
			writeInsns(loc, gotThunk)
			val := sym.GetGotAddr(ctx) - ctx.TOC.Value
			orU32(loc[4:], uint32(higha(val)))
			orU32(loc[8:], uint32(lo(val)))
		case sym.HasPlt():
			writeInsns(loc, pltThunk)
			val := sym.GetGotPltAddr(ctx) - ctx.TOC.Value
			orU32(loc[4:], uint32(higha(val)))
			orU32(loc[8:], uint32(lo(val)))
		default:
			writeInsns(loc, localThunk)
			val := sym.GetAddr(ctx, NoOPD) - ctx.TOC.Value
			orU32(loc[0:], uint32(higha(val)))
			orU32(loc[4:], uint32(lo(val)))
		}
	}
}

func writeInsns(buf []byte, insns []uint32) {
	for i, insn := range insns {
		writeU32(buf[i*4:], insn)
	}
}

// One thunk container per executable output section, placed after the
// member sections. Member-to-member displacements within a section are
// final once member offsets are assigned, so the range decision for
// same-section branches is exact; everything else is registered
// conservatively.
func CreateRangeExtensionThunks(ctx *Context) {
	for _, osec := range ctx.OutputSections {
		if !osec.IsExec() {
			continue
		}

		thunk := NewRangeExtensionThunk(osec, 0)

		for _, isec := range osec.InputSections {
			rels := isec.GetRels()
			isec.RangeExtn = make([]RangeExtensionRef, len(rels))
			for idx := range isec.RangeExtn {
				isec.RangeExtn[idx] = RangeExtensionRef{ThunkIdx: -1, SymIdx: -1}
			}

			for idx := range rels {
				rel := &rels[idx]
				if rel.Type() != R_PPC64_REL24 {
					continue
				}
				sym := isec.ObjFile.Symbols[rel.Sym()]
				if !needsThunk(isec, rel, sym) {
					continue
				}
				symIdx := thunk.AddSymbol(sym)
				isec.RangeExtn[idx] = RangeExtensionRef{ThunkIdx: 0, SymIdx: symIdx}
			}
		}

		if len(thunk.Symbols) == 0 {
			continue
		}
		osec.Thunks = append(osec.Thunks, thunk)
		osec.AppendThunks()

		// a branch from any member must still reach the thunk block
		utils.Assert(osec.Shdr.Size < 1<<25)
	}
}

func needsThunk(isec *InputSection, rel *Rela, sym *Symbol) bool {
	if sym.HasPlt() || sym.IsImported {
		return true
	}

	// same-section displacement is layout-independent
	target := sym.InputSection
	if target != nil && sym.SectionFragment == nil &&
		target.OutputSection == isec.OutputSection {
		disp := int64(target.Offset+sym.Value) - int64(isec.Offset+rel.Offset) +
			rel.Addend
		return utils.SignExtend(disp, 25) != disp
	}

	// cross-section or absolute target: distance not known yet
	return true
}
