package linker

import (
	"debug/elf"
	"fmt"
	"math"
	"math/bits"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// records which thunk entry a REL24 site was redirected to
type RangeExtensionRef struct {
	ThunkIdx int32
	SymIdx   int32
}

type InputSection struct {
	ObjFile  *ObjectFile
	Contents []byte
	Shndx    uint32
	ShSize   uint64
	IsAlive  bool
	P2Align  uint8

	Offset        uint64 // within the output section
	OutputSection *OutputSection

	RelsecIdx uint32
	rels      []Rela

	// this section's base offset into .rela.dyn, snapshot before the
	// scan increments the file counter
	RelDynOffset uint64

	RangeExtn []RangeExtensionRef
}

func NewInputSection(f *ObjectFile, shndx uint32) *InputSection {
	s := &InputSection{
		ObjFile:   f,
		Shndx:     shndx,
		IsAlive:   true,
		RelsecIdx: math.MaxUint32,
	}

	shdr := s.Shdr()
	s.ShSize = shdr.Size
	if shdr.Type != uint32(elf.SHT_NOBITS) {
		s.Contents = f.GetBytesFromShdr(shdr)
	}

	toP2Align := func(align uint64) uint8 {
		if align == 0 {
			return 0
		}
		return uint8(bits.TrailingZeros64(align))
	}
	s.P2Align = toP2Align(shdr.AddrAlign)
	return s
}

func (i *InputSection) Shdr() *Shdr {
	utils.Assert(i.Shndx < uint32(len(i.ObjFile.ElfSecHdrs)))
	return &i.ObjFile.ElfSecHdrs[i.Shndx]
}

func (i *InputSection) Name() string {
	return ElfGetName(i.ObjFile.ShStrTab, i.Shdr().Name)
}

func (i *InputSection) GetAddr() uint64 {
	return i.OutputSection.Shdr.Addr + i.Offset
}

// parsed once; the OPD rewriter mutates entries in place
func (i *InputSection) GetRels() []Rela {
	if i.rels != nil || i.RelsecIdx == math.MaxUint32 {
		return i.rels
	}
	bs := i.ObjFile.GetBytesFromIdx(i.RelsecIdx)
	i.rels = utils.ReadSlice[Rela](bs, RelaSize)
	return i.rels
}

func (i *InputSection) WriteTo(ctx *Context, buf []byte) {
	if i.Shdr().Type == uint32(elf.SHT_NOBITS) || i.ShSize == 0 {
		return
	}

	copy(buf, i.Contents)
	if i.Shdr().Flags&uint64(elf.SHF_ALLOC) != 0 {
		i.ApplyRelocAlloc(ctx, buf)
	} else {
		i.ApplyRelocNonalloc(ctx, buf)
	}
}

func (i *InputSection) reportUndef(ctx *Context, sym *Symbol) {
	ctx.ReportError(fmt.Errorf("%s: %s: undefined symbol: %s",
		i.ObjFile.File.Name, i.Name(), sym.Name))
}

func (i *InputSection) reportRange(ctx *Context, rel *Rela, sym *Symbol,
	val int64, lo int64, hi int64) {
	ctx.ReportError(fmt.Errorf(
		"%s: relocation %s against %s out of range: %d is not in [%d, %d)",
		i.Name(), RelocName(rel.Type()), sym.Name, val, lo, hi))
}

// Walks this section's relocations and marks every referenced symbol with
// the auxiliary storage it will need. Flag stores are atomic ors; several
// scanners may hit the same symbol at once.
func (i *InputSection) ScanRelocations(ctx *Context) {
	utils.Assert(i.Shdr().Flags&uint64(elf.SHF_ALLOC) != 0)

	i.RelDynOffset = i.ObjFile.NumDynrel * uint64(RelaSize)
	rels := i.GetRels()

	for idx := range rels {
		rel := &rels[idx]
		if rel.Type() == R_PPC64_NONE {
			continue
		}

		sym := i.ObjFile.Symbols[rel.Sym()]

		if sym.File == nil && !sym.IsImported {
			i.reportUndef(ctx, sym)
			continue
		}

		if sym.IsIfunc() {
			sym.Flags.Or(NeedsGot | NeedsPlt | NeedsOpd)
		}

		// a non-branch relocation takes the function's address, which in
		// ELFv1 must be a descriptor address
		if rel.Type() != R_PPC64_REL24 && sym.ElfType == uint8(elf.STT_FUNC) {
			sym.Flags.Or(NeedsOpd)
		}

		switch rel.Type() {
		case R_PPC64_ADDR64:
			if sym.IsIfunc() {
				i.ObjFile.NumDynrel++
			} else {
				i.scanTocRel(ctx, sym, rel)
			}
		case R_PPC64_TOC:
			i.scanTocRel(ctx, ctx.TOC, rel)
		case R_PPC64_GOT_TPREL16_HA:
			sym.Flags.Or(NeedsGotTp)
		case R_PPC64_REL24:
			if sym.IsImported {
				sym.Flags.Or(NeedsPlt)
			}
		case R_PPC64_PLT16_HA:
			// PLT16_* relocations address a GOT slot holding the
			// function-descriptor address; thunks read the GOT directly,
			// so no .plt.got entry is involved
			sym.Flags.Or(NeedsGot)
		case R_PPC64_GOT_TLSGD16_HA:
			sym.Flags.Or(NeedsTlsGd)
		case R_PPC64_GOT_TLSLD16_HA:
			ctx.NeedsTlsld.Store(true)
		case R_PPC64_REL32,
			R_PPC64_REL64,
			R_PPC64_TOC16_HA,
			R_PPC64_TOC16_LO,
			R_PPC64_TOC16_LO_DS,
			R_PPC64_TOC16_DS,
			R_PPC64_REL16_HA,
			R_PPC64_REL16_LO,
			R_PPC64_PLT16_HI,
			R_PPC64_PLT16_LO,
			R_PPC64_PLT16_LO_DS,
			R_PPC64_PLTSEQ,
			R_PPC64_PLTCALL,
			R_PPC64_TPREL16_HA,
			R_PPC64_TPREL16_LO,
			R_PPC64_GOT_TPREL16_LO_DS,
			R_PPC64_GOT_TLSGD16_LO,
			R_PPC64_GOT_TLSLD16_LO,
			R_PPC64_TLS,
			R_PPC64_TLSGD,
			R_PPC64_TLSLD,
			R_PPC64_DTPREL16_HA,
			R_PPC64_DTPREL16_LO:
		default:
			utils.Fatal(fmt.Sprintf("%s: scan relocations: unknown type %s (%d)",
				i.Name(), RelocName(rel.Type()), rel.Type()))
		}
	}
}

// Absolute relocation against a possibly imported symbol. The output
// image has a fixed base, so link-time addresses are final and the value
// is written directly; an imported symbol is reached through its GOT slot
// instead.
func (i *InputSection) scanTocRel(ctx *Context, sym *Symbol, rel *Rela) {
	if sym.IsImported {
		sym.Flags.Or(NeedsGot)
	}
}

func (i *InputSection) applyTocRel(ctx *Context, loc []byte, s uint64, a int64) {
	writeU64(loc, uint64(int64(s)+a))
}

// Writes final bytes for every relocation in an allocated section. buf is
// this section's slice of the output buffer; the section contents were
// already copied in.
func (i *InputSection) ApplyRelocAlloc(ctx *Context, buf []byte) {
	rels := i.GetRels()

	var reldynBuf []byte
	if ctx.RelDyn != nil && ctx.Buf != nil {
		reldynBuf = ctx.Buf[ctx.RelDyn.Shdr.Offset+
			i.ObjFile.RelDynOffset+i.RelDynOffset:]
	}
	writeDynRel := func(offset uint64, typ uint32, symIdx uint32, addend int64) {
		utils.Write[Rela](reldynBuf, NewRela(offset, typ, symIdx, addend))
		reldynBuf = reldynBuf[RelaSize:]
	}

	for idx := range rels {
		rel := &rels[idx]
		if rel.Type() == R_PPC64_NONE {
			continue
		}

		sym := i.ObjFile.Symbols[rel.Sym()]
		loc := buf[rel.Offset:]

		check := func(val int64, lo int64, hi int64) {
			if val < lo || hi <= val {
				i.reportRange(ctx, rel, sym, val, lo, hi)
			}
		}

		s := sym.GetAddr(ctx, 0)
		a := rel.Addend
		p := i.GetAddr() + rel.Offset
		g := uint64(sym.GotIdx) * GotEntrySize
		got := ctx.Got.Shdr.Addr
		toc := ctx.TOC.Value

		switch rel.Type() {
		case R_PPC64_ADDR64:
			if sym.IsIfunc() {
				writeDynRel(p, R_PPC64_IRELATIVE, 0, int64(s)+a)
				if ctx.Args.ApplyDynamicRelocs {
					writeU64(loc, uint64(int64(s)+a))
				}
			} else {
				i.applyTocRel(ctx, loc, s, a)
			}
		case R_PPC64_TOC:
			i.applyTocRel(ctx, loc, ctx.TOC.Value, a)
		case R_PPC64_TOC16_HA:
			writeU16(loc, uint16(ha(uint64(int64(s)+a-int64(toc)))))
		case R_PPC64_TOC16_LO:
			writeU16(loc, uint16(int64(s)+a-int64(toc)))
		case R_PPC64_TOC16_DS:
			val := int64(s) + a - int64(toc)
			check(val, -(1 << 15), 1 << 15)
			orU16(loc, uint16(val)&0xfffc)
		case R_PPC64_TOC16_LO_DS:
			orU16(loc, uint16(int64(s)+a-int64(toc))&0xfffc)
		case R_PPC64_REL24:
			val := int64(sym.GetAddr(ctx, NoOPD)) + a - int64(p)

			// The branch field holds 26 bits; the 25-bit gate is
			// deliberately conservative and may only add a thunk,
			// never miss one.
			if sym.HasPlt() || utils.SignExtend(val, 25) != val {
				ref := i.RangeExtn[idx]
				utils.Assert(ref.ThunkIdx != -1)

				thunk := i.OutputSection.Thunks[ref.ThunkIdx]
				val = int64(thunk.GetAddr(ref.SymIdx)) + a - int64(p)
			}

			check(val, -(1 << 25), 1 << 25)
			orU32(loc, uint32(utils.Bits(uint64(val), 25, 2))<<2)

			// If the callee is external, the PLT machinery saves %r2 to
			// the caller's save slot; the NOP placeholder after the call
			// becomes the restoring load.
			if sym.HasPlt() && uint64(rel.Offset)+8 <= uint64(len(buf)) &&
				readU32(buf[rel.Offset+4:]) == InsnNop {
				writeU32(buf[rel.Offset+4:], InsnLdTocSave)
			}
		case R_PPC64_REL32:
			val := int64(s) + a - int64(p)
			check(val, -(1 << 31), 1 << 31)
			writeU32(loc, uint32(val))
		case R_PPC64_REL64:
			writeU64(loc, uint64(int64(s)+a-int64(p)))
		case R_PPC64_REL16_HA:
			writeU16(loc, uint16(ha(uint64(int64(s)+a-int64(p)))))
		case R_PPC64_REL16_LO:
			writeU16(loc, uint16(int64(s)+a-int64(p)))
		case R_PPC64_PLT16_HA:
			writeU16(loc, uint16(ha(g+got-toc)))
		case R_PPC64_PLT16_HI:
			writeU16(loc, uint16(hi(g+got-toc)))
		case R_PPC64_PLT16_LO:
			writeU16(loc, uint16(lo(g+got-toc)))
		case R_PPC64_PLT16_LO_DS:
			orU16(loc, uint16(g+got-toc)&0xfffc)
		case R_PPC64_GOT_TPREL16_HA:
			writeU16(loc, uint16(ha(sym.GetGotTpAddr(ctx)-toc)))
		case R_PPC64_GOT_TPREL16_LO_DS:
			orU16(loc, uint16(sym.GetGotTpAddr(ctx)-toc)&0xfffc)
		case R_PPC64_GOT_TLSGD16_HA:
			writeU16(loc, uint16(ha(sym.GetTlsGdAddr(ctx)-toc)))
		case R_PPC64_GOT_TLSGD16_LO:
			writeU16(loc, uint16(sym.GetTlsGdAddr(ctx)-toc))
		case R_PPC64_GOT_TLSLD16_HA:
			writeU16(loc, uint16(ha(ctx.Got.GetTlsLdAddr(ctx)-toc)))
		case R_PPC64_GOT_TLSLD16_LO:
			writeU16(loc, uint16(ctx.Got.GetTlsLdAddr(ctx)-toc))
		case R_PPC64_DTPREL16_HA:
			writeU16(loc, uint16(ha(uint64(int64(s)+a-int64(ctx.DtpAddr)))))
		case R_PPC64_DTPREL16_LO:
			writeU16(loc, uint16(int64(s)+a-int64(ctx.DtpAddr)))
		case R_PPC64_TPREL16_HA:
			writeU16(loc, uint16(ha(uint64(int64(s)+a-int64(ctx.TpAddr)))))
		case R_PPC64_TPREL16_LO:
			writeU16(loc, uint16(int64(s)+a-int64(ctx.TpAddr)))
		case R_PPC64_PLTSEQ, R_PPC64_PLTCALL, R_PPC64_TLS,
			R_PPC64_TLSGD, R_PPC64_TLSLD:
			// markers for relaxation passes; nothing to write
		default:
			utils.Fatal(fmt.Sprintf("%s: apply reloc alloc: unknown type %s (%d)",
				i.Name(), RelocName(rel.Type()), rel.Type()))
		}
	}
}

// Debug and other non-allocated sections carry only a few kinds.
func (i *InputSection) ApplyRelocNonalloc(ctx *Context, buf []byte) {
	rels := i.GetRels()

	for idx := range rels {
		rel := &rels[idx]
		if rel.Type() == R_PPC64_NONE {
			continue
		}

		sym := i.ObjFile.Symbols[rel.Sym()]
		loc := buf[rel.Offset:]

		if sym.File == nil && !sym.IsImported {
			i.reportUndef(ctx, sym)
			continue
		}

		check := func(val int64, lo int64, hi int64) {
			if val < lo || hi <= val {
				i.reportRange(ctx, rel, sym, val, lo, hi)
			}
		}

		frag, fragAddend := i.GetFragment(rel)

		var s uint64
		var a int64
		if frag != nil {
			s = frag.GetAddr()
			a = int64(fragAddend)
		} else {
			s = sym.GetAddr(ctx, 0)
			a = rel.Addend
		}

		switch rel.Type() {
		case R_PPC64_ADDR64:
			if tomb, dead := i.getTombstone(sym, frag); dead {
				writeU64(loc, tomb)
			} else {
				writeU64(loc, uint64(int64(s)+a))
			}
		case R_PPC64_ADDR32:
			val := int64(s) + a
			check(val, 0, 1<<32)
			writeU32(loc, uint32(val))
		case R_PPC64_DTPREL64:
			writeU64(loc, uint64(int64(s)+a-int64(ctx.DtpAddr)))
		default:
			utils.Fatal(fmt.Sprintf("%s: apply reloc nonalloc: unknown type %s (%d)",
				i.Name(), RelocName(rel.Type()), rel.Type()))
		}
	}
}

// A reference from a debug section to a dead fragment or section gets a
// tombstone value instead of a stale address.
func (i *InputSection) getTombstone(sym *Symbol, frag *SectionFragment) (uint64, bool) {
	if frag != nil {
		if !frag.IsAlive {
			return 0, true
		}
		return 0, false
	}
	if sym.InputSection != nil && !sym.InputSection.IsAlive {
		return 0, true
	}
	return 0, false
}

// For relocations against a section symbol of a mergeable section, the
// addend picks the fragment.
func (i *InputSection) GetFragment(rel *Rela) (*SectionFragment, uint64) {
	f := i.ObjFile
	if rel.Sym() >= uint32(len(f.ElfSyms)) {
		return nil, 0
	}
	esym := &f.ElfSyms[rel.Sym()]
	if esym.Type() != uint8(elf.STT_SECTION) {
		return nil, 0
	}

	shndx := esym.GetShndx(f.SymtabShndxSec, rel.Sym())
	if int(shndx) >= len(f.MergeableSections) {
		return nil, 0
	}
	msec := f.MergeableSections[shndx]
	if msec == nil {
		return nil, 0
	}
	return msec.GetFragment(uint64(int64(esym.Val) + rel.Addend))
}
