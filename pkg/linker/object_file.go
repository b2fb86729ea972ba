package linker

import (
	"debug/elf"
	"math"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

type ObjectFile struct {
	InputFile

	SymtabShndxSec    []uint32
	InputSections     []*InputSection
	MergeableSections []*MergeableSection
	LocalSymbols      []*Symbol
	TotalSyms         uint32

	// dynamic relocations this file will emit, counted during scanning,
	// and this file's base offset in .rela.dyn
	NumDynrel    uint64
	RelDynOffset uint64
}

func NewObjectFile(ctx *Context, file *File, isAlive bool) *ObjectFile {
	f := &ObjectFile{
		InputFile: NewInputFile(file, isAlive),
	}
	f.Parse(ctx)
	ctx.Args.ObjFiles = append(ctx.Args.ObjFiles, f)
	return f
}

func (f *ObjectFile) Parse(ctx *Context) {
	f.ParseSymTab()
	f.ParseSymtabShndxSec()
	f.ParseInputSections()
	f.ParseSymbols(ctx) // should be after parsing sections
}

func (f *ObjectFile) ParseSymtabShndxSec() {
	secHdr := f.FindSectionHdr(uint32(elf.SHT_SYMTAB_SHNDX))
	if secHdr != nil {
		content := f.GetBytesFromShdr(secHdr)
		f.SymtabShndxSec = utils.ReadSlice[uint32](content, 4)
	}
}

// fill in input sections field; bookkeeping sections get no InputSection
func (f *ObjectFile) ParseInputSections() {
	f.InputSections = make([]*InputSection, len(f.ElfSecHdrs))
	for i := range f.ElfSecHdrs {
		hdr := &f.ElfSecHdrs[i]
		switch elf.SectionType(hdr.Type) {
		case elf.SHT_GROUP, elf.SHT_SYMTAB, elf.SHT_STRTAB, elf.SHT_REL,
			elf.SHT_RELA, elf.SHT_NULL, elf.SHT_SYMTAB_SHNDX:
		default:
			f.InputSections[i] = NewInputSection(f, uint32(i))
		}
	}

	// attach relocation sections to their targets
	for i := range f.ElfSecHdrs {
		hdr := &f.ElfSecHdrs[i]
		if hdr.Type != uint32(elf.SHT_RELA) {
			continue
		}
		utils.Assert(hdr.Info < uint32(len(f.InputSections)))
		if target := f.InputSections[hdr.Info]; target != nil {
			utils.Assert(target.RelsecIdx == math.MaxUint32)
			target.RelsecIdx = uint32(i)
		}
	}
}

// fill in LocalSymbols and Symbols
// two kinds of special symbols, abs and undefined
// abs => no section
func (f *ObjectFile) ParseSymbols(ctx *Context) {
	f.LocalSymbols = make([]*Symbol, 0)
	f.Symbols = make([]*Symbol, 0)

	for i := uint32(0); i < uint32(len(f.ElfSyms)); i++ {
		esym := &f.ElfSyms[i]
		if i == 0 {
			// first symbol is not used
			first := NewSymbol(f, "")
			f.LocalSymbols = append(f.LocalSymbols, first)
			f.Symbols = append(f.Symbols, first)
			continue
		}

		name := ElfGetName(f.SymStrTab, esym.Name)

		if i < f.FirstGlobal {
			sym := NewSymbol(f, name)
			sym.Value = esym.Val
			sym.SymIdx = i
			sym.ElfType = esym.Type()
			if !esym.IsAbs() && !esym.IsUndef() {
				shndx := esym.GetShndx(f.SymtabShndxSec, i)
				sym.SetInputSection(f.InputSections[shndx])
			}
			f.LocalSymbols = append(f.LocalSymbols, sym)
			f.Symbols = append(f.Symbols, sym)
			continue
		}

		f.Symbols = append(f.Symbols, ctx.GetSymbol(name))
	}

	f.TotalSyms = uint32(len(f.Symbols))
}

// bind global placeholders to this file's definitions
func (f *ObjectFile) ResolveSymbols() {
	for i := f.FirstGlobal; i < f.TotalSyms; i++ {
		esym := &f.ElfSyms[i]
		if esym.IsUndef() {
			continue
		}
		sym := f.Symbols[i]
		if sym.File != nil {
			continue
		}

		sym.File = f
		sym.Value = esym.Val
		sym.SymIdx = i
		sym.ElfType = esym.Type()
		sym.IsImported = false
		if esym.IsAbs() || esym.IsCommon() {
			sym.SetInputSection(nil)
		} else {
			shndx := esym.GetShndx(f.SymtabShndxSec, i)
			sym.SetInputSection(f.InputSections[shndx])
		}
	}
}

func (f *ObjectFile) MarkLiveObjects(ctx *Context, roots []*ObjectFile) []*ObjectFile {
	for i := f.FirstGlobal; i < f.TotalSyms; i++ {
		esym := &f.ElfSyms[i]
		sym := f.Symbols[i]
		//necessary
		if sym.File == nil {
			continue
		}
		if esym.IsUndef() && !sym.File.IsAlive {
			sym.File.IsAlive = true
			roots = append(roots, sym.File)
		}
	}
	return roots
}

func (f *ObjectFile) ClearUnusedGlobalSymbols(ctx *Context) {
	for i := f.FirstGlobal; i < f.TotalSyms; i++ {
		sym := f.Symbols[i]
		if sym.File == f {
			sym.Clear()
		}
	}
}

// SHF_MERGE|SHF_STRINGS sections are cut into fragments so identical
// strings are stored once in the output
func (f *ObjectFile) ParseMergeableSections(ctx *Context) {
	f.MergeableSections = make([]*MergeableSection, len(f.InputSections))
	for i, isec := range f.InputSections {
		if isec == nil || !isec.IsAlive {
			continue
		}
		shdr := isec.Shdr()
		if shdr.Flags&uint64(elf.SHF_MERGE) == 0 ||
			shdr.Flags&uint64(elf.SHF_STRINGS) == 0 {
			continue
		}
		f.MergeableSections[i] = splitMergeableSection(ctx, isec)
		isec.IsAlive = false
	}
}

// change symbol corresponding sections to fragments
func (f *ObjectFile) ChangeMSecsSymbolsSection() {
	for _, sym := range f.Symbols {
		if sym.File != f || sym.InputSection == nil {
			continue
		}
		msec := f.MergeableSections[sym.InputSection.Shndx]
		if msec == nil {
			continue
		}
		frag, fragOffset := msec.GetFragment(sym.Value)
		if frag == nil {
			utils.Fatal("bad symbol value in mergeable section: " + sym.Name)
		}
		sym.SetSectionFragment(frag)
		sym.Value = fragOffset
	}
}
