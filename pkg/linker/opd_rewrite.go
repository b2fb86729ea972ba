package linker

import (
	"debug/elf"
	"fmt"
	"sort"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// The compiler creates one .opd descriptor per function and makes the
// function symbols point into .opd rather than .text. That layout defeats
// graph traversals (every function is reachable through .opd), makes
// branch relocations target data, and forces dead descriptors into the
// output. This pass undoes it: function symbols are re-parented to their
// entry points in text, relocations that refer into .opd are rewritten to
// name the function symbols directly, and the input .opd is marked dead.
// Symbols that still need a descriptor get one in the output .opd via the
// NEEDS_OPD flag later.

type OpdSymbol struct {
	ROffset uint64
	Sym     *Symbol
}

func getOpdSection(file *ObjectFile) *InputSection {
	for _, isec := range file.InputSections {
		if isec != nil && isec.IsAlive && isec.Name() == ".opd" {
			return isec
		}
	}
	return nil
}

func getRelocationAt(isec *InputSection, offset uint64) *Rela {
	rels := isec.GetRels()
	pos := sort.Search(len(rels), func(i int) bool {
		return rels[i].Offset >= offset
	})
	if pos == len(rels) || rels[pos].Offset != offset {
		return nil
	}
	return &rels[pos]
}

func getOpdSymAt(syms []OpdSymbol, offset uint64) *Symbol {
	pos := sort.Search(len(syms), func(i int) bool {
		return syms[i].ROffset >= offset
	})
	if pos == len(syms) || syms[pos].ROffset != offset {
		return nil
	}
	return syms[pos].Sym
}

func RewriteOpd(ctx *Context) {
	utils.ParallelForEach(ctx.Args.ObjFiles, func(file *ObjectFile) {
		file.rewriteOpd(ctx)
	})
}

func (f *ObjectFile) rewriteOpd(ctx *Context) {
	opd := getOpdSection(f)
	if opd == nil {
		return
	}
	opd.IsAlive = false

	// Move symbols from .opd to .text.
	var opdSyms []OpdSymbol

	for _, sym := range f.Symbols {
		if sym.File != f || sym.InputSection != opd {
			continue
		}
		if !sym.IsFuncType() {
			continue
		}

		rel := getRelocationAt(opd, sym.Value)
		if rel == nil {
			utils.Fatal(fmt.Sprintf(
				"%s: cannot find a relocation in .opd for %s at offset 0x%x",
				f.File.Name, sym.Name, sym.Value))
		}

		sym2 := f.Symbols[rel.Sym()]
		if sym2.ElfType != uint8(elf.STT_SECTION) {
			utils.Fatal(fmt.Sprintf(
				"%s: bad relocation in .opd referring %s", f.File.Name, sym2.Name))
		}

		opdSyms = append(opdSyms, OpdSymbol{ROffset: sym.Value, Sym: sym})

		sym.SetInputSection(sym2.InputSection)
		sym.Value = uint64(rel.Addend)
	}

	// Sort symbols so that getOpdSymAt can do binary search.
	sort.Slice(opdSyms, func(i, j int) bool {
		return opdSyms[i].ROffset < opdSyms[j].ROffset
	})

	// Rewrite relocations directly referring .opd.
	for _, isec := range f.InputSections {
		if isec == nil || !isec.IsAlive || isec == opd {
			continue
		}

		rels := isec.GetRels()
		for idx := range rels {
			rel := &rels[idx]
			sym := f.Symbols[rel.Sym()]
			if sym.InputSection != opd {
				continue
			}

			realSym := getOpdSymAt(opdSyms, uint64(rel.Addend))
			if realSym == nil {
				utils.Fatal(fmt.Sprintf(
					"%s: cannot find a symbol in .opd for relocation at offset 0x%x",
					isec.Name(), rel.Addend))
			}

			rel.SetSym(realSym.SymIdx)
			rel.Addend = 0
		}
	}
}

// An exported function must be visible to other modules as a descriptor
// address, not a bare entry point, so it needs an output .opd entry. The
// same goes for the functions the ELF header refers to.
func ScanOpdSymbols(ctx *Context) {
	utils.ParallelForEach(ctx.Args.ObjFiles, func(file *ObjectFile) {
		for _, sym := range file.Symbols {
			if sym.File == file && sym.IsExported && sym.IsFuncType() {
				sym.Flags.Or(NeedsOpd)
			}
		}
	})

	mark := func(name string) {
		if name == "" {
			return
		}
		if sym, ok := ctx.SymbolMap[name]; ok && sym.File != nil && !sym.IsImported {
			sym.Flags.Or(NeedsOpd)
		}
	}

	mark(ctx.Args.Entry)
	mark(ctx.Args.Init)
	mark(ctx.Args.Fini)
}
