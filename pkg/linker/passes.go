package linker

import (
	"debug/elf"
	"sort"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

func ResolveSymbols(ctx *Context) {
	for _, file := range ctx.Args.ObjFiles {
		file.ResolveSymbols()
	}

	MarkLiveObjects(ctx)
	ClearSymbolsAndFiles(ctx)
}

func MarkLiveObjects(ctx *Context) {
	roots := make([]*ObjectFile, 0)
	for _, file := range ctx.Args.ObjFiles {
		if file.IsAlive {
			roots = append(roots, file)
		}
	}
	for len(roots) > 0 {
		roots = roots[0].MarkLiveObjects(ctx, roots)
		roots = roots[1:]
	}
}

func ClearSymbolsAndFiles(ctx *Context) {
	for _, file := range ctx.Args.ObjFiles {
		if !file.IsAlive {
			file.ClearUnusedGlobalSymbols(ctx)
		}
	}

	ctx.Args.ObjFiles = utils.RemoveIf(ctx.Args.ObjFiles,
		func(file *ObjectFile) bool {
			return !file.IsAlive
		})
}

// Symbols that stay unresolved become imports when requested; otherwise
// the scanner reports them as undefined references.
func MarkImportedSymbols(ctx *Context) {
	if !ctx.Args.ImportUndefined {
		return
	}
	for _, file := range ctx.Args.ObjFiles {
		for i := file.FirstGlobal; i < file.TotalSyms; i++ {
			sym := file.Symbols[i]
			if sym.File == nil && !sym.IsImported && sym.Name != "" {
				sym.IsImported = true
				ctx.ImportedSymbols = append(ctx.ImportedSymbols, sym)
			}
		}
	}
}

func MarkExportedSymbols(ctx *Context) {
	if !ctx.Args.ExportDynamic {
		return
	}
	for _, file := range ctx.Args.ObjFiles {
		for i := file.FirstGlobal; i < file.TotalSyms; i++ {
			sym := file.Symbols[i]
			if sym.File == file {
				sym.IsExported = true
			}
		}
	}
}

// change symbol corresponding sections to fragments
func RegisterSectionPieces(ctx *Context) {
	for _, file := range ctx.Args.ObjFiles {
		file.ParseMergeableSections(ctx)
	}
	for _, file := range ctx.Args.ObjFiles {
		file.ChangeMSecsSymbolsSection()
	}
}

func CreateSyntheticSections(ctx *Context) {
	ctx.OutputEhdrWriter = NewOutputEhdrWriter()
	ctx.OutputPhdrsWriter = NewOutputPhdrsWriter()
	ctx.OutputShdrsWriter = NewOutputShdrsWriter()
	ctx.OutputShStrTabWriter = NewOutputShStrTabWriter()
	ctx.Got = NewOutputGotSectionWriter()
	ctx.GotPlt = NewOutputGotPltSectionWriter()
	ctx.Plt = NewOutputPltSectionWriter()
	ctx.PltGot = NewOutputPltGotSectionWriter()
	ctx.RelDyn = NewOutputRelDynSectionWriter()
	ctx.Opd = NewOutputOpdSectionWriter()
}

func BinInputSections(ctx *Context) {
	for _, file := range ctx.Args.ObjFiles {
		for _, isec := range file.InputSections {
			if isec == nil || !isec.IsAlive {
				continue
			}
			shdr := isec.Shdr()
			osec := GetOutputSection(ctx, isec.Name(), shdr.Type, shdr.Flags)
			osec.InputSections = append(osec.InputSections, isec)
			isec.OutputSection = osec
		}
	}

	for _, osec := range ctx.OutputSections {
		osec.AssignMemberOffsets()
	}
}

// phases 1-3 run per object; the per-file dynrel counter has a single
// owner within the phase
func ScanRelocations(ctx *Context) {
	utils.ParallelForEach(ctx.Args.ObjFiles, func(file *ObjectFile) {
		for _, isec := range file.InputSections {
			if isec == nil || !isec.IsAlive {
				continue
			}
			if isec.Shdr().Flags&uint64(elf.SHF_ALLOC) == 0 {
				continue
			}
			isec.ScanRelocations(ctx)
		}
	})
}

// turn the capability flags the scanners set into allocated slots
func ConvertFlagsToSlots(ctx *Context) {
	convert := func(sym *Symbol) {
		flags := sym.Flags.Load()
		if flags == 0 {
			return
		}
		if flags&NeedsGot != 0 && !sym.HasGot() {
			ctx.Got.AddGotSym(sym)
		}
		if flags&NeedsPlt != 0 && !sym.HasPlt() {
			ctx.Plt.AddSymbol(sym)
		}
		if flags&NeedsOpd != 0 && !sym.HasOpd() {
			ctx.Opd.AddSymbol(ctx, sym)
		}
		if flags&NeedsGotTp != 0 && !sym.HasGotTp() {
			ctx.Got.AddGotTpSym(sym)
		}
		if flags&NeedsTlsGd != 0 && !sym.HasTlsGd() {
			ctx.Got.AddTlsGdSym(sym)
		}
	}

	for _, file := range ctx.Args.ObjFiles {
		for _, sym := range file.Symbols {
			if sym.File == file {
				convert(sym)
			}
		}
	}
	for _, sym := range ctx.ImportedSymbols {
		convert(sym)
	}

	if ctx.NeedsTlsld.Load() {
		ctx.Got.AddTlsLd()
	}
}

// ehdr and phdrs first; allocated chunks grouped the way the loader maps
// them; bookkeeping chunks last
func chunkRank(w iOutputWriter) int {
	switch w.(type) {
	case *OutputEhdrWriter:
		return 0
	case *OutputPhdrsWriter:
		return 1
	case *OutputShdrsWriter:
		return 102
	case *OutputShStrTabWriter:
		return 101
	}

	shdr := w.GetShdr()
	if shdr.Flags&uint64(elf.SHF_ALLOC) == 0 {
		return 100
	}
	if isNOTE(w) {
		return 2
	}
	writable := shdr.Flags&uint64(elf.SHF_WRITE) != 0
	exec := shdr.Flags&uint64(elf.SHF_EXECINSTR) != 0
	nobits := shdr.Type == uint32(elf.SHT_NOBITS)
	tls := shdr.Flags&uint64(elf.SHF_TLS) != 0

	switch {
	case !writable && !exec:
		return 3
	case exec:
		return 4
	case tls && !nobits:
		return 5
	case tls && nobits:
		return 6
	case !nobits:
		return 7
	default:
		return 8
	}
}

func CollectOutputWriters(ctx *Context) {
	writers := []iOutputWriter{
		ctx.OutputEhdrWriter,
		ctx.OutputPhdrsWriter,
	}
	for _, osec := range ctx.OutputSections {
		if osec.Shdr.Size > 0 {
			writers = append(writers, osec)
		}
	}
	for _, msec := range ctx.MergedSections {
		if msec.Shdr.Size > 0 {
			writers = append(writers, msec)
		}
	}
	if ctx.RelDyn.Shdr.Size > 0 {
		writers = append(writers, ctx.RelDyn)
	}
	if len(ctx.Plt.Symbols) > 0 {
		writers = append(writers, ctx.Plt, ctx.PltGot, ctx.GotPlt)
	}
	if ctx.Got.Shdr.Size > 0 {
		writers = append(writers, ctx.Got)
	}
	if ctx.Opd.Shdr.Size > 0 {
		writers = append(writers, ctx.Opd)
	}
	writers = append(writers, ctx.OutputShStrTabWriter, ctx.OutputShdrsWriter)

	sort.SliceStable(writers, func(i, j int) bool {
		return chunkRank(writers[i]) < chunkRank(writers[j])
	})
	ctx.OutputWriters = writers

	// section indices for everything that appears in the shdr table
	shndx := int64(1)
	for _, w := range ctx.OutputWriters {
		switch w.(type) {
		case *OutputEhdrWriter, *OutputPhdrsWriter, *OutputShdrsWriter:
			continue
		}
		w.SetShndx(shndx)
		shndx++
	}
}

func UpdateShdrSizes(ctx *Context) {
	for _, msec := range ctx.MergedSections {
		msec.AssignFragmentsOffsets()
	}
	ctx.GotPlt.UpdateShdr(ctx)
	ctx.RelDyn.UpdateShdr(ctx)
}

func UpdateBookkeepingSizes(ctx *Context) {
	ctx.OutputShStrTabWriter.UpdateShdr(ctx)
	ctx.OutputShdrsWriter.UpdateShdr(ctx)
	ctx.OutputPhdrsWriter.UpdateShdr(ctx)
}

// Lays the chunks out in the file and the address space. File offsets
// track virtual addresses modulo the page size so each LOAD segment maps
// directly.
func AssignOffsetsAndAddresses(ctx *Context) uint64 {
	addr := ImageBase
	fileoff := uint64(0)

	var prevFlags uint32
	first := true
	for _, w := range ctx.OutputWriters {
		shdr := w.GetShdr()

		if isALLOC(w) {
			flags := outputWriterAttrToPhdrFlags(w)
			if !first && flags != prevFlags {
				addr = utils.AlignTo(addr, PageSize)
				fileoff = utils.AlignTo(fileoff, PageSize)
			}
			first = false
			prevFlags = flags

			addr = utils.AlignTo(addr, shdr.AddrAlign)
			shdr.Addr = addr

			if shdr.Type != uint32(elf.SHT_NOBITS) {
				fileoff = utils.AlignTo(fileoff, shdr.AddrAlign)
				shdr.Offset = fileoff
				fileoff += shdr.Size
			} else {
				shdr.Offset = fileoff
			}
			addr += shdr.Size
		} else {
			fileoff = utils.AlignTo(fileoff, shdr.AddrAlign)
			shdr.Offset = fileoff
			fileoff += shdr.Size
		}
	}

	// TLS base; the PPC thread pointer sits 0x7000 past the segment
	ctx.TLSSegmentAddr = 0
	for _, w := range ctx.OutputWriters {
		if isTLS(w) && isALLOC(w) {
			ctx.TLSSegmentAddr = w.GetShdr().Addr
			break
		}
	}
	ctx.TpAddr = ctx.TLSSegmentAddr + 0x7000
	ctx.DtpAddr = ctx.TLSSegmentAddr + 0x8000

	// the TOC anchor becomes concrete once .got has an address
	ctx.TOC.Value = ctx.Got.Shdr.Addr + 0x8000

	return fileoff
}

// phases 4-5: disjoint byte ranges per chunk
func CopyBufs(ctx *Context) {
	utils.ParallelForEach(ctx.OutputWriters, func(w iOutputWriter) {
		w.CopyBuf(ctx)
	})
}

// the whole pipeline after command line handling
func Link(ctx *Context) {
	ctx.CreateInternalSymbols()

	ResolveSymbols(ctx)
	MarkImportedSymbols(ctx)
	MarkExportedSymbols(ctx)
	RegisterSectionPieces(ctx)

	RewriteOpd(ctx)
	ScanOpdSymbols(ctx)

	CreateSyntheticSections(ctx)
	BinInputSections(ctx)
	ScanRelocations(ctx)
	ctx.FlushErrors()

	ConvertFlagsToSlots(ctx)
	CreateRangeExtensionThunks(ctx)

	UpdateShdrSizes(ctx)
	CollectOutputWriters(ctx)
	UpdateBookkeepingSizes(ctx)

	filesize := AssignOffsetsAndAddresses(ctx)

	OpenOutputFile(ctx, filesize)
	CopyBufs(ctx)
	ctx.FlushErrors()
	CloseOutputFile(ctx)
}
