package linker

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

type Args struct {
	Output             string
	Machine            MachineType
	Entry              string
	Init               string
	Fini               string
	LibraryPaths       []string
	ExportDynamic      bool
	ImportUndefined    bool
	ApplyDynamicRelocs bool
	ObjFiles           []*ObjectFile
}

type Context struct {
	Args      Args
	Buf       []byte
	SymbolMap map[string]*Symbol

	OutputWriters  []iOutputWriter
	OutputSections []*OutputSection
	MergedSections []*MergedSection

	OutputEhdrWriter     *OutputEhdrWriter
	OutputShdrsWriter    *OutputShdrsWriter
	OutputPhdrsWriter    *OutputPhdrsWriter
	OutputShStrTabWriter *OutputShStrTabWriter
	Got                  *OutputGotSectionWriter
	GotPlt               *OutputGotPltSectionWriter
	Plt                  *OutputPltSectionWriter
	PltGot               *OutputPltGotSectionWriter
	RelDyn               *OutputRelDynSectionWriter
	Opd                  *OutputOpdSectionWriter

	// anchor symbol whose value is GOT + 0x8000; %r2 holds it at runtime
	TOC *Symbol

	ImportedSymbols []*Symbol

	TLSSegmentAddr uint64
	TpAddr         uint64
	DtpAddr        uint64

	NeedsTlsld atomic.Bool

	errMu  sync.Mutex
	Errors []error

	outputFd int
}

func NewContext() *Context {
	return &Context{
		Args: Args{
			Output:             "a.out",
			Machine:            MachineTypeNone,
			Entry:              "_start",
			Init:               "_init",
			Fini:               "_fini",
			ApplyDynamicRelocs: true,
		},
		SymbolMap: make(map[string]*Symbol),
	}
}

func (ctx *Context) GetSymbol(name string) *Symbol {
	if sym, ok := ctx.SymbolMap[name]; ok {
		return sym
	}
	sym := NewSymbol(nil, name)
	ctx.SymbolMap[name] = sym
	return sym
}

// recoverable errors (range violations, undefined references) accumulate
// here; the link continues and they are flushed before exit
func (ctx *Context) ReportError(err error) {
	ctx.errMu.Lock()
	ctx.Errors = append(ctx.Errors, err)
	ctx.errMu.Unlock()
}

func (ctx *Context) FlushErrors() {
	ctx.errMu.Lock()
	defer ctx.errMu.Unlock()
	for _, err := range ctx.Errors {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	if len(ctx.Errors) > 0 {
		os.Exit(1)
	}
}

func (ctx *Context) FillInObjFiles(remaining []string) {
	for _, name := range remaining {
		var file *File
		if lib, ok := trimPrefix(name, "-l"); ok {
			file = findLibrary(ctx, lib)
		} else {
			file = NewFile(name)
		}
		readFile(ctx, file)
	}
}

func trimPrefix(s, prefix string) (string, bool) {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):], true
	}
	return s, false
}

func findLibrary(ctx *Context, name string) *File {
	for _, dir := range ctx.Args.LibraryPaths {
		stem := dir + "/lib" + name + ".a"
		if f := NewFileNoFatal(stem); f != nil {
			return f
		}
	}
	utils.Fatal("library not found: " + name)
	return nil
}

func readFile(ctx *Context, file *File) {
	switch GetFileTypeFromContent(file.Content) {
	case FileTypeObject:
		CheckFileCompatibility(ctx, file)
		NewObjectFile(ctx, file, file.Parent == nil)
	case FileTypeArchive:
		for _, member := range ReadArchiveMembers(file) {
			if GetFileTypeFromContent(member.Content) == FileTypeObject {
				NewObjectFile(ctx, member, false)
			}
		}
	case FileTypeEmpty:
	default:
		utils.Fatal("unknown file type: " + file.Name)
	}
}

// the TOC anchor is a synthetic absolute symbol; its value is set once
// .got has an address
func (ctx *Context) CreateInternalSymbols() {
	ctx.TOC = ctx.GetSymbol(".TOC.")
}
