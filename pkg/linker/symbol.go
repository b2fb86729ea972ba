package linker

import (
	"debug/elf"
	"sync/atomic"
)

// capability flags, set during scanning with atomic or
const (
	NeedsGot uint32 = 1 << iota
	NeedsPlt
	NeedsOpd
	NeedsGotTp
	NeedsTlsGd
)

// GetAddr modifiers
const (
	NoPLT uint32 = 1 << iota
	NoOPD
)

type Symbol struct {
	File            *ObjectFile
	InputSection    *InputSection
	SectionFragment *SectionFragment
	Name            string
	Value           uint64
	SymIdx          uint32
	ElfType         uint8
	IsExported      bool
	IsImported      bool

	GotIdx   int32
	PltIdx   int32
	OpdIdx   int32
	GotTpIdx int32
	TlsGdIdx int32

	Flags atomic.Uint32
}

func NewSymbol(file *ObjectFile, name string) *Symbol {
	return &Symbol{
		File:     file,
		Name:     name,
		GotIdx:   -1,
		PltIdx:   -1,
		OpdIdx:   -1,
		GotTpIdx: -1,
		TlsGdIdx: -1,
	}
}

// either use fragment or input section
func (s *Symbol) SetInputSection(section *InputSection) {
	s.InputSection = section
	s.SectionFragment = nil
}

// either use fragment or input section
func (s *Symbol) SetSectionFragment(frag *SectionFragment) {
	s.SectionFragment = frag
	s.InputSection = nil
}

func (s *Symbol) IsIfunc() bool {
	return s.ElfType == STT_GNU_IFUNC
}

func (s *Symbol) IsFuncType() bool {
	return s.ElfType == uint8(elf.STT_FUNC) || s.ElfType == STT_GNU_IFUNC
}

func (s *Symbol) HasGot() bool   { return s.GotIdx != -1 }
func (s *Symbol) HasPlt() bool   { return s.PltIdx != -1 }
func (s *Symbol) HasOpd() bool   { return s.OpdIdx != -1 }
func (s *Symbol) HasGotTp() bool { return s.GotTpIdx != -1 }
func (s *Symbol) HasTlsGd() bool { return s.TlsGdIdx != -1 }

// A symbol can have several addresses: the OPD descriptor address when its
// address is taken as a function pointer, the PLT address for an imported
// function, and the plain entry point. opts selects between them.
func (s *Symbol) GetAddr(ctx *Context, opts uint32) uint64 {
	if s.HasOpd() && opts&NoOPD == 0 {
		return s.GetOpdAddr(ctx)
	}
	if s.HasPlt() && opts&NoPLT == 0 && s.IsImported {
		return s.GetPltAddr(ctx)
	}
	if s.SectionFragment != nil {
		return s.SectionFragment.GetAddr() + s.Value
	}
	if s.InputSection != nil {
		if !s.InputSection.IsAlive {
			return 0
		}
		return s.InputSection.GetAddr() + s.Value
	}
	return s.Value
}

func (s *Symbol) GetGotAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GotIdx)*GotEntrySize
}

func (s *Symbol) GetGotPltAddr(ctx *Context) uint64 {
	return ctx.GotPlt.Shdr.Addr + GotPltHdrSize + uint64(s.PltIdx)*GotPltEntrySize
}

func (s *Symbol) GetPltAddr(ctx *Context) uint64 {
	return ctx.Plt.Shdr.Addr + PltHdrSize + uint64(s.PltIdx)*PltEntrySize
}

func (s *Symbol) GetOpdAddr(ctx *Context) uint64 {
	return ctx.Opd.Shdr.Addr + uint64(s.OpdIdx)*OpdEntrySize
}

func (s *Symbol) GetGotTpAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.GotTpIdx)*GotEntrySize
}

func (s *Symbol) GetTlsGdAddr(ctx *Context) uint64 {
	return ctx.Got.Shdr.Addr + uint64(s.TlsGdIdx)*GotEntrySize
}

// overwrite the placeholder global with this file's definition
func (s *Symbol) ResolveTo(file *ObjectFile, other *Symbol) {
	s.File = file
	s.InputSection = other.InputSection
	s.SectionFragment = other.SectionFragment
	s.Value = other.Value
	s.SymIdx = other.SymIdx
	s.ElfType = other.ElfType
	s.IsImported = false
}

func (s *Symbol) Clear() {
	s.File = nil
	s.InputSection = nil
	s.SectionFragment = nil
	s.SymIdx = 0
	s.Value = 0
	s.ElfType = 0
}
