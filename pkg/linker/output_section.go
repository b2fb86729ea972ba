package linker

import (
	"debug/elf"
	"strings"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

type OutputSection struct {
	OutputWriter
	InputSections []*InputSection
	Thunks        []*RangeExtensionThunk
	Idx           uint32 // the index in ctx.OutputSections
}

func NewOutputSection(
	name string, typ uint32, flags uint64, idx uint32) *OutputSection {
	o := &OutputSection{OutputWriter: *NewOutputWriter()}
	o.Name = name
	o.Shdr.Type = typ
	o.Shdr.Flags = flags
	o.Idx = idx
	return o
}

func (o *OutputSection) IsExec() bool {
	return o.Shdr.Flags&uint64(elf.SHF_EXECINSTR) != 0
}

func (o *OutputSection) CopyBuf(ctx *Context) {
	if o.Shdr.Type == uint32(elf.SHT_NOBITS) {
		return
	}

	base := ctx.Buf[o.Shdr.Offset:]
	for _, isec := range o.InputSections {
		isec.WriteTo(ctx, base[isec.Offset:])
	}
	for _, thunk := range o.Thunks {
		thunk.CopyBuf(ctx)
	}
}

var prefixes = []string{
	".text.", ".data.rel.ro.", ".data.", ".rodata.", ".bss.rel.ro.",
	".bss.", ".init_array.", ".fini_array.", ".tbss.", ".tdata.",
	".gcc_except_table.", ".ctors.", ".dtors.",
}

func GetOutputName(name string, flags uint64) string {
	for _, prefix := range prefixes {
		stem := prefix[:len(prefix)-1]
		if name == stem || strings.HasPrefix(name, prefix) {
			return stem
		}
	}
	return name
}

func GetOutputSection(ctx *Context, name string, typ uint32, flags uint64) *OutputSection {
	name = GetOutputName(name, flags)
	flags = flags & ^uint64(elf.SHF_GROUP) & ^uint64(elf.SHF_MERGE) &
		^uint64(elf.SHF_STRINGS) & ^uint64(elf.SHF_COMPRESSED)

	for _, osec := range ctx.OutputSections {
		if name == osec.Name && typ == osec.Shdr.Type && flags == osec.Shdr.Flags {
			return osec
		}
	}

	osec := NewOutputSection(name, typ, flags, uint32(len(ctx.OutputSections)))
	ctx.OutputSections = append(ctx.OutputSections, osec)
	return osec
}

// check if is thread bss section
func isTBSS(o iOutputWriter) bool {
	shdr := o.GetShdr()
	return shdr.Type == uint32(elf.SHT_NOBITS) &&
		shdr.Flags&uint64(elf.SHF_TLS) != 0
}

func isBSS(o iOutputWriter) bool {
	shdr := o.GetShdr()
	return shdr.Type == uint32(elf.SHT_NOBITS) &&
		shdr.Flags&uint64(elf.SHF_TLS) == 0
}

func isNOTE(o iOutputWriter) bool {
	shdr := o.GetShdr()
	return shdr.Type == uint32(elf.SHT_NOTE) &&
		shdr.Flags&uint64(elf.SHF_ALLOC) != 0
}

func isTLS(o iOutputWriter) bool {
	return o.GetShdr().Flags&uint64(elf.SHF_TLS) != 0
}

func isALLOC(o iOutputWriter) bool {
	return o.GetShdr().Flags&uint64(elf.SHF_ALLOC) != 0
}

func isNONALLOC(o iOutputWriter) bool {
	return !isALLOC(o)
}

func outputWriterAttrToPhdrFlags(o iOutputWriter) uint32 {
	shdr := o.GetShdr()
	flags := uint32(elf.PF_R)
	if shdr.Flags&uint64(elf.SHF_WRITE) != 0 {
		flags |= uint32(elf.PF_W)
	}
	if shdr.Flags&uint64(elf.SHF_EXECINSTR) != 0 {
		flags |= uint32(elf.PF_X)
	}
	return flags
}

// members keep their stored order; offsets are relative to the section
func (o *OutputSection) AssignMemberOffsets() {
	offset := uint64(0)
	p2align := uint64(0)
	for _, isec := range o.InputSections {
		offset = utils.AlignTo(offset, 1<<isec.P2Align)
		isec.Offset = offset
		offset += isec.ShSize
		if p2align < uint64(isec.P2Align) {
			p2align = uint64(isec.P2Align)
		}
	}
	o.Shdr.Size = offset
	o.Shdr.AddrAlign = 1 << p2align
}

// thunks live past the last member; sizes are final after this
func (o *OutputSection) AppendThunks() {
	offset := o.Shdr.Size
	for _, thunk := range o.Thunks {
		offset = utils.AlignTo(offset, 4)
		thunk.Offset = offset
		offset += thunk.Size()
	}
	o.Shdr.Size = offset
}
