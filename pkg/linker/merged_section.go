package linker

import (
	"debug/elf"
	"sort"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

type MergedSection struct {
	OutputWriter
	Map map[string]*SectionFragment
}

func NewMergedSection(name string, flags uint64, typ uint32) *MergedSection {
	m := &MergedSection{
		OutputWriter: *NewOutputWriter(),
		Map:          make(map[string]*SectionFragment),
	}
	m.Name = name
	m.Shdr.Flags = flags
	m.Shdr.Type = typ
	return m
}

func GetMergedSectionInstance(ctx *Context, name string, typ uint32, flags uint64) *MergedSection {
	name = GetOutputName(name, flags)
	flags = flags & ^uint64(elf.SHF_GROUP) & ^uint64(elf.SHF_MERGE) &
		^uint64(elf.SHF_STRINGS) & ^uint64(elf.SHF_COMPRESSED)

	for _, osec := range ctx.MergedSections {
		if name == osec.Name && flags == osec.Shdr.Flags && typ == osec.Shdr.Type {
			return osec
		}
	}

	osec := NewMergedSection(name, flags, typ)
	ctx.MergedSections = append(ctx.MergedSections, osec)
	return osec
}

func (m *MergedSection) Insert(key string, p2align uint8) *SectionFragment {
	if frag, ok := m.Map[key]; ok {
		if frag.P2Align < p2align {
			frag.P2Align = p2align
		}
		return frag
	}
	frag := NewSectionFragment(m)
	frag.P2Align = p2align
	m.Map[key] = frag
	return frag
}

// m.Map stores all the substrings->fragments
func (m *MergedSection) AssignFragmentsOffsets() {
	type f struct {
		Key string
		Val *SectionFragment
	}
	var fragments []f
	for key, val := range m.Map {
		fragments = append(fragments, f{
			Key: key,
			Val: val,
		})
	}

	sortFunc := func(i, j int) bool {
		x := fragments[i]
		y := fragments[j]
		if x.Val.P2Align != y.Val.P2Align {
			return x.Val.P2Align < y.Val.P2Align
		}
		if len(x.Key) != len(y.Key) {
			return len(x.Key) < len(y.Key)
		}
		// alphabetical
		return x.Key < y.Key
	}
	sort.SliceStable(fragments, sortFunc)

	offset := uint64(0)
	p2align := uint64(0)
	for _, frag := range fragments {
		offset = utils.AlignTo(offset, 1<<frag.Val.P2Align)
		frag.Val.Offset = uint32(offset)
		offset += uint64(len(frag.Key))
		if p2align < uint64(frag.Val.P2Align) {
			p2align = uint64(frag.Val.P2Align)
		}
	}

	m.Shdr.Size = utils.AlignTo(offset, 1<<p2align)
	m.Shdr.AddrAlign = 1 << p2align
}

func (m *MergedSection) CopyBuf(ctx *Context) {
	start := ctx.Buf[m.Shdr.Offset:]
	for key, frag := range m.Map {
		// no need to align because it is already aligned
		// map is unordered but offsets are already assigned
		copy(start[frag.Offset:], key)
	}
}
