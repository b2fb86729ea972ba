package linker

import (
	"bytes"
	"sort"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

type MergeableSection struct {
	OutputSection *MergedSection
	P2Align       uint8
	Strs          []string
	FragOffsets   []uint64
	Fragments     []*SectionFragment
}

func (m *MergeableSection) GetFragment(offset uint64) (*SectionFragment, uint64) {
	pos := sort.Search(len(m.FragOffsets), func(i int) bool {
		return offset < m.FragOffsets[i]
	})
	// not found
	if pos == 0 {
		return nil, 0
	}

	idx := pos - 1
	return m.Fragments[idx], offset - m.FragOffsets[idx]
}

func splitMergeableSection(ctx *Context, isec *InputSection) *MergeableSection {
	m := &MergeableSection{
		OutputSection: GetMergedSectionInstance(
			ctx, isec.Name(), isec.Shdr().Type, isec.Shdr().Flags),
		P2Align: isec.P2Align,
	}

	data := isec.Contents
	var offset uint64
	for len(data) > 0 {
		end := bytes.IndexByte(data, 0)
		if end == -1 {
			utils.Fatal("string is not null terminated: " + isec.Name())
		}
		sub := string(data[:end+1])
		data = data[end+1:]
		m.Strs = append(m.Strs, sub)
		m.FragOffsets = append(m.FragOffsets, offset)
		offset += uint64(end + 1)
	}

	for _, str := range m.Strs {
		frag := m.OutputSection.Insert(str, m.P2Align)
		frag.IsAlive = true
		m.Fragments = append(m.Fragments, frag)
	}
	return m
}
