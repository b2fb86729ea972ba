package linker

import (
	"debug/elf"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// should setup size, offset before using
type OutputEhdrWriter struct {
	OutputWriter
}

func NewOutputEhdrWriter() *OutputEhdrWriter {
	return &OutputEhdrWriter{
		OutputWriter{
			Name: "ehdr",
			Shdr: Shdr{
				Flags:     uint64(elf.SHF_ALLOC),
				Size:      uint64(EhdrSize),
				AddrAlign: 8,
			},
		},
	}
}

// In ELFv1 the entry address names the entry function's descriptor when
// it has one; the loader reads the initial %r2 from it.
func getEntryAddress(ctx *Context) uint64 {
	if sym, ok := ctx.SymbolMap[ctx.Args.Entry]; ok && sym.File != nil {
		return sym.GetAddr(ctx, 0)
	}
	for _, osec := range ctx.OutputSections {
		if osec.Name == ".text" {
			return osec.Shdr.Addr
		}
	}
	return 0
}

func getFlags(ctx *Context) uint32 {
	utils.Assert(len(ctx.Args.ObjFiles) > 0)
	return ctx.Args.ObjFiles[0].GetEhdr().Flags
}

func (o *OutputEhdrWriter) CopyBuf(ctx *Context) {
	ehdr := &Ehdr{}
	WriteMagic(ehdr.Ident[:])
	ehdr.Ident[elf.EI_CLASS] = uint8(elf.ELFCLASS64)
	ehdr.Ident[elf.EI_DATA] = uint8(elf.ELFDATA2MSB)
	ehdr.Ident[elf.EI_VERSION] = uint8(elf.EV_CURRENT) // fixed usage
	ehdr.Ident[elf.EI_OSABI] = 0
	ehdr.Ident[elf.EI_ABIVERSION] = 0
	ehdr.Flags = getFlags(ctx)
	ehdr.Type = uint16(elf.ET_EXEC)
	ehdr.Machine = uint16(elf.EM_PPC64)
	ehdr.Version = uint32(elf.EV_CURRENT)
	ehdr.Entry = getEntryAddress(ctx)
	ehdr.EhSize = uint16(EhdrSize)
	ehdr.PhEntSize = uint16(PhdrSize)
	ehdr.ShOff = ctx.OutputShdrsWriter.Shdr.Offset
	ehdr.ShEntSize = uint16(ShdrSize)
	ehdr.PhOff = ctx.OutputPhdrsWriter.Shdr.Offset
	ehdr.PhNum = uint16(ctx.OutputPhdrsWriter.Shdr.Size / uint64(PhdrSize))
	ehdr.ShNum = uint16(ctx.OutputShdrsWriter.Shdr.Size / uint64(ShdrSize))
	ehdr.ShStrndx = uint16(ctx.OutputShStrTabWriter.Shndx)
	utils.Write[Ehdr](ctx.Buf[:], *ehdr)
}
