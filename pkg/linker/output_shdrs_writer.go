package linker

import (
	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// should setup size, offset before using
type OutputShdrsWriter struct {
	OutputWriter
}

func NewOutputShdrsWriter() *OutputShdrsWriter {
	return &OutputShdrsWriter{
		OutputWriter{
			Name: "shdr",
			Shdr: Shdr{
				AddrAlign: 8,
			},
		},
	}
}

// should setup ctx.OutputWriters before calling
func (o *OutputShdrsWriter) UpdateShdr(ctx *Context) {
	n := int64(0)
	for _, w := range ctx.OutputWriters {
		if w.GetShndx() > 0 {
			n = max(n, w.GetShndx())
		}
	}
	o.Shdr.Size = uint64(n+1) * uint64(ShdrSize)
}

func (o *OutputShdrsWriter) CopyBuf(ctx *Context) {
	base := ctx.Buf[o.Shdr.Offset:]
	utils.Write[Shdr](base, Shdr{})

	for _, w := range ctx.OutputWriters {
		if w.GetShndx() > 0 {
			utils.Write[Shdr](base[w.GetShndx()*int64(ShdrSize):], *w.GetShdr())
		}
	}
}
