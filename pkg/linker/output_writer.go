package linker

type iOutputWriter interface {
	GetName() string
	GetShdr() *Shdr
	GetShndx() int64
	SetShndx(shndx int64)
	UpdateShdr(ctx *Context)
	CopyBuf(ctx *Context)
}

type OutputWriter struct {
	Name  string
	Shdr  Shdr
	Shndx int64
}

func NewOutputWriter() *OutputWriter {
	return &OutputWriter{
		Shdr: Shdr{
			AddrAlign: 1,
		},
	}
}

func (o *OutputWriter) GetName() string {
	return o.Name
}

func (o *OutputWriter) GetShdr() *Shdr {
	return &o.Shdr
}

func (o *OutputWriter) GetShndx() int64 {
	return o.Shndx
}

func (o *OutputWriter) SetShndx(shndx int64) {
	o.Shndx = shndx
}

func (o *OutputWriter) UpdateShdr(ctx *Context) {}

func (o *OutputWriter) CopyBuf(ctx *Context) {}
