package linker

import (
	"golang.org/x/sys/unix"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// The output buffer is the mapped file itself, so the copy phase writes
// straight to disk and CloseOutputFile only has to sync and unmap.
func OpenOutputFile(ctx *Context, filesize uint64) {
	fd, err := unix.Open(ctx.Args.Output,
		unix.O_RDWR|unix.O_CREAT|unix.O_TRUNC, 0755)
	utils.MustNo(err)

	err = unix.Ftruncate(fd, int64(filesize))
	utils.MustNo(err)

	buf, err := unix.Mmap(fd, 0, int(filesize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	utils.MustNo(err)

	ctx.outputFd = fd
	ctx.Buf = buf
}

func CloseOutputFile(ctx *Context) {
	utils.MustNo(unix.Msync(ctx.Buf, unix.MS_SYNC))
	utils.MustNo(unix.Munmap(ctx.Buf))
	utils.MustNo(unix.Close(ctx.outputFd))
	ctx.Buf = nil
}
