package linker

import (
	"encoding/binary"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// In ELFv1 a function pointer does not refer to the entry point of a
// function but to a "function descriptor": a 24-byte tuple of an entry
// point address, a %r2 (TOC) value for the callee, and an environment
// word. Compiler-emitted descriptors live in .opd. PPC lacks PC-relative
// data access, so position-independent code keeps GOT + 0x8000 in %r2 and
// addresses globals relative to it. Calling into another module requires
// loading the callee's TOC from its descriptor, and restoring the caller's
// after return.

const PltHdrSize = 52
const PltEntrySize = 8
const ThunkSize = 28
const OpdEntrySize = 24
const GotEntrySize = 8

// .got.plt starts with the resolver's descriptor, followed by one
// 24-byte descriptor slot per PLT symbol.
const GotPltHdrSize = 24
const GotPltEntrySize = 24

const InsnNop uint32 = 0x60000000
const InsnLdTocSave uint32 = 0xe8410028 // ld r2, 40(r1)

func lo(x uint64) uint64       { return x & 0xffff }
func hi(x uint64) uint64       { return x >> 16 }
func ha(x uint64) uint64       { return (x + 0x8000) >> 16 }
func high(x uint64) uint64     { return (x >> 16) & 0xffff }
func higha(x uint64) uint64    { return ((x + 0x8000) >> 16) & 0xffff }
func higher(x uint64) uint64   { return (x >> 32) & 0xffff }
func highera(x uint64) uint64  { return ((x + 0x8000) >> 32) & 0xffff }
func highest(x uint64) uint64  { return x >> 48 }
func highesta(x uint64) uint64 { return (x + 0x8000) >> 48 }

// all section bytes are big-endian regardless of the host
func writeU16(buf []byte, val uint16) { binary.BigEndian.PutUint16(buf, val) }
func writeU32(buf []byte, val uint32) { binary.BigEndian.PutUint32(buf, val) }
func writeU64(buf []byte, val uint64) { binary.BigEndian.PutUint64(buf, val) }

func readU32(buf []byte) uint32 { return binary.BigEndian.Uint32(buf) }
func readU64(buf []byte) uint64 { return binary.BigEndian.Uint64(buf) }

// OR-combine into an existing instruction word, preserving opcode bits
func orU16(buf []byte, val uint16) {
	writeU16(buf, binary.BigEndian.Uint16(buf)|val)
}

func orU32(buf []byte, val uint32) {
	writeU32(buf, binary.BigEndian.Uint32(buf)|val)
}

// .plt is used only for lazy symbol resolution on PPC64. All PLT calls are
// made via range extension thunks even if they are within reach. Thunks
// read addresses from .got.plt and jump there, so once final addresses are
// written to .got.plt, the thunks skip .plt entirely.
//
// The header computes its own address with the bcl/mflr trick, adds the
// displacement stored at offset 44 to reach .got.plt, and jumps through
// the resolver's descriptor stored there.
func WritePltHeader(ctx *Context, buf []byte) {
	insns := []uint32{
		0x7d8802a6, // mflr    r12
		0x429f0005, // bcl     20, 31, 4 // obtain PC
		0x7d6802a6, // mflr    r11
		0xe84b0024, // ld      r2,36(r11)
		0x7d8803a6, // mtlr    r12
		0x7d625a14, // add     r11,r2,r11
		0xe98b0000, // ld      r12,0(r11)
		0xe84b0008, // ld      r2,8(r11)
		0x7d8903a6, // mtctr   r12
		0xe96b0010, // ld      r11,16(r11)
		0x4e800420, // bctr
		// .quad .got.plt - .plt - 8
		0x00000000,
		0x00000000,
	}
	utils.Assert(len(insns)*4 == PltHdrSize)

	for i, insn := range insns {
		writeU32(buf[i*4:], insn)
	}
	writeU64(buf[44:], ctx.GotPlt.Shdr.Addr-ctx.Plt.Shdr.Addr-8)
}

func WritePltEntry(ctx *Context, buf []byte, sym *Symbol) {
	offset := ctx.Plt.Shdr.Addr - sym.GetPltAddr(ctx) - 4
	writeU32(buf[0:], 0x38000000|uint32(sym.PltIdx))          // li %r0, PLT_INDEX
	writeU32(buf[4:], 0x4b000000|(uint32(offset)&0x00ffffff)) // b  plt0
}
