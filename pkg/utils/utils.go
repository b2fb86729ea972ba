package utils

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"runtime/debug"
)

func Fatal(v any) {
	fmt.Printf("fatal: %v\n", v)
	debug.PrintStack()
	os.Exit(1)
}

func MustNo(err error) {
	if err != nil {
		Fatal(err)
	}
}

func Read[T any](content []byte, val *T) {
	reader := bytes.NewReader(content)
	err := binary.Read(reader, binary.BigEndian, val) // PPC64v1 is big endian
	MustNo(err)
}

func Write[T any](buf []byte, val T) {
	w := bytes.Buffer{}
	err := binary.Write(&w, binary.BigEndian, val)
	MustNo(err)
	copy(buf, w.Bytes())
}

func Assert(res bool) {
	if !res {
		Fatal(res)
	}
}

// o => -o
// plugin => -plugin, --plugin
func AddDashes(option string) []string {
	res := []string{}

	if len(option) == 1 {
		res = append(res, "-"+option)
	} else {
		res = append(res, "-"+option, "--"+option)
	}

	return res
}

func ReadSlice[T any](content []byte, size int) []T {
	Assert(len(content)%size == 0)
	ret := make([]T, 0)
	for len(content) > 0 {
		var ele T
		Read[T](content, &ele)
		ret = append(ret, ele)
		content = content[size:]
	}
	return ret
}

func AlignTo(val, align uint64) uint64 {
	if align == 0 {
		return val
	}
	return (val + align - 1) &^ (align - 1)
}

func RemoveIf[T any](elems []T, cond func(T) bool) []T {
	var i int
	for _, elem := range elems {
		if cond(elem) {
			continue
		}
		elems[i] = elem
		i++
	}
	return elems[:i]
}

// keeps the lowest size+1 bits and extends the sign bit
func SignExtend(val int64, size uint) int64 {
	return val << (63 - size) >> (63 - size)
}

func Bits(val uint64, hi uint, lo uint) uint64 {
	return (val >> lo) & ((1 << (hi - lo + 1)) - 1)
}

func Bit(val uint64, pos uint) uint64 {
	return (val >> pos) & 1
}
