package main

import (
	"strings"

	"github.com/hcyang1106/ppc64v1-linker/pkg/linker"
	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

var version string

// functions handle errs themselves
func main() {
	ctx := linker.NewContext()
	// remaining contains -l and obj files
	remaining := ctx.ParseArgs(version)

	// if machine type not specified, find it in obj file
	if ctx.Args.Machine == linker.MachineTypeNone {
		for _, filename := range remaining {
			if strings.HasPrefix(filename, "-") {
				continue
			}
			file := linker.NewFile(filename)
			mType := linker.GetMachineTypeFromContent(file.Content)
			if mType != linker.MachineTypeNone {
				ctx.Args.Machine = mType
				break
			}
		}
	}
	if ctx.Args.Machine != linker.MachineTypePPC64V1 {
		utils.Fatal("unsupported machine type")
	}

	ctx.FillInObjFiles(remaining)
	linker.Link(ctx)
}
