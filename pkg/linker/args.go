package linker

import (
	"fmt"
	"os"
	"strings"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

// Returns the args that are not consumed here: object files and -l
// specifiers, resolved later by FillInObjFiles.
func (ctx *Context) ParseArgs(version string) []string {
	args := os.Args[1:]

	dashes := func(name string) []string {
		return utils.AddDashes(name)
	}

	arg := ""
	readArg := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				if len(args) == 1 {
					utils.Fatal(fmt.Sprintf("option -%s: argument missing", name))
				}
				arg = args[1]
				args = args[2:]
				return true
			}

			prefix := opt
			if len(name) > 1 {
				prefix += "="
			}
			if strings.HasPrefix(args[0], prefix) {
				arg = args[0][len(prefix):]
				args = args[1:]
				return true
			}
		}
		return false
	}

	readFlag := func(name string) bool {
		for _, opt := range dashes(name) {
			if args[0] == opt {
				args = args[1:]
				return true
			}
		}
		return false
	}

	remaining := make([]string, 0)
	for len(args) > 0 {
		switch {
		case readFlag("help"):
			fmt.Printf("usage: %s [options] file...\n", os.Args[0])
			os.Exit(0)
		case readArg("o"), readArg("output"):
			ctx.Args.Output = arg
		case readArg("m"):
			switch arg {
			case "elf64ppc":
				ctx.Args.Machine = MachineTypePPC64V1
			default:
				utils.Fatal(fmt.Sprintf("unknown -m argument: %s", arg))
			}
		case readArg("e"), readArg("entry"):
			ctx.Args.Entry = arg
		case readArg("init"):
			ctx.Args.Init = arg
		case readArg("fini"):
			ctx.Args.Fini = arg
		case readArg("L"):
			ctx.Args.LibraryPaths = append(ctx.Args.LibraryPaths, arg)
		case readFlag("export-dynamic"), readFlag("E"):
			ctx.Args.ExportDynamic = true
		case readFlag("import-undefined"):
			ctx.Args.ImportUndefined = true
		case readFlag("apply-dynamic-relocs"):
			ctx.Args.ApplyDynamicRelocs = true
		case readFlag("no-apply-dynamic-relocs"):
			ctx.Args.ApplyDynamicRelocs = false
		case readFlag("v"), readFlag("version"):
			fmt.Printf("ppc64v1-linker %s\n", version)
			os.Exit(0)
		case readFlag("static"):
			// always static
		default:
			if strings.HasPrefix(args[0], "-l") {
				remaining = append(remaining, args[0])
				args = args[1:]
				continue
			}
			if strings.HasPrefix(args[0], "-") {
				utils.Fatal(fmt.Sprintf("unknown command line option: %s", args[0]))
			}
			remaining = append(remaining, args[0])
			args = args[1:]
		}
	}
	return remaining
}
