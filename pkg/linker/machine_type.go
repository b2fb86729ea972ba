package linker

import (
	"debug/elf"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

type MachineType uint8

const (
	MachineTypeNone MachineType = iota
	MachineTypePPC64V1
)

func (m *MachineType) String() string {
	switch *m {
	case MachineTypeNone:
		return "none"
	case MachineTypePPC64V1:
		return "elf64ppc"
	}

	utils.Fatal("Invalid machine type")
	return ""
}

func GetMachineTypeFromContent(content []byte) MachineType {
	fileType := GetFileTypeFromContent(content)
	switch fileType {
	case FileTypeObject:
		var machineType uint16
		utils.Read[uint16](content[18:], &machineType)
		switch elf.Machine(machineType) {
		case elf.EM_PPC64:
			// ELFv1 is the big-endian flavor
			if elf.Class(content[4]) == elf.ELFCLASS64 &&
				elf.Data(content[5]) == elf.ELFDATA2MSB {
				return MachineTypePPC64V1
			}
		}
	}

	return MachineTypeNone
}
