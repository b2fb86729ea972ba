package linker

// Relocation types for the big-endian PPC64 ELFv1 ABI. Values match
// glibc's elf.h. Only the kinds the backend accepts are listed, plus the
// two dynamic relocation kinds it emits.
const (
	R_PPC64_NONE              uint32 = 0
	R_PPC64_ADDR32            uint32 = 1
	R_PPC64_REL24             uint32 = 10
	R_PPC64_RELATIVE          uint32 = 22
	R_PPC64_REL32             uint32 = 26
	R_PPC64_PLT16_LO          uint32 = 29
	R_PPC64_PLT16_HI          uint32 = 30
	R_PPC64_PLT16_HA          uint32 = 31
	R_PPC64_ADDR64            uint32 = 38
	R_PPC64_REL64             uint32 = 44
	R_PPC64_TOC16             uint32 = 47
	R_PPC64_TOC16_LO          uint32 = 48
	R_PPC64_TOC16_HI          uint32 = 49
	R_PPC64_TOC16_HA          uint32 = 50
	R_PPC64_TOC               uint32 = 51
	R_PPC64_PLT16_LO_DS       uint32 = 60
	R_PPC64_TOC16_DS          uint32 = 63
	R_PPC64_TOC16_LO_DS       uint32 = 64
	R_PPC64_TLS               uint32 = 67
	R_PPC64_TPREL16           uint32 = 69
	R_PPC64_TPREL16_LO        uint32 = 70
	R_PPC64_TPREL16_HI        uint32 = 71
	R_PPC64_TPREL16_HA        uint32 = 72
	R_PPC64_DTPREL16          uint32 = 74
	R_PPC64_DTPREL16_LO       uint32 = 75
	R_PPC64_DTPREL16_HI       uint32 = 76
	R_PPC64_DTPREL16_HA       uint32 = 77
	R_PPC64_DTPREL64          uint32 = 78
	R_PPC64_GOT_TLSGD16       uint32 = 82
	R_PPC64_GOT_TLSGD16_LO    uint32 = 83
	R_PPC64_GOT_TLSGD16_HI    uint32 = 84
	R_PPC64_GOT_TLSGD16_HA    uint32 = 85
	R_PPC64_GOT_TLSLD16       uint32 = 86
	R_PPC64_GOT_TLSLD16_LO    uint32 = 87
	R_PPC64_GOT_TLSLD16_HI    uint32 = 88
	R_PPC64_GOT_TLSLD16_HA    uint32 = 89
	R_PPC64_GOT_TPREL16_DS    uint32 = 90
	R_PPC64_GOT_TPREL16_LO_DS uint32 = 91
	R_PPC64_GOT_TPREL16_HI    uint32 = 92
	R_PPC64_GOT_TPREL16_HA    uint32 = 93
	R_PPC64_TLSGD             uint32 = 107
	R_PPC64_TLSLD             uint32 = 108
	R_PPC64_PLTSEQ            uint32 = 119
	R_PPC64_PLTCALL           uint32 = 120
	R_PPC64_IRELATIVE         uint32 = 248
	R_PPC64_REL16             uint32 = 249
	R_PPC64_REL16_LO          uint32 = 250
	R_PPC64_REL16_HI          uint32 = 251
	R_PPC64_REL16_HA          uint32 = 252
)

const STT_GNU_IFUNC uint8 = 10

func RelocName(typ uint32) string {
	switch typ {
	case R_PPC64_NONE:
		return "R_PPC64_NONE"
	case R_PPC64_ADDR32:
		return "R_PPC64_ADDR32"
	case R_PPC64_REL24:
		return "R_PPC64_REL24"
	case R_PPC64_RELATIVE:
		return "R_PPC64_RELATIVE"
	case R_PPC64_REL32:
		return "R_PPC64_REL32"
	case R_PPC64_PLT16_LO:
		return "R_PPC64_PLT16_LO"
	case R_PPC64_PLT16_HI:
		return "R_PPC64_PLT16_HI"
	case R_PPC64_PLT16_HA:
		return "R_PPC64_PLT16_HA"
	case R_PPC64_ADDR64:
		return "R_PPC64_ADDR64"
	case R_PPC64_REL64:
		return "R_PPC64_REL64"
	case R_PPC64_TOC16:
		return "R_PPC64_TOC16"
	case R_PPC64_TOC16_LO:
		return "R_PPC64_TOC16_LO"
	case R_PPC64_TOC16_HI:
		return "R_PPC64_TOC16_HI"
	case R_PPC64_TOC16_HA:
		return "R_PPC64_TOC16_HA"
	case R_PPC64_TOC:
		return "R_PPC64_TOC"
	case R_PPC64_PLT16_LO_DS:
		return "R_PPC64_PLT16_LO_DS"
	case R_PPC64_TOC16_DS:
		return "R_PPC64_TOC16_DS"
	case R_PPC64_TOC16_LO_DS:
		return "R_PPC64_TOC16_LO_DS"
	case R_PPC64_TLS:
		return "R_PPC64_TLS"
	case R_PPC64_TPREL16_HA:
		return "R_PPC64_TPREL16_HA"
	case R_PPC64_TPREL16_LO:
		return "R_PPC64_TPREL16_LO"
	case R_PPC64_DTPREL16_HA:
		return "R_PPC64_DTPREL16_HA"
	case R_PPC64_DTPREL16_LO:
		return "R_PPC64_DTPREL16_LO"
	case R_PPC64_DTPREL64:
		return "R_PPC64_DTPREL64"
	case R_PPC64_GOT_TLSGD16_HA:
		return "R_PPC64_GOT_TLSGD16_HA"
	case R_PPC64_GOT_TLSGD16_LO:
		return "R_PPC64_GOT_TLSGD16_LO"
	case R_PPC64_GOT_TLSLD16_HA:
		return "R_PPC64_GOT_TLSLD16_HA"
	case R_PPC64_GOT_TLSLD16_LO:
		return "R_PPC64_GOT_TLSLD16_LO"
	case R_PPC64_GOT_TPREL16_HA:
		return "R_PPC64_GOT_TPREL16_HA"
	case R_PPC64_GOT_TPREL16_LO_DS:
		return "R_PPC64_GOT_TPREL16_LO_DS"
	case R_PPC64_TLSGD:
		return "R_PPC64_TLSGD"
	case R_PPC64_TLSLD:
		return "R_PPC64_TLSLD"
	case R_PPC64_PLTSEQ:
		return "R_PPC64_PLTSEQ"
	case R_PPC64_PLTCALL:
		return "R_PPC64_PLTCALL"
	case R_PPC64_IRELATIVE:
		return "R_PPC64_IRELATIVE"
	case R_PPC64_REL16_HA:
		return "R_PPC64_REL16_HA"
	case R_PPC64_REL16_LO:
		return "R_PPC64_REL16_LO"
	}
	return "unknown"
}
