package device

import (
	"os"
	"runtime"
	"strings"

	"golang.org/x/sys/cpu"
)

// EnvISA overrides the detected instruction-set tier.
const EnvISA = "GRAINVDB_DEVICE_ISA"

// ISA is a SIMD instruction-set tier.
type ISA uint8

const (
	// Generic is portable scalar code.
	Generic ISA = iota
	// NEON is ARM64 Advanced SIMD.
	NEON
	// SVE2 is ARM64 scalable vectors.
	SVE2
	// AVX2 is x86-64 AVX2 with FMA.
	AVX2
	// AVX512 is x86-64 AVX-512 F+BW.
	AVX512
)

func (i ISA) String() string {
	switch i {
	case Generic:
		return "generic"
	case NEON:
		return "neon"
	case SVE2:
		return "sve2"
	case AVX2:
		return "avx2"
	case AVX512:
		return "avx512"
	default:
		return "unknown"
	}
}

// ParseISA parses a tier name.
func ParseISA(s string) (ISA, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "generic":
		return Generic, true
	case "neon":
		return NEON, true
	case "sve2":
		return SVE2, true
	case "avx2":
		return AVX2, true
	case "avx512":
		return AVX512, true
	default:
		return Generic, false
	}
}

// Supported reports whether the host CPU implements isa.
func Supported(isa ISA) bool {
	switch isa {
	case Generic:
		return true
	case NEON:
		return cpu.ARM64.HasASIMD
	case SVE2:
		return cpu.ARM64.HasSVE2
	case AVX2:
		return cpu.X86.HasAVX2 && cpu.X86.HasFMA
	case AVX512:
		return cpu.X86.HasAVX512F && cpu.X86.HasAVX512BW
	default:
		return false
	}
}

// DetectISA returns the best supported tier, honouring EnvISA when it names
// a tier the CPU supports.
func DetectISA() ISA {
	if v := os.Getenv(EnvISA); v != "" {
		if isa, ok := ParseISA(v); ok && Supported(isa) {
			return isa
		}
	}
	return bestISA()
}

func bestISA() ISA {
	switch runtime.GOARCH {
	case "amd64":
		if Supported(AVX512) {
			return AVX512
		}
		if Supported(AVX2) {
			return AVX2
		}
	case "arm64":
		// Apple's SVE2 is not native; NEON wins there.
		if Supported(SVE2) && runtime.GOOS != "darwin" {
			return SVE2
		}
		if Supported(NEON) {
			return NEON
		}
	}
	return Generic
}
