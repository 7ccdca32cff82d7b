package device

import (
	"fmt"
	"strings"
)

// Backend identifies a compute backend.
type Backend int

const (
	// BackendAuto picks the best backend available in this build.
	BackendAuto Backend = iota
	// BackendCPU runs kernels on a goroutine worker queue.
	BackendCPU
	// BackendMetal targets Apple GPUs. Not available in this build.
	BackendMetal
	// BackendCUDA targets NVIDIA GPUs. Not available in this build.
	BackendCUDA
)

func (b Backend) String() string {
	switch b {
	case BackendAuto:
		return "auto"
	case BackendCPU:
		return "cpu"
	case BackendMetal:
		return "metal"
	case BackendCUDA:
		return "cuda"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return BackendAuto, nil
	case "cpu":
		return BackendCPU, nil
	case "metal":
		return BackendMetal, nil
	case "cuda":
		return BackendCUDA, nil
	default:
		return BackendAuto, fmt.Errorf("unknown backend %q", s)
	}
}

// Available reports whether b can be opened in this build.
func (b Backend) Available() bool {
	return b == BackendAuto || b == BackendCPU
}
