package sandbox

// Limits are per-process resource ceilings applied before bubblewrap
// starts. Zero fields leave the inherited limit in place.
type Limits struct {
	MaxFileSize   uint64 `json:"fsize,omitempty"`
	MaxOpenFiles  uint64 `json:"nofile,omitempty"`
	MaxProcesses  uint64 `json:"nproc,omitempty"`
	MaxMemory     uint64 `json:"as,omitempty"`
	MaxCPUSeconds uint64 `json:"cpu,omitempty"`
}

// IsZero reports whether no limit is set.
func (l Limits) IsZero() bool {
	return l == Limits{}
}

// DefaultLimits are used when configuration sets none: 1 GiB files,
// 1024 descriptors, 120 CPU seconds.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:   1 << 30,
		MaxOpenFiles:  1024,
		MaxCPUSeconds: 120,
	}
}

// Or returns l, or def when l is zero.
func (l Limits) Or(def Limits) Limits {
	if l.IsZero() {
		return def
	}
	return l
}
