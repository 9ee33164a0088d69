package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	original := Version
	defer func() { Version = original }()

	tests := []struct {
		version string
		wantDev bool
	}{
		{"dev", true},
		{"v1.2.0", false},
		{"v1.2.0-dev", false},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			Version = tt.version

			if got := IsDev(); got != tt.wantDev {
				t.Errorf("IsDev() = %v, want %v", got, tt.wantDev)
			}
			s := String()
			if !strings.HasPrefix(s, "warden "+tt.version+" ") {
				t.Errorf("String() = %q, want prefix %q", s, "warden "+tt.version)
			}
			if !strings.Contains(s, runtime.GOOS+"/"+runtime.GOARCH) {
				t.Errorf("String() = %q, missing platform", s)
			}
		})
	}
}
