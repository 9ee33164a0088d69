// Package version reports the warden build version.
package version

import (
	"fmt"
	"runtime"
)

// Version is overridden at build time:
//
//	-ldflags "-X github.com/xdg/warden/internal/version.Version=v1.0.0"
var Version = "dev"

// IsDev reports whether this is a development build.
func IsDev() bool {
	return Version == "dev"
}

// String returns a one-line description used by "warden version".
func String() string {
	return fmt.Sprintf("warden %s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
