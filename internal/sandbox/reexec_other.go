//go:build !linux

package sandbox

// MaybeInit is a no-op where no sandbox backend exists.
func MaybeInit() {}
