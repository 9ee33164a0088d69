//go:build linux

package sandbox

import (
	"os"
	"runtime"
	"strings"

	"golang.org/x/sys/unix"
)

// procSysRoot is swapped in tests.
var procSysRoot = "/proc/sys"

// Detect probes the host for bubblewrap and user namespace support.
func Detect(cfg Config) Capabilities {
	c := Capabilities{
		Platform: runtime.GOOS,
		Backend:  "bwrap",
		Kernel:   kernelRelease(),
		Root:     os.Geteuid() == 0,
	}

	path, err := FindBwrap(cfg.BwrapPath)
	if err != nil {
		c.Problems = append(c.Problems, err.Error())
	} else {
		c.BwrapPath = path
		c.BwrapSetuid = isSetuid(path)
	}

	c.UserNamespaces = userNamespacesEnabled()
	if !c.UserNamespaces && !c.BwrapSetuid && !c.Root {
		c.Problems = append(c.Problems, "unprivileged user namespaces are disabled and bwrap is not setuid")
	}
	return c
}

func userNamespacesEnabled() bool {
	// Debian and older Ubuntu kernels gate unprivileged namespaces here.
	if readSysctl("kernel/unprivileged_userns_clone") == "0" {
		return false
	}
	if readSysctl("user/max_user_namespaces") == "0" {
		return false
	}
	// Ubuntu 24.04 restricts them through AppArmor; bwrap ships a profile
	// there, so only a missing profile is fatal and that shows at launch.
	return true
}

func readSysctl(name string) string {
	data, err := os.ReadFile(procSysRoot + "/" + name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func kernelRelease() string {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return ""
	}
	return unix.ByteSliceToString(uts.Release[:])
}
