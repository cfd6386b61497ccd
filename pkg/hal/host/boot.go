package host

import (
	"os"
	"path/filepath"
	"strings"
)

// BootInfo describes the running system for the boot log line.
type BootInfo struct {
	BootID string
	Kernel string
	Uptime string
}

// ReadBootInfo reads boot details below procRoot (normally "/proc").
// Missing entries are left empty.
func ReadBootInfo(procRoot string) BootInfo {
	read := func(rel string) string {
		data, err := os.ReadFile(filepath.Join(procRoot, rel))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(data))
	}
	uptime := read("uptime")
	if fields := strings.Fields(uptime); len(fields) > 0 {
		uptime = fields[0] + "s"
	}
	return BootInfo{
		BootID: read("sys/kernel/random/boot_id"),
		Kernel: read("sys/kernel/osrelease"),
		Uptime: uptime,
	}
}
