// Package kconf decodes the boot-options blob the loader leaves in
// memory. The blob is TOML; missing fields get defaults that match a
// small virt machine.
package kconf

import (
	"defs"

	"github.com/pelletier/go-toml/v2"
)

/// Kconf_t holds the decoded boot options.
type Kconf_t struct {
	// Memory is the size of the allocatable region in MiB.
	Memory int `toml:"memory"`
	// Harts is the number of harts to bring online.
	Harts int `toml:"harts"`
	// Loglevel is the klog verbosity.
	Loglevel int `toml:"loglevel"`
	// Rootfs names the registered filesystem type mounted at /.
	Rootfs string `toml:"rootfs"`
	// Init is the path of the first user binary.
	Init string `toml:"init"`
	// Cmdline is passed to init verbatim.
	Cmdline string `toml:"cmdline"`
}

/// Defaults returns the configuration used when the loader provides no
/// blob.
func Defaults() Kconf_t {
	return Kconf_t{
		Memory:   256,
		Harts:    1,
		Loglevel: 0,
		Rootfs:   "memfs",
		Init:     "/init",
	}
}

/// Parse decodes blob over the defaults. An empty blob is not an error.
func Parse(blob []byte) (Kconf_t, defs.Err_t) {
	kc := Defaults()
	if len(blob) == 0 {
		return kc, 0
	}
	if err := toml.Unmarshal(blob, &kc); err != nil {
		return Defaults(), -defs.EINVAL
	}
	if kc.Memory <= 0 || kc.Harts <= 0 {
		return Defaults(), -defs.EINVAL
	}
	return kc, 0
}
