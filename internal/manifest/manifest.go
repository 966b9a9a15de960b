// Package manifest reads the YAML boot manifest that names the artifacts
// and parameters of a handover.
package manifest

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Manifest describes one bootable configuration.
type Manifest struct {
	// Kernel is the path to the kernel image.
	Kernel string `yaml:"kernel"`

	// Initrd is the path to the initial ramdisk, optional.
	Initrd string `yaml:"initrd"`

	// UKI is the path to a unified kernel image, an alternative to
	// naming kernel, initrd and cmdline separately.
	UKI string `yaml:"uki"`

	// DTB is the path to a device tree blob, optional.
	DTB string `yaml:"dtb"`

	// Cmdline is the kernel command line.
	Cmdline string `yaml:"cmdline"`

	// InitrdAddr and InitrdSize are the loaded initrd bounds, for
	// annotating a device tree without loading the initrd here.
	InitrdAddr uint64 `yaml:"initrd-addr"`
	InitrdSize uint64 `yaml:"initrd-size"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading manifest")
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "parsing manifest")
	}
	if m.Kernel == "" && m.UKI == "" && m.DTB == "" {
		return nil, errors.New("manifest names no kernel, uki or dtb")
	}
	return &m, nil
}
