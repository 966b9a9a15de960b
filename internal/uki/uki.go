// Package uki reads unified kernel images: EFI-stub PE binaries carrying
// the kernel, initrd and command line as named sections.
package uki

import (
	"debug/pe"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	kernelSection  = ".linux"
	initrdSection  = ".initrd"
	cmdlineSection = ".cmdline"
)

// Assets are the boot artifacts embedded in a unified kernel image. Close
// releases the underlying file; the readers are dead after that.
type Assets struct {
	io.Closer

	Kernel io.Reader

	// Initrd is nil when the image carries no initrd.
	Initrd io.Reader

	Cmdline string
}

// Open parses a unified kernel image. The kernel section is required; an
// image without one is not a UKI.
func Open(path string) (*Assets, error) {
	peFile, err := pe.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening PE file")
	}

	assets := &Assets{Closer: peFile}
	for _, section := range peFile.Sections {
		// Section names are null-padded to 8 bytes.
		r := io.LimitReader(section.Open(), int64(section.VirtualSize))
		switch strings.TrimRight(section.Name, "\x00") {
		case kernelSection:
			assets.Kernel = r
		case initrdSection:
			assets.Initrd = r
		case cmdlineSection:
			data, err := io.ReadAll(r)
			if err != nil {
				peFile.Close()
				return nil, errors.Wrap(err, "reading "+cmdlineSection)
			}
			assets.Cmdline = strings.TrimRight(string(data), "\x00")
		}
	}
	if assets.Kernel == nil {
		peFile.Close()
		return nil, errors.Newf("no %s section, not a unified kernel image", kernelSection)
	}
	return assets, nil
}

// SetCmdline overwrites the embedded command line in place. The new value
// must fit the existing section; the image layout is never changed.
func SetCmdline(path, cmdline string) error {
	peFile, err := pe.Open(path)
	if err != nil {
		return errors.Wrap(err, "opening PE file")
	}

	var target *pe.Section
	for _, section := range peFile.Sections {
		if strings.TrimRight(section.Name, "\x00") == cmdlineSection {
			target = section
			break
		}
	}
	if target == nil {
		peFile.Close()
		return errors.Newf("no %s section, not a unified kernel image", cmdlineSection)
	}

	room := int(target.Size)
	if room == 0 {
		room = int(target.VirtualSize)
	}
	offset := int64(target.Offset)
	peFile.Close()

	if len(cmdline) > room {
		return errors.Newf("command line is %d bytes, section holds %d", len(cmdline), room)
	}

	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrap(err, "opening image for writing")
	}
	defer file.Close()

	buf := make([]byte, room)
	copy(buf, cmdline)
	if _, err := file.WriteAt(buf, offset); err != nil {
		return errors.Wrap(err, "writing "+cmdlineSection)
	}
	return nil
}
