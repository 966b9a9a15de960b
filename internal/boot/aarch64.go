package boot

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/tinyboot/handover/internal/efi"
)

// The 64-byte header at the start of every ARM64 Image, plus the embedded
// PE view the EFI stub adds. Its entry address field is an offset from the
// image base, not an absolute address.
const (
	arm64HeaderSize     = 64
	arm64Magic          = 0x644d5241 // "ARM\x64"
	arm64MagicOffset    = 56
	arm64PEOffsetOffset = 60

	peSignature = "PE\x00\x00"
	// AddressOfEntryPoint lives 16 bytes into the optional header, after
	// the 4-byte signature and 20-byte COFF header.
	peEntryFieldOffset = 4 + 20 + 16
	peProbeSize        = peEntryFieldOffset + 4
)

// ARM64Header is the parsed Image header of an ARM64 kernel.
type ARM64Header struct {
	TextOffset uint64
	ImageSize  uint64
	PEOffset   uint32
}

// ParseARM64Header reads the Image header from the first 64 bytes of a
// kernel image, rejecting anything without the ARM64 magic.
func ParseARM64Header(img []byte) (*ARM64Header, error) {
	if len(img) < arm64HeaderSize {
		return nil, errors.Wrapf(ErrInvalidImage, "image prefix is %d bytes", len(img))
	}
	if magic := binary.LittleEndian.Uint32(img[arm64MagicOffset:]); magic != arm64Magic {
		return nil, errors.Wrapf(ErrInvalidImage, "arm64 image magic %#x", magic)
	}
	return &ARM64Header{
		TextOffset: binary.LittleEndian.Uint64(img[8:]),
		ImageSize:  binary.LittleEndian.Uint64(img[16:]),
		PEOffset:   binary.LittleEndian.Uint32(img[arm64PEOffsetOffset:]),
	}, nil
}

// ParsePEEntry reads AddressOfEntryPoint from a buffer that starts at the
// PE signature of the embedded sub-header.
func ParsePEEntry(pe []byte) (uint32, error) {
	if len(pe) < peProbeSize {
		return 0, errors.Wrapf(ErrInvalidImage, "PE header prefix is %d bytes", len(pe))
	}
	if string(pe[:4]) != peSignature {
		return 0, errors.Wrapf(ErrInvalidImage, "PE signature %q", pe[:4])
	}
	return binary.LittleEndian.Uint32(pe[peEntryFieldOffset:]), nil
}

// ARM64EntryPoint computes the absolute entry point of the ARM64 kernel
// image at base from its embedded PE sub-header.
func ARM64EntryPoint(fw efi.Firmware, base uint64) (EntryPoint, error) {
	hdrBuf := make([]byte, arm64HeaderSize)
	if err := fw.ReadAt(hdrBuf, base); err != nil {
		return EntryPoint{}, errors.Wrap(err, "reading arm64 image header")
	}
	hdr, err := ParseARM64Header(hdrBuf)
	if err != nil {
		return EntryPoint{}, err
	}

	peBuf := make([]byte, peProbeSize)
	if err := fw.ReadAt(peBuf, base+uint64(hdr.PEOffset)); err != nil {
		return EntryPoint{}, errors.Wrap(err, "reading PE sub-header")
	}
	entryOff, err := ParsePEEntry(peBuf)
	if err != nil {
		return EntryPoint{}, err
	}
	return EntryPoint{Addr: uintptr(base + uint64(entryOff))}, nil
}

// ExecLinuxARM64 hands control to an ARM64 kernel image loaded at base.
// When an initrd is present its bounds are first recorded in the firmware
// device tree, best-effort; the jump proceeds regardless of that outcome.
// The command line is not consumed on this path: the kernel reads it from
// the firmware side, not from a parameter block. On success the call never
// returns.
func ExecLinuxARM64(fw efi.Firmware, image efi.Handle, base uint64, _ []byte, initrdAddr, initrdSize uint64) error {
	if initrdSize != 0 {
		SetInitrd(fw, initrdAddr, initrdSize)
	}
	entry, err := ARM64EntryPoint(fw, base)
	if err != nil {
		return err
	}
	// The stub entry takes the image handle in place of a parameter block.
	return entry.Call(image, fw.SystemTable(), uintptr(image))
}
