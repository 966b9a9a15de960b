package boot

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Offsets into the x86 boot_params page, from the i386 boot protocol. The
// setup header starts at 0x1f1 both in the kernel image and in the
// parameter block the loader hands back.
const (
	setupHeaderOffset  = 0x1f1
	setupSectsOffset   = 0x1f1
	headerLengthOffset = 0x201
	bootFlagOffset     = 0x1fe
	headerMagicOffset  = 0x202
	versionOffset      = 0x206
	typeOfLoaderOffset = 0x210
	code32StartOffset  = 0x214
	ramdiskImageOffset = 0x218
	ramdiskSizeOffset  = 0x21c
	cmdLinePtrOffset   = 0x228
	relocatableOffset  = 0x234
	handoverOffset     = 0x264

	bootFlagMagic      = 0xaa55
	headerMagic        = "HdrS"
	minProtocolVersion = 0x20b

	// setup_sects == 0 means the legacy default of 4 sectors.
	defaultSetupSects = 4
	sectorSize        = 512

	// setupProbeSize covers the whole setup header with room to spare.
	setupProbeSize = 0x1000
)

// SetupHeader is the validated prefix of an x86 kernel image. raw holds the
// exact header bytes, delimited by the protocol's own length byte, ready to
// be copied into a parameter block.
type SetupHeader struct {
	SetupSects        uint8
	Version           uint16
	RelocatableKernel uint8
	HandoverOffset    uint32

	raw []byte
}

// ParseSetupHeader validates the kernel image prefix in img against the
// handover requirements: boot sector signature, HdrS magic, protocol
// version at least 2.11, and a relocatable kernel. Anything else is
// ErrInvalidImage, with no side effects.
func ParseSetupHeader(img []byte) (*SetupHeader, error) {
	if len(img) < handoverOffset+4 {
		return nil, errors.Wrapf(ErrInvalidImage, "image prefix is %d bytes", len(img))
	}
	if sig := binary.LittleEndian.Uint16(img[bootFlagOffset:]); sig != bootFlagMagic {
		return nil, errors.Wrapf(ErrInvalidImage, "boot sector signature %#x", sig)
	}
	if magic := string(img[headerMagicOffset : headerMagicOffset+4]); magic != headerMagic {
		return nil, errors.Wrapf(ErrInvalidImage, "setup magic %q", magic)
	}
	version := binary.LittleEndian.Uint16(img[versionOffset:])
	if version < minProtocolVersion {
		return nil, errors.Wrapf(ErrInvalidImage, "boot protocol %#x predates EFI handover", version)
	}
	if img[relocatableOffset] == 0 {
		return nil, errors.Wrap(ErrInvalidImage, "kernel is not relocatable")
	}

	// The byte at 0x201 is the jump displacement, which doubles as the
	// header length: the setup header ends at 0x202 + that byte.
	end := headerMagicOffset + int(img[headerLengthOffset])
	if end <= handoverOffset+4 || end > len(img) {
		return nil, errors.Wrapf(ErrInvalidImage, "setup header length byte %#x", img[headerLengthOffset])
	}

	return &SetupHeader{
		SetupSects:        img[setupSectsOffset],
		Version:           version,
		RelocatableKernel: img[relocatableOffset],
		HandoverOffset:    binary.LittleEndian.Uint32(img[handoverOffset:]),
		raw:               img[setupHeaderOffset:end],
	}, nil
}

// SetupSectors returns the real-mode setup size in sectors, applying the
// protocol default when the field is zero.
func (h *SetupHeader) SetupSectors() uint64 {
	if h.SetupSects == 0 {
		return defaultSetupSects
	}
	return uint64(h.SetupSects)
}

// EntryContinuation returns the protected-mode continuation address for a
// kernel loaded at base: the first byte past the real-mode setup sectors.
func (h *SetupHeader) EntryContinuation(base uint64) uint64 {
	return base + (h.SetupSectors()+1)*sectorSize
}
