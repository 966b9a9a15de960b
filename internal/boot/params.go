package boot

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"

	"github.com/tinyboot/handover/internal/efi"
)

const (
	// paramsSize is the zeroed region the protocol reserves for
	// boot_params plus trailing setup data.
	paramsSize = 0x4000

	// paramsMaxAddr keeps the block reachable through the 32-bit
	// cmd_line_ptr/code32_start era fields.
	paramsMaxAddr = 0xffffffff

	// cmdlineMaxAddr places the command line in the legacy low region.
	cmdlineMaxAddr = 0xa0000

	// typeOfLoaderUnknown identifies this loader as "other" to the kernel.
	typeOfLoaderUnknown = 0xff
)

// BootParams is a constructed parameter block resident in firmware memory.
// It is never freed: ownership moves to the kernel at handover.
type BootParams struct {
	// Addr is the physical base of the 16 KiB block.
	Addr uint64

	// CmdlineAddr is the low-memory command-line buffer, 0 when no
	// command line was supplied.
	CmdlineAddr uint64

	hdr   *SetupHeader
	entry uint64
}

// BuildBootParams validates the kernel image at base and assembles the
// parameter block the x86 handover entry expects: a high allocation below
// 4 GiB holding the copied setup header, loader identity, recomputed entry
// continuation, command-line pointer and ramdisk bounds.
func BuildBootParams(fw efi.Firmware, base uint64, cmdline []byte, initrdAddr, initrdSize uint64) (*BootParams, error) {
	probe := make([]byte, setupProbeSize)
	if err := fw.ReadAt(probe, base); err != nil {
		return nil, errors.Wrap(err, "reading kernel image header")
	}
	hdr, err := ParseSetupHeader(probe)
	if err != nil {
		return nil, err
	}

	entry := hdr.EntryContinuation(base)
	if entry > paramsMaxAddr {
		return nil, errors.Wrapf(ErrInvalidImage,
			"entry continuation %#x exceeds the 32-bit code32_start field", entry)
	}
	// The ramdisk fields are 32 bits wide by protocol. Reject rather than
	// truncate an initrd placed or sized beyond them.
	if initrdSize > 0 && (initrdAddr > paramsMaxAddr || initrdSize > paramsMaxAddr ||
		initrdAddr+initrdSize-1 > paramsMaxAddr) {
		return nil, errors.Wrapf(ErrInvalidImage,
			"initrd %#x+%#x exceeds the 32-bit ramdisk fields", initrdAddr, initrdSize)
	}

	addr, err := fw.AllocateMaxAddress(paramsMaxAddr, paramsSize)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "allocating boot_params"), ErrAllocationFailed)
	}

	block := make([]byte, paramsSize)
	copy(block[setupHeaderOffset:], hdr.raw)
	block[typeOfLoaderOffset] = typeOfLoaderUnknown
	binary.LittleEndian.PutUint32(block[code32StartOffset:], uint32(entry))

	params := &BootParams{Addr: addr, hdr: hdr, entry: entry}

	if len(cmdline) > 0 {
		buf := make([]byte, len(cmdline)+1)
		copy(buf, cmdline)
		caddr, err := fw.AllocateMaxAddress(cmdlineMaxAddr, uint64(len(buf)))
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "allocating command line"), ErrAllocationFailed)
		}
		if err := fw.WriteAt(buf, caddr); err != nil {
			return nil, errors.Wrap(err, "placing command line")
		}
		binary.LittleEndian.PutUint32(block[cmdLinePtrOffset:], uint32(caddr))
		params.CmdlineAddr = caddr
	}

	binary.LittleEndian.PutUint32(block[ramdiskImageOffset:], uint32(initrdAddr))
	binary.LittleEndian.PutUint32(block[ramdiskSizeOffset:], uint32(initrdSize))

	if err := fw.WriteAt(block, addr); err != nil {
		return nil, errors.Wrap(err, "placing boot_params")
	}
	return params, nil
}

// EntryPoint computes the handover entry for the built block: the entry
// continuation plus the image's handover offset, advanced past the 32-bit
// trampoline on 64-bit loaders.
func (p *BootParams) EntryPoint() EntryPoint {
	return EntryPoint{Addr: uintptr(p.entry + handoverSkip + uint64(p.hdr.HandoverOffset))}
}
