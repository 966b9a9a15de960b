// Package testutil provides fakes and image synthesizers for handover tests.
package testutil

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/tinyboot/handover/internal/efi"
)

// Allocation records one AllocateMaxAddress call against the fake firmware.
type Allocation struct {
	Addr uint64
	Size uint64
	Max  uint64
}

// Firmware is an in-memory efi.Firmware. It models firmware memory as a
// flat byte slice starting at Base and hands out allocations top-down from
// the requested ceiling, so tests can assert placement constraints.
type Firmware struct {
	Base   uint64
	Mem    []byte
	Tables map[uuid.UUID]uint64

	// AllocErr, when set, fails every allocation with this error.
	AllocErr error

	Allocs []Allocation
	Masked bool

	next uint64
}

// NewFirmware returns a fake whose memory covers [base, base+size).
func NewFirmware(base uint64, size int) *Firmware {
	return &Firmware{
		Base:   base,
		Mem:    make([]byte, size),
		Tables: make(map[uuid.UUID]uint64),
	}
}

func (f *Firmware) AllocateMaxAddress(max, size uint64) (uint64, error) {
	if f.AllocErr != nil {
		return 0, f.AllocErr
	}
	pages := (size + efi.PageSize - 1) / efi.PageSize
	size = pages * efi.PageSize

	ceiling := max + 1
	if top := f.Base + uint64(len(f.Mem)); ceiling > top {
		ceiling = top
	}
	if f.next != 0 && f.next < ceiling {
		ceiling = f.next
	}
	if ceiling < f.Base+size {
		return 0, efi.StatusOutOfResources.Err()
	}
	addr := (ceiling - size) &^ (efi.PageSize - 1)
	f.next = addr
	f.Allocs = append(f.Allocs, Allocation{Addr: addr, Size: size, Max: max})
	return addr, nil
}

func (f *Firmware) ConfigurationTable(guid uuid.UUID) (uint64, error) {
	addr, ok := f.Tables[guid]
	if !ok {
		return 0, efi.ErrTableNotFound
	}
	return addr, nil
}

func (f *Firmware) ReadAt(p []byte, addr uint64) error {
	off, err := f.offset(addr, len(p))
	if err != nil {
		return err
	}
	copy(p, f.Mem[off:])
	return nil
}

func (f *Firmware) WriteAt(p []byte, addr uint64) error {
	off, err := f.offset(addr, len(p))
	if err != nil {
		return err
	}
	copy(f.Mem[off:], p)
	return nil
}

func (f *Firmware) SystemTable() uintptr { return 0 }

func (f *Firmware) MaskInterrupts() { f.Masked = true }

// Install copies blob into firmware memory at addr and publishes addr
// under guid in the configuration table.
func (f *Firmware) Install(guid uuid.UUID, addr uint64, blob []byte) error {
	if err := f.WriteAt(blob, addr); err != nil {
		return err
	}
	f.Tables[guid] = addr
	return nil
}

func (f *Firmware) offset(addr uint64, n int) (uint64, error) {
	if addr < f.Base || addr+uint64(n) > f.Base+uint64(len(f.Mem)) {
		return 0, fmt.Errorf("access [%#x, %#x) outside fake memory [%#x, %#x)",
			addr, addr+uint64(n), f.Base, f.Base+uint64(len(f.Mem)))
	}
	return addr - f.Base, nil
}
