// Package efi exposes the narrow slice of firmware services the handover
// stage consumes: page allocation with a placement ceiling, the
// configuration table registry, and raw physical memory access.
package efi

import (
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// PageSize is the firmware allocation granularity.
const PageSize = 4096

// Handle is an opaque firmware capability reference (an EFI_HANDLE).
type Handle uintptr

// Well-known configuration table identifiers.
//
//nolint:gochecknoglobals
var (
	// DeviceTreeTableGUID identifies the flattened device tree handed over
	// by the firmware (EFI_DTB_TABLE_GUID).
	DeviceTreeTableGUID = uuid.MustParse("b1b621d5-f19c-41a5-830b-d9152c69aae0")

	// ACPITableGUID identifies the ACPI 2.0 RSDP (EFI_ACPI_20_TABLE_GUID).
	ACPITableGUID = uuid.MustParse("8868e871-e4f1-11d3-bc22-0080c73c8881")

	// SMBIOS3TableGUID identifies the 64-bit SMBIOS entry point.
	SMBIOS3TableGUID = uuid.MustParse("f2fd1544-9794-4a2c-992e-e5bbcf20e394")
)

// ErrTableNotFound reports that no configuration table entry carries the
// requested identifier. Callers treat this as "table not present", not as a
// fatal condition.
var ErrTableNotFound = errors.New("configuration table entry not found")

// Firmware is the environment a handover runs against. The live
// implementation is Services; tests substitute an in-memory double.
type Firmware interface {
	// AllocateMaxAddress allocates size bytes of loader-data pages placed
	// at the highest available physical address not above max, and returns
	// the base address. The pages are never freed by this package;
	// ownership passes to the kernel at handover.
	AllocateMaxAddress(max, size uint64) (uint64, error)

	// ConfigurationTable returns the physical address of the vendor table
	// registered under id, or ErrTableNotFound.
	ConfigurationTable(id uuid.UUID) (uint64, error)

	// ReadAt copies len(p) bytes of physical memory starting at addr into p.
	ReadAt(p []byte, addr uint64) error

	// WriteAt copies p into physical memory starting at addr.
	WriteAt(p []byte, addr uint64) error

	// SystemTable returns the address of the firmware system table, passed
	// through to the kernel entry point.
	SystemTable() uintptr

	// MaskInterrupts disables external interrupts ahead of the final jump,
	// where the execution environment requires it.
	MaskInterrupts()
}

// guidBytes returns the wire encoding of id as an in-memory EFI_GUID: the
// first three fields are little-endian, the trailing eight bytes are kept
// as-is. uuid.UUID stores all fields big-endian.
func guidBytes(id uuid.UUID) [16]byte {
	var g [16]byte
	g[0], g[1], g[2], g[3] = id[3], id[2], id[1], id[0]
	g[4], g[5] = id[5], id[4]
	g[6], g[7] = id[7], id[6]
	copy(g[8:], id[8:])
	return g
}

// GUIDBytes is the exported form of guidBytes for callers that compose raw
// configuration table entries.
func GUIDBytes(id uuid.UUID) [16]byte { return guidBytes(id) }
