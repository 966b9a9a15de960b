package efi

import (
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/ebitengine/purego"
	"github.com/google/uuid"
)

// Offsets into the UEFI tables, per the platform spec. The boot services
// are reached as raw function pointers at fixed offsets from the table
// base, the same way the rest of an EFI application calls them.
const (
	systemTableSignature = 0x5453595320494249 // "IBI SYST"

	// EFI_SYSTEM_TABLE field offsets (64-bit layout).
	stBootServices = 96 + 8
	stTableEntries = 112
	stConfigTable  = 120

	// EFI_BOOT_SERVICES function offsets (64-bit layout).
	bsAllocatePages = 40

	configTableEntrySize = 24 // EFI_GUID + pointer

	allocateMaxAddress = 1 // EFI_ALLOCATE_TYPE
	loaderData         = 2 // EFI_MEMORY_TYPE
)

// Services is the live Firmware, backed by the system table the firmware
// passed at image entry.
type Services struct {
	imageHandle  uintptr
	systemTable  uintptr
	bootServices uintptr
}

// NewServices validates the supplied system table and returns a Firmware
// bound to it.
func NewServices(imageHandle, systemTable uintptr) (*Services, error) {
	if systemTable == 0 {
		return nil, errors.New("nil system table")
	}
	if sig := readWord(systemTable); sig != systemTableSignature {
		return nil, errors.Newf("bad system table signature %#x", sig)
	}
	bs := readWord(systemTable + stBootServices)
	if bs == 0 {
		return nil, errors.New("system table carries no boot services")
	}
	return &Services{
		imageHandle:  imageHandle,
		systemTable:  systemTable,
		bootServices: uintptr(bs),
	}, nil
}

// ImageHandle returns the handle the firmware assigned to this image.
func (s *Services) ImageHandle() Handle { return Handle(s.imageHandle) }

// SystemTable implements Firmware.
func (s *Services) SystemTable() uintptr { return s.systemTable }

// AllocateMaxAddress implements Firmware by calling
// EFI_BOOT_SERVICES.AllocatePages with AllocateMaxAddress placement.
func (s *Services) AllocateMaxAddress(max, size uint64) (uint64, error) {
	addr := max
	pages := (size + PageSize - 1) / PageSize
	status := callService(readWord(s.bootServices+bsAllocatePages),
		allocateMaxAddress,
		loaderData,
		uintptr(pages),
		uintptr(unsafe.Pointer(&addr)),
	)
	if err := Status(status).Err(); err != nil {
		return 0, errors.Wrapf(err, "AllocatePages(max=%#x, %d pages)", max, pages)
	}
	return addr, nil
}

// ConfigurationTable implements Firmware by scanning the system table's
// vendor table registry.
func (s *Services) ConfigurationTable(id uuid.UUID) (uint64, error) {
	count := readWord(s.systemTable + stTableEntries)
	table := uintptr(readWord(s.systemTable + stConfigTable))
	if table == 0 {
		return 0, ErrTableNotFound
	}
	want := guidBytes(id)
	for i := uintptr(0); i < uintptr(count); i++ {
		entry := table + i*configTableEntrySize
		var got [16]byte
		copyFrom(got[:], entry)
		if got == want {
			return readWord(entry + 16), nil
		}
	}
	return 0, ErrTableNotFound
}

// ReadAt implements Firmware.
func (s *Services) ReadAt(p []byte, addr uint64) error {
	copyFrom(p, uintptr(addr))
	return nil
}

// WriteAt implements Firmware.
func (s *Services) WriteAt(p []byte, addr uint64) error {
	copy(unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), len(p)), p)
	return nil
}

// MaskInterrupts implements Firmware.
func (s *Services) MaskInterrupts() { maskInterrupts() }

// callService invokes a boot-service function pointer with the platform
// calling convention.
//
//go:uintptrescapes
func callService(fn uint64, args ...uintptr) uint64 {
	r1, _, _ := purego.SyscallN(uintptr(fn), args...)
	return uint64(r1)
}

func readWord(addr uintptr) uint64 {
	return *(*uint64)(unsafe.Pointer(addr))
}

func copyFrom(p []byte, addr uintptr) {
	copy(p, unsafe.Slice((*byte)(unsafe.Pointer(addr)), len(p)))
}
