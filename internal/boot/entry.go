package boot

import (
	"github.com/cockroachdb/errors"
	"github.com/ebitengine/purego"

	"github.com/tinyboot/handover/internal/efi"
)

// EntryPoint is an absolute kernel entry address. Call hands it the fixed
// three-word argument tuple the stub protocols use.
type EntryPoint struct {
	Addr uintptr
}

// Call transfers control to the entry point, passing the image handle, the
// firmware system table, and a third protocol-specific word (the
// boot_params block on x86, the image handle again on ARM64). A successful
// handover never returns; if the call comes back, the handover has failed
// and ErrHandoverFailed is reported. No recovery is attempted.
func (e EntryPoint) Call(image efi.Handle, systemTable uintptr, arg uintptr) error {
	if e.Addr == 0 {
		return errors.Wrap(ErrInvalidImage, "nil entry point")
	}
	purego.SyscallN(e.Addr, uintptr(image), systemTable, arg)
	return errors.Wrapf(ErrHandoverFailed, "entry point %#x", e.Addr)
}
