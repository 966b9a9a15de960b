// Package boot executes the final stage of the loader: it hands control
// from the firmware environment to a loaded kernel image over the
// architecture boot protocol. Inputs arrive fully resolved (image base,
// command-line bytes, initrd bounds); this package only performs the
// mechanical transfer.
package boot

import (
	"github.com/tinyboot/handover/internal/efi"
)

// ExecLinux hands control to an x86 Linux kernel image loaded at base,
// using the EFI handover protocol: validate the setup header, build the
// parameter block, disable interrupts, and jump. cmdline may be nil;
// initrdSize 0 means no initrd. On success the call never returns.
func ExecLinux(fw efi.Firmware, image efi.Handle, base uint64, cmdline []byte, initrdAddr, initrdSize uint64) error {
	params, err := BuildBootParams(fw, base, cmdline, initrdAddr, initrdSize)
	if err != nil {
		return err
	}
	entry := params.EntryPoint()
	fw.MaskInterrupts()
	return entry.Call(image, fw.SystemTable(), uintptr(params.Addr))
}
