package boot

import (
	"log"

	"github.com/tinyboot/handover/internal/efi"
	"github.com/tinyboot/handover/internal/fdt"
)

const (
	chosenNode      = "chosen"
	initrdStartProp = "linux,initrd-start"
	initrdEndProp   = "linux,initrd-end"

	// Extra capacity granted to an in-place edit of a firmware blob. Edits
	// that would grow the tree past this fail rather than overrun whatever
	// the firmware placed behind it.
	fdtSlack = 0x1000

	// Firmware trees are tens of kilobytes; anything claiming more than
	// this is treated as corrupt.
	fdtMaxSize = 16 << 20
)

// openFDT fetches the device tree published in the configuration table.
// Every failure is logged and reported as a nil blob. The returned address
// is where the blob lives in firmware memory, for writing the edited copy
// back.
func openFDT(fw efi.Firmware) (*fdt.Blob, uint64) {
	addr, err := fw.ConfigurationTable(efi.DeviceTreeTableGUID)
	if err != nil {
		log.Print("device tree table not found")
		return nil, 0
	}

	hdr := make([]byte, fdt.HeaderSize)
	if err := fw.ReadAt(hdr, addr); err != nil {
		log.Printf("device tree at %#x unreadable: %v", addr, err)
		return nil, 0
	}
	size, err := fdt.TotalSize(hdr)
	if err != nil {
		log.Printf("device tree at %#x: %v", addr, err)
		return nil, 0
	}
	if size > fdtMaxSize {
		log.Printf("device tree at %#x claims %d bytes, ignoring", addr, size)
		return nil, 0
	}

	buf := make([]byte, size+fdtSlack)
	if err := fw.ReadAt(buf[:size], addr); err != nil {
		log.Printf("device tree at %#x unreadable: %v", addr, err)
		return nil, 0
	}
	blob, err := fdt.Open(buf)
	if err != nil {
		log.Printf("device tree at %#x: %v", addr, err)
		return nil, 0
	}
	return blob, addr
}

// SetInitrd records the initrd bounds in the /chosen node of the firmware
// device tree so the kernel can find it. The tree is advisory on this
// path: every failure is logged and swallowed, never blocking the boot.
func SetInitrd(fw efi.Firmware, addr, size uint64) {
	if size == 0 {
		return
	}
	blob, blobAddr := openFDT(fw)
	if blob == nil {
		return
	}

	node, err := blob.FindNode(chosenNode)
	if err != nil {
		node, err = blob.AddNode(chosenNode)
		if err != nil {
			log.Printf("device tree: adding /%s: %v", chosenNode, err)
			return
		}
	}
	if err := blob.SetPropU64(node, initrdStartProp, addr); err != nil {
		log.Printf("device tree: setting %s: %v", initrdStartProp, err)
		return
	}
	if err := blob.SetPropU64(node, initrdEndProp, addr+size); err != nil {
		log.Printf("device tree: setting %s: %v", initrdEndProp, err)
		return
	}
	if err := fw.WriteAt(blob.Bytes(), blobAddr); err != nil {
		log.Printf("device tree: writing back to %#x: %v", blobAddr, err)
	}
}
