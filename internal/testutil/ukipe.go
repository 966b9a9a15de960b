package testutil

import (
	"encoding/binary"
	"os"
	"sort"
)

// WriteUKI writes a minimal PE file carrying the given sections, enough
// for debug/pe to parse. Section data is padded to 512-byte file blocks.
func WriteUKI(path string, sections map[string][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	// DOS stub pointing at the PE signature.
	dos := make([]byte, 64)
	dos[0], dos[1] = 'M', 'Z'
	binary.LittleEndian.PutUint32(dos[60:], 64)

	coff := make([]byte, 20)
	binary.LittleEndian.PutUint16(coff[0:], 0x8664)
	binary.LittleEndian.PutUint16(coff[2:], uint16(len(names)))
	binary.LittleEndian.PutUint16(coff[16:], 112)
	binary.LittleEndian.PutUint16(coff[18:], 0x22)

	opt := make([]byte, 112)
	binary.LittleEndian.PutUint16(opt[0:], 0x20b) // PE32+

	headerSize := len(dos) + 4 + len(coff) + len(opt) + len(names)*40
	dataStart := (headerSize + 511) &^ 511

	hdrs := make([]byte, 0, len(names)*40)
	offset := dataStart
	for _, name := range names {
		data := sections[name]
		raw := (len(data) + 511) &^ 511

		// VirtualSize, VirtualAddress, SizeOfRawData, PointerToRawData.
		hdr := make([]byte, 40)
		copy(hdr[0:8], name)
		binary.LittleEndian.PutUint32(hdr[8:], uint32(len(data)))
		binary.LittleEndian.PutUint32(hdr[12:], uint32(offset))
		binary.LittleEndian.PutUint32(hdr[16:], uint32(raw))
		binary.LittleEndian.PutUint32(hdr[20:], uint32(offset))
		hdrs = append(hdrs, hdr...)
		offset += raw
	}

	out := make([]byte, 0, offset)
	out = append(out, dos...)
	out = append(out, "PE\x00\x00"...)
	out = append(out, coff...)
	out = append(out, opt...)
	out = append(out, hdrs...)
	out = append(out, make([]byte, dataStart-headerSize)...)
	for _, name := range names {
		data := sections[name]
		out = append(out, data...)
		out = append(out, make([]byte, ((len(data)+511)&^511)-len(data))...)
	}

	_, err = f.Write(out)
	return err
}
