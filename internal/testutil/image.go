package testutil

import "encoding/binary"

// ARM64ImageOpt mutates the synthetic ARM64 image before it is returned.
type ARM64ImageOpt func(img []byte)

// WithARM64Magic overrides the magic at offset 56.
func WithARM64Magic(magic uint32) ARM64ImageOpt {
	return func(img []byte) { binary.LittleEndian.PutUint32(img[56:], magic) }
}

// WithPESignature overwrites the "PE\0\0" signature of the sub-header.
func WithPESignature(sig string) ARM64ImageOpt {
	return func(img []byte) {
		peOff := binary.LittleEndian.Uint32(img[60:])
		copy(img[peOff:peOff+4], sig)
	}
}

// ARM64Image synthesizes an ARM64 kernel Image: a 64-byte header with the
// "ARM\x64" magic pointing at an embedded PE sub-header whose
// AddressOfEntryPoint is entry. Options mutate fields for rejection cases.
func ARM64Image(entry uint32, opts ...ARM64ImageOpt) []byte {
	const peOff = 64
	img := make([]byte, peOff+4+20+96)

	// Image header: text_offset, image_size, "ARM\x64" magic, PE offset.
	binary.LittleEndian.PutUint64(img[8:], 0x80000)
	binary.LittleEndian.PutUint64(img[16:], uint64(len(img)))
	binary.LittleEndian.PutUint32(img[56:], 0x644d5241)
	binary.LittleEndian.PutUint32(img[60:], peOff)

	// PE sub-header: signature, COFF machine and optional-header size,
	// PE32+ magic, AddressOfEntryPoint.
	copy(img[peOff:], "PE\x00\x00")
	binary.LittleEndian.PutUint16(img[peOff+4:], 0xaa64)
	binary.LittleEndian.PutUint16(img[peOff+4+16:], 96)
	binary.LittleEndian.PutUint16(img[peOff+24:], 0x20b)
	binary.LittleEndian.PutUint32(img[peOff+24+16:], entry)
	for _, opt := range opts {
		opt(img)
	}
	return img
}
