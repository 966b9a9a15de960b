package testutil

import "encoding/binary"

// Offsets into the x86 setup header, as the boot protocol lays them out.
const (
	bzSetupSects   = 0x1f1
	bzBootFlag     = 0x1fe
	bzHeaderLength = 0x201
	bzHeaderMagic  = 0x202
	bzVersion      = 0x206
	bzRelocatable  = 0x234
	bzHandover     = 0x264
)

// BzImageOpt mutates the synthetic image before it is returned.
type BzImageOpt func(img []byte)

// WithSetupSects overrides the setup_sects field.
func WithSetupSects(n uint8) BzImageOpt {
	return func(img []byte) { img[bzSetupSects] = n }
}

// WithBootFlag overrides the 0xAA55 boot sector signature.
func WithBootFlag(v uint16) BzImageOpt {
	return func(img []byte) { binary.LittleEndian.PutUint16(img[bzBootFlag:], v) }
}

// WithHeaderMagic overwrites the four "HdrS" magic bytes.
func WithHeaderMagic(magic string) BzImageOpt {
	return func(img []byte) { copy(img[bzHeaderMagic:bzHeaderMagic+4], magic) }
}

// WithVersion overrides the boot protocol version.
func WithVersion(v uint16) BzImageOpt {
	return func(img []byte) { binary.LittleEndian.PutUint16(img[bzVersion:], v) }
}

// WithRelocatable overrides the relocatable_kernel flag.
func WithRelocatable(v uint8) BzImageOpt {
	return func(img []byte) { img[bzRelocatable] = v }
}

// WithHandoverOffset overrides the handover_offset field.
func WithHandoverOffset(off uint32) BzImageOpt {
	return func(img []byte) { binary.LittleEndian.PutUint32(img[bzHandover:], off) }
}

// BzImage synthesizes a 4 KiB prefix of a bzImage whose setup header passes
// handover validation: signature 0xAA55, "HdrS", protocol 2.11, relocatable,
// and a plausible header length byte. Options mutate individual fields to
// build the rejection cases.
func BzImage(opts ...BzImageOpt) []byte {
	img := make([]byte, 0x1000)
	binary.LittleEndian.PutUint16(img[bzBootFlag:], 0xaa55)
	copy(img[bzHeaderMagic:], "HdrS")
	binary.LittleEndian.PutUint16(img[bzVersion:], 0x020b)
	img[bzHeaderLength] = 0x6a // header ends at 0x26c
	img[bzRelocatable] = 1
	binary.LittleEndian.PutUint32(img[bzHandover:], 0x190)
	for _, opt := range opts {
		opt(img)
	}
	return img
}
