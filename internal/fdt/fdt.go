// Package fdt reads and edits flattened device tree blobs in place. The
// blob is treated as firmware-owned memory: every access is bounds-checked
// against the buffer handed in, and edits that would grow the tree past
// that buffer fail closed with ErrNoSpace instead of relocating it.
package fdt

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Magic is the big-endian signature at the start of every blob.
const Magic = 0xd00dfeed

// HeaderSize is the size of the fixed blob header.
const HeaderSize = 40

// Structure block tokens.
const (
	tokenBeginNode = 0x1
	tokenEndNode   = 0x2
	tokenProp      = 0x3
	tokenNop       = 0x4
	tokenEnd       = 0x9
)

// Header field offsets.
const (
	offMagic       = 0
	offTotalSize   = 4
	offStructBlock = 8
	offStrings     = 12
	offMemRsvmap   = 16
	offVersion     = 20
	offSizeStrings = 32
	offSizeStruct  = 36
)

var (
	// ErrBadMagic reports a buffer that is not a device tree at all.
	ErrBadMagic = errors.New("fdt: bad magic")

	// ErrMalformed reports a header or structure block that does not hold
	// together; the blob is left untouched.
	ErrMalformed = errors.New("fdt: malformed blob")

	// ErrNoSpace reports an edit that would grow the tree past the buffer.
	ErrNoSpace = errors.New("fdt: no space left in blob")

	// ErrNotFound reports a missing node or property.
	ErrNotFound = errors.New("fdt: not found")
)

// TotalSize validates the magic in a header prefix and returns the declared
// total size of the blob. hdr needs at least HeaderSize bytes.
func TotalSize(hdr []byte) (uint32, error) {
	if len(hdr) < HeaderSize {
		return 0, errors.Wrapf(ErrMalformed, "header prefix is %d bytes", len(hdr))
	}
	if binary.BigEndian.Uint32(hdr[offMagic:]) != Magic {
		return 0, ErrBadMagic
	}
	return binary.BigEndian.Uint32(hdr[offTotalSize:]), nil
}

// Blob is a device tree held in a caller-supplied buffer. The buffer may be
// longer than the declared totalsize; the excess is editing capacity.
type Blob struct {
	data []byte
}

// Open validates the header of the blob in data and wraps it for editing.
// The structure block must precede the strings block, which is the layout
// every mainstream producer emits.
func Open(data []byte) (*Blob, error) {
	total, err := TotalSize(data)
	if err != nil {
		return nil, err
	}
	if int(total) > len(data) || total < HeaderSize {
		return nil, errors.Wrapf(ErrMalformed, "totalsize %d, buffer %d", total, len(data))
	}
	b := &Blob{data: data}
	structStart, structSize := b.structBlock()
	strStart, strSize := b.stringsBlock()
	if structStart < HeaderSize || structSize%4 != 0 ||
		strStart < structStart+structSize ||
		strStart+strSize > int(total) {
		return nil, errors.Wrap(ErrMalformed, "block layout")
	}
	return b, nil
}

// TotalSize returns the declared size of the tree.
func (b *Blob) TotalSize() int {
	return int(binary.BigEndian.Uint32(b.data[offTotalSize:]))
}

// Bytes returns the live tree, excluding unused buffer capacity.
func (b *Blob) Bytes() []byte {
	return b.data[:b.TotalSize()]
}

func (b *Blob) structBlock() (start, size int) {
	return int(binary.BigEndian.Uint32(b.data[offStructBlock:])),
		int(binary.BigEndian.Uint32(b.data[offSizeStruct:]))
}

func (b *Blob) stringsBlock() (start, size int) {
	return int(binary.BigEndian.Uint32(b.data[offStrings:])),
		int(binary.BigEndian.Uint32(b.data[offSizeStrings:]))
}

func (b *Blob) u32(off int) uint32 {
	return binary.BigEndian.Uint32(b.data[off:])
}

func (b *Blob) setU32(off int, v uint32) {
	binary.BigEndian.PutUint32(b.data[off:], v)
}

func (b *Blob) addU32(off int, delta int) {
	b.setU32(off, uint32(int(b.u32(off))+delta))
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// resizeStruct grows (delta > 0) or shrinks (delta < 0) the structure block
// at absolute offset at, moving everything behind it. Fails closed when the
// buffer lacks capacity.
func (b *Blob) resizeStruct(at, delta int) error {
	if delta == 0 {
		return nil
	}
	total := b.TotalSize()
	if total+delta > len(b.data) {
		return ErrNoSpace
	}
	copy(b.data[at+delta:total+delta], b.data[at:total])
	if delta > 0 {
		for i := at; i < at+delta; i++ {
			b.data[i] = 0
		}
	}
	b.addU32(offSizeStruct, delta)
	b.addU32(offStrings, delta)
	b.addU32(offTotalSize, delta)
	return nil
}

// stringOffset returns the strings-block offset of name, appending it when
// absent.
func (b *Blob) stringOffset(name string) (uint32, error) {
	start, size := b.stringsBlock()
	for off := 0; off < size; {
		s, ok := cstringAt(b.data[start:start+size], off)
		if !ok {
			break
		}
		if s == name {
			return uint32(off), nil
		}
		off += len(s) + 1
	}
	// Append at the end of the strings block.
	need := len(name) + 1
	total := b.TotalSize()
	if total+need > len(b.data) {
		return 0, ErrNoSpace
	}
	at := start + size
	copy(b.data[at+need:total+need], b.data[at:total])
	copy(b.data[at:], name)
	b.data[at+len(name)] = 0
	b.addU32(offSizeStrings, need)
	b.addU32(offTotalSize, need)
	return uint32(size), nil
}

// cstringAt reads the NUL-terminated string starting at off within block.
func cstringAt(block []byte, off int) (string, bool) {
	if off < 0 || off >= len(block) {
		return "", false
	}
	for end := off; end < len(block); end++ {
		if block[end] == 0 {
			return string(block[off:end]), true
		}
	}
	return "", false
}

func (b *Blob) propName(nameoff uint32) string {
	start, size := b.stringsBlock()
	s, _ := cstringAt(b.data[start:start+size], int(nameoff))
	return s
}
