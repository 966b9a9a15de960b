package fdt

import "encoding/binary"

const (
	builderVersion    = 17
	builderCompatible = 16
)

// Builder assembles a device tree blob from scratch, for tests and tooling
// that need a tree to start from. Edits on firmware-owned blobs go through
// Blob instead.
type Builder struct {
	structure []byte
	strings   []byte
	stringOff map[string]uint32
}

// NewBuilder returns an empty builder. Callers open the root with
// BeginNode("").
func NewBuilder() *Builder {
	return &Builder{stringOff: make(map[string]uint32)}
}

// BeginNode starts a node with the given name.
func (b *Builder) BeginNode(name string) {
	b.appendU32(tokenBeginNode)
	b.structure = append(b.structure, name...)
	b.structure = append(b.structure, 0)
	b.pad()
}

// EndNode closes the current node.
func (b *Builder) EndNode() {
	b.appendU32(tokenEndNode)
}

// PropertyBytes adds a raw property to the current node.
func (b *Builder) PropertyBytes(name string, value []byte) {
	b.appendU32(tokenProp)
	b.appendU32(uint32(len(value)))
	b.appendU32(b.addString(name))
	b.structure = append(b.structure, value...)
	b.pad()
}

// PropertyString adds a NUL-terminated string property.
func (b *Builder) PropertyString(name, value string) {
	b.PropertyBytes(name, append([]byte(value), 0))
}

// PropertyU64 adds a big-endian 64-bit property.
func (b *Builder) PropertyU64(name string, value uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	b.PropertyBytes(name, buf[:])
}

// Build emits the blob. slack extra bytes of zeroed capacity are appended
// beyond the declared totalsize, so the result can be edited in place.
func (b *Builder) Build(slack int) []byte {
	structure := append(b.structure, 0, 0, 0, byte(tokenEnd))

	memRsvmapOff := HeaderSize
	memRsvmapSize := 16 // one all-zero terminator entry
	structOff := memRsvmapOff + memRsvmapSize
	stringsOff := structOff + len(structure)
	total := stringsOff + len(b.strings)

	blob := make([]byte, total+slack)
	binary.BigEndian.PutUint32(blob[offMagic:], Magic)
	binary.BigEndian.PutUint32(blob[offTotalSize:], uint32(total))
	binary.BigEndian.PutUint32(blob[offStructBlock:], uint32(structOff))
	binary.BigEndian.PutUint32(blob[offStrings:], uint32(stringsOff))
	binary.BigEndian.PutUint32(blob[offMemRsvmap:], uint32(memRsvmapOff))
	binary.BigEndian.PutUint32(blob[offVersion:], builderVersion)
	binary.BigEndian.PutUint32(blob[offVersion+4:], builderCompatible)
	binary.BigEndian.PutUint32(blob[offSizeStrings:], uint32(len(b.strings)))
	binary.BigEndian.PutUint32(blob[offSizeStruct:], uint32(len(structure)))
	copy(blob[structOff:], structure)
	copy(blob[stringsOff:], b.strings)
	return blob
}

func (b *Builder) appendU32(v uint32) {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	b.structure = append(b.structure, buf[:]...)
}

func (b *Builder) pad() {
	for len(b.structure)%4 != 0 {
		b.structure = append(b.structure, 0)
	}
}

func (b *Builder) addString(name string) uint32 {
	if off, ok := b.stringOff[name]; ok {
		return off
	}
	off := uint32(len(b.strings))
	b.stringOff[name] = off
	b.strings = append(b.strings, name...)
	b.strings = append(b.strings, 0)
	return off
}
