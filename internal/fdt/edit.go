package fdt

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// Node addresses a node by the absolute offset of its BEGIN_NODE token.
// Offsets are invalidated by edits preceding them in the blob; the editing
// pattern here is find-then-set within one annotation pass.
type Node int

// nodeBody returns the offset of the first token inside the node at n,
// skipping the token and the padded name.
func (b *Blob) nodeBody(n Node) (int, error) {
	pos := int(n)
	structStart, structSize := b.structBlock()
	end := structStart + structSize
	if pos < structStart || pos+4 > end || b.u32(pos) != tokenBeginNode {
		return 0, errors.Wrapf(ErrMalformed, "no node at offset %#x", pos)
	}
	name, ok := cstringAt(b.data[:end], pos+4)
	if !ok {
		return 0, errors.Wrap(ErrMalformed, "unterminated node name")
	}
	return pos + 4 + align4(len(name)+1), nil
}

// FindNode returns the child of the root node carrying name.
func (b *Blob) FindNode(name string) (Node, error) {
	structStart, structSize := b.structBlock()
	end := structStart + structSize
	depth := 0
	pos := structStart
	for pos+4 <= end {
		tok := pos
		switch b.u32(pos) {
		case tokenBeginNode:
			got, ok := cstringAt(b.data[:end], pos+4)
			if !ok {
				return 0, errors.Wrap(ErrMalformed, "unterminated node name")
			}
			if depth == 1 && got == name {
				return Node(tok), nil
			}
			depth++
			pos += 4 + align4(len(got)+1)
		case tokenEndNode:
			depth--
			pos += 4
			if depth == 0 {
				return 0, ErrNotFound
			}
		case tokenProp:
			if pos+12 > end {
				return 0, errors.Wrap(ErrMalformed, "truncated property")
			}
			pos += 12 + align4(int(b.u32(pos+4)))
		case tokenNop:
			pos += 4
		case tokenEnd:
			return 0, ErrNotFound
		default:
			return 0, errors.Wrapf(ErrMalformed, "unknown token %#x at %#x", b.u32(pos), pos)
		}
	}
	return 0, errors.Wrap(ErrMalformed, "structure block ran out")
}

// AddNode appends an empty child with name to the root node and returns it.
func (b *Blob) AddNode(name string) (Node, error) {
	structStart, structSize := b.structBlock()
	end := structStart + structSize

	// Insertion point is the root's END_NODE token.
	depth := 0
	pos := structStart
	for pos+4 <= end {
		switch b.u32(pos) {
		case tokenBeginNode:
			got, ok := cstringAt(b.data[:end], pos+4)
			if !ok {
				return 0, errors.Wrap(ErrMalformed, "unterminated node name")
			}
			depth++
			pos += 4 + align4(len(got)+1)
		case tokenEndNode:
			depth--
			if depth == 0 {
				return b.insertNode(pos, name)
			}
			pos += 4
		case tokenProp:
			if pos+12 > end {
				return 0, errors.Wrap(ErrMalformed, "truncated property")
			}
			pos += 12 + align4(int(b.u32(pos+4)))
		case tokenNop:
			pos += 4
		case tokenEnd:
			return 0, errors.Wrap(ErrMalformed, "root node never closed")
		default:
			return 0, errors.Wrapf(ErrMalformed, "unknown token %#x at %#x", b.u32(pos), pos)
		}
	}
	return 0, errors.Wrap(ErrMalformed, "structure block ran out")
}

func (b *Blob) insertNode(at int, name string) (Node, error) {
	nameLen := align4(len(name) + 1)
	entry := 4 + nameLen + 4 // BEGIN_NODE + name + END_NODE
	if err := b.resizeStruct(at, entry); err != nil {
		return 0, err
	}
	b.setU32(at, tokenBeginNode)
	copy(b.data[at+4:], name)
	// Name padding was zeroed by resizeStruct.
	b.setU32(at+4+nameLen, tokenEndNode)
	return Node(at), nil
}

// SetProp creates or overwrites a property on node n. Re-setting a property
// with a same-length value rewrites it in place; a changed length resizes
// the blob within its capacity.
func (b *Blob) SetProp(n Node, name string, value []byte) error {
	pos, err := b.nodeBody(n)
	if err != nil {
		return err
	}
	structStart, structSize := b.structBlock()
	end := structStart + structSize

	for pos+4 <= end {
		switch b.u32(pos) {
		case tokenNop:
			pos += 4
		case tokenProp:
			if pos+12 > end {
				return errors.Wrap(ErrMalformed, "truncated property")
			}
			oldLen := int(b.u32(pos + 4))
			if b.propName(b.u32(pos+8)) == name {
				if delta := align4(len(value)) - align4(oldLen); delta != 0 {
					if err := b.resizeStruct(pos+12+align4(oldLen), delta); err != nil {
						return err
					}
				}
				b.setU32(pos+4, uint32(len(value)))
				copy(b.data[pos+12:], value)
				for i := len(value); i < align4(len(value)); i++ {
					b.data[pos+12+i] = 0
				}
				return nil
			}
			pos += 12 + align4(oldLen)
		case tokenBeginNode, tokenEndNode:
			return b.insertProp(pos, name, value)
		default:
			return errors.Wrapf(ErrMalformed, "unknown token %#x at %#x", b.u32(pos), pos)
		}
	}
	return errors.Wrap(ErrMalformed, "structure block ran out")
}

func (b *Blob) insertProp(at int, name string, value []byte) error {
	// The name may need appending to the strings block; that block sits
	// behind the structure block, so at stays valid.
	nameoff, err := b.stringOffset(name)
	if err != nil {
		return err
	}
	entry := 12 + align4(len(value))
	if err := b.resizeStruct(at, entry); err != nil {
		return err
	}
	b.setU32(at, tokenProp)
	b.setU32(at+4, uint32(len(value)))
	b.setU32(at+8, nameoff)
	copy(b.data[at+12:], value)
	return nil
}

// SetPropU64 sets a big-endian 64-bit property, the encoding device tree
// consumers expect for addresses.
func (b *Blob) SetPropU64(n Node, name string, value uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], value)
	return b.SetProp(n, name, buf[:])
}

// Prop returns the value of a property on node n.
func (b *Blob) Prop(n Node, name string) ([]byte, error) {
	pos, err := b.nodeBody(n)
	if err != nil {
		return nil, err
	}
	structStart, structSize := b.structBlock()
	end := structStart + structSize
	for pos+4 <= end {
		switch b.u32(pos) {
		case tokenNop:
			pos += 4
		case tokenProp:
			if pos+12 > end {
				return nil, errors.Wrap(ErrMalformed, "truncated property")
			}
			plen := int(b.u32(pos + 4))
			if b.propName(b.u32(pos+8)) == name {
				if pos+12+plen > end {
					return nil, errors.Wrap(ErrMalformed, "property value out of range")
				}
				return b.data[pos+12 : pos+12+plen], nil
			}
			pos += 12 + align4(plen)
		case tokenBeginNode, tokenEndNode:
			return nil, ErrNotFound
		default:
			return nil, errors.Wrapf(ErrMalformed, "unknown token %#x at %#x", b.u32(pos), pos)
		}
	}
	return nil, errors.Wrap(ErrMalformed, "structure block ran out")
}
