// Package der decodes ASN.1 DER (and BER indefinite-length) structures
// into a tree of tagged nodes. It is used to pull the modulus and exponent
// out of an RSA public key.
package der

import "fmt"

// MaxDepth bounds the nesting of decoded structures.
const MaxDepth = 64

// Stream is a read-only byte buffer.
type Stream struct {
	buf []byte
}

// NewStream wraps buf. The buffer must not be modified afterwards.
func NewStream(buf []byte) *Stream {
	return &Stream{buf: buf}
}

// Len returns the buffer length.
func (s *Stream) Len() int { return len(s.buf) }

// Get returns the byte at pos.
func (s *Stream) Get(pos int) (byte, error) {
	if pos < 0 || pos >= len(s.buf) {
		return 0, &StreamBoundsError{Offset: pos, Len: len(s.buf)}
	}
	return s.buf[pos], nil
}

// Slice returns buf[start:end].
func (s *Stream) Slice(start, end int) ([]byte, error) {
	if start < 0 || end > len(s.buf) || start > end {
		return nil, &StreamBoundsError{Offset: end, Len: len(s.buf)}
	}
	return s.buf[start:end], nil
}

// DecodeLength reads a length at pos and returns it with the number of
// bytes used. Indefinite length is reported as -1.
func DecodeLength(s *Stream, pos int) (length, n int, err error) {
	b, err := s.Get(pos)
	if err != nil {
		return 0, 0, err
	}
	if b&0x80 == 0 {
		return int(b), 1, nil
	}

	count := int(b & 0x7f)
	if count > 3 {
		return 0, 0, &StreamBoundsError{Offset: pos, Len: s.Len(), Reason: "length over 24 bits not supported"}
	}
	if count == 0 {
		return -1, 1, nil
	}

	for i := 1; i <= count; i++ {
		v, err := s.Get(pos + i)
		if err != nil {
			return 0, 0, err
		}
		length = length<<8 | int(v)
	}
	return length, 1 + count, nil
}

// Decode decodes the value at the start of buf. Trailing bytes are ignored.
func Decode(buf []byte) (*Node, error) {
	return DecodeAt(buf, 0)
}

// DecodeAt decodes the value starting at offset.
func DecodeAt(buf []byte, offset int) (*Node, error) {
	return decode(NewStream(buf), offset, 1)
}

func decode(s *Stream, pos, depth int) (*Node, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w at offset %d", ErrTooDeep, pos)
	}

	tag, err := s.Get(pos)
	if err != nil {
		return nil, err
	}
	length, n, err := DecodeLength(s, pos+1)
	if err != nil {
		return nil, err
	}

	node := &Node{
		Tag:    Tag(tag),
		Offset: pos,
		Header: 1 + n,
		Length: length,
		stream: s,
	}
	start := node.PosContent()

	if !tryDecodeHeader(s, node.Tag, start, length) {
		if length < 0 {
			return nil, &ParseError{Offset: pos, Msg: "indefinite length on a primitive value"}
		}
		if start+length > s.Len() {
			return nil, &StreamBoundsError{Offset: start + length, Len: s.Len()}
		}
		return node, nil
	}

	p := start
	if node.Tag == TagBitString {
		p++ // unused bits
	}
	node.Sub = []*Node{}

	if length >= 0 {
		end := start + length
		for p < end {
			child, err := decode(s, p, depth+1)
			if err != nil {
				return nil, err
			}
			node.Sub = append(node.Sub, child)
			p = child.PosEnd()
		}
		if p != end {
			return nil, &ParseError{Offset: start, Msg: "content size is not correct for container"}
		}
		return node, nil
	}

	for {
		child, err := decode(s, p, depth+1)
		if err != nil {
			return nil, &ParseError{Offset: start, Msg: "decoding indefinite length content", Err: err}
		}
		p = child.PosEnd()
		if child.Tag == TagEOC {
			break
		}
		node.Sub = append(node.Sub, child)
	}
	node.Length = p - start
	node.Indefinite = true
	return node, nil
}

// tryDecodeHeader reports whether the content at pos should be decoded as
// nested values. Constructed values always are. A BIT STRING or OCTET
// STRING is when its content begins with a universal or context-specific
// header whose length exactly fills it.
func tryDecodeHeader(s *Stream, tag Tag, pos, length int) bool {
	if tag.Constructed() {
		return true
	}
	if tag != TagBitString && tag != TagOctetString {
		return false
	}

	p := pos
	if tag == TagBitString {
		p++
	}
	sub, err := s.Get(p)
	if err != nil {
		return false
	}
	if (sub>>6)&1 != 0 {
		return false
	}
	subLength, n, err := DecodeLength(s, p+1)
	if err != nil {
		return false
	}
	return p+1+n-pos+subLength == length
}
