package der

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Tag is an identifier octet.
type Tag byte

// Universal tags.
const (
	TagEOC         Tag = 0x00
	TagBoolean     Tag = 0x01
	TagInteger     Tag = 0x02
	TagBitString   Tag = 0x03
	TagOctetString Tag = 0x04
	TagNull        Tag = 0x05
	TagOID         Tag = 0x06
	TagSequence    Tag = 0x30
	TagSet         Tag = 0x31
)

// Class returns the tag class (0 universal, 1 application, 2 context, 3 private).
func (t Tag) Class() int { return int(t >> 6) }

// Constructed reports the constructed bit.
func (t Tag) Constructed() bool { return t&0x20 != 0 }

// Number returns the low five tag bits.
func (t Tag) Number() int { return int(t & 0x1f) }

// Node is one decoded value. Sub is nil for leaves and non-nil (possibly
// empty) for containers and encapsulating strings.
type Node struct {
	Tag    Tag
	Offset int
	Header int
	Length int
	Sub    []*Node
	// Indefinite is set when the value used the BER indefinite form;
	// Length then holds the number of content bytes consumed.
	Indefinite bool

	stream *Stream
}

// PosStart returns the offset of the tag byte.
func (n *Node) PosStart() int { return n.Offset }

// PosContent returns the offset of the first content byte.
func (n *Node) PosContent() int { return n.Offset + n.Header }

// PosEnd returns the offset just past the value.
func (n *Node) PosEnd() int { return n.Offset + n.Header + n.Length }

// Content returns the raw content bytes.
func (n *Node) Content() []byte {
	b, _ := n.stream.Slice(n.PosContent(), n.PosEnd())
	return b
}

var universalNames = map[int]string{
	0x00: "EOC",
	0x01: "BOOLEAN",
	0x02: "INTEGER",
	0x03: "BIT_STRING",
	0x04: "OCTET_STRING",
	0x05: "NULL",
	0x06: "OBJECT_IDENTIFIER",
	0x07: "ObjectDescriptor",
	0x08: "EXTERNAL",
	0x09: "REAL",
	0x0a: "ENUMERATED",
	0x0b: "EMBEDDED_PDV",
	0x0c: "UTF8String",
	0x10: "SEQUENCE",
	0x11: "SET",
	0x12: "NumericString",
	0x13: "PrintableString",
	0x14: "TeletexString",
	0x15: "VideotexString",
	0x16: "IA5String",
	0x17: "UTCTime",
	0x18: "GeneralizedTime",
	0x19: "GraphicString",
	0x1a: "VisibleString",
	0x1b: "GeneralString",
	0x1c: "UniversalString",
	0x1e: "BMPString",
}

// TypeName names the tag.
func (n *Node) TypeName() string {
	num := n.Tag.Number()
	switch n.Tag.Class() {
	case 0:
		if name, ok := universalNames[num]; ok {
			return name
		}
		return "Universal_" + strconv.FormatInt(int64(num), 16)
	case 1:
		return "Application_" + strconv.FormatInt(int64(num), 16)
	case 2:
		return "[" + strconv.Itoa(num) + "]"
	default:
		return "Private_" + strconv.FormatInt(int64(num), 16)
	}
}

// Describe renders the content for diagnostics. It returns "" for types
// without a rendering.
func (n *Node) Describe() string {
	if n.Tag.Class() != 0 {
		if n.Sub == nil {
			return ""
		}
		return fmt.Sprintf("(%d)", len(n.Sub))
	}

	content := n.Content()
	switch n.Tag.Number() {
	case 0x01:
		if len(content) > 0 && content[0] != 0 {
			return "true"
		}
		return "false"
	case 0x02:
		return describeInteger(content)
	case 0x03:
		if n.Sub != nil {
			return fmt.Sprintf("(%d elem)", len(n.Sub))
		}
		return describeBitString(content)
	case 0x04:
		if n.Sub != nil {
			return fmt.Sprintf("(%d elem)", len(n.Sub))
		}
		return describeOctetString(content)
	case 0x06:
		return describeOID(content)
	case 0x10, 0x11:
		return fmt.Sprintf("(%d elem)", len(n.Sub))
	case 0x0c:
		return string(content)
	case 0x12, 0x13, 0x14, 0x15, 0x16, 0x1a:
		return latin1(content)
	case 0x17, 0x18:
		return describeTime(latin1(content))
	}
	return ""
}

// PrettyString renders the tree, one node per line.
func (n *Node) PrettyString(indent string) string {
	var sb strings.Builder
	n.pretty(&sb, indent)
	return sb.String()
}

func (n *Node) pretty(sb *strings.Builder, indent string) {
	fmt.Fprintf(sb, "%s%s @%d+%d", indent, n.TypeName(), n.Offset, n.Length)
	switch {
	case n.Tag.Constructed():
		sb.WriteString(" (constructed)")
	case (n.Tag == TagBitString || n.Tag == TagOctetString) && n.Sub != nil:
		sb.WriteString(" (encapsulates)")
	}
	if n.Indefinite {
		sb.WriteString(" (indefinite)")
	}
	if d := n.Describe(); d != "" && n.Sub == nil {
		sb.WriteString(": " + d)
	}
	sb.WriteByte('\n')
	for _, c := range n.Sub {
		c.pretty(sb, indent+"  ")
	}
}

func describeInteger(b []byte) string {
	if len(b) > 4 {
		bits := len(b) * 8
		s := b[0]
		if s == 0 {
			bits -= 8
		} else {
			for s < 128 {
				s <<= 1
				bits--
			}
		}
		return fmt.Sprintf("(%d bit)", bits)
	}
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return strconv.FormatInt(v, 10)
}

func describeBitString(b []byte) string {
	if len(b) == 0 {
		return "(0 bit)"
	}
	unused := int(b[0])
	n := (len(b)-1)*8 - unused
	s := fmt.Sprintf("(%d bit)", n)
	if n <= 20 {
		var sb strings.Builder
		skip := unused
		for i := len(b) - 1; i > 0; i-- {
			for j := skip; j < 8; j++ {
				sb.WriteByte('0' + b[i]>>uint(j)&1)
			}
			skip = 0
		}
		s += " " + sb.String()
	}
	return s
}

func describeOctetString(b []byte) string {
	s := fmt.Sprintf("(%d byte) ", len(b))
	if len(b) > 20 {
		return s + fmt.Sprintf("%X", b[:20]) + "…"
	}
	return s + fmt.Sprintf("%X", b)
}

func describeOID(b []byte) string {
	var parts []string
	var v uint64
	bits := 0
	for _, c := range b {
		v = v<<7 | uint64(c&0x7f)
		bits += 7
		if c&0x80 != 0 {
			continue
		}
		switch {
		case parts == nil:
			parts = append(parts, strconv.FormatUint(v/40, 10), strconv.FormatUint(v%40, 10))
		case bits >= 31:
			parts = append(parts, "bigint")
		default:
			parts = append(parts, strconv.FormatUint(v, 10))
		}
		v, bits = 0, 0
	}
	return strings.Join(parts, ".")
}

func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

var timeRE = regexp.MustCompile(`^((?:1[89]|2\d)?\d\d)(0[1-9]|1[0-2])(0[1-9]|[12]\d|3[01])([01]\d|2[0-3])(?:([0-5]\d)(?:([0-5]\d)(?:[.,](\d{1,3}))?)?)?(Z|[-+](?:[0]\d|1[0-2])([0-5]\d)?)?$`)

func describeTime(s string) string {
	m := timeRE.FindStringSubmatch(s)
	if m == nil {
		return "Unrecognized time: " + s
	}
	out := m[1] + "-" + m[2] + "-" + m[3] + " " + m[4]
	if m[5] != "" {
		out += ":" + m[5]
		if m[6] != "" {
			out += ":" + m[6]
			if m[7] != "" {
				out += "." + m[7]
			}
		}
	}
	if m[8] != "" {
		out += " UTC"
		if m[8] != "Z" {
			out += m[8]
			if m[9] != "" {
				out += ":" + m[9]
			}
		}
	}
	return out
}
