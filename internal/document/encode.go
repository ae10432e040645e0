package document

import (
	"bytes"
	"encoding/json"
)

// JSON returns the compact serialized form of n with mapping keys sorted.
func (n Node) JSON() []byte {
	var buf bytes.Buffer
	n.appendJSON(&buf)
	return buf.Bytes()
}

// Text is JSON as a string, used when rendering before/after values.
func (n Node) Text() string {
	return string(n.JSON())
}

func (n Node) appendJSON(buf *bytes.Buffer) {
	switch n.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		if n.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case KindNumber:
		buf.WriteString(n.text)
	case KindString:
		writeString(buf, n.text)
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			item.appendJSON(buf)
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, k := range n.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			n.fields[k].appendJSON(buf)
		}
		buf.WriteByte('}')
	}
}

func writeString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s) // strings always encode
	buf.Truncate(buf.Len() - 1)
}

// MarshalJSON implements json.Marshaler.
func (n Node) MarshalJSON() ([]byte, error) {
	return n.JSON(), nil
}

// UnmarshalJSON implements json.Unmarshaler so reports survive a JSON round trip.
func (n *Node) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}
