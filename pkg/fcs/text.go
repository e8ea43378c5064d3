package fcs

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Keywords is the ordered key/value dictionary decoded from a TEXT segment.
// It is read-only once built.
type Keywords struct {
	order  []string
	values map[string]string
}

// NewKeywords builds a dictionary from alternating key/value strings. It is
// mainly useful for tests and for callers that already hold decoded pairs.
func NewKeywords(pairs ...string) *Keywords {
	kw := &Keywords{values: make(map[string]string, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		kw.set(pairs[i], pairs[i+1])
	}
	return kw
}

func (kw *Keywords) set(key, value string) {
	if _, exists := kw.values[key]; !exists {
		kw.order = append(kw.order, key)
	}
	kw.values[key] = value
}

// ParseText decodes a TEXT segment. The first byte is the delimiter, and a
// doubled delimiter stands for one literal delimiter byte. Tokens pair up as
// key, value; an unpaired trailing token is dropped. Segments that are not
// valid UTF-8 are read as ISO-8859-1.
func ParseText(raw []byte) (*Keywords, error) {
	kw := &Keywords{values: make(map[string]string)}
	if len(raw) == 0 {
		return kw, nil
	}

	tokens := splitText(raw)
	latin1 := !utf8.Valid(raw)

	for i := 0; i+1 < len(tokens); i += 2 {
		key, err := decodeToken(tokens[i], latin1)
		if err != nil {
			return nil, err
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty keyword at pair %d", ErrMalformedText, i/2)
		}
		value, err := decodeToken(tokens[i+1], latin1)
		if err != nil {
			return nil, err
		}
		kw.set(key, value)
	}
	return kw, nil
}

func splitText(raw []byte) [][]byte {
	delim := raw[0]
	var (
		tokens [][]byte
		cur    []byte
		open   bool
	)
	for i := 1; i < len(raw); i++ {
		b := raw[i]
		if b != delim {
			cur = append(cur, b)
			open = true
			continue
		}
		if i+1 < len(raw) && raw[i+1] == delim {
			cur = append(cur, delim)
			open = true
			i++
			continue
		}
		tokens = append(tokens, cur)
		cur, open = nil, false
	}
	// Tolerate a missing closing delimiter.
	if open {
		tokens = append(tokens, cur)
	}
	return tokens
}

func decodeToken(tok []byte, latin1 bool) (string, error) {
	if !latin1 {
		return string(tok), nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(tok)
	if err != nil {
		return "", fmt.Errorf("%w: decoding latin-1 text: %v", ErrMalformedText, err)
	}
	return string(out), nil
}

// EncodeText renders kw in TEXT segment form using delim, doubling any
// delimiter found inside keys or values. It exists for fixtures and round
// trips; this package does not write FCS files.
func EncodeText(kw *Keywords, delim byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte(delim)
	escaped := []byte{delim, delim}
	for _, key := range kw.order {
		buf.Write(bytes.ReplaceAll([]byte(key), []byte{delim}, escaped))
		buf.WriteByte(delim)
		buf.Write(bytes.ReplaceAll([]byte(kw.values[key]), []byte{delim}, escaped))
		buf.WriteByte(delim)
	}
	return buf.Bytes()
}
