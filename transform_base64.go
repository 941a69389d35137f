package xmlenc

import (
	"bytes"
	"encoding/base64"
)

// algorithmBase64Encode and algorithmMemorySink are internal transform ids
// — they have no W3C algorithm URI since they are pipeline plumbing, not a
// declared EncryptionMethod, but the registry keys every transform by
// string id uniformly.
const (
	algorithmBase64Encode = "internal:base64-encode"
	algorithmBase64Decode = "internal:base64-decode"
	algorithmMemorySink   = "internal:memory-sink"
)

func init() {
	RegisterTransform(algorithmBase64Encode, func(string) (BinaryTransform, error) {
		return &base64Transform{encode: true}, nil
	})
	RegisterTransform(algorithmBase64Decode, func(string) (BinaryTransform, error) {
		return &base64Transform{encode: false}, nil
	})
}

// base64Transform implements the base64 encode/decode BinaryTransform
// required by spec §6. It buffers input and produces its whole output on
// Flush, consistent with every other transform in this module.
type base64Transform struct {
	encode bool
	in     bytes.Buffer
	out    bytes.Buffer
}

func (t *base64Transform) AddKey([]byte) error { return nil }
func (t *base64Transform) SetDirection(bool)   {}
func (t *base64Transform) EncKeyType() KeyType { return KeyTypeAny }
func (t *base64Transform) DecKeyType() KeyType { return KeyTypeAny }
func (t *base64Transform) KeyID() string       { return "" }

func (t *base64Transform) Write(p []byte) (int, error) {
	return t.in.Write(p)
}

func (t *base64Transform) Flush() error {
	if t.encode {
		encoded := base64.StdEncoding.EncodeToString(t.in.Bytes())
		t.out.WriteString(encoded)
		return nil
	}
	decoded, err := decodeBase64(t.in.String())
	if err != nil {
		return transformFailure("base64 decode", err)
	}
	t.out.Write(decoded)
	return nil
}

func (t *base64Transform) Read(p []byte) (int, error) {
	if t.out.Len() == 0 {
		return 0, nil
	}
	return t.out.Read(p)
}

func (t *base64Transform) Destroy() {
	t.in.Reset()
	t.out.Reset()
}

func encodeBase64(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func decodeBase64(s string) ([]byte, error) {
	trimmed := stripWhitespace(s)
	return base64.StdEncoding.DecodeString(trimmed)
}

func stripWhitespace(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\n' || c == '\r' || c == '\t' || c == ' ' {
			continue
		}
		b = append(b, c)
	}
	return string(b)
}
