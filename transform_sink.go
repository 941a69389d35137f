package xmlenc

import "bytes"

func init() {
	RegisterTransform(algorithmMemorySink, func(string) (BinaryTransform, error) {
		return &memorySinkTransform{}, nil
	})
}

// memorySinkTransform is the terminal "memory-buffer sink" transform
// required by spec §6: it accumulates whatever is written and hands it back
// on Read, with no transformation of its own.
type memorySinkTransform struct {
	buf bytes.Buffer
}

func (t *memorySinkTransform) AddKey([]byte) error { return nil }
func (t *memorySinkTransform) SetDirection(bool)   {}
func (t *memorySinkTransform) EncKeyType() KeyType { return KeyTypeAny }
func (t *memorySinkTransform) DecKeyType() KeyType { return KeyTypeAny }
func (t *memorySinkTransform) KeyID() string       { return "" }

func (t *memorySinkTransform) Write(p []byte) (int, error) {
	return t.buf.Write(p)
}

// Flush is a no-op: the sink has nothing to compute, it only accumulates.
func (t *memorySinkTransform) Flush() error { return nil }

func (t *memorySinkTransform) Read(p []byte) (int, error) {
	if t.buf.Len() == 0 {
		return 0, nil
	}
	return t.buf.Read(p)
}

// Bytes returns the sink's accumulated buffer WITHOUT removing it. Take,
// below, is used by drivers that need single, non-shared ownership (spec
// §4.5 step 4, "the 1-arg flavor that removes it from the sink").
func (t *memorySinkTransform) Bytes() []byte {
	return t.buf.Bytes()
}

// Take returns and clears the sink's accumulated buffer, so the sink cannot
// also free it later — the single-owner discipline spec §4.5 step 4 calls
// for.
func (t *memorySinkTransform) Take() []byte {
	out := append([]byte(nil), t.buf.Bytes()...)
	t.buf.Reset()
	return out
}

func (t *memorySinkTransform) Destroy() {
	t.buf.Reset()
}
