package xmlenc

import "fmt"

// KeyType identifies the shape of key material a transform needs.
type KeyType string

const (
	KeyTypeAES128 KeyType = "aes128"
	KeyTypeAES192 KeyType = "aes192"
	KeyTypeAES256 KeyType = "aes256"
	KeyTypeRSA    KeyType = "rsa"
	KeyTypeAny    KeyType = "any"
)

// KeyUsage identifies which direction a KeyRequest is being made for.
type KeyUsage int

const (
	KeyUsageEncrypt KeyUsage = iota
	KeyUsageDecrypt
)

// BinaryTransform is the streaming byte-processor contract every cipher,
// codec, sink, and source collaborator implements. Chains of these are
// driven by Pipeline in either the write-at-head or read-at-tail direction.
type BinaryTransform interface {
	// AddKey installs key material. Not every transform needs a key
	// (base64 codecs and the memory sink do not); those implementations
	// treat AddKey as a no-op.
	AddKey(key []byte) error
	// SetDirection selects encrypt (true) or decrypt (false) behavior.
	SetDirection(encrypt bool)
	// Write pushes plaintext/ciphertext bytes into the transform, which
	// propagates whatever it produces to the next transform in the chain
	// via the Pipeline that owns it.
	Write(p []byte) (int, error)
	// Flush signals end-of-stream. No transform may emit output that
	// depends on input arriving after Flush.
	Flush() error
	// Read pulls output bytes. Returns (0, nil) once drained — this is
	// the pipeline's contractual EOF signal, not an error.
	Read(p []byte) (int, error)
	// EncKeyType/DecKeyType/KeyID feed key resolution (spec §4.2 step 5).
	EncKeyType() KeyType
	DecKeyType() KeyType
	KeyID() string
	// Destroy releases any resources (buffers, HSM sessions) held by the
	// transform. Idempotent.
	Destroy()
}

// transformFactory builds a fresh BinaryTransform for a given algorithm URI.
// It takes only the algorithm URI: unlike the C source's
// create(id, usageHint, mode), there is no usage-hint or mode argument.
type transformFactory func(algorithmID string) (BinaryTransform, error)

var transformRegistry = map[string]transformFactory{}

// RegisterTransform makes a transform constructible via NewTransform for the
// given algorithm URI. Concrete transforms call this from an init() func,
// mirroring the RegisterDecrypter/init()-time plugin idiom used for
// algorithm suites elsewhere in the XML-security Go ecosystem.
func RegisterTransform(algorithmID string, factory transformFactory) {
	transformRegistry[algorithmID] = factory
}

// NewTransform constructs the registered BinaryTransform for algorithmID, or
// fails with ErrInvalidTransform if no transform is registered for it.
func NewTransform(algorithmID string) (BinaryTransform, error) {
	factory, ok := transformRegistry[algorithmID]
	if !ok {
		return nil, invalidTransform(algorithmID, fmt.Errorf("no transform registered"))
	}
	return factory(algorithmID)
}
