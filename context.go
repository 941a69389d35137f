package xmlenc

import (
	"crypto"
	"crypto/x509"
	"net/http"
	"time"

	"github.com/beevik/etree"
)

// KeyOrigin records where a resolved Key came from, preserved verbatim when
// a key is duplicated so callers can distinguish a statically-configured key
// from one derived through KeyInfo.
type KeyOrigin int

const (
	KeyOriginCaller KeyOrigin = iota
	KeyOriginKeyManager
	KeyOriginDerived
)

// Key carries resolved key material plus provenance. Decrypter is set
// instead of Bytes by hardware-backed KeyManagers (e.g. PKCS11KeyManager)
// whose private key material never leaves the token; RSA transforms use it
// in place of a raw private key when present.
type Key struct {
	Bytes       []byte
	Origin      KeyOrigin
	Certificate *x509.Certificate
	Name        string
	Decrypter   crypto.Decrypter
}

// Clone duplicates a Key, preserving Origin verbatim.
func (k *Key) Clone() *Key {
	if k == nil {
		return nil
	}
	cp := &Key{Origin: k.Origin, Certificate: k.Certificate, Name: k.Name, Decrypter: k.Decrypter}
	if k.Bytes != nil {
		cp.Bytes = append([]byte(nil), k.Bytes...)
	}
	return cp
}

// KeyRequest is passed to KeyManager.GetKey alongside the (possibly nil)
// KeyInfo element. It replaces the C source's mutable keyManagerContext
// workaround for lack of closures with an explicit, immutable-per-call
// argument.
type KeyRequest struct {
	Type  KeyType
	Usage KeyUsage
	ID    string
}

// KeyManager resolves a Key given an optional KeyInfo element and the
// engine's KeyRequest. Its own behavior (HSM lookup, cert-store scan,
// static return) is entirely up to the implementation; the engine only
// constrains how KeyRequest is populated before the call (spec §4.2 step 5).
type KeyManager interface {
	GetKey(keyInfo *etree.Element, req *KeyRequest) (*Key, error)
}

// KeyInfoWriter rewrites a live KeyInfo element to describe a resolved key,
// invoked on encrypt when the template already carried a KeyInfo skeleton
// (spec §4.2 step 5, §6).
type KeyInfoWriter interface {
	Write(keyInfo *etree.Element, req *KeyRequest, key *Key) error
}

// ContextOption configures a ProcessingContext at construction time.
type ContextOption func(*ProcessingContext)

// WithDefaultMethod sets the EncryptionMethod algorithm used when a
// template omits EncryptionMethod entirely (spec §4.2 step 3).
func WithDefaultMethod(algorithmID string) ContextOption {
	return func(c *ProcessingContext) { c.DefaultMethod = algorithmID }
}

// WithIgnoreType suppresses DOM splicing regardless of the EncryptedData's
// Type attribute.
func WithIgnoreType(ignore bool) ContextOption {
	return func(c *ProcessingContext) { c.IgnoreType = ignore }
}

// WithHTTPClient overrides the client InputUri uses for http(s) URIs,
// letting callers bound the one synchronous network I/O this engine
// performs.
func WithHTTPClient(client *http.Client) ContextOption {
	return func(c *ProcessingContext) { c.HTTPClient = client }
}

// WithKeyInfoWriter overrides the default KeyInfoWriter.
func WithKeyInfoWriter(w KeyInfoWriter) ContextOption {
	return func(c *ProcessingContext) { c.KeyInfoWriter = w }
}

// ProcessingContext carries the key manager, default method, and policy
// flags shared across (non-overlapping) encrypt/decrypt calls.
type ProcessingContext struct {
	KeyManager    KeyManager
	KeyInfoWriter KeyInfoWriter
	DefaultMethod string
	IgnoreType    bool
	HTTPClient    *http.Client
}

// NewProcessingContext builds a context around km, applying opts in order.
// A nil KeyInfoWriter defaults to defaultKeyInfoWriter{}.
func NewProcessingContext(km KeyManager, opts ...ContextOption) *ProcessingContext {
	c := &ProcessingContext{
		KeyManager:    km,
		KeyInfoWriter: defaultKeyInfoWriter{},
		HTTPClient:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.KeyInfoWriter == nil {
		c.KeyInfoWriter = defaultKeyInfoWriter{}
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	return c
}

// Clone returns a shallow copy sharing the same KeyManager, KeyInfoWriter,
// HTTPClient and policy. The context itself holds no per-call state: each
// encrypt/decrypt call builds its own KeyRequest.
func (c *ProcessingContext) Clone() *ProcessingContext {
	cp := *c
	return &cp
}
