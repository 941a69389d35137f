package xmlenc

import (
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// inputUriTransform is the source transform seeded at a Pipeline's head for
// URI-mode encrypt and CipherReference decrypt. It resolves file://, bare
// filesystem paths, and http(s):// URIs and streams the underlying body
// through Read, contractually returning (0, nil) at EOF with no separate
// flush — the explicit form of the implicit-EOF contract xmlSecEncryptUri
// relied on.
type inputUriTransform struct {
	uri    string
	client *http.Client

	body   io.ReadCloser
	opened bool
	eof    bool
}

// newInputUriTransform is called directly by drivers, not through the
// registry: it needs the URI and an HTTP client the registry's
// factory(algorithmID string) shape has no room for.
func newInputUriTransform(uri string, client *http.Client) *inputUriTransform {
	return &inputUriTransform{uri: uri, client: client}
}

func (t *inputUriTransform) open() error {
	if t.opened {
		return nil
	}
	t.opened = true

	u, err := url.Parse(t.uri)
	if err != nil {
		return transformFailure("parse URI", err)
	}

	switch u.Scheme {
	case "http", "https":
		client := t.client
		if client == nil {
			client = http.DefaultClient
		}
		resp, err := client.Get(t.uri)
		if err != nil {
			return transformFailure("fetch URI", err)
		}
		if resp.StatusCode/100 != 2 {
			resp.Body.Close()
			return transformFailure("fetch URI", wrapf("unexpected status %d", resp.StatusCode))
		}
		t.body = resp.Body
	case "file":
		f, err := os.Open(u.Path)
		if err != nil {
			return transformFailure("open URI", err)
		}
		t.body = f
	case "":
		f, err := os.Open(strings.TrimPrefix(t.uri, "file://"))
		if err != nil {
			return transformFailure("open URI", err)
		}
		t.body = f
	default:
		return invalidData("unsupported URI scheme: " + u.Scheme)
	}
	return nil
}

func (t *inputUriTransform) AddKey([]byte) error { return nil }
func (t *inputUriTransform) SetDirection(bool)   {}
func (t *inputUriTransform) EncKeyType() KeyType { return KeyTypeAny }
func (t *inputUriTransform) DecKeyType() KeyType { return KeyTypeAny }
func (t *inputUriTransform) KeyID() string       { return t.uri }

// Write is unused: inputUriTransform is always the pipeline head and never
// receives pushed bytes.
func (t *inputUriTransform) Write([]byte) (int, error) {
	return 0, invalidTransform("InputUri", nil)
}

// Flush computes nothing; it only opens the URI if Read has not already.
func (t *inputUriTransform) Flush() error { return t.open() }

func (t *inputUriTransform) Read(p []byte) (int, error) {
	if t.eof {
		return 0, nil
	}
	if err := t.open(); err != nil {
		return 0, err
	}
	n, err := t.body.Read(p)
	if err == io.EOF {
		t.eof = true
		if n > 0 {
			return n, nil
		}
		return 0, nil
	}
	if err != nil {
		return n, transformFailure("read URI", err)
	}
	return n, nil
}

func (t *inputUriTransform) Destroy() {
	if t.body != nil {
		t.body.Close()
		t.body = nil
	}
}
