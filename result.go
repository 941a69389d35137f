package xmlenc

import "github.com/beevik/etree"

// Result is the caller-facing record of a completed encrypt or decrypt
// call. On success it is returned in full; on failure the driver returns
// nil instead (spec §7 "User-visible behavior").
type Result struct {
	// Encrypt records which direction produced this result.
	Encrypt bool
	// Element references the EncryptedData element this result was
	// produced from (decrypt) or written into (encrypt).
	Element *etree.Element
	// Replaced records whether the driver spliced a replacement into the
	// DOM (XML-node encrypt entry point, or decrypt splicing).
	Replaced bool
	// Key is the resolved key, duplicated from the caller's if one was
	// supplied, with Origin preserved.
	Key *Key
	// Method is the resolved EncryptionMethod algorithm URI.
	Method string
	// Buffer is the output: base64-encoded ciphertext (encrypt) or
	// plaintext (decrypt).
	Buffer []byte
	// ID, Type, MimeType, Encoding are copies of EncryptedData's
	// attributes, independent of the DOM so they survive it being freed.
	ID       string
	Type     string
	MimeType string
	Encoding string
}

// destroy zero-fills the result's buffers so a caller holding a stale
// reference can't observe its contents. No driver currently calls it: the
// encrypt and decrypt drivers drop a failed Result by returning nil.
func (r *Result) destroy() {
	if r == nil {
		return
	}
	for i := range r.Buffer {
		r.Buffer[i] = 0
	}
	r.Buffer = nil
	if r.Key != nil {
		for i := range r.Key.Bytes {
			r.Key.Bytes[i] = 0
		}
	}
	r.Key = nil
	r.Element = nil
}
