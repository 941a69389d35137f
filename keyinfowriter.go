package xmlenc

import (
	"encoding/base64"

	"github.com/beevik/etree"
)

// defaultKeyInfoWriter rewrites a KeyInfo element to describe a resolved
// key, grounded on types.go's existing KeyInfo/X509Data serialization
// (appendTo), adapted here to mutate a live element in place instead of
// building a detached KeyInfo value.
type defaultKeyInfoWriter struct{}

// Write updates keyInfo in place: if key.Certificate is set, it (re)writes a
// ds:X509Data/ds:X509Certificate child; otherwise, if key.Name is set, it
// (re)writes ds:KeyName. Neither is mandatory — a caller supplying a bare
// key with no certificate or name leaves KeyInfo untouched, matching the
// grammar reader's step 5, which only rewrites KeyInfo "to describe the
// chosen key" when there is something to describe.
func (defaultKeyInfoWriter) Write(keyInfo *etree.Element, req *KeyRequest, key *Key) error {
	if keyInfo == nil || key == nil {
		return nil
	}

	if key.Certificate != nil {
		if existing := keyInfo.FindElement("./X509Data"); existing != nil {
			keyInfo.RemoveChild(existing)
		}
		x509Data := keyInfo.CreateElement("ds:X509Data")
		cert := x509Data.CreateElement("ds:X509Certificate")
		cert.SetText(base64.StdEncoding.EncodeToString(key.Certificate.Raw))
		return nil
	}

	if key.Name != "" {
		if existing := keyInfo.FindElement("./KeyName"); existing != nil {
			existing.SetText(key.Name)
			return nil
		}
		kn := keyInfo.CreateElement("ds:KeyName")
		kn.SetText(key.Name)
	}

	return nil
}
