package xmlenc

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"log"

	"github.com/beevik/etree"
)

// X509KeyManager resolves RSA key-transport keys from a configured
// certificate/private-key pair. On decrypt, when KeyInfo carries one or
// more X509Certificate entries, each is matched against Certificate before
// the configured PrivateKey is trusted — malformed certificates are logged
// and skipped, and non-matching ones are skipped silently, rather than
// aborting the search,
// mirroring the log-and-continue discipline the teacher's own certificate
// loader used when scanning multiple X509Certificate elements.
type X509KeyManager struct {
	Certificate *x509.Certificate
	PrivateKey  *rsa.PrivateKey
}

func (km *X509KeyManager) GetKey(keyInfo *etree.Element, req *KeyRequest) (*Key, error) {
	if req.Usage == KeyUsageEncrypt {
		return km.forEncrypt()
	}
	return km.forDecrypt(keyInfo)
}

func (km *X509KeyManager) forEncrypt() (*Key, error) {
	if km.Certificate == nil {
		return nil, keyNotFound()
	}
	pub, err := x509.MarshalPKIXPublicKey(km.Certificate.PublicKey)
	if err != nil {
		return nil, transformFailure("marshal public key", err)
	}
	return &Key{Bytes: pub, Certificate: km.Certificate, Origin: KeyOriginKeyManager}, nil
}

func (km *X509KeyManager) forDecrypt(keyInfo *etree.Element) (*Key, error) {
	if km.PrivateKey == nil {
		return nil, keyNotFound()
	}

	if keyInfo != nil && km.Certificate != nil {
		certElems := keyInfo.FindElements(".//X509Certificate")
		if len(certElems) > 0 && !km.anyMatches(certElems) {
			return nil, keyNotFound()
		}
	}

	return &Key{Decrypter: km.PrivateKey, Certificate: km.Certificate, Origin: KeyOriginKeyManager}, nil
}

func (km *X509KeyManager) anyMatches(certElems []*etree.Element) bool {
	for _, e := range certElems {
		cert, err := parseX509CertificateText(e.Text())
		if err != nil {
			log.Printf("xmlenc: unable to load certificate: %v; trying another", err)
			continue
		}
		if bytes.Equal(cert.Raw, km.Certificate.Raw) {
			return true
		}
	}
	return false
}

// parseX509CertificateText decodes the base64 DER content of a
// ds:X509Certificate element.
func parseX509CertificateText(text string) (*x509.Certificate, error) {
	der, err := base64.StdEncoding.DecodeString(stripWhitespace(text))
	if err != nil {
		return nil, err
	}
	return x509.ParseCertificate(der)
}
