package xmlenc

import (
	"crypto"
	"crypto/x509"

	"github.com/ThalesGroup/crypto11"
	"github.com/beevik/etree"
)

// PKCS11Config names the HSM slot and key label a PKCS11KeyManager should
// bind to. It mirrors crypto11.Config's shape rather than exposing that
// type directly, so callers of this package don't need a crypto11 import
// just to construct one.
type PKCS11Config struct {
	Path       string
	TokenLabel string
	Pin        string
	KeyLabel   string
	KeyID      []byte
}

// PKCS11KeyManager resolves RSA key-transport keys backed by a PKCS#11
// token: the private key never leaves the HSM. GetKey hands rsaTransform a
// crypto.Decrypter (via Key.Decrypter) instead of raw key bytes, satisfying
// decrypterAwareTransform.
type PKCS11KeyManager struct {
	ctx         *crypto11.Context
	decrypter   crypto.Decrypter
	certificate *x509.Certificate
}

// NewPKCS11KeyManager opens the configured PKCS#11 token and looks up the
// key pair (and its certificate, if the token carries one) once at
// construction time.
func NewPKCS11KeyManager(cfg PKCS11Config) (*PKCS11KeyManager, error) {
	ctx, err := crypto11.Configure(&crypto11.Config{
		Path:       cfg.Path,
		TokenLabel: cfg.TokenLabel,
		Pin:        cfg.Pin,
	})
	if err != nil {
		return nil, transformFailure("open PKCS#11 token", err)
	}

	signer, err := ctx.FindKeyPair(cfg.KeyID, []byte(cfg.KeyLabel))
	if err != nil {
		ctx.Close()
		return nil, transformFailure("find PKCS#11 key pair", err)
	}
	decrypter, ok := signer.(crypto.Decrypter)
	if !ok {
		ctx.Close()
		return nil, invalidData("PKCS#11 key does not support decryption")
	}

	cert, _ := ctx.FindCertificate(cfg.KeyID, []byte(cfg.KeyLabel), nil)

	return &PKCS11KeyManager{ctx: ctx, decrypter: decrypter, certificate: cert}, nil
}

func (km *PKCS11KeyManager) GetKey(keyInfo *etree.Element, req *KeyRequest) (*Key, error) {
	if req.Usage == KeyUsageEncrypt {
		if km.certificate == nil {
			return nil, keyNotFound()
		}
		pub, err := x509.MarshalPKIXPublicKey(km.certificate.PublicKey)
		if err != nil {
			return nil, transformFailure("marshal public key", err)
		}
		return &Key{Bytes: pub, Certificate: km.certificate, Origin: KeyOriginKeyManager}, nil
	}
	return &Key{Decrypter: km.decrypter, Certificate: km.certificate, Origin: KeyOriginKeyManager}, nil
}

// Close releases the underlying PKCS#11 session.
func (km *PKCS11KeyManager) Close() error {
	if km.ctx == nil {
		return nil
	}
	return km.ctx.Close()
}
