package xmlenc

import (
	"crypto/ecdh"
	"crypto/rand"

	"github.com/beevik/etree"
)

// AgreementKeyManager resolves keys through X25519 ECDH + HKDF key
// agreement (keyagreement.go), wired into the KeyManager architecture
// instead of being called directly by an Encryptor/Decryptor as the
// teacher's original API shape had it. One side is populated depending on
// direction: RecipientPublicKey for encrypt (wrapping a fresh CEK for the
// recipient), PrivateKey for decrypt (unwrapping a CEK the sender wrapped).
type AgreementKeyManager struct {
	RecipientPublicKey *ecdh.PublicKey
	PrivateKey         *ecdh.PrivateKey
	HKDFParams         *HKDFParams
}

// GetKey implements KeyManager. On encrypt it generates a fresh CEK, wraps
// it for RecipientPublicKey, and writes the resulting EncryptedKey/
// AgreementMethod into keyInfo. On decrypt keyInfo is the EncryptedData's
// KeyInfo: it parses the EncryptedKey child out of it, reads the
// AgreementMethod from that EncryptedKey's own KeyInfo (the nested
// KeyInfo/EncryptedKey/KeyInfo/AgreementMethod structure xmlenc's
// key-agreement layering uses) and unwraps the CEK with PrivateKey.
func (km *AgreementKeyManager) GetKey(keyInfo *etree.Element, req *KeyRequest) (*Key, error) {
	if keyInfo == nil {
		return nil, keyNotFound()
	}

	if req.Usage == KeyUsageEncrypt {
		return km.wrapForEncrypt(keyInfo, req)
	}
	return km.unwrapForDecrypt(keyInfo)
}

func (km *AgreementKeyManager) wrapForEncrypt(keyInfo *etree.Element, req *KeyRequest) (*Key, error) {
	if km.RecipientPublicKey == nil {
		return nil, keyNotFound()
	}

	cekSize := keySizeForType(req.Type)
	cek := make([]byte, cekSize)
	if _, err := rand.Read(cek); err != nil {
		return nil, &Error{Kind: ErrMalloc, Err: err}
	}

	ka, err := NewX25519KeyAgreement(km.RecipientPublicKey, km.HKDFParams)
	if err != nil {
		return nil, transformFailure("generate ephemeral key", err)
	}

	wrapAlgorithm := kwAlgorithmForKeySize(cekSize)
	ek, err := ka.WrapKey(cek, wrapAlgorithm)
	if err != nil {
		return nil, transformFailure("wrap key", err)
	}

	for _, c := range keyInfo.ChildElements() {
		keyInfo.RemoveChild(c)
	}
	keyInfo.AddChild(ek.ToElement())

	return &Key{Bytes: cek, Origin: KeyOriginDerived}, nil
}

func (km *AgreementKeyManager) unwrapForDecrypt(keyInfo *etree.Element) (*Key, error) {
	if km.PrivateKey == nil {
		return nil, keyNotFound()
	}

	ki, err := parseKeyInfo(keyInfo)
	if err != nil {
		return nil, xmlFailure("parse KeyInfo", err)
	}
	if ki.EncryptedKey == nil {
		return nil, invalidData("KeyInfo has no EncryptedKey")
	}
	ek := ki.EncryptedKey
	if ek.KeyInfo == nil || ek.KeyInfo.AgreementMethod == nil {
		return nil, invalidData("EncryptedKey has no AgreementMethod")
	}
	am := ek.KeyInfo.AgreementMethod
	if am.OriginatorKeyInfo == nil || am.OriginatorKeyInfo.KeyValue == nil ||
		am.OriginatorKeyInfo.KeyValue.ECKeyValue == nil {
		return nil, invalidData("AgreementMethod has no OriginatorKeyInfo/ECKeyValue")
	}

	ephemeralPub, err := ParseX25519PublicKey(am.OriginatorKeyInfo.KeyValue.ECKeyValue.PublicKey)
	if err != nil {
		return nil, transformFailure("parse ephemeral public key", err)
	}

	var hkdfParams *HKDFParams
	if am.KeyDerivationMethod != nil {
		hkdfParams = am.KeyDerivationMethod.HKDFParams
	}
	if hkdfParams == nil {
		hkdfParams = km.HKDFParams
	}

	ka := NewX25519KeyAgreementForDecrypt(km.PrivateKey, ephemeralPub, hkdfParams)
	cek, err := ka.UnwrapKey(ek)
	if err != nil {
		return nil, transformFailure("unwrap key", err)
	}
	return &Key{Bytes: cek, Origin: KeyOriginDerived}, nil
}

func keySizeForType(t KeyType) int {
	switch t {
	case KeyTypeAES192:
		return 24
	case KeyTypeAES256:
		return 32
	default:
		return 16
	}
}

func kwAlgorithmForKeySize(size int) string {
	switch size {
	case 24:
		return AlgorithmAES192KW
	case 32:
		return AlgorithmAES256KW
	default:
		return AlgorithmAES128KW
	}
}
