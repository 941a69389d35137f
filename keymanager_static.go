package xmlenc

import "github.com/beevik/etree"

// StaticKeyManager returns the same caller-configured key regardless of
// KeyInfo content, for callers that manage key distribution out of band
// (a shared symmetric key, a single RSA keypair) and have no use for the
// richer resolution the other KeyManager implementations provide.
type StaticKeyManager struct {
	Key *Key
}

// NewStaticKeyManager wraps raw key bytes as a StaticKeyManager.
func NewStaticKeyManager(keyBytes []byte) *StaticKeyManager {
	return &StaticKeyManager{Key: &Key{Bytes: append([]byte(nil), keyBytes...), Origin: KeyOriginKeyManager}}
}

func (km *StaticKeyManager) GetKey(keyInfo *etree.Element, req *KeyRequest) (*Key, error) {
	if km.Key == nil {
		return nil, keyNotFound()
	}
	return km.Key.Clone(), nil
}
