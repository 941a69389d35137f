package xmlenc

import "bytes"

func init() {
	for _, alg := range []string{AlgorithmAES128CBC, AlgorithmAES192CBC, AlgorithmAES256CBC} {
		alg := alg
		RegisterTransform(alg, func(string) (BinaryTransform, error) {
			return &cbcCipherTransform{algorithm: alg}, nil
		})
	}
	for _, alg := range []string{AlgorithmAES128GCM, AlgorithmAES192GCM, AlgorithmAES256GCM} {
		alg := alg
		RegisterTransform(alg, func(string) (BinaryTransform, error) {
			return &gcmCipherTransform{algorithm: alg}, nil
		})
	}
	for _, alg := range []string{AlgorithmAES128KW, AlgorithmAES192KW, AlgorithmAES256KW} {
		alg := alg
		RegisterTransform(alg, func(string) (BinaryTransform, error) {
			return &keyWrapTransform{algorithm: alg}, nil
		})
	}
}

func keyTypeForSize(size int) KeyType {
	switch size {
	case 16:
		return KeyTypeAES128
	case 24:
		return KeyTypeAES192
	case 32:
		return KeyTypeAES256
	default:
		return KeyTypeAny
	}
}

// cbcCipherTransform wraps the teacher's AESCBCEncrypt/AESCBCDecrypt
// (keywrap.go) as a BinaryTransform: buffer on Write, encrypt-or-decrypt the
// whole buffer on Flush, drain via Read.
type cbcCipherTransform struct {
	algorithm string
	key       []byte
	encrypt   bool
	in        bytes.Buffer
	out       bytes.Buffer
}

func (t *cbcCipherTransform) AddKey(key []byte) error {
	t.key = append([]byte(nil), key...)
	return nil
}
func (t *cbcCipherTransform) SetDirection(encrypt bool) { t.encrypt = encrypt }
func (t *cbcCipherTransform) EncKeyType() KeyType       { return keyTypeForSize(KeySize(t.algorithm)) }
func (t *cbcCipherTransform) DecKeyType() KeyType       { return keyTypeForSize(KeySize(t.algorithm)) }
func (t *cbcCipherTransform) KeyID() string             { return t.algorithm }

func (t *cbcCipherTransform) Write(p []byte) (int, error) { return t.in.Write(p) }

func (t *cbcCipherTransform) Flush() error {
	if t.key == nil {
		return transformFailure(t.algorithm, keyNotFound())
	}
	var result []byte
	var err error
	if t.encrypt {
		result, err = AESCBCEncrypt(t.key, t.in.Bytes())
	} else {
		result, err = AESCBCDecrypt(t.key, t.in.Bytes())
	}
	if err != nil {
		return transformFailure(t.algorithm, err)
	}
	t.out.Write(result)
	return nil
}

func (t *cbcCipherTransform) Read(p []byte) (int, error) {
	if t.out.Len() == 0 {
		return 0, nil
	}
	return t.out.Read(p)
}

func (t *cbcCipherTransform) Destroy() {
	t.in.Reset()
	t.out.Reset()
	for i := range t.key {
		t.key[i] = 0
	}
	t.key = nil
}

// gcmCipherTransform mirrors cbcCipherTransform for the AES-GCM family.
type gcmCipherTransform struct {
	algorithm string
	key       []byte
	encrypt   bool
	in        bytes.Buffer
	out       bytes.Buffer
}

func (t *gcmCipherTransform) AddKey(key []byte) error {
	t.key = append([]byte(nil), key...)
	return nil
}
func (t *gcmCipherTransform) SetDirection(encrypt bool) { t.encrypt = encrypt }
func (t *gcmCipherTransform) EncKeyType() KeyType       { return keyTypeForSize(KeySize(t.algorithm)) }
func (t *gcmCipherTransform) DecKeyType() KeyType       { return keyTypeForSize(KeySize(t.algorithm)) }
func (t *gcmCipherTransform) KeyID() string             { return t.algorithm }

func (t *gcmCipherTransform) Write(p []byte) (int, error) { return t.in.Write(p) }

func (t *gcmCipherTransform) Flush() error {
	if t.key == nil {
		return transformFailure(t.algorithm, keyNotFound())
	}
	var result []byte
	var err error
	if t.encrypt {
		result, err = AESGCMEncrypt(t.key, t.in.Bytes(), nil)
	} else {
		result, err = AESGCMDecrypt(t.key, t.in.Bytes(), nil)
	}
	if err != nil {
		return transformFailure(t.algorithm, err)
	}
	t.out.Write(result)
	return nil
}

func (t *gcmCipherTransform) Read(p []byte) (int, error) {
	if t.out.Len() == 0 {
		return 0, nil
	}
	return t.out.Read(p)
}

func (t *gcmCipherTransform) Destroy() {
	t.in.Reset()
	t.out.Reset()
	for i := range t.key {
		t.key[i] = 0
	}
	t.key = nil
}

// keyWrapTransform wraps AESKeyWrap/AESKeyUnwrap (RFC 3394, keywrap.go) as a
// BinaryTransform, used when an EncryptedKey's own EncryptionMethod is an
// AES key-wrap algorithm rather than a content cipher.
type keyWrapTransform struct {
	algorithm string
	key       []byte
	encrypt   bool
	in        bytes.Buffer
	out       bytes.Buffer
}

func (t *keyWrapTransform) AddKey(key []byte) error {
	t.key = append([]byte(nil), key...)
	return nil
}
func (t *keyWrapTransform) SetDirection(encrypt bool) { t.encrypt = encrypt }
func (t *keyWrapTransform) EncKeyType() KeyType       { return keyTypeForSize(KeySize(t.algorithm)) }
func (t *keyWrapTransform) DecKeyType() KeyType       { return keyTypeForSize(KeySize(t.algorithm)) }
func (t *keyWrapTransform) KeyID() string             { return t.algorithm }

func (t *keyWrapTransform) Write(p []byte) (int, error) { return t.in.Write(p) }

func (t *keyWrapTransform) Flush() error {
	if t.key == nil {
		return transformFailure(t.algorithm, keyNotFound())
	}
	var result []byte
	var err error
	if t.encrypt {
		result, err = AESKeyWrap(t.key, t.in.Bytes())
	} else {
		result, err = AESKeyUnwrap(t.key, t.in.Bytes())
	}
	if err != nil {
		return transformFailure(t.algorithm, err)
	}
	t.out.Write(result)
	return nil
}

func (t *keyWrapTransform) Read(p []byte) (int, error) {
	if t.out.Len() == 0 {
		return 0, nil
	}
	return t.out.Read(p)
}

func (t *keyWrapTransform) Destroy() {
	t.in.Reset()
	t.out.Reset()
	for i := range t.key {
		t.key[i] = 0
	}
	t.key = nil
}
