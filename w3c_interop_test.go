package xmlenc

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/beevik/etree"
)

// interopPlaintext is the W3C xmlenc-core1-testcases purchase order document,
// used across this file as a realistic multi-element target.
const interopPlaintext = `<?xml version="1.0" encoding="UTF-8"?>
<PurchaseOrder xmlns="urn:example:po">
  <Items>
    <Item Code="001-001-001" Quantity="1">spade</Item>
    <Item Code="001-001-002" Quantity="1">shovel</Item>
  </Items>
  <ShippingAddress>Dig PLC, 1 First Ave, Dublin 1, Ireland</ShippingAddress>
  <PaymentInfo>
    <BillingAddress>Dig PLC, 1 First Ave, Dublin 1, Ireland</BillingAddress>
    <CreditCard Type="Amex">
      <Name>Foo B Baz</Name>
      <Number>1234 567890 12345</Number>
      <Expires Month="1" Year="2005"/>
    </CreditCard>
  </PaymentInfo>
</PurchaseOrder>`

func parsePlaintext(t testing.TB) *etree.Document {
	t.Helper()
	doc := etree.NewDocument()
	if err := doc.ReadFromString(interopPlaintext); err != nil {
		t.Fatalf("parse interop plaintext: %v", err)
	}
	return doc
}

// agreementParty builds an X25519 AgreementKeyManager pair (sender holding
// the recipient's public key, recipient holding the matching private key)
// sharing one HKDF info string, wired end to end through EncryptNode/Decrypt.
func agreementParty(t testing.TB, info []byte) (sender, recipient *AgreementKeyManager) {
	t.Helper()
	priv, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatalf("generate X25519 key pair: %v", err)
	}
	hkdf := DefaultHKDFParams(info)
	sender = &AgreementKeyManager{RecipientPublicKey: priv.PublicKey(), HKDFParams: hkdf}
	recipient = &AgreementKeyManager{PrivateKey: priv, HKDFParams: hkdf}
	return sender, recipient
}

func agreementElementTemplate(t testing.TB, algorithm string) *etree.Element {
	t.Helper()
	tmpl := NewTemplate("", TypeElement, "", "")
	if _, err := AddEncryptionMethod(tmpl, algorithm); err != nil {
		t.Fatalf("AddEncryptionMethod: %v", err)
	}
	if _, err := AddKeyInfo(tmpl); err != nil {
		t.Fatalf("AddKeyInfo: %v", err)
	}
	if _, err := AddCipherValue(tmpl); err != nil {
		t.Fatalf("AddCipherValue: %v", err)
	}
	return tmpl
}

func TestInteropPlaintextStructure(t *testing.T) {
	doc := parsePlaintext(t)
	root := doc.Root()
	if root.Tag != "PurchaseOrder" {
		t.Errorf("root tag = %s, want PurchaseOrder", root.Tag)
	}
	if items := len(root.FindElements("./Items/Item")); items != 2 {
		t.Errorf("Item count = %d, want 2", items)
	}
	card := root.FindElement("./PaymentInfo/CreditCard")
	if card == nil || card.SelectAttrValue("Type", "") != "Amex" {
		t.Fatal("CreditCard/@Type=Amex not found")
	}
}

// TestElementEncryptionRoundtrip drives whole-element in-place encryption
// through a static key, matching xmlenc-core1-testcases Section 2's
// "in-place encryption of XML" case.
func TestElementEncryptionRoundtrip(t *testing.T) {
	doc := parsePlaintext(t)
	paymentInfo := doc.Root().FindElement("./PaymentInfo")
	if paymentInfo == nil {
		t.Fatal("PaymentInfo not found")
	}

	km := NewStaticKeyManager(make([]byte, 16))
	ctx := NewProcessingContext(km)
	tmpl := agreementElementTemplate(t, AlgorithmAES128GCM)

	result, err := EncryptNode(ctx, tmpl, paymentInfo, nil)
	if err != nil {
		t.Fatalf("EncryptNode: %v", err)
	}
	if result.Type != TypeElement {
		t.Errorf("result.Type = %s, want %s", result.Type, TypeElement)
	}

	edElem := doc.FindElement("//EncryptedData")
	if edElem == nil {
		t.Fatal("EncryptedData not spliced into document")
	}
	if _, err := Decrypt(ctx, edElem, nil); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	number := doc.FindElement("//PaymentInfo/CreditCard/Number")
	if number == nil || number.Text() != "1234 567890 12345" {
		t.Error("recovered CreditCard/Number mismatch")
	}
}

// TestKeyAgreementWrapsWithExpectedGrammar checks that a full agreement-based
// EncryptNode call produces the element set and algorithm URIs the grammar
// requires: content EncryptionMethod, an EncryptedKey wrapped via AES-KW,
// and the AgreementMethod/HKDF chain beneath it.
func TestKeyAgreementWrapsWithExpectedGrammar(t *testing.T) {
	sender, _ := agreementParty(t, []byte("interop key wrap"))
	ctx := NewProcessingContext(sender)

	doc := parsePlaintext(t)
	tmpl := agreementElementTemplate(t, AlgorithmAES128GCM)
	if _, err := EncryptNode(ctx, tmpl, doc.Root(), nil); err != nil {
		t.Fatalf("EncryptNode: %v", err)
	}

	copyDoc := etree.NewDocument()
	copyDoc.SetRoot(tmpl.Copy())
	xmlBytes, _ := copyDoc.WriteToBytes()
	xmlStr := string(xmlBytes)

	for _, tag := range []string{"EncryptedData", "EncryptionMethod", "EncryptedKey", "CipherData", "CipherValue", "AgreementMethod", "KeyInfo"} {
		if !strings.Contains(xmlStr, tag) {
			t.Errorf("generated document missing <%s>", tag)
		}
	}
	for _, alg := range []string{AlgorithmAES128GCM, AlgorithmAES128KW, AlgorithmX25519, AlgorithmHKDF} {
		if !strings.Contains(xmlStr, alg) {
			t.Errorf("generated document missing algorithm URI %s", alg)
		}
	}
}

// TestX25519KeyAgreementWrapKeyStructure exercises the WrapKey primitive
// directly, bypassing EncryptNode, to check the AgreementMethod/HKDFParams/
// OriginatorKeyInfo shape it produces.
func TestX25519KeyAgreementWrapKeyStructure(t *testing.T) {
	recipientPriv, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair: %v", err)
	}
	hkdf := &HKDFParams{PRF: AlgorithmHMACSHA256, Salt: []byte("salt"), Info: []byte("info"), KeyLength: 128}

	ka, err := NewX25519KeyAgreement(recipientPriv.PublicKey(), hkdf)
	if err != nil {
		t.Fatalf("NewX25519KeyAgreement: %v", err)
	}
	ek, err := ka.WrapKey(make([]byte, 16), AlgorithmAES128KW)
	if err != nil {
		t.Fatalf("WrapKey: %v", err)
	}

	am := ek.KeyInfo.AgreementMethod
	if am == nil || am.Algorithm != AlgorithmX25519 {
		t.Fatal("missing or wrong AgreementMethod")
	}
	kdm := am.KeyDerivationMethod
	if kdm == nil || kdm.Algorithm != AlgorithmHKDF || kdm.HKDFParams == nil {
		t.Fatal("missing or wrong KeyDerivationMethod/HKDFParams")
	}
	if kdm.HKDFParams.PRF != AlgorithmHMACSHA256 || kdm.HKDFParams.KeyLength != 128 {
		t.Errorf("HKDFParams mismatch: %+v", kdm.HKDFParams)
	}

	ephemeral := am.OriginatorKeyInfo
	if ephemeral == nil || ephemeral.KeyValue == nil || ephemeral.KeyValue.ECKeyValue == nil {
		t.Fatal("missing ephemeral OriginatorKeyInfo/KeyValue/ECKeyValue")
	}
	if got := len(ephemeral.KeyValue.ECKeyValue.PublicKey); got != 32 {
		t.Errorf("ephemeral public key length = %d, want 32", got)
	}
}

// TestEncryptedDataRoundTripsThroughToElementAndParse builds an EncryptedData
// value in memory, serializes it with ToElement, then re-parses it with
// ParseEncryptedData, checking the two agree without ever touching a
// key manager or pipeline.
func TestEncryptedDataRoundTripsThroughToElementAndParse(t *testing.T) {
	ed := &EncryptedData{EncryptedType: EncryptedType{
		Type:             TypeElement,
		EncryptionMethod: &EncryptionMethod{Algorithm: AlgorithmAES128GCM},
		KeyInfo: &KeyInfo{
			EncryptedKey: &EncryptedKey{EncryptedType: EncryptedType{
				EncryptionMethod: &EncryptionMethod{Algorithm: AlgorithmAES128KW},
				CipherData:       &CipherData{CipherValue: []byte("wrapped-key")},
			}},
		},
		CipherData: &CipherData{CipherValue: []byte("encrypted-content")},
	}}

	doc := etree.NewDocument()
	doc.SetRoot(ed.ToElement())

	parsed, err := ParseEncryptedData(doc.Root())
	if err != nil {
		t.Fatalf("ParseEncryptedData: %v", err)
	}
	if parsed.Type != TypeElement {
		t.Errorf("Type = %s, want %s", parsed.Type, TypeElement)
	}
	if parsed.EncryptionMethod == nil || parsed.EncryptionMethod.Algorithm != AlgorithmAES128GCM {
		t.Error("EncryptionMethod lost across round trip")
	}
	if parsed.KeyInfo == nil || parsed.KeyInfo.EncryptedKey == nil {
		t.Fatal("KeyInfo/EncryptedKey lost across round trip")
	}
	if parsed.KeyInfo.EncryptedKey.EncryptionMethod.Algorithm != AlgorithmAES128KW {
		t.Error("nested EncryptedKey EncryptionMethod lost across round trip")
	}
	if !bytes.Equal(parsed.KeyInfo.EncryptedKey.CipherData.CipherValue, []byte("wrapped-key")) {
		t.Error("wrapped key ciphertext lost across round trip")
	}
	if !bytes.Equal(parsed.CipherData.CipherValue, []byte("encrypted-content")) {
		t.Error("content ciphertext lost across round trip")
	}
}

// TestParseEncryptedDataFromForeignXML feeds ParseEncryptedData a literal
// EncryptedData document (as an external producer would emit it) rather
// than one this package built, checking the reader half of types.go
// independently of ToElement.
func TestParseEncryptedDataFromForeignXML(t *testing.T) {
	const wire = `<?xml version="1.0" encoding="UTF-8"?>
<xenc:EncryptedData xmlns:xenc="http://www.w3.org/2001/04/xmlenc#"
                   Type="http://www.w3.org/2001/04/xmlenc#Element">
  <xenc:EncryptionMethod Algorithm="http://www.w3.org/2009/xmlenc11#aes128-gcm"/>
  <dsig:KeyInfo xmlns:dsig="http://www.w3.org/2000/09/xmldsig#">
    <xenc:EncryptedKey>
      <xenc:EncryptionMethod Algorithm="http://www.w3.org/2001/04/xmlenc#kw-aes128"/>
      <xenc:CipherData>
        <xenc:CipherValue>dGVzdC13cmFwcGVkLWtleQ==</xenc:CipherValue>
      </xenc:CipherData>
    </xenc:EncryptedKey>
  </dsig:KeyInfo>
  <xenc:CipherData>
    <xenc:CipherValue>dGVzdC1jaXBoZXJ0ZXh0</xenc:CipherValue>
  </xenc:CipherData>
</xenc:EncryptedData>`

	doc := etree.NewDocument()
	if err := doc.ReadFromString(wire); err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	ed, err := ParseEncryptedData(doc.Root())
	if err != nil {
		t.Fatalf("ParseEncryptedData: %v", err)
	}

	if ed.EncryptionMethod.Algorithm != AlgorithmAES128GCM {
		t.Error("wrong content EncryptionMethod")
	}
	if ed.KeyInfo == nil || ed.KeyInfo.EncryptedKey == nil {
		t.Fatal("missing EncryptedKey")
	}
	if ed.KeyInfo.EncryptedKey.EncryptionMethod.Algorithm != AlgorithmAES128KW {
		t.Error("wrong key wrap algorithm")
	}

	wrappedKey, _ := base64.StdEncoding.DecodeString("dGVzdC13cmFwcGVkLWtleQ==")
	if !bytes.Equal(ed.KeyInfo.EncryptedKey.CipherData.CipherValue, wrappedKey) {
		t.Error("wrapped key mismatch")
	}
	ciphertext, _ := base64.StdEncoding.DecodeString("dGVzdC1jaXBoZXJ0ZXh0")
	if !bytes.Equal(ed.CipherData.CipherValue, ciphertext) {
		t.Error("ciphertext mismatch")
	}
}

// TestBlockCipherAlgorithmsRoundTrip exercises every declared AES-GCM/CBC
// content algorithm directly against the transform, independent of the
// element/pipeline machinery.
func TestBlockCipherAlgorithmsRoundTrip(t *testing.T) {
	cases := []struct {
		name    string
		alg     string
		keySize int
	}{
		{"AES-128-GCM", AlgorithmAES128GCM, 16},
		{"AES-192-GCM", AlgorithmAES192GCM, 24},
		{"AES-256-GCM", AlgorithmAES256GCM, 32},
		{"AES-128-CBC", AlgorithmAES128CBC, 16},
		{"AES-192-CBC", AlgorithmAES192CBC, 24},
		{"AES-256-CBC", AlgorithmAES256CBC, 32},
	}
	plaintext := []byte("interop test plaintext for block cipher coverage")

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key := make([]byte, tc.keySize)
			for i := range key {
				key[i] = byte(i)
			}

			var ciphertext, decrypted []byte
			var err error
			if IsGCM(tc.alg) {
				ciphertext, err = AESGCMEncrypt(key, plaintext, nil)
				if err == nil {
					decrypted, err = AESGCMDecrypt(key, ciphertext, nil)
				}
			} else {
				ciphertext, err = AESCBCEncrypt(key, plaintext)
				if err == nil {
					decrypted, err = AESCBCDecrypt(key, ciphertext)
				}
			}
			if err != nil {
				t.Fatalf("%s round trip failed: %v", tc.name, err)
			}
			if !bytes.Equal(decrypted, plaintext) {
				t.Error("plaintext mismatch after round trip")
			}
		})
	}
}

// nistKeyWrapVector is one official RFC 3394 / NIST SP 800-38F test vector.
type nistKeyWrapVector struct {
	name     string
	kek      []byte
	keyData  []byte
	expected []byte
}

var (
	nistKEK128 = []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F}
	nistKEK192 = append(append([]byte{}, nistKEK128...), 0x10, 0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17)
	nistKEK256 = append(append([]byte{}, nistKEK192...), 0x18, 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E, 0x1F)

	nistKeyData128 = []byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55, 0x66, 0x77, 0x88, 0x99, 0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	nistKeyData192 = append(append([]byte{}, nistKeyData128...), 0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07)
	nistKeyData256 = append(append([]byte{}, nistKeyData192...), 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F)
)

// nistKeyWrapVectors are the official RFC 3394 Section 4 / NIST SP 800-38F
// test vectors.
var nistKeyWrapVectors = []nistKeyWrapVector{
	{
		name:     "128-bit KEK, 128-bit key",
		kek:      nistKEK128,
		keyData:  nistKeyData128,
		expected: []byte{0x1F, 0xA6, 0x8B, 0x0A, 0x81, 0x12, 0xB4, 0x47, 0xAE, 0xF3, 0x4B, 0xD8, 0xFB, 0x5A, 0x7B, 0x82, 0x9D, 0x3E, 0x86, 0x23, 0x71, 0xD2, 0xCF, 0xE5},
	},
	{
		name:     "192-bit KEK, 128-bit key",
		kek:      nistKEK192,
		keyData:  nistKeyData128,
		expected: []byte{0x96, 0x77, 0x8B, 0x25, 0xAE, 0x6C, 0xA4, 0x35, 0xF9, 0x2B, 0x5B, 0x97, 0xC0, 0x50, 0xAE, 0xD2, 0x46, 0x8A, 0xB8, 0xA1, 0x7A, 0xD8, 0x4E, 0x5D},
	},
	{
		name:     "256-bit KEK, 128-bit key",
		kek:      nistKEK256,
		keyData:  nistKeyData128,
		expected: []byte{0x64, 0xE8, 0xC3, 0xF9, 0xCE, 0x0F, 0x5B, 0xA2, 0x63, 0xE9, 0x77, 0x79, 0x05, 0x81, 0x8A, 0x2A, 0x93, 0xC8, 0x19, 0x1E, 0x7D, 0x6E, 0x8A, 0xE7},
	},
	{
		name:     "256-bit KEK, 192-bit key",
		kek:      nistKEK256,
		keyData:  nistKeyData192,
		expected: []byte{0xA8, 0xF9, 0xBC, 0x16, 0x12, 0xC6, 0x8B, 0x3F, 0xF6, 0xE6, 0xF4, 0xFB, 0xE3, 0x0E, 0x71, 0xE4, 0x76, 0x9C, 0x8B, 0x80, 0xA3, 0x2C, 0xB8, 0x95, 0x8C, 0xD5, 0xD1, 0x7D, 0x6B, 0x25, 0x4D, 0xA1},
	},
	{
		name:     "256-bit KEK, 256-bit key",
		kek:      nistKEK256,
		keyData:  nistKeyData256,
		expected: []byte{0x28, 0xC9, 0xF4, 0x04, 0xC4, 0xB8, 0x10, 0xF4, 0xCB, 0xCC, 0xB3, 0x5C, 0xFB, 0x87, 0xF8, 0x26, 0x3F, 0x57, 0x86, 0xE2, 0xD8, 0x0E, 0xD3, 0x26, 0xCB, 0xC7, 0xF0, 0xE7, 0x1A, 0x99, 0xF4, 0x3B, 0xFB, 0x98, 0x8B, 0x9B, 0x7A, 0x02, 0xDD, 0x21},
	},
}

func TestNISTKeyWrapVectors(t *testing.T) {
	for _, v := range nistKeyWrapVectors {
		t.Run(v.name, func(t *testing.T) {
			wrapped, err := AESKeyWrap(v.kek, v.keyData)
			if err != nil {
				t.Fatalf("AESKeyWrap: %v", err)
			}
			if !bytes.Equal(wrapped, v.expected) {
				t.Errorf("wrapped mismatch:\ngot:  %X\nwant: %X", wrapped, v.expected)
			}
			unwrapped, err := AESKeyUnwrap(v.kek, v.expected)
			if err != nil {
				t.Fatalf("AESKeyUnwrap: %v", err)
			}
			if !bytes.Equal(unwrapped, v.keyData) {
				t.Errorf("unwrapped mismatch:\ngot:  %X\nwant: %X", unwrapped, v.keyData)
			}
		})
	}
}

// TestElementEncryptionPreservesChildStructure encrypts a whole element
// (CreditCard) and checks that decryption restores the same number of
// child elements, not just equal serialized bytes.
func TestElementEncryptionPreservesChildStructure(t *testing.T) {
	doc := parsePlaintext(t)
	creditCard := doc.FindElement("//CreditCard")
	if creditCard == nil {
		t.Fatal("CreditCard not found")
	}
	wantChildren := len(creditCard.ChildElements())

	sender, recipient := agreementParty(t, []byte("content encryption"))
	tmpl := agreementElementTemplate(t, AlgorithmAES128GCM)
	encCtx := NewProcessingContext(sender)
	if _, err := EncryptNode(encCtx, tmpl, creditCard, nil); err != nil {
		t.Fatalf("EncryptNode: %v", err)
	}

	edElem := doc.FindElement("//EncryptedData")
	decCtx := NewProcessingContext(recipient)
	if _, err := Decrypt(decCtx, edElem, nil); err != nil {
		t.Fatalf("Decrypt: %v", err)
	}

	decrypted := doc.FindElement("//CreditCard")
	if decrypted == nil {
		t.Fatal("CreditCard missing after decrypt")
	}
	if got := len(decrypted.ChildElements()); got != wantChildren {
		t.Errorf("child count = %d, want %d", got, wantChildren)
	}
}

// TestSelectiveEncryptionHidesOnlyTargetSubtree checks that encrypting one
// subtree (PaymentInfo) leaves sibling content (Items) readable.
func TestSelectiveEncryptionHidesOnlyTargetSubtree(t *testing.T) {
	doc := parsePlaintext(t)
	paymentInfo := doc.FindElement("//PaymentInfo")
	if paymentInfo == nil {
		t.Fatal("PaymentInfo not found")
	}

	sender, _ := agreementParty(t, []byte("selective encryption"))
	tmpl := agreementElementTemplate(t, AlgorithmAES128GCM)
	ctx := NewProcessingContext(sender)
	if _, err := EncryptNode(ctx, tmpl, paymentInfo, nil); err != nil {
		t.Fatalf("EncryptNode: %v", err)
	}

	xmlStr, err := doc.WriteToString()
	if err != nil {
		t.Fatalf("WriteToString: %v", err)
	}
	if strings.Contains(xmlStr, "1234 567890 12345") {
		t.Error("credit card number leaked outside encrypted subtree")
	}
	if !strings.Contains(xmlStr, "spade") {
		t.Error("sibling Items content should remain visible")
	}
}

// TestMultipleRecipientsDecryptIndependently checks that two independently
// keyed copies of the same document decrypt correctly under their own
// recipient key managers.
func TestMultipleRecipientsDecryptIndependently(t *testing.T) {
	sender1, recipient1 := agreementParty(t, []byte("recipient 1"))
	sender2, recipient2 := agreementParty(t, []byte("recipient 2"))

	doc1, doc2 := parsePlaintext(t), parsePlaintext(t)

	tmpl1 := agreementElementTemplate(t, AlgorithmAES128GCM)
	if _, err := EncryptNode(NewProcessingContext(sender1), tmpl1, doc1.Root(), nil); err != nil {
		t.Fatalf("encrypt for recipient 1: %v", err)
	}
	tmpl2 := agreementElementTemplate(t, AlgorithmAES128GCM)
	if _, err := EncryptNode(NewProcessingContext(sender2), tmpl2, doc2.Root(), nil); err != nil {
		t.Fatalf("encrypt for recipient 2: %v", err)
	}

	if _, err := Decrypt(NewProcessingContext(recipient1), doc1.FindElement("//EncryptedData"), nil); err != nil {
		t.Fatalf("decrypt as recipient 1: %v", err)
	}
	if _, err := Decrypt(NewProcessingContext(recipient2), doc2.FindElement("//EncryptedData"), nil); err != nil {
		t.Fatalf("decrypt as recipient 2: %v", err)
	}

	for i, doc := range []*etree.Document{doc1, doc2} {
		xmlStr, _ := doc.WriteToString()
		if !strings.Contains(xmlStr, "PurchaseOrder") {
			t.Errorf("recipient %d document missing PurchaseOrder after decrypt", i+1)
		}
	}
}

// TestTamperedCiphertextRejected flips a bit in CipherValue and checks
// Decrypt reports failure rather than returning corrupted plaintext.
func TestTamperedCiphertextRejected(t *testing.T) {
	sender, recipient := agreementParty(t, []byte("integrity"))
	doc := parsePlaintext(t)
	tmpl := agreementElementTemplate(t, AlgorithmAES128GCM)
	if _, err := EncryptNode(NewProcessingContext(sender), tmpl, doc.Root(), nil); err != nil {
		t.Fatalf("EncryptNode: %v", err)
	}

	cv := doc.FindElement("//EncryptedData/CipherData/CipherValue")
	raw, err := base64.StdEncoding.DecodeString(cv.Text())
	if err != nil {
		t.Fatalf("decode CipherValue: %v", err)
	}
	raw[len(raw)/2] ^= 0xFF
	cv.SetText(base64.StdEncoding.EncodeToString(raw))

	if _, err := Decrypt(NewProcessingContext(recipient), doc.FindElement("//EncryptedData"), nil); err == nil {
		t.Error("expected decrypt to fail on tampered ciphertext")
	}
}

// TestWrongRecipientKeyRejected checks that decrypting with an unrelated
// recipient's private key fails rather than silently unwrapping garbage.
func TestWrongRecipientKeyRejected(t *testing.T) {
	sender, _ := agreementParty(t, []byte("wrong key"))
	wrongPriv, err := GenerateX25519KeyPair()
	if err != nil {
		t.Fatalf("GenerateX25519KeyPair: %v", err)
	}
	wrongRecipient := &AgreementKeyManager{PrivateKey: wrongPriv, HKDFParams: sender.HKDFParams}

	doc := parsePlaintext(t)
	tmpl := agreementElementTemplate(t, AlgorithmAES128GCM)
	if _, err := EncryptNode(NewProcessingContext(sender), tmpl, doc.Root(), nil); err != nil {
		t.Fatalf("EncryptNode: %v", err)
	}

	if _, err := Decrypt(NewProcessingContext(wrongRecipient), doc.FindElement("//EncryptedData"), nil); err == nil {
		t.Error("expected decrypt to fail with the wrong recipient key")
	}
}

// TestFullAgreementDocumentGrammar walks the complete element tree an
// agreement-keyed EncryptNode call produces, checking every nested
// EncryptionMethod/AgreementMethod/KeyDerivationMethod/OriginatorKeyInfo
// element and algorithm URI lands where the grammar puts it.
func TestFullAgreementDocumentGrammar(t *testing.T) {
	sender, _ := agreementParty(t, []byte("structure"))
	doc := parsePlaintext(t)
	tmpl := agreementElementTemplate(t, AlgorithmAES128GCM)
	if _, err := EncryptNode(NewProcessingContext(sender), tmpl, doc.Root(), nil); err != nil {
		t.Fatalf("EncryptNode: %v", err)
	}

	elem := doc.FindElement("//EncryptedData")
	if elem == nil {
		t.Fatal("EncryptedData not found")
	}
	if ns := elem.SelectAttrValue("xmlns:xenc", ""); ns != NamespaceXMLEnc {
		t.Errorf("xenc namespace = %s, want %s", ns, NamespaceXMLEnc)
	}

	path := func(p string) *etree.Element {
		e := elem.FindElement(p)
		if e == nil {
			t.Errorf("missing element at %s", p)
		}
		return e
	}

	if em := path("./EncryptionMethod"); em != nil && em.SelectAttrValue("Algorithm", "") != AlgorithmAES128GCM {
		t.Error("wrong content EncryptionMethod")
	}
	path("./KeyInfo")
	path("./KeyInfo/EncryptedKey")

	am := path("./KeyInfo/EncryptedKey/KeyInfo/AgreementMethod")
	if am != nil && am.SelectAttrValue("Algorithm", "") != AlgorithmX25519 {
		t.Error("wrong AgreementMethod algorithm")
	}
	kdm := path("./KeyInfo/EncryptedKey/KeyInfo/AgreementMethod/KeyDerivationMethod")
	if kdm != nil && kdm.SelectAttrValue("Algorithm", "") != AlgorithmHKDF {
		t.Error("wrong KeyDerivationMethod algorithm")
	}
	hkdfElem := path("./KeyInfo/EncryptedKey/KeyInfo/AgreementMethod/KeyDerivationMethod/HKDFParams")
	if hkdfElem != nil {
		if hkdfElem.FindElement("./PRF") == nil {
			t.Error("HKDFParams missing PRF")
		}
		if hkdfElem.FindElement("./KeyLength") == nil {
			t.Error("HKDFParams missing KeyLength")
		}
	}

	ecKey := path("./KeyInfo/EncryptedKey/KeyInfo/AgreementMethod/OriginatorKeyInfo/KeyValue/ECKeyValue")
	if ecKey != nil {
		pub := ecKey.FindElement("./PublicKey")
		if pub == nil {
			t.Fatal("ECKeyValue missing PublicKey")
		}
		pubBytes, err := base64.StdEncoding.DecodeString(pub.Text())
		if err != nil || len(pubBytes) != 32 {
			t.Errorf("PublicKey should decode to 32 bytes for X25519, got %d bytes (err=%v)", len(pubBytes), err)
		}
	}

	cv := path("./CipherData/CipherValue")
	if cv != nil {
		if _, err := base64.StdEncoding.DecodeString(cv.Text()); err != nil {
			t.Errorf("CipherValue not valid base64: %v", err)
		}
	}
}

func BenchmarkAgreementEncryptPipeline(b *testing.B) {
	sender, _ := agreementParty(b, nil)
	doc := parsePlaintext(b)
	elem := doc.Root()
	ctx := NewProcessingContext(sender)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tmpl := NewTemplate("", TypeElement, "", "")
		AddEncryptionMethod(tmpl, AlgorithmAES128GCM)
		AddKeyInfo(tmpl)
		AddCipherValue(tmpl)
		EncryptNode(ctx, tmpl, elem.Copy(), nil)
	}
}

func BenchmarkAgreementDecryptPipeline(b *testing.B) {
	sender, recipient := agreementParty(b, nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		doc := parsePlaintext(b)
		tmpl := NewTemplate("", TypeElement, "", "")
		AddEncryptionMethod(tmpl, AlgorithmAES128GCM)
		AddKeyInfo(tmpl)
		AddCipherValue(tmpl)

		EncryptNode(NewProcessingContext(sender), tmpl, doc.Root(), nil)
		Decrypt(NewProcessingContext(recipient), doc.FindElement("//EncryptedData"), nil)
	}
}

