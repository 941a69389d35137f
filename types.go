package xmlenc

import (
	"encoding/base64"
	"strconv"

	"github.com/beevik/etree"
)

// EncryptedType is the shared field set of EncryptedData and EncryptedKey
// (xenc:EncryptedType in the schema): an optional Id/Type/MimeType/Encoding,
// the content EncryptionMethod, a KeyInfo locating the decryption key, and
// the CipherData actually carrying (or referencing) the ciphertext.
type EncryptedType struct {
	ID               string
	Type             string
	MimeType         string
	Encoding         string
	EncryptionMethod *EncryptionMethod
	KeyInfo          *KeyInfo
	CipherData       *CipherData
}

// EncryptedData is the xenc:EncryptedData element: the root of an
// encrypted-element or encrypted-content fragment.
type EncryptedData struct {
	EncryptedType
}

// EncryptedKey is the xenc:EncryptedKey element: an EncryptedType holding a
// wrapped content-encryption (or next-level key-encryption) key, optionally
// addressed to a named Recipient.
type EncryptedKey struct {
	EncryptedType
	Recipient string
}

// EncryptionMethod names the content or key-wrap algorithm and the extra
// parameters RSA-OAEP needs to disambiguate its digest/MGF.
type EncryptionMethod struct {
	Algorithm    string
	KeySize      int
	OAEPParams   []byte
	DigestMethod string
	MGFAlgorithm string
}

// CipherData holds the ciphertext inline (CipherValue) or by reference
// (CipherReference); exactly one is populated.
type CipherData struct {
	CipherValue     []byte
	CipherReference *CipherReference
}

// CipherReference points at ciphertext outside the document, with an
// optional chain of dsig Transforms to apply before it is usable.
type CipherReference struct {
	URI        string
	Transforms []Transform
}

// Transform is one step of a CipherReference/Transforms chain.
type Transform struct {
	Algorithm string
}

// KeyInfo carries one of several ways to identify or recover the key: a
// plain name, an embedded public KeyValue, an X.509 certificate, a nested
// EncryptedKey (key transport/wrap), or an AgreementMethod (key agreement).
// This mirrors ds:KeyInfo from XML Signature, reused here for xenc.
type KeyInfo struct {
	ID              string
	KeyName         string
	KeyValue        *KeyValue
	X509Data        *X509Data
	EncryptedKey    *EncryptedKey
	AgreementMethod *AgreementMethod
}

// KeyValue holds a public key value. Only the EC case is populated by this
// engine; the schema also allows an RSA KeyValue, which no KeyManager here
// produces or consumes.
type KeyValue struct {
	ECKeyValue *ECKeyValue
}

// ECKeyValue carries an EC public key point, identified by a named-curve
// URI (urn:ietf:params:xml:ns:keyprov:curve:x25519 in this engine's only
// agreement scheme).
type ECKeyValue struct {
	NamedCurve string
	PublicKey  []byte
}

// X509Data carries a single DER-encoded certificate.
type X509Data struct {
	X509Certificate []byte
}

// AgreementMethod is xenc11:AgreementMethod: the algorithm performing key
// agreement (e.g. X25519), how the shared secret is turned into a key
// (KeyDerivationMethod), and the originator/recipient KeyInfos needed to
// redo the agreement on the receiving end.
type AgreementMethod struct {
	Algorithm           string
	KeyDerivationMethod *KeyDerivationMethod
	OriginatorKeyInfo   *KeyInfo
	RecipientKeyInfo    *KeyInfo
	KANonce             []byte
}

// KeyDerivationMethod names the KDF algorithm. This engine only derives via
// HKDF; ConcatKDF and PBKDF2 are schema-legal alternatives no component
// here implements, so their parameter blocks have no corresponding type.
type KeyDerivationMethod struct {
	Algorithm  string
	HKDFParams *HKDFParams
}

// HKDFParams are the RFC 5869 parameters: PRF algorithm, salt, context
// info, and the desired output key length in bits.
type HKDFParams struct {
	PRF       string
	Salt      []byte
	Info      []byte
	KeyLength int
}

// ToElement serializes EncryptedData into its xenc:EncryptedData wire form.
func (ed *EncryptedData) ToElement() *etree.Element {
	elem := etree.NewElement("xenc:EncryptedData")
	elem.CreateAttr("xmlns:xenc", NamespaceXMLEnc)
	ed.EncryptedType.writeAttrsAndChildren(elem)
	return elem
}

// ToElement serializes EncryptedKey into its xenc:EncryptedKey wire form.
func (ek *EncryptedKey) ToElement() *etree.Element {
	elem := etree.NewElement("xenc:EncryptedKey")
	elem.CreateAttr("xmlns:xenc", NamespaceXMLEnc)
	if ek.Recipient != "" {
		elem.CreateAttr("Recipient", ek.Recipient)
	}
	ek.EncryptedType.writeAttrsAndChildren(elem)
	return elem
}

// writeAttrsAndChildren appends the Id/Type/MimeType attributes and the
// EncryptionMethod/KeyInfo/CipherData children shared by EncryptedData and
// EncryptedKey onto an already-created element.
func (et *EncryptedType) writeAttrsAndChildren(elem *etree.Element) {
	if et.ID != "" {
		elem.CreateAttr("Id", et.ID)
	}
	if et.Type != "" {
		elem.CreateAttr("Type", et.Type)
	}
	if et.MimeType != "" {
		elem.CreateAttr("MimeType", et.MimeType)
	}
	if et.EncryptionMethod != nil {
		et.EncryptionMethod.appendTo(elem)
	}
	if et.KeyInfo != nil {
		et.KeyInfo.appendTo(elem)
	}
	if et.CipherData != nil {
		et.CipherData.appendTo(elem)
	}
}

func (em *EncryptionMethod) appendTo(parent *etree.Element) {
	elem := parent.CreateElement("xenc:EncryptionMethod")
	elem.CreateAttr("Algorithm", em.Algorithm)

	if em.KeySize > 0 {
		elem.CreateElement("xenc:KeySize").SetText(strconv.Itoa(em.KeySize))
	}
	if len(em.OAEPParams) > 0 {
		elem.CreateElement("xenc:OAEPparams").SetText(base64.StdEncoding.EncodeToString(em.OAEPParams))
	}
	if em.DigestMethod != "" {
		dm := elem.CreateElement("ds:DigestMethod")
		dm.CreateAttr("xmlns:ds", NamespaceXMLDSig)
		dm.CreateAttr("Algorithm", em.DigestMethod)
	}
	if em.MGFAlgorithm != "" {
		mgf := elem.CreateElement("xenc11:MGF")
		mgf.CreateAttr("xmlns:xenc11", NamespaceXMLEnc11)
		mgf.CreateAttr("Algorithm", em.MGFAlgorithm)
	}
}

func (cd *CipherData) appendTo(parent *etree.Element) {
	elem := parent.CreateElement("xenc:CipherData")
	switch {
	case cd.CipherValue != nil:
		elem.CreateElement("xenc:CipherValue").SetText(base64.StdEncoding.EncodeToString(cd.CipherValue))
	case cd.CipherReference != nil:
		cr := elem.CreateElement("xenc:CipherReference")
		cr.CreateAttr("URI", cd.CipherReference.URI)
		if len(cd.CipherReference.Transforms) > 0 {
			transforms := cr.CreateElement("xenc:Transforms")
			for _, t := range cd.CipherReference.Transforms {
				tr := transforms.CreateElement("ds:Transform")
				tr.CreateAttr("xmlns:ds", NamespaceXMLDSig)
				tr.CreateAttr("Algorithm", t.Algorithm)
			}
		}
	}
}

func (ki *KeyInfo) appendTo(parent *etree.Element) {
	elem := parent.CreateElement("ds:KeyInfo")
	elem.CreateAttr("xmlns:ds", NamespaceXMLDSig)

	if ki.ID != "" {
		elem.CreateAttr("Id", ki.ID)
	}
	if ki.KeyName != "" {
		elem.CreateElement("ds:KeyName").SetText(ki.KeyName)
	}
	if ki.KeyValue != nil && ki.KeyValue.ECKeyValue != nil {
		ki.KeyValue.appendTo(elem)
	}
	if ki.EncryptedKey != nil {
		elem.AddChild(ki.EncryptedKey.ToElement())
	}
	if ki.AgreementMethod != nil {
		ki.AgreementMethod.appendTo(elem)
	}
	if ki.X509Data != nil {
		x509 := elem.CreateElement("ds:X509Data")
		x509.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(ki.X509Data.X509Certificate))
	}
}

func (kv *KeyValue) appendTo(parent *etree.Element) {
	elem := parent.CreateElement("ds:KeyValue")
	ec := elem.CreateElement("dsig11:ECKeyValue")
	ec.CreateAttr("xmlns:dsig11", NamespaceXMLDSig11)
	if kv.ECKeyValue.NamedCurve != "" {
		ec.CreateElement("dsig11:NamedCurve").CreateAttr("URI", kv.ECKeyValue.NamedCurve)
	}
	ec.CreateElement("dsig11:PublicKey").SetText(base64.StdEncoding.EncodeToString(kv.ECKeyValue.PublicKey))
}

func (am *AgreementMethod) appendTo(parent *etree.Element) {
	elem := parent.CreateElement("xenc:AgreementMethod")
	elem.CreateAttr("Algorithm", am.Algorithm)

	if am.KeyDerivationMethod != nil {
		am.KeyDerivationMethod.appendTo(elem)
	}
	if len(am.KANonce) > 0 {
		elem.CreateElement("xenc:KA-Nonce").SetText(base64.StdEncoding.EncodeToString(am.KANonce))
	}
	if am.OriginatorKeyInfo != nil {
		oki := elem.CreateElement("xenc:OriginatorKeyInfo")
		if am.OriginatorKeyInfo.KeyValue != nil && am.OriginatorKeyInfo.KeyValue.ECKeyValue != nil {
			am.OriginatorKeyInfo.KeyValue.appendTo(oki)
		}
	}
	if am.RecipientKeyInfo != nil && am.RecipientKeyInfo.X509Data != nil {
		rki := elem.CreateElement("xenc:RecipientKeyInfo")
		x509 := rki.CreateElement("ds:X509Data")
		x509.CreateAttr("xmlns:ds", NamespaceXMLDSig)
		x509.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(am.RecipientKeyInfo.X509Data.X509Certificate))
	}
}

func (kdm *KeyDerivationMethod) appendTo(parent *etree.Element) {
	elem := parent.CreateElement("xenc11:KeyDerivationMethod")
	elem.CreateAttr("xmlns:xenc11", NamespaceXMLEnc11)
	elem.CreateAttr("Algorithm", kdm.Algorithm)

	if kdm.HKDFParams == nil {
		return
	}
	hp := kdm.HKDFParams
	params := elem.CreateElement("dsig-more:HKDFParams")
	params.CreateAttr("xmlns:dsig-more", NamespaceXMLDSigMore)
	if hp.PRF != "" {
		params.CreateElement("dsig-more:PRF").CreateAttr("Algorithm", hp.PRF)
	}
	if len(hp.Salt) > 0 {
		params.CreateElement("dsig-more:Salt").CreateElement("dsig-more:Specified").SetText(base64.StdEncoding.EncodeToString(hp.Salt))
	}
	if len(hp.Info) > 0 {
		params.CreateElement("dsig-more:Info").SetText(base64.StdEncoding.EncodeToString(hp.Info))
	}
	if hp.KeyLength > 0 {
		params.CreateElement("dsig-more:KeyLength").SetText(strconv.Itoa(hp.KeyLength))
	}
}

// ParseEncryptedData reads an xenc:EncryptedData element back into an
// EncryptedData value.
func ParseEncryptedData(elem *etree.Element) (*EncryptedData, error) {
	if elem == nil {
		return nil, nodeNotFound("EncryptedData")
	}
	ed := &EncryptedData{}
	if err := ed.EncryptedType.parseFrom(elem); err != nil {
		return nil, err
	}
	return ed, nil
}

// ParseEncryptedKey reads an xenc:EncryptedKey element back into an
// EncryptedKey value.
func ParseEncryptedKey(elem *etree.Element) (*EncryptedKey, error) {
	if elem == nil {
		return nil, nodeNotFound("EncryptedKey")
	}
	ek := &EncryptedKey{Recipient: elem.SelectAttrValue("Recipient", "")}
	if err := ek.EncryptedType.parseFrom(elem); err != nil {
		return nil, err
	}
	return ek, nil
}

func (et *EncryptedType) parseFrom(elem *etree.Element) error {
	et.ID = elem.SelectAttrValue("Id", "")
	et.Type = elem.SelectAttrValue("Type", "")
	et.MimeType = elem.SelectAttrValue("MimeType", "")
	et.Encoding = elem.SelectAttrValue("Encoding", "")

	if emElem := elem.FindElement("./EncryptionMethod"); emElem != nil {
		et.EncryptionMethod = parseEncryptionMethod(emElem)
	}
	if kiElem := elem.FindElement("./KeyInfo"); kiElem != nil {
		ki, err := parseKeyInfo(kiElem)
		if err != nil {
			return err
		}
		et.KeyInfo = ki
	}
	if cdElem := elem.FindElement("./CipherData"); cdElem != nil {
		cd, err := parseCipherData(cdElem)
		if err != nil {
			return err
		}
		et.CipherData = cd
	}
	return nil
}

func parseEncryptionMethod(elem *etree.Element) *EncryptionMethod {
	em := &EncryptionMethod{Algorithm: elem.SelectAttrValue("Algorithm", "")}

	if ksElem := elem.FindElement("./KeySize"); ksElem != nil {
		em.KeySize, _ = strconv.Atoi(ksElem.Text())
	}
	if opElem := elem.FindElement("./OAEPparams"); opElem != nil {
		em.OAEPParams, _ = base64.StdEncoding.DecodeString(opElem.Text())
	}
	if dmElem := elem.FindElement("./DigestMethod"); dmElem != nil {
		em.DigestMethod = dmElem.SelectAttrValue("Algorithm", "")
	}
	if mgfElem := elem.FindElement("./MGF"); mgfElem != nil {
		em.MGFAlgorithm = mgfElem.SelectAttrValue("Algorithm", "")
	}
	return em
}

func parseCipherData(elem *etree.Element) (*CipherData, error) {
	cd := &CipherData{}
	switch {
	case elem.FindElement("./CipherValue") != nil:
		var err error
		cd.CipherValue, err = base64.StdEncoding.DecodeString(elem.FindElement("./CipherValue").Text())
		if err != nil {
			return nil, xmlFailure("decode CipherValue", err)
		}
	case elem.FindElement("./CipherReference") != nil:
		cd.CipherReference = &CipherReference{URI: elem.FindElement("./CipherReference").SelectAttrValue("URI", "")}
	}
	return cd, nil
}

func parseKeyInfo(elem *etree.Element) (*KeyInfo, error) {
	ki := &KeyInfo{ID: elem.SelectAttrValue("Id", "")}

	if knElem := elem.FindElement("./KeyName"); knElem != nil {
		ki.KeyName = knElem.Text()
	}
	if ekElem := elem.FindElement("./EncryptedKey"); ekElem != nil {
		ek, err := ParseEncryptedKey(ekElem)
		if err != nil {
			return nil, err
		}
		ki.EncryptedKey = ek
	}
	if x509Elem := elem.FindElement("./X509Data"); x509Elem != nil {
		if certElem := x509Elem.FindElement("./X509Certificate"); certElem != nil {
			cert, err := base64.StdEncoding.DecodeString(certElem.Text())
			if err != nil {
				return nil, xmlFailure("decode X509Certificate", err)
			}
			ki.X509Data = &X509Data{X509Certificate: cert}
		}
	}
	if amElem := elem.FindElement("./AgreementMethod"); amElem != nil {
		ki.AgreementMethod = parseAgreementMethod(amElem)
	}
	return ki, nil
}

func parseAgreementMethod(elem *etree.Element) *AgreementMethod {
	am := &AgreementMethod{Algorithm: elem.SelectAttrValue("Algorithm", "")}

	if kanElem := elem.FindElement("./KA-Nonce"); kanElem != nil {
		am.KANonce, _ = base64.StdEncoding.DecodeString(kanElem.Text())
	}
	if kdmElem := elem.FindElement("./KeyDerivationMethod"); kdmElem != nil {
		am.KeyDerivationMethod = parseKeyDerivationMethod(kdmElem)
	}
	if okiElem := elem.FindElement("./OriginatorKeyInfo"); okiElem != nil {
		am.OriginatorKeyInfo = parseECKeyInfo(okiElem)
	}
	if rkiElem := elem.FindElement("./RecipientKeyInfo"); rkiElem != nil {
		am.RecipientKeyInfo = parseECKeyInfo(rkiElem)
	}
	return am
}

// parseECKeyInfo reads the reduced KeyInfo shape AgreementMethod nests
// under OriginatorKeyInfo/RecipientKeyInfo: just a possible ds:KeyValue/
// dsig11:ECKeyValue, not the full KeyInfo grammar.
func parseECKeyInfo(elem *etree.Element) *KeyInfo {
	ki := &KeyInfo{}
	kvElem := elem.FindElement("./KeyValue")
	if kvElem == nil {
		return ki
	}
	eckElem := kvElem.FindElement("./ECKeyValue")
	if eckElem == nil {
		return ki
	}
	ec := &ECKeyValue{}
	if ncElem := eckElem.FindElement("./NamedCurve"); ncElem != nil {
		ec.NamedCurve = ncElem.SelectAttrValue("URI", "")
	}
	if pkElem := eckElem.FindElement("./PublicKey"); pkElem != nil {
		ec.PublicKey, _ = base64.StdEncoding.DecodeString(pkElem.Text())
	}
	ki.KeyValue = &KeyValue{ECKeyValue: ec}
	return ki
}

func parseKeyDerivationMethod(elem *etree.Element) *KeyDerivationMethod {
	kdm := &KeyDerivationMethod{Algorithm: elem.SelectAttrValue("Algorithm", "")}

	paramsElem := elem.FindElement("./HKDFParams")
	if paramsElem == nil {
		return kdm
	}
	hp := &HKDFParams{}
	if prfElem := paramsElem.FindElement("./PRF"); prfElem != nil {
		hp.PRF = prfElem.SelectAttrValue("Algorithm", "")
	}
	if saltElem := paramsElem.FindElement("./Salt/Specified"); saltElem != nil {
		hp.Salt, _ = base64.StdEncoding.DecodeString(saltElem.Text())
	}
	if infoElem := paramsElem.FindElement("./Info"); infoElem != nil {
		hp.Info, _ = base64.StdEncoding.DecodeString(infoElem.Text())
	}
	if klElem := paramsElem.FindElement("./KeyLength"); klElem != nil {
		hp.KeyLength, _ = strconv.Atoi(klElem.Text())
	}
	kdm.HKDFParams = hp
	return kdm
}
