package xmlenc

import "github.com/beevik/etree"

// NewTemplate builds a detached EncryptedData fragment (not attached to any
// document) with an empty CipherData child, ready for the AddXxx builders
// below. Callers attach the returned element themselves once construction
// succeeds, per spec's Design Notes resolution of the template-mutation
// open question — nothing here is spliced into a live document.
func NewTemplate(id, typ, mimeType, encoding string) *etree.Element {
	e := etree.NewElement("xenc:EncryptedData")
	e.CreateAttr("xmlns:xenc", NamespaceXMLEnc)
	if id != "" {
		e.CreateAttr("Id", id)
	}
	if typ != "" {
		e.CreateAttr("Type", typ)
	}
	if mimeType != "" {
		e.CreateAttr("MimeType", mimeType)
	}
	if encoding != "" {
		e.CreateAttr("Encoding", encoding)
	}
	e.CreateElement("xenc:CipherData")
	return e
}

func findChild(parent *etree.Element, name string) *etree.Element {
	for _, c := range parent.ChildElements() {
		if localName(c.Tag) == name {
			return c
		}
	}
	return nil
}

// AddEncryptionMethod inserts EncryptionMethod as e's first child.
func AddEncryptionMethod(e *etree.Element, algorithmID string) (*etree.Element, error) {
	if findChild(e, "EncryptionMethod") != nil {
		return nil, nodeAlreadyPresent("EncryptionMethod")
	}
	m := etree.NewElement("xenc:EncryptionMethod")
	m.CreateAttr("Algorithm", algorithmID)
	e.InsertChildAt(0, m)
	return m, nil
}

// AddKeyInfo inserts KeyInfo after EncryptionMethod if present, else first.
func AddKeyInfo(e *etree.Element) (*etree.Element, error) {
	if findChild(e, "KeyInfo") != nil {
		return nil, nodeAlreadyPresent("KeyInfo")
	}
	k := etree.NewElement("ds:KeyInfo")
	k.CreateAttr("xmlns:ds", NamespaceXMLDSig)
	idx := 0
	if findChild(e, "EncryptionMethod") != nil {
		idx = 1
	}
	e.InsertChildAt(idx, k)
	return k, nil
}

// AddEncryptionProperties appends EncryptionProperties at the end of e.
func AddEncryptionProperties(e *etree.Element, id string) (*etree.Element, error) {
	if findChild(e, "EncryptionProperties") != nil {
		return nil, nodeAlreadyPresent("EncryptionProperties")
	}
	p := e.CreateElement("xenc:EncryptionProperties")
	if id != "" {
		p.CreateAttr("Id", id)
	}
	return p, nil
}

// AddEncryptionProperty appends an EncryptionProperty to e, creating the
// EncryptionProperties container on demand if it isn't there yet.
func AddEncryptionProperty(e *etree.Element, id, target string) (*etree.Element, error) {
	props := findChild(e, "EncryptionProperties")
	if props == nil {
		var err error
		props, err = AddEncryptionProperties(e, "")
		if err != nil {
			return nil, err
		}
	}
	prop := props.CreateElement("xenc:EncryptionProperty")
	if id != "" {
		prop.CreateAttr("Id", id)
	}
	if target != "" {
		prop.CreateAttr("Target", target)
	}
	return prop, nil
}

// cipherDataOf returns e's CipherData child, failing if e was not built
// through NewTemplate (or otherwise lacks one).
func cipherDataOf(e *etree.Element) (*etree.Element, error) {
	cd := findChild(e, "CipherData")
	if cd == nil {
		return nil, nodeNotFound("CipherData")
	}
	return cd, nil
}

// AddCipherValue adds an (initially empty) CipherValue to e's CipherData,
// failing if CipherValue or CipherReference is already present.
func AddCipherValue(e *etree.Element) (*etree.Element, error) {
	cd, err := cipherDataOf(e)
	if err != nil {
		return nil, err
	}
	if findChild(cd, "CipherValue") != nil {
		return nil, nodeAlreadyPresent("CipherValue")
	}
	if findChild(cd, "CipherReference") != nil {
		return nil, nodeAlreadyPresent("CipherReference")
	}
	return cd.CreateElement("xenc:CipherValue"), nil
}

// AddCipherReference adds a CipherReference to e's CipherData, failing if
// CipherValue or CipherReference is already present.
func AddCipherReference(e *etree.Element, uri string) (*etree.Element, error) {
	cd, err := cipherDataOf(e)
	if err != nil {
		return nil, err
	}
	if findChild(cd, "CipherValue") != nil {
		return nil, nodeAlreadyPresent("CipherValue")
	}
	if findChild(cd, "CipherReference") != nil {
		return nil, nodeAlreadyPresent("CipherReference")
	}
	ref := cd.CreateElement("xenc:CipherReference")
	ref.CreateAttr("URI", uri)
	return ref, nil
}

// AddCipherReferenceTransform inserts a dsig Transform under
// CipherReference/Transforms, creating Transforms on demand.
func AddCipherReferenceTransform(ref *etree.Element, transformID string) (*etree.Element, error) {
	if localName(ref.Tag) != "CipherReference" {
		return nil, invalidNode(localName(ref.Tag))
	}
	transforms := findChild(ref, "Transforms")
	if transforms == nil {
		transforms = ref.CreateElement("xenc:Transforms")
	}
	t := transforms.CreateElement("ds:Transform")
	t.CreateAttr("xmlns:ds", NamespaceXMLDSig)
	t.CreateAttr("Algorithm", transformID)
	return t, nil
}
