package xmlenc

import "github.com/beevik/etree"

// Decrypt implements the decrypt driver (C7): parse an EncryptedData
// element, resolve its method/key through ctx, reverse the transform chain,
// and optionally splice the plaintext back into the DOM in place of e.
func Decrypt(ctx *ProcessingContext, e *etree.Element, presetKey []byte) (*Result, error) {
	result := &Result{Encrypt: false, Element: e}
	if presetKey != nil {
		result.Key = &Key{Bytes: append([]byte(nil), presetKey...), Origin: KeyOriginCaller}
	}

	st, err := readEncryptedData(ctx, e, false, presetKey)
	if err != nil {
		return nil, err
	}
	result.ID = st.id
	result.Type = st.typ
	result.MimeType = st.mimeType
	result.Encoding = st.encoding
	result.Method = st.method
	result.Key = st.key

	if st.cipherDataNode == nil {
		st.pipeline.Destroy()
		return nil, nodeNotFound("CipherData")
	}

	var valueElem, refElem *etree.Element
	for _, c := range st.cipherDataNode.ChildElements() {
		switch localName(c.Tag) {
		case "CipherValue":
			valueElem = c
		case "CipherReference":
			refElem = c
		}
	}

	var buffer []byte
	switch {
	case valueElem != nil:
		buffer, err = decryptCipherValue(st.pipeline, valueElem.Text())
	case refElem != nil:
		buffer, err = decryptCipherReference(ctx, st.pipeline, refElem)
	default:
		err = nodeNotFound("CipherValue")
	}
	if err != nil {
		st.pipeline.Destroy()
		return nil, err
	}
	st.pipeline.Destroy()
	result.Buffer = buffer

	if !ctx.IgnoreType && result.Type != "" {
		if err := spliceDecrypted(e, result); err != nil {
			return nil, err
		}
	}

	return result, nil
}

// decryptCipherValue implements the CipherValue path of spec §4.4 step 4:
// prepend base64-decode, append a memory sink, push the encoded text through,
// and flush.
func decryptCipherValue(pipeline *Pipeline, encodedText string) ([]byte, error) {
	b64, err := NewTransform(algorithmBase64Decode)
	if err != nil {
		return nil, err
	}
	if err := pipeline.Prepend(b64); err != nil {
		return nil, err
	}
	sink, err := NewTransform(algorithmMemorySink)
	if err != nil {
		return nil, err
	}
	if err := pipeline.Append(sink); err != nil {
		return nil, err
	}

	if err := pipeline.Write([]byte(encodedText)); err != nil {
		return nil, err
	}
	if err := pipeline.Flush(); err != nil {
		return nil, err
	}

	sinkTransform, ok := pipeline.Tail().(*memorySinkTransform)
	if !ok {
		return nil, transformFailure("memory sink", nil)
	}
	return sinkTransform.Take(), nil
}

// decryptCipherReference implements the CipherReference path of spec §4.4
// step 4: build a pipeline rooted at InputUri(URI), append any declared
// dsig transforms, transplant the CipherData pipeline (cipher[, key-wrap])
// onto its tail, then read to EOF.
//
// When no Transforms child is present, a base64-decode stage is inserted by
// default: the referenced content is conventionally base64 text, matching
// the absence of an explicit identity transform in that case (see
// DESIGN.md, Open Question decision 7).
func decryptCipherReference(ctx *ProcessingContext, cipherPipeline *Pipeline, refElem *etree.Element) ([]byte, error) {
	uri := refElem.SelectAttrValue("URI", "")
	if uri == "" {
		return nil, invalidData("CipherReference missing URI")
	}

	uriPipeline := NewPipeline()
	if err := uriPipeline.Append(newInputUriTransform(uri, ctx.HTTPClient)); err != nil {
		return nil, err
	}

	transformsElem := refElem.FindElement("./Transforms")
	if transformsElem != nil {
		for _, tElem := range transformsElem.ChildElements() {
			if localName(tElem.Tag) != "Transform" {
				continue
			}
			algorithmID := tElem.SelectAttrValue("Algorithm", "")
			t, err := referenceTransformFor(algorithmID)
			if err != nil {
				return nil, err
			}
			if t != nil {
				if err := uriPipeline.Append(t); err != nil {
					return nil, err
				}
			}
		}
	} else {
		b64, err := NewTransform(algorithmBase64Decode)
		if err != nil {
			return nil, err
		}
		if err := uriPipeline.Append(b64); err != nil {
			return nil, err
		}
	}

	cipherPipeline.Transplant(uriPipeline)

	sink, err := NewTransform(algorithmMemorySink)
	if err != nil {
		return nil, err
	}
	if err := uriPipeline.Append(sink); err != nil {
		return nil, err
	}

	if err := uriPipeline.PumpFromHead(1024); err != nil {
		uriPipeline.Destroy()
		return nil, err
	}

	sinkTransform, ok := uriPipeline.Tail().(*memorySinkTransform)
	if !ok {
		uriPipeline.Destroy()
		return nil, transformFailure("memory sink", nil)
	}
	buffer := sinkTransform.Take()
	uriPipeline.Destroy()
	return buffer, nil
}

// referenceTransformFor recognizes the dsig transform URIs this module
// understands when declared under CipherReference/Transforms: base64-decode
// and exclusive-c14n (a no-op here, since this module's pipeline never
// canonicalizes XML — the referenced bytes are opaque octets by the time
// they reach CipherReference). Anything else is ErrInvalidTransform.
func referenceTransformFor(algorithmID string) (BinaryTransform, error) {
	switch algorithmID {
	case AlgorithmBase64:
		return NewTransform(algorithmBase64Decode)
	case AlgorithmExcC14N, AlgorithmExcC14NWithComments:
		return nil, nil
	default:
		return nil, invalidTransform(algorithmID, nil)
	}
}

// spliceDecrypted implements spec §4.4 step 5. Only #Element and #Content
// are spliced, and only when e has a parent; any other Type, or a detached
// e, leaves the buffer unparsed and Replaced false. #Element replaces e with
// the fragment's single root element. The #Content branch deliberately does
// NOT reuse the #Element whole-node-replace primitive: it removes e and
// inserts every token of the fragment (elements and text) into e's parent
// at e's former position, so the parent keeps its other children.
// The literal C source reuses the #Element primitive for #Content too,
// flagged there as a likely bug; this diverges from it on purpose.
func spliceDecrypted(e *etree.Element, result *Result) error {
	parent := e.Parent()
	if (result.Type != TypeElement && result.Type != TypeContent) || parent == nil {
		result.Replaced = false
		return nil
	}

	frag := etree.NewDocument()
	if err := frag.ReadFromBytes(result.Buffer); err != nil {
		return xmlFailure("parse decrypted content", err)
	}

	if result.Type == TypeElement {
		root := frag.Root()
		if root == nil {
			return invalidData("decrypted fragment has no root element")
		}
		replaceChildInParent(parent, e, root)
	} else {
		// Copy the token list: InsertChildAt detaches each token from frag,
		// which shifts frag.Child underneath a live range over it.
		replaceChildWithMany(parent, e, append([]etree.Token(nil), frag.Child...))
	}
	result.Replaced = true
	return nil
}

func replaceChildInParent(parent, old, replacement *etree.Element) {
	idx := childIndex(parent, old)
	parent.RemoveChild(old)
	if idx < 0 {
		parent.AddChild(replacement)
		return
	}
	parent.InsertChildAt(idx, replacement)
}

func replaceChildWithMany(parent, old *etree.Element, replacements []etree.Token) {
	idx := childIndex(parent, old)
	parent.RemoveChild(old)
	if idx < 0 {
		for _, r := range replacements {
			parent.AddChild(r)
		}
		return
	}
	for i, r := range replacements {
		parent.InsertChildAt(idx+i, r)
	}
}

// childIndex returns old's position in parent's full token slice (the index
// InsertChildAt/RemoveChild operate on), not its position among element-only
// siblings — an indented document interleaves CharData whitespace between
// elements, so the two indices diverge.
func childIndex(parent, target *etree.Element) int {
	for i, tok := range parent.Child {
		if tok == target {
			return i
		}
	}
	return -1
}
