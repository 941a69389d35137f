package xmlenc

import "github.com/beevik/etree"

// EncryptMemory implements the encrypt driver's memory entry point (C6):
// push plaintext straight through the pipeline built from template and
// write the resulting ciphertext into template's CipherData.
func EncryptMemory(ctx *ProcessingContext, template *etree.Element, plaintext, presetKey []byte) (*Result, error) {
	st, result, err := beginEncrypt(ctx, template, presetKey)
	if err != nil {
		return nil, err
	}

	if err := st.pipeline.Write(plaintext); err != nil {
		st.pipeline.Destroy()
		return nil, err
	}
	if err := st.pipeline.Flush(); err != nil {
		st.pipeline.Destroy()
		return nil, err
	}

	return finishEncrypt(st, template, result)
}

// EncryptURI implements the encrypt driver's URI entry point: an InputUri
// source is prepended to the pipeline head and driven pull-based, since the
// head is now a reader rather than a writer.
func EncryptURI(ctx *ProcessingContext, template *etree.Element, uri string, presetKey []byte) (*Result, error) {
	st, result, err := beginEncrypt(ctx, template, presetKey)
	if err != nil {
		return nil, err
	}

	if err := st.pipeline.Prepend(newInputUriTransform(uri, ctx.HTTPClient)); err != nil {
		st.pipeline.Destroy()
		return nil, err
	}
	if err := st.pipeline.PumpFromHead(1024); err != nil {
		st.pipeline.Destroy()
		return nil, err
	}

	return finishEncrypt(st, template, result)
}

// EncryptNode implements the encrypt driver's XML-node entry point:
// serialize src according to template's Type attribute, push the
// serialization through the pipeline, then optionally splice the template
// into the DOM in src's place.
func EncryptNode(ctx *ProcessingContext, template *etree.Element, src *etree.Element, presetKey []byte) (*Result, error) {
	st, result, err := beginEncrypt(ctx, template, presetKey)
	if err != nil {
		return nil, err
	}

	dumped, err := serializeForEncryption(st.typ, src)
	if err != nil {
		st.pipeline.Destroy()
		return nil, err
	}

	if err := st.pipeline.Write(dumped); err != nil {
		st.pipeline.Destroy()
		return nil, err
	}
	if err := st.pipeline.Flush(); err != nil {
		st.pipeline.Destroy()
		return nil, err
	}

	result, err = finishEncrypt(st, template, result)
	if err != nil {
		return nil, err
	}

	if !ctx.IgnoreType {
		spliceEncrypted(src, template, result)
	}
	return result, nil
}

func beginEncrypt(ctx *ProcessingContext, template *etree.Element, presetKey []byte) (*readerState, *Result, error) {
	result := &Result{Encrypt: true, Element: template}
	if presetKey != nil {
		result.Key = &Key{Bytes: append([]byte(nil), presetKey...), Origin: KeyOriginCaller}
	}

	st, err := readEncryptedData(ctx, template, true, presetKey)
	if err != nil {
		return nil, nil, err
	}
	result.ID = st.id
	result.Type = st.typ
	result.MimeType = st.mimeType
	result.Encoding = st.encoding
	result.Method = st.method
	result.Key = st.key

	return st, result, nil
}

func finishEncrypt(st *readerState, template *etree.Element, result *Result) (*Result, error) {
	sinkTransform, ok := st.pipeline.Tail().(*memorySinkTransform)
	if !ok {
		st.pipeline.Destroy()
		return nil, transformFailure("memory sink", nil)
	}
	ciphertext := sinkTransform.Take()
	st.pipeline.Destroy()

	if err := writeCipherData(st.cipherDataNode, ciphertext); err != nil {
		return nil, err
	}
	result.Buffer = ciphertext
	return result, nil
}

// serializeForEncryption implements spec §4.5 step 3's EncryptNode
// serialization rule: unset or #Element serializes the whole element,
// #Content serializes every child node concatenated in order (text nodes
// included, not just child elements), and any other declared Type is
// rejected.
func serializeForEncryption(typ string, src *etree.Element) ([]byte, error) {
	switch typ {
	case "", TypeElement:
		doc := etree.NewDocument()
		doc.SetRoot(src.Copy())
		return doc.WriteToBytes()
	case TypeContent:
		doc := etree.NewDocument()
		for _, tok := range src.Copy().Child {
			doc.AddChild(tok)
		}
		return doc.WriteToBytes()
	default:
		return nil, invalidType(typ)
	}
}

// spliceEncrypted implements spec §4.5 step 5: for #Element, template
// replaces src wholesale in src's parent; for #Content, src is kept in
// place but its children are replaced by the single template element; for
// an unset Type the DOM is left unchanged.
func spliceEncrypted(src, template *etree.Element, result *Result) {
	switch result.Type {
	case TypeElement:
		parent := src.Parent()
		if parent == nil {
			result.Replaced = false
			return
		}
		replaceChildInParent(parent, src, template)
		result.Replaced = true
	case TypeContent:
		for _, tok := range append([]etree.Token(nil), src.Child...) {
			src.RemoveChild(tok)
		}
		src.AddChild(template)
		result.Replaced = true
	default:
		result.Replaced = false
	}
}
