package xmlenc

import (
	"strings"

	"github.com/beevik/etree"
)

// readerState is the per-call bundle the grammar reader populates: pipeline
// plus the cipher-data node, resolved method, and KeyInfo reference needed
// by the encrypt/decrypt drivers.
type readerState struct {
	pipeline      *Pipeline
	cipherDataNode *etree.Element
	keyInfoNode   *etree.Element
	method        string
	key           *Key

	id, typ, mimeType, encoding string
}

func localName(tag string) string {
	if i := strings.IndexByte(tag, ':'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// readEncryptedData implements spec §4.2: it walks E's children under a
// single strict cursor, builds the cipher transform, resolves the key, and
// stops once CipherData has been located. presetKey, when non-nil, bypasses
// key-manager resolution entirely (spec step 1, "duplicate the
// caller-supplied key if any").
func readEncryptedData(ctx *ProcessingContext, e *etree.Element, encrypt bool, presetKey []byte) (*readerState, error) {
	st := &readerState{
		pipeline: NewPipeline(),
		id:       e.SelectAttrValue("Id", ""),
		typ:      e.SelectAttrValue("Type", ""),
		mimeType: e.SelectAttrValue("MimeType", ""),
		encoding: e.SelectAttrValue("Encoding", ""),
	}

	children := e.ChildElements()
	idx := 0
	cur := func() *etree.Element {
		if idx < len(children) {
			return children[idx]
		}
		return nil
	}

	// Step 3: EncryptionMethod.
	var method *EncryptionMethod
	if c := cur(); c != nil && localName(c.Tag) == "EncryptionMethod" {
		method = parseEncryptionMethod(c)
		idx++
	} else if ctx.DefaultMethod != "" {
		method = &EncryptionMethod{Algorithm: ctx.DefaultMethod}
	} else {
		return nil, invalidData("encryption method not specified")
	}
	st.method = method.Algorithm

	cipher, err := NewTransform(method.Algorithm)
	if err != nil {
		st.pipeline.Destroy()
		return nil, err
	}
	cipher.SetDirection(encrypt)
	if da, ok := cipher.(digestAwareTransform); ok {
		da.SetDigest(method.DigestMethod)
	}
	if err := st.pipeline.Append(cipher); err != nil {
		st.pipeline.Destroy()
		return nil, err
	}

	// Step 4: KeyInfo.
	if c := cur(); c != nil && localName(c.Tag) == "KeyInfo" {
		st.keyInfoNode = c
		idx++
	}

	// Step 5: key resolution.
	var key *Key
	if presetKey != nil {
		key = &Key{Bytes: append([]byte(nil), presetKey...), Origin: KeyOriginCaller}
	} else if ctx.KeyManager != nil {
		req := &KeyRequest{ID: keyIDOf(method)}
		if encrypt {
			req.Type = cipher.EncKeyType()
			req.Usage = KeyUsageEncrypt
		} else {
			req.Type = cipher.DecKeyType()
			req.Usage = KeyUsageDecrypt
		}
		key, err = ctx.KeyManager.GetKey(st.keyInfoNode, req)
		if err != nil {
			st.pipeline.Destroy()
			return nil, err
		}
		if key == nil {
			st.pipeline.Destroy()
			return nil, keyNotFound()
		}
		if encrypt && st.keyInfoNode != nil && ctx.KeyInfoWriter != nil {
			if err := ctx.KeyInfoWriter.Write(st.keyInfoNode, req, key); err != nil {
				st.pipeline.Destroy()
				return nil, err
			}
		}
	} else {
		st.pipeline.Destroy()
		return nil, keyNotFound()
	}
	if da, ok := cipher.(decrypterAwareTransform); ok && key.Decrypter != nil {
		da.SetDecrypter(key.Decrypter)
	} else if err := cipher.AddKey(key.Bytes); err != nil {
		st.pipeline.Destroy()
		return nil, transformFailure("add key", err)
	}
	st.key = key

	// Step 6: CipherData.
	c := cur()
	if c == nil || localName(c.Tag) != "CipherData" {
		st.pipeline.Destroy()
		return nil, invalidNode("CipherData")
	}
	st.cipherDataNode = c
	idx++

	// Step 7: EncryptionProperties, skipped silently.
	if c := cur(); c != nil && localName(c.Tag) == "EncryptionProperties" {
		idx++
	}

	// Step 8: encrypt-only tail.
	if encrypt {
		b64, err := NewTransform(algorithmBase64Encode)
		if err != nil {
			st.pipeline.Destroy()
			return nil, err
		}
		if err := st.pipeline.Append(b64); err != nil {
			st.pipeline.Destroy()
			return nil, err
		}
		sink, err := NewTransform(algorithmMemorySink)
		if err != nil {
			st.pipeline.Destroy()
			return nil, err
		}
		if err := st.pipeline.Append(sink); err != nil {
			st.pipeline.Destroy()
			return nil, err
		}
	}

	return st, nil
}

// keyIDOf derives the key identifier used for KeyRequest.ID. This
// implementation uses the resolved algorithm URI itself, since the engine
// has no richer naming authority than the method the template declares.
func keyIDOf(method *EncryptionMethod) string {
	if method == nil {
		return ""
	}
	return method.Algorithm
}

// writeCipherData implements the "CipherData writer" from spec §4.2: given
// the encrypt pipeline's output (already base64 text, since the pipeline
// ends in base64-encode), create or overwrite CipherValue with it verbatim,
// or leave a CipherReference sibling untouched.
func writeCipherData(cipherDataNode *etree.Element, ciphertext []byte) error {
	var valueElem, refElem *etree.Element
	for _, c := range cipherDataNode.ChildElements() {
		switch localName(c.Tag) {
		case "CipherValue":
			valueElem = c
		case "CipherReference":
			refElem = c
		default:
			return invalidNode(localName(c.Tag))
		}
	}

	if refElem != nil {
		return nil
	}

	encoded := string(ciphertext)
	if valueElem != nil {
		valueElem.SetText(encoded)
		return nil
	}

	valueElem = cipherDataNode.CreateElement("xenc:CipherValue")
	valueElem.SetText(encoded)
	return nil
}
