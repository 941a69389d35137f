package xmlenc

import (
	"errors"
	"testing"
)

func TestNewTemplateDefaults(t *testing.T) {
	e := NewTemplate("", "", "", "")
	if e.Tag != "EncryptedData" || e.Space != "xenc" {
		t.Errorf("NewTemplate root = %s:%s, want xenc:EncryptedData", e.Space, e.Tag)
	}
	if e.SelectAttrValue("xmlns:xenc", "") != NamespaceXMLEnc {
		t.Error("expected xmlns:xenc attribute")
	}
	for _, attr := range []string{"Id", "Type", "MimeType", "Encoding"} {
		if e.SelectAttr(attr) != nil {
			t.Errorf("unexpected attribute %s on empty template", attr)
		}
	}
	if findChild(e, "CipherData") == nil {
		t.Error("expected empty CipherData child")
	}
}

func TestNewTemplateAttributes(t *testing.T) {
	e := NewTemplate("enc-1", TypeElement, "text/plain", "UTF-8")
	if e.SelectAttrValue("Id", "") != "enc-1" {
		t.Error("Id attribute mismatch")
	}
	if e.SelectAttrValue("Type", "") != TypeElement {
		t.Error("Type attribute mismatch")
	}
	if e.SelectAttrValue("MimeType", "") != "text/plain" {
		t.Error("MimeType attribute mismatch")
	}
	if e.SelectAttrValue("Encoding", "") != "UTF-8" {
		t.Error("Encoding attribute mismatch")
	}
}

func TestAddEncryptionMethodIsFirstChild(t *testing.T) {
	e := NewTemplate("", "", "", "")
	m, err := AddEncryptionMethod(e, AlgorithmAES128GCM)
	if err != nil {
		t.Fatalf("AddEncryptionMethod: %v", err)
	}
	if e.ChildElements()[0] != m {
		t.Error("EncryptionMethod should be inserted as the first child")
	}
	if m.SelectAttrValue("Algorithm", "") != AlgorithmAES128GCM {
		t.Error("Algorithm attribute mismatch")
	}
}

func TestAddEncryptionMethodRejectsDuplicate(t *testing.T) {
	e := NewTemplate("", "", "", "")
	if _, err := AddEncryptionMethod(e, AlgorithmAES128GCM); err != nil {
		t.Fatalf("first AddEncryptionMethod: %v", err)
	}
	_, err := AddEncryptionMethod(e, AlgorithmAES256GCM)
	if err == nil {
		t.Fatal("expected error adding a second EncryptionMethod")
	}
	var xerr *Error
	if !errors.As(err, &xerr) || xerr.Kind != ErrNodeAlreadyPresent {
		t.Errorf("expected ErrNodeAlreadyPresent, got %v", err)
	}
}

func TestAddKeyInfoPositionsAfterEncryptionMethod(t *testing.T) {
	e := NewTemplate("", "", "", "")
	AddEncryptionMethod(e, AlgorithmAES128GCM)
	k, err := AddKeyInfo(e)
	if err != nil {
		t.Fatalf("AddKeyInfo: %v", err)
	}
	if e.ChildElements()[1] != k {
		t.Error("KeyInfo should follow EncryptionMethod")
	}
	if k.SelectAttrValue("xmlns:ds", "") != NamespaceXMLDSig {
		t.Error("expected xmlns:ds attribute on KeyInfo")
	}
}

func TestAddKeyInfoFirstWhenNoEncryptionMethod(t *testing.T) {
	e := NewTemplate("", "", "", "")
	k, err := AddKeyInfo(e)
	if err != nil {
		t.Fatalf("AddKeyInfo: %v", err)
	}
	if e.ChildElements()[0] != k {
		t.Error("KeyInfo should be first child when no EncryptionMethod present")
	}
}

func TestAddKeyInfoRejectsDuplicate(t *testing.T) {
	e := NewTemplate("", "", "", "")
	AddKeyInfo(e)
	_, err := AddKeyInfo(e)
	if err == nil {
		t.Fatal("expected error adding a second KeyInfo")
	}
}

func TestAddEncryptionPropertiesAndProperty(t *testing.T) {
	e := NewTemplate("", "", "", "")
	props, err := AddEncryptionProperties(e, "props-1")
	if err != nil {
		t.Fatalf("AddEncryptionProperties: %v", err)
	}
	if props.SelectAttrValue("Id", "") != "props-1" {
		t.Error("Id attribute mismatch on EncryptionProperties")
	}

	prop, err := AddEncryptionProperty(e, "prop-1", "#target")
	if err != nil {
		t.Fatalf("AddEncryptionProperty: %v", err)
	}
	if prop.SelectAttrValue("Id", "") != "prop-1" || prop.SelectAttrValue("Target", "") != "#target" {
		t.Error("attribute mismatch on EncryptionProperty")
	}
	if prop.Parent() != props {
		t.Error("EncryptionProperty should be added under the existing EncryptionProperties")
	}
}

func TestAddEncryptionPropertiesRejectsDuplicate(t *testing.T) {
	e := NewTemplate("", "", "", "")
	AddEncryptionProperties(e, "")
	_, err := AddEncryptionProperties(e, "")
	if err == nil {
		t.Fatal("expected error adding a second EncryptionProperties")
	}
}

func TestAddEncryptionPropertyCreatesContainerOnDemand(t *testing.T) {
	e := NewTemplate("", "", "", "")
	if findChild(e, "EncryptionProperties") != nil {
		t.Fatal("template should not start with EncryptionProperties")
	}
	if _, err := AddEncryptionProperty(e, "", ""); err != nil {
		t.Fatalf("AddEncryptionProperty: %v", err)
	}
	if findChild(e, "EncryptionProperties") == nil {
		t.Error("expected EncryptionProperties to be created on demand")
	}
}

func TestAddCipherValue(t *testing.T) {
	e := NewTemplate("", "", "", "")
	cv, err := AddCipherValue(e)
	if err != nil {
		t.Fatalf("AddCipherValue: %v", err)
	}
	if cv.Tag != "CipherValue" {
		t.Errorf("tag = %s, want CipherValue", cv.Tag)
	}
	cd, _ := cipherDataOf(e)
	if cv.Parent() != cd {
		t.Error("CipherValue should be parented under CipherData")
	}
}

func TestAddCipherValueRejectsDuplicate(t *testing.T) {
	e := NewTemplate("", "", "", "")
	AddCipherValue(e)
	if _, err := AddCipherValue(e); err == nil {
		t.Fatal("expected error adding a second CipherValue")
	}
}

func TestAddCipherValueRejectsAlongsideCipherReference(t *testing.T) {
	e := NewTemplate("", "", "", "")
	if _, err := AddCipherReference(e, "#ref1"); err != nil {
		t.Fatalf("AddCipherReference: %v", err)
	}
	if _, err := AddCipherValue(e); err == nil {
		t.Fatal("expected error adding CipherValue alongside an existing CipherReference")
	}
}

func TestAddCipherReference(t *testing.T) {
	e := NewTemplate("", "", "", "")
	ref, err := AddCipherReference(e, "http://example.com/data")
	if err != nil {
		t.Fatalf("AddCipherReference: %v", err)
	}
	if ref.SelectAttrValue("URI", "") != "http://example.com/data" {
		t.Error("URI attribute mismatch")
	}
}

func TestAddCipherReferenceRejectsAlongsideCipherValue(t *testing.T) {
	e := NewTemplate("", "", "", "")
	AddCipherValue(e)
	if _, err := AddCipherReference(e, "#ref1"); err == nil {
		t.Fatal("expected error adding CipherReference alongside an existing CipherValue")
	}
}

func TestAddCipherReferenceRejectsDuplicate(t *testing.T) {
	e := NewTemplate("", "", "", "")
	AddCipherReference(e, "#ref1")
	if _, err := AddCipherReference(e, "#ref2"); err == nil {
		t.Fatal("expected error adding a second CipherReference")
	}
}

func TestAddCipherReferenceTransformCreatesTransformsOnDemand(t *testing.T) {
	e := NewTemplate("", "", "", "")
	ref, _ := AddCipherReference(e, "#ref1")
	tr, err := AddCipherReferenceTransform(ref, AlgorithmBase64)
	if err != nil {
		t.Fatalf("AddCipherReferenceTransform: %v", err)
	}
	if tr.SelectAttrValue("Algorithm", "") != AlgorithmBase64 {
		t.Error("Algorithm attribute mismatch")
	}
	transforms := findChild(ref, "Transforms")
	if transforms == nil {
		t.Fatal("expected Transforms container to be created")
	}
	if tr.Parent() != transforms {
		t.Error("Transform should be parented under Transforms")
	}
}

func TestAddCipherReferenceTransformAppendsToExistingTransforms(t *testing.T) {
	e := NewTemplate("", "", "", "")
	ref, _ := AddCipherReference(e, "#ref1")
	AddCipherReferenceTransform(ref, AlgorithmBase64)
	AddCipherReferenceTransform(ref, AlgorithmExcC14N)

	transforms := findChild(ref, "Transforms")
	if len(transforms.ChildElements()) != 2 {
		t.Errorf("expected 2 Transform children, got %d", len(transforms.ChildElements()))
	}
}

func TestAddCipherReferenceTransformRejectsWrongElement(t *testing.T) {
	e := NewTemplate("", "", "", "")
	_, err := AddCipherReferenceTransform(e, AlgorithmBase64)
	if err == nil {
		t.Fatal("expected error calling AddCipherReferenceTransform on a non-CipherReference element")
	}
	var xerr *Error
	if !errors.As(err, &xerr) || xerr.Kind != ErrInvalidNode {
		t.Errorf("expected ErrInvalidNode, got %v", err)
	}
}

func TestCipherDataOfMissing(t *testing.T) {
	notATemplate := NewTemplate("", "", "", "")
	cd := findChild(notATemplate, "CipherData")
	notATemplate.RemoveChild(cd)

	_, err := cipherDataOf(notATemplate)
	if err == nil {
		t.Fatal("expected error when CipherData is missing")
	}
	var xerr *Error
	if !errors.As(err, &xerr) || xerr.Kind != ErrNodeNotFound {
		t.Errorf("expected ErrNodeNotFound, got %v", err)
	}
}

func TestTemplateBuilderIdempotenceEndToEnd(t *testing.T) {
	e := NewTemplate("", "", "", "")
	AddEncryptionMethod(e, AlgorithmAES128GCM)
	AddKeyInfo(e)
	cv, err := AddCipherValue(e)
	if err != nil {
		t.Fatalf("AddCipherValue: %v", err)
	}
	cv.SetText("untouched")

	_, err = AddCipherReference(e, "#ref1")
	if err == nil {
		t.Fatal("expected AddCipherReference to fail alongside an existing CipherValue")
	}
	var xerr *Error
	if !errors.As(err, &xerr) || xerr.Kind != ErrNodeAlreadyPresent {
		t.Errorf("expected ErrNodeAlreadyPresent, got %v", err)
	}

	cd, _ := cipherDataOf(e)
	if len(cd.ChildElements()) != 1 || cd.ChildElements()[0] != cv {
		t.Fatal("CipherData should still hold only the original CipherValue")
	}
	if cv.Text() != "untouched" {
		t.Error("the existing CipherValue's content should be untouched by the rejected call")
	}
}

func TestTemplateFullBuildOrder(t *testing.T) {
	e := NewTemplate("enc-1", TypeElement, "", "")
	AddEncryptionMethod(e, AlgorithmAES128GCM)
	AddKeyInfo(e)
	AddCipherValue(e)
	AddEncryptionProperty(e, "", "")

	var order []string
	for _, c := range e.ChildElements() {
		order = append(order, c.Tag)
	}
	want := []string{"EncryptionMethod", "KeyInfo", "CipherData", "EncryptionProperties"}
	if len(order) != len(want) {
		t.Fatalf("child order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("child[%d] = %s, want %s", i, order[i], want[i])
		}
	}
}
