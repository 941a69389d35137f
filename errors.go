package xmlenc

import (
	"fmt"
)

// ErrKind identifies the class of failure reported by the engine. Kinds are
// language-neutral by design: they name the grammar/resource violation, not
// a Go type.
type ErrKind int

const (
	// ErrMalloc signals an allocation failure in a collaborator (e.g.
	// crypto/rand exhausted).
	ErrMalloc ErrKind = iota
	// ErrXMLFailure signals that an etree DOM primitive failed.
	ErrXMLFailure
	// ErrInvalidNode signals an unexpected element where the grammar
	// requires a specific one.
	ErrInvalidNode
	// ErrNodeNotFound signals a required element is missing.
	ErrNodeNotFound
	// ErrNodeAlreadyPresent signals a template builder call that would
	// duplicate an element the grammar allows only once.
	ErrNodeAlreadyPresent
	// ErrInvalidData signals schema-legal but semantically unusable input.
	ErrInvalidData
	// ErrInvalidType signals an unrecognized Type URI where one is
	// required to disambiguate splicing.
	ErrInvalidType
	// ErrInvalidTransform signals a transform that lacks the required
	// capability, or an unknown transform id.
	ErrInvalidTransform
	// ErrKeyNotFound signals that key resolution produced no key.
	ErrKeyNotFound
	// ErrTransformFailure signals that an underlying cipher or codec
	// reported failure (bad padding, MAC mismatch, RSA decrypt error).
	ErrTransformFailure
)

func (k ErrKind) String() string {
	switch k {
	case ErrMalloc:
		return "malloc"
	case ErrXMLFailure:
		return "xml failure"
	case ErrInvalidNode:
		return "invalid node"
	case ErrNodeNotFound:
		return "node not found"
	case ErrNodeAlreadyPresent:
		return "node already present"
	case ErrInvalidData:
		return "invalid data"
	case ErrInvalidType:
		return "invalid type"
	case ErrInvalidTransform:
		return "invalid transform"
	case ErrKeyNotFound:
		return "key not found"
	case ErrTransformFailure:
		return "transform failure"
	default:
		return "unknown"
	}
}

// Error is the concrete error value returned by this package. Name carries
// the element/attribute/algorithm identifier the kind refers to, where
// applicable; Detail carries free-form context.
type Error struct {
	Kind   ErrKind
	Name   string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := "xmlenc: " + e.Kind.String()
	if e.Name != "" {
		msg += " (" + e.Name + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes *Error comparable with errors.Is against the package-level
// sentinel values below, matching on Kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel values for errors.Is comparisons, e.g. errors.Is(err, ErrKeyNotFoundSentinel).
var (
	ErrMallocSentinel             = &Error{Kind: ErrMalloc}
	ErrXMLFailureSentinel         = &Error{Kind: ErrXMLFailure}
	ErrInvalidNodeSentinel        = &Error{Kind: ErrInvalidNode}
	ErrNodeNotFoundSentinel       = &Error{Kind: ErrNodeNotFound}
	ErrNodeAlreadyPresentSentinel = &Error{Kind: ErrNodeAlreadyPresent}
	ErrInvalidDataSentinel        = &Error{Kind: ErrInvalidData}
	ErrInvalidTypeSentinel        = &Error{Kind: ErrInvalidType}
	ErrInvalidTransformSentinel   = &Error{Kind: ErrInvalidTransform}
	ErrKeyNotFoundSentinel        = &Error{Kind: ErrKeyNotFound}
	ErrTransformFailureSentinel   = &Error{Kind: ErrTransformFailure}
)

func invalidNode(name string) error {
	return &Error{Kind: ErrInvalidNode, Name: name}
}

func nodeNotFound(name string) error {
	return &Error{Kind: ErrNodeNotFound, Name: name}
}

func nodeAlreadyPresent(name string) error {
	return &Error{Kind: ErrNodeAlreadyPresent, Name: name}
}

func invalidData(detail string) error {
	return &Error{Kind: ErrInvalidData, Detail: detail}
}

func invalidType(value string) error {
	return &Error{Kind: ErrInvalidType, Name: value}
}

func invalidTransform(name string, err error) error {
	return &Error{Kind: ErrInvalidTransform, Name: name, Err: err}
}

func keyNotFound() error {
	return &Error{Kind: ErrKeyNotFound}
}

func transformFailure(detail string, err error) error {
	return &Error{Kind: ErrTransformFailure, Detail: detail, Err: err}
}

func xmlFailure(detail string, err error) error {
	return &Error{Kind: ErrXMLFailure, Detail: detail, Err: err}
}

// wrapf mirrors the teacher's fmt.Errorf("signedxml: ...", ...) convention,
// prefixed for this package instead.
func wrapf(format string, args ...interface{}) error {
	return fmt.Errorf("xmlenc: "+format, args...)
}
