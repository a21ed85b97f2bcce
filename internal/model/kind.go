package model

import "strconv"

// Kind is the numeric event kind carried on the wire.
type Kind int

// Kinds this service understands. Every other value is carried through
// untouched and classified as KindClassOther.
const (
	KindMetadata Kind = 0
	KindTextNote Kind = 1
)

// KindClass is the closed set of kind categories the pipeline switches on.
type KindClass int

const (
	KindClassOther KindClass = iota
	KindClassMetadata
	KindClassTextNote
)

// Class maps an open-ended kind onto the known subset.
func (k Kind) Class() KindClass {
	switch k {
	case KindMetadata:
		return KindClassMetadata
	case KindTextNote:
		return KindClassTextNote
	}
	return KindClassOther
}

// String returns a readable name for known kinds and "kind:N" otherwise.
func (k Kind) String() string {
	switch k.Class() {
	case KindClassMetadata:
		return "metadata"
	case KindClassTextNote:
		return "text_note"
	}
	return "kind:" + strconv.Itoa(int(k))
}

func (c KindClass) String() string {
	switch c {
	case KindClassMetadata:
		return "metadata"
	case KindClassTextNote:
		return "text_note"
	}
	return "other"
}
