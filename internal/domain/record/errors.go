package record

import "errors"

var (
	// ErrIndexOutOfRange indicates the project has no records to address.
	ErrIndexOutOfRange = errors.New("record index out of range")
	// ErrUnknownLabel indicates a label outside the project vocabulary.
	ErrUnknownLabel = errors.New("label not in project vocabulary")
)
