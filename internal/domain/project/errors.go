package project

import "errors"

var (
	// ErrProjectNotFound indicates the project doesn't exist.
	ErrProjectNotFound = errors.New("project not found")
	// ErrAlreadyExists indicates a project with the same name is registered.
	ErrAlreadyExists = errors.New("project already exists")
	// ErrLabelNotFound indicates the label is not in the project vocabulary.
	ErrLabelNotFound = errors.New("label not found")
	// ErrInvalidName indicates a project name that is empty or not usable as
	// a storage path segment.
	ErrInvalidName = errors.New("invalid project name")
)
