package collection

import (
	"errors"
	"fmt"
)

var (
	// ErrKindMismatch is returned by Update when a configuration would be
	// replaced by a compound, or the reverse.
	ErrKindMismatch = errors.New("entry kind does not match the existing entry")

	// ErrDocumentExists is returned by Init when the document is already
	// present.
	ErrDocumentExists = errors.New("launch document already exists")

	// ErrEmptyName is returned when an entry without a name is written.
	ErrEmptyName = errors.New("entry name must not be empty")
)

// DuplicateNameError reports that a write would give two entries the same
// name. Configurations and compounds share one namespace. It is returned
// before anything is written.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("a configuration or compound named %q already exists", e.Name)
}

// NotFoundError reports that no configuration or compound has the requested
// name. When the document itself is absent, Err matches storage.ErrNotExist.
type NotFoundError struct {
	Name string
	Err  error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no configuration or compound named %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("no configuration or compound named %q", e.Name)
}

func (e *NotFoundError) Unwrap() error { return e.Err }
