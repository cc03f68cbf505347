package admin

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrBusy is returned while a submission is in flight. It is the
	// re-entrancy guard behind the disabled submit button.
	ErrBusy = errors.New("a submission is already in progress")

	// ErrNotConfirmed is returned by Delete without a positive confirmation.
	ErrNotConfirmed = errors.New("delete requires confirmation")

	// ErrNotEditing is returned by Submit when no form is open.
	ErrNotEditing = errors.New("no form is open")

	// ErrFormOpen is returned by Delete while an edit form is open.
	ErrFormOpen = errors.New("close the open form before deleting")

	// ErrNoAssetStore is returned when a file is submitted for a kind that
	// has no asset storage configured.
	ErrNoAssetStore = errors.New("no asset storage configured")

	// ErrUnknownItem is returned for an id that is not in the displayed list.
	ErrUnknownItem = errors.New("item not found in list")
)

// ValidationError lists the form fields that blocked a submission. No
// network call is made when it is returned.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "please fix: " + strings.Join(names, ", ")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// SubmitError is a failed write. The form stays populated for a retry.
type SubmitError struct {
	Op  string
	Err error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

// UploadError is a failed asset upload. The owning submission is not
// persisted.
type UploadError struct {
	Name string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s: %v", e.Name, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// AssetCleanupError is a failed best-effort asset removal. It is logged and
// surfaced as a notice; the document change it followed stands.
type AssetCleanupError struct {
	URL string
	Err error
}

func (e *AssetCleanupError) Error() string {
	return fmt.Sprintf("failed to remove asset %s: %v", e.URL, e.Err)
}

func (e *AssetCleanupError) Unwrap() error { return e.Err }
