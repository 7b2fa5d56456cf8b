package errors

import "fmt"

// MissingFieldError reports a required path absent from a raw API record.
// Normalization of that record fails; the fetch loop skips and logs it.
type MissingFieldError struct {
	Path string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field %q is missing", e.Path)
}

// MissingMediaError reports a raw note record without a files array.
// Media presence is required; absence means the upstream record is malformed.
type MissingMediaError struct {
	NoteID string
}

func (e *MissingMediaError) Error() string {
	return fmt.Sprintf("note %q has no media", e.NoteID)
}

// UndeterminedExtensionError reports a media item whose file extension could
// not be derived from its URL, MIME type, or display name.
type UndeterminedExtensionError struct {
	MediaID string
	URL     string
	Type    string
	Name    string
}

func (e *UndeterminedExtensionError) Error() string {
	return fmt.Sprintf("cannot determine file extension for media %q (url=%q type=%q name=%q)",
		e.MediaID, e.URL, e.Type, e.Name)
}

// DownloadError reports a failed media download. It is fatal to the run:
// the crawl aborts before any upsert, so the page is retried on the next
// invocation with the watermark unchanged.
type DownloadError struct {
	URL    string
	Status int
	Err    error
}

func (e *DownloadError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("download %s failed with status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("download %s failed: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// StoreError reports a persistence failure, fatal to the run.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
