package upload

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidImage  = errors.New("invalid image")
	ErrImageTooLarge = errors.New("image too large")
	ErrStorage       = errors.New("avatar storage failed")
)

// UploadError carries a user-facing message. Err is one of the sentinels above.
type UploadError struct {
	Err     error
	Message string
	Cause   error
}

func (e *UploadError) Error() string {
	return e.Message
}

func (e *UploadError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func invalidImage(cause error) error {
	return &UploadError{
		Err:     ErrInvalidImage,
		Message: "Could not decode image; did you upload an image file?",
		Cause:   cause,
	}
}

// NewTooLargeError reports an upload over the maxMiB limit.
func NewTooLargeError(maxMiB int) error {
	return &UploadError{
		Err:     ErrImageTooLarge,
		Message: fmt.Sprintf("Uploaded file is larger than the allowed limit of %d MiB", maxMiB),
	}
}

func storageFailure(cause error) error {
	return &UploadError{
		Err:     ErrStorage,
		Message: "Could not save the avatar image",
		Cause:   cause,
	}
}
