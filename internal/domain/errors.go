package domain

import "errors"

// Error codes surfaced to clients.
const (
	CodeInvalidFileType  = "invalid_file_type"
	CodeReadFailed       = "read_failed"
	CodeValidation       = "validation"
	CodeGenerationFailed = "generation_failed"
	CodeBusy             = "busy"
)

// Error is a user-facing failure. Message is shown verbatim; Code is stable and
// used for status mapping and translation.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so wrapped instances compare
// equal to the sentinels below.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidFileType = &Error{Code: CodeInvalidFileType, Message: "Please upload a valid image file (PNG, JPEG, etc.)."}
	ErrReadFile        = &Error{Code: CodeReadFailed, Message: "Failed to read the image file."}
	ErrMissingInput    = &Error{Code: CodeValidation, Message: "Please upload an image and enter an editing prompt."}
	ErrBusy            = &Error{Code: CodeBusy, Message: "An edit is already in progress."}
	ErrGeneration      = &Error{Code: CodeGenerationFailed, Message: "Failed to generate image."}

	ErrNoImageInResponse = errors.New("No image data found in the Gemini API response.")
	ErrMissingAPIKey     = errors.New("API key is not configured")
)

// GenerationFailed wraps a remote failure into the single error the editor
// surfaces for any unsuccessful generation attempt.
func GenerationFailed(err error) *Error {
	detail := "An unknown error occurred."
	if err != nil && err.Error() != "" {
		detail = err.Error()
	}
	return &Error{
		Code:    CodeGenerationFailed,
		Message: "Failed to generate image: " + detail,
		Err:     err,
	}
}

// ReadFailed wraps an I/O failure while encoding an upload.
func ReadFailed(err error) *Error {
	return &Error{Code: CodeReadFailed, Message: ErrReadFile.Message, Err: err}
}

// AsError extracts the user-facing error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
