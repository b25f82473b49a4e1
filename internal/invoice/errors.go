package invoice

import (
	"errors"
	"fmt"
)

var (
	// ErrNoInvoiceData is returned when a readable document holds no recognizable line items
	ErrNoInvoiceData = errors.New("no invoice line items found in document")

	// ErrEmptyResult is returned when rendering is attempted without any rows
	ErrEmptyResult = errors.New("conversion result has no rows to render")
)

// ReasonNoText is the UnreadablePDFError reason for documents without a text layer
const ReasonNoText = "no text layer"

// UnreadablePDFError reports input that is not a parseable PDF or has no text layer
type UnreadablePDFError struct {
	Reason string
	Err    error
}

func (e *UnreadablePDFError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unreadable pdf: %s: %v", e.Reason, e.Err)
	}
	return "unreadable pdf: " + e.Reason
}

func (e *UnreadablePDFError) Unwrap() error {
	return e.Err
}

// IsNoText reports whether err is an UnreadablePDFError for a document without a text layer
func IsNoText(err error) bool {
	var u *UnreadablePDFError
	return errors.As(err, &u) && u.Reason == ReasonNoText
}

// DateFormatError reports a date token that matches none of the known layouts
type DateFormatError struct {
	Value string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("unrecognized date format: %q", e.Value)
}
