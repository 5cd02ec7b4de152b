package textfragment

import "errors"

var (
	// ErrMalformedDirective is returned when a text= clause has no textStart.
	ErrMalformedDirective = errors.New("malformed text fragment directive")

	// ErrDecoding is returned when a directive part is not valid
	// percent-encoded UTF-8.
	ErrDecoding = errors.New("text fragment decoding failed")

	// ErrInvalidURL is returned when the input cannot be parsed as a URL.
	ErrInvalidURL = errors.New("invalid url")
)
