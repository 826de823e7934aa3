package compositor

import "errors"

var (
	// ErrMissingInput is returned when an export is requested before a user
	// image has been provided.
	ErrMissingInput = errors.New("no user image loaded")

	// ErrRender is returned when the drawing surface cannot be set up or the
	// frame asset is absent.
	ErrRender = errors.New("render failed")

	// ErrEncode is returned when the PNG encoder fails or produces no data.
	ErrEncode = errors.New("encode failed")
)
