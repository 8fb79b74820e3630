package media

import "errors"

// Module errors.
var (
	ErrVideoNotFound = errors.New("video not found")
	ErrInvalidVideo  = errors.New("invalid video")
	ErrUpload        = errors.New("upload failed")
)
