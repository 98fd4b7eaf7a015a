package repository

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidSearch = errors.New("invalid search parameters")
	ErrRender        = errors.New("render failed")
	ErrRenderTimeout = fmt.Errorf("%w: timed out", ErrRender)
	ErrUpload        = errors.New("upload failed")
	ErrComment       = errors.New("comment failed")
	ErrAuthRequired  = errors.New("authentication required")
	ErrNotLoggedIn   = fmt.Errorf("%w: no credentials configured", ErrAuthRequired)
	ErrSearch        = errors.New("search failed")
	ErrPersist       = errors.New("persist failed")
)

// UploadError carries the error reported by the image host.
type UploadError struct {
	Code    int
	Message string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed, error %d: %s", e.Code, e.Message)
}

func (e *UploadError) Unwrap() error {
	return ErrUpload
}
