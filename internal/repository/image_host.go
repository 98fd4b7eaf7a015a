package repository

import "context"

// ImageHost uploads a local image and returns its public viewing URL.
type ImageHost interface {
	Upload(ctx context.Context, path string) (string, error)
}
