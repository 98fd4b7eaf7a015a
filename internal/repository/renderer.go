package repository

import (
	"context"
	"time"
)

// Renderer defines the contract for turning a page into a local screenshot.
type Renderer interface {
	// Render loads url and writes a PNG of the rendered page to a temporary
	// file. The caller owns the returned file.
	Render(ctx context.Context, url string, timeout time.Duration) (string, error)
}
