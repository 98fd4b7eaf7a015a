package repository

import (
	"context"

	"github.com/user/snapbot/internal/entity"
)

// LinkSource defines the search side of the link aggregation site.
type LinkSource interface {
	// Search returns links matching query. sort and window may be empty.
	Search(ctx context.Context, query, sort, window string) ([]entity.Link, error)
}
