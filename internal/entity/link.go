package entity

import (
	"fmt"
	"strings"
)

// Link is a single search result returned by the link source.
type Link struct {
	Title           string
	URL             string // external target, the dedup key
	SourceCommunity string
	Domain          string
	ShortID         string
	FullID          string // reply target ("thing id")
}

// CommentPage returns the discussion page for the link under baseURL.
func (l Link) CommentPage(baseURL string) string {
	return fmt.Sprintf("%s/r/%s/comments/%s", strings.TrimRight(baseURL, "/"), l.SourceCommunity, l.ShortID)
}

func (l Link) String() string {
	return l.Title + ": " + l.URL
}
