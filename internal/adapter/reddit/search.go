package reddit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/user/snapbot/internal/entity"
	"github.com/user/snapbot/internal/repository"
)

var (
	validSorts   = map[string]bool{"": true, "new": true, "top": true, "old": true, "hot": true}
	validWindows = map[string]bool{"": true, "hour": true, "day": true, "week": true, "month": true, "year": true}
)

type searchListing struct {
	Data struct {
		Children []struct {
			Data struct {
				Title     string `json:"title"`
				URL       string `json:"url"`
				Subreddit string `json:"subreddit"`
				Domain    string `json:"domain"`
				ID        string `json:"id"`
				Name      string `json:"name"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// ValidateSearch checks sort and window without touching the network.
func ValidateSearch(sort, window string) error {
	if !validSorts[sort] {
		return fmt.Errorf("%w: sort must be one of new, top, old, hot (or empty for relevance), got %q", repository.ErrInvalidSearch, sort)
	}
	if !validWindows[window] {
		return fmt.Errorf("%w: window must be one of hour, day, week, month, year (or empty for all time), got %q", repository.ErrInvalidSearch, window)
	}
	return nil
}

// Search queries the site's search listing. Searching does not need a login.
func (c *Client) Search(ctx context.Context, query, sort, window string) ([]entity.Link, error) {
	if err := ValidateSearch(sort, window); err != nil {
		return nil, err
	}

	params := map[string]string{"q": query}
	if sort != "" {
		params["sort"] = sort
	}
	if window != "" {
		params["t"] = window
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get("/search.json")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch search results: %w", err)
	}
	if res.IsError() {
		return nil, fmt.Errorf("search returned status %d", res.StatusCode())
	}

	var listing searchListing
	if err := json.Unmarshal(res.Body(), &listing); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	links := make([]entity.Link, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		d := child.Data
		links = append(links, entity.Link{
			Title:           d.Title,
			URL:             d.URL,
			SourceCommunity: d.Subreddit,
			Domain:          d.Domain,
			ShortID:         d.ID,
			FullID:          d.Name,
		})
	}
	return links, nil
}
