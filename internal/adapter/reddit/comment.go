package reddit

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/user/snapbot/internal/repository"
)

type submitOutcome int

const (
	submitOK submitOutcome = iota
	submitAuthRequired
	submitFailed
)

type submitResult struct {
	outcome submitOutcome
	reason  string
}

// maxCommentAttempts is the first try plus one retry after re-login.
const maxCommentAttempts = 2

// SubmitComment posts text as a reply to replyTo, falling back to the link
// behind commentPage when replyTo is empty.
func (c *Client) SubmitComment(ctx context.Context, commentPage, replyTo, text string) error {
	for attempt := 1; attempt <= maxCommentAttempts; attempt++ {
		res, err := c.postComment(ctx, commentPage, replyTo, text)
		if err != nil {
			return fmt.Errorf("%w: %v", repository.ErrComment, err)
		}

		switch res.outcome {
		case submitOK:
			return nil
		case submitFailed:
			return fmt.Errorf("%w: %s", repository.ErrComment, res.reason)
		case submitAuthRequired:
			if c.username == "" {
				return fmt.Errorf("%w: %w", repository.ErrComment, repository.ErrNotLoggedIn)
			}
			if attempt == maxCommentAttempts {
				break
			}
			c.logger.Info("session not authenticated, logging in again", zap.String("comment_page", commentPage))
			c.loggedIn = false
			ok, err := c.Login(ctx)
			if err != nil {
				return fmt.Errorf("%w: %w: %v", repository.ErrComment, repository.ErrAuthRequired, err)
			}
			if !ok {
				return fmt.Errorf("%w: %w: re-login rejected", repository.ErrComment, repository.ErrAuthRequired)
			}
		}
	}
	return fmt.Errorf("%w: %w: still unauthenticated after re-login", repository.ErrComment, repository.ErrAuthRequired)
}

// postComment makes one submission. Tokens are re-read from the comment page
// on every call.
func (c *Client) postComment(ctx context.Context, commentPage, replyTo, text string) (submitResult, error) {
	parts, err := parseCommentPage(commentPage)
	if err != nil {
		return submitResult{}, err
	}
	if replyTo == "" {
		replyTo = parts.ThingID
	}

	page, err := c.http.R().SetContext(ctx).Get(commentPage)
	if err != nil {
		return submitResult{}, fmt.Errorf("failed to fetch comment page: %w", err)
	}
	if page.IsError() {
		return submitResult{}, fmt.Errorf("comment page returned status %d", page.StatusCode())
	}

	modhash, found, err := extractModhash(page.String())
	if err != nil {
		return submitResult{}, fmt.Errorf("failed to parse comment page: %w", err)
	}
	if !found {
		return submitResult{outcome: submitFailed, reason: "no anti-forgery token on comment page"}, nil
	}

	res, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"thing_id": replyTo,
			"r":        parts.Community,
			"uh":       modhash,
			"text":     text,
		}).
		Post("/api/comment")
	if err != nil {
		return submitResult{}, fmt.Errorf("failed to post comment: %w", err)
	}
	if res.IsError() {
		return submitResult{}, fmt.Errorf("comment returned status %d", res.StatusCode())
	}

	switch code := errorCode(res.String()); code {
	case "":
		return submitResult{outcome: submitOK}, nil
	case "USER_REQUIRED":
		return submitResult{outcome: submitAuthRequired}, nil
	default:
		return submitResult{outcome: submitFailed, reason: code}, nil
	}
}
