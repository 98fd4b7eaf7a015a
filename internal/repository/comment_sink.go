package repository

import "context"

// CommentSink posts replies on the link aggregation site.
type CommentSink interface {
	// SubmitComment posts text on the comment page as a reply to replyTo,
	// the link's full id. An empty replyTo is derived from the page URL. An
	// unauthenticated session is re-logged in and retried once before
	// ErrComment is returned.
	SubmitComment(ctx context.Context, commentPage, replyTo, text string) error
}
