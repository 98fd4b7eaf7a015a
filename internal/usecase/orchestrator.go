package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/user/snapbot/internal/entity"
	"github.com/user/snapbot/internal/repository"
	"github.com/user/snapbot/pkg/metrics"
	"github.com/user/snapbot/pkg/utils"
)

// Options configures the poll loop.
type Options struct {
	Query        string
	TargetDomain string
	Sort         string
	Window       string

	Interval      time.Duration
	RenderTimeout time.Duration

	// CommentTemplate is a fmt format with a single %s for the image URL.
	CommentTemplate string
	// SiteBaseURL is the root the comment pages are built under.
	SiteBaseURL string

	// DryRun renders only: no upload, no comment, no persistence.
	DryRun bool
}

// Orchestrator drives the poll, render, upload, comment and persist loop.
type Orchestrator struct {
	source   repository.LinkSource
	renderer repository.Renderer
	host     repository.ImageHost
	sink     repository.CommentSink
	store    repository.SessionStore
	tracker  *Tracker
	opts     Options
	metrics  *metrics.Metrics
	logger   *zap.Logger

	sleep      func(ctx context.Context, d time.Duration) error
	removeFile func(path string) error
	now        func() time.Time
}

// NewOrchestrator wires the loop. host and sink may be nil in dry-run mode.
func NewOrchestrator(
	source repository.LinkSource,
	renderer repository.Renderer,
	host repository.ImageHost,
	sink repository.CommentSink,
	store repository.SessionStore,
	tracker *Tracker,
	opts Options,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		source:     source,
		renderer:   renderer,
		host:       host,
		sink:       sink,
		store:      store,
		tracker:    tracker,
		opts:       opts,
		metrics:    m,
		logger:     logger,
		sleep:      sleepContext,
		removeFile: os.Remove,
		now:        time.Now,
	}
}

// Run polls until ctx is cancelled. Failures are logged, never returned.
func (o *Orchestrator) Run(ctx context.Context) error {
	first := true
	for ctx.Err() == nil {
		uploaded := o.RunCycle(ctx)

		// Pace every cycle the same, whatever happened, to stay under the
		// site's flood limits.
		if uploaded || first {
			o.logger.Info("waiting for the next cycle", zap.Duration("interval", o.opts.Interval))
			first = false
		}
		if err := o.sleep(ctx, o.opts.Interval); err != nil {
			break
		}
	}
	o.logger.Info("poll loop stopped")
	return nil
}

// RunCycle performs one poll and scan. It processes at most one new link and
// reports whether it did.
func (o *Orchestrator) RunCycle(ctx context.Context) bool {
	o.tracker.cycleStarted(o.now())
	o.metrics.IncCycles()

	inFlight, uploaded, err := o.scan(ctx)
	if err != nil {
		o.metrics.IncErrors(errorStage(err))
		o.logger.Error("cycle aborted", zap.String("url", inFlight), zap.Error(err))
		if inFlight != "" {
			o.tracker.Quarantine(inFlight)
		}
		return false
	}

	// Saw every link without a failure, so quarantined links get another
	// chance next cycle.
	o.tracker.ResetQuarantine()
	return uploaded
}

// scan returns the URL being processed when an error escaped, if any.
func (o *Orchestrator) scan(ctx context.Context) (string, bool, error) {
	links, err := o.source.Search(ctx, o.opts.Query, o.opts.Sort, o.opts.Window)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", repository.ErrSearch, err)
	}

	for _, link := range links {
		if o.tracker.IsQuarantined(link.URL) {
			continue
		}
		if !utils.MatchesDomain(link.Domain, o.opts.TargetDomain) {
			continue
		}
		if o.tracker.IsProcessed(link.URL) {
			continue
		}

		if err := o.processLink(ctx, link); err != nil {
			return link.URL, false, err
		}
		// One link per cycle keeps comment submissions under the flood limit.
		return link.URL, true, nil
	}
	return "", false, nil
}

// processLink carries one link through render, upload, comment and persist.
// The URL is marked processed only once every step has succeeded.
func (o *Orchestrator) processLink(ctx context.Context, link entity.Link) error {
	commentPage := link.CommentPage(o.opts.SiteBaseURL)

	start := o.now()
	path, err := o.renderer.Render(ctx, link.URL, o.opts.RenderTimeout)
	o.metrics.RenderDuration.Observe(o.now().Sub(start).Seconds())
	if err != nil {
		return err
	}

	if o.opts.DryRun {
		// The file is left behind for inspection.
		o.tracker.MarkProcessed(link.URL)
		o.metrics.IncProcessed("dry_run")
		o.metrics.ProcessedURLs.Set(float64(o.tracker.Stats().Processed))
		o.logger.Info("created image for story",
			zap.String("title", link.Title),
			zap.String("comment_page", commentPage),
			zap.String("file", path),
		)
		return nil
	}

	imageURL, err := o.host.Upload(ctx, path)
	if err != nil {
		return err
	}
	o.logger.Info("uploaded image for story",
		zap.String("title", link.Title),
		zap.String("comment_page", commentPage),
		zap.String("image_url", imageURL),
	)

	if err := o.removeFile(path); err != nil {
		o.logger.Warn("could not delete rendered file", zap.String("file", path), zap.Error(err))
	}

	if err := o.sink.SubmitComment(ctx, commentPage, link.FullID, fmt.Sprintf(o.opts.CommentTemplate, imageURL)); err != nil {
		return err
	}

	snapshot := o.tracker.MarkProcessed(link.URL)
	o.metrics.ProcessedURLs.Set(float64(snapshot.ProcessedCount()))
	if err := o.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("%w: %w", repository.ErrPersist, err)
	}

	o.metrics.IncProcessed("live")
	o.logger.Info("processed link", zap.String("url", link.URL), zap.String("comment_page", commentPage))
	return nil
}

// errorStage maps a pipeline failure to its metric label.
func errorStage(err error) string {
	switch {
	case errors.Is(err, repository.ErrSearch), errors.Is(err, repository.ErrInvalidSearch):
		return "search"
	case errors.Is(err, repository.ErrRender):
		return "render"
	case errors.Is(err, repository.ErrUpload):
		return "upload"
	case errors.Is(err, repository.ErrComment):
		return "comment"
	case errors.Is(err, repository.ErrPersist):
		return "persist"
	default:
		return "other"
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
