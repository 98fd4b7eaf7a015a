package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/user/snapbot/internal/entity"
	"github.com/user/snapbot/pkg/metrics"
)

type fakeSource struct {
	links []entity.Link
	err   error
	calls int
}

func (f *fakeSource) Search(ctx context.Context, query, sort, window string) ([]entity.Link, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.links, nil
}

// fakeRenderer writes a real file per render so deletion can be observed.
type fakeRenderer struct {
	t        *testing.T
	dir      string
	failOnce map[string]error // url -> error returned on the first attempt only
	calls    []string
	files    []string
}

func (f *fakeRenderer) Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.failOnce[url]; ok {
		delete(f.failOnce, url)
		return "", err
	}
	path := filepath.Join(f.dir, strings.NewReplacer("/", "_", ":", "_").Replace(url)+".png")
	if err := os.WriteFile(path, []byte("png"), 0o600); err != nil {
		f.t.Fatalf("write render: %v", err)
	}
	f.files = append(f.files, path)
	return path, nil
}

type fakeHost struct {
	url     string
	err     error
	uploads []string
}

func (f *fakeHost) Upload(ctx context.Context, path string) (string, error) {
	f.uploads = append(f.uploads, path)
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

type postedComment struct {
	page    string
	replyTo string
	text    string
}

type fakeSink struct {
	err      error
	comments []postedComment
}

func (f *fakeSink) SubmitComment(ctx context.Context, commentPage, replyTo, text string) error {
	f.comments = append(f.comments, postedComment{page: commentPage, replyTo: replyTo, text: text})
	return f.err
}

type fakeStore struct {
	saves []*entity.SessionState
	err   error
}

func (f *fakeStore) Load(ctx context.Context) (*entity.SessionState, error) {
	if len(f.saves) == 0 {
		return entity.NewSessionState(), nil
	}
	return f.saves[len(f.saves)-1].Clone(), nil
}

func (f *fakeStore) Save(ctx context.Context, state *entity.SessionState) error {
	if f.err != nil {
		return f.err
	}
	f.saves = append(f.saves, state)
	return nil
}

func (f *fakeStore) Close() error { return nil }

type harness struct {
	source   *fakeSource
	renderer *fakeRenderer
	host     *fakeHost
	sink     *fakeSink
	store    *fakeStore
	tracker  *Tracker
	metrics  *metrics.Metrics
	orch     *Orchestrator
	sleeps   []time.Duration
}

var errBoom = errors.New("boom")

func defaultOptions() Options {
	return Options{
		Query:           "target.org",
		TargetDomain:    "target.org",
		Sort:            "new",
		Window:          "day",
		Interval:        660 * time.Second,
		RenderTimeout:   300 * time.Second,
		CommentTemplate: "Imgur cache: %s",
		SiteBaseURL:     "http://site.example",
	}
}

func newHarness(t *testing.T, opts Options, links ...entity.Link) *harness {
	t.Helper()
	h := &harness{
		source:   &fakeSource{links: links},
		renderer: &fakeRenderer{t: t, dir: t.TempDir(), failOnce: map[string]error{}},
		host:     &fakeHost{url: "http://img.host/abc"},
		sink:     &fakeSink{},
		store:    &fakeStore{},
		tracker:  NewTracker(entity.NewSessionState()),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	h.orch = NewOrchestrator(h.source, h.renderer, h.host, h.sink, h.store, h.tracker, opts,
		h.metrics, zap.NewNop())
	return h
}

func link(id, url, domain string) entity.Link {
	return entity.Link{
		Title:           "story " + id,
		URL:             url,
		SourceCommunity: "pics",
		Domain:          domain,
		ShortID:         id,
		FullID:          "t3_" + id,
	}
}
