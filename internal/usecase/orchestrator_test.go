package usecase

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/snapbot/internal/repository"
)

func TestRunCycle_EndToEnd(t *testing.T) {
	l := link("abc", "http://x.target.org/a", "x.target.org")
	l.FullID = "t3_full"
	h := newHarness(t, defaultOptions(), l)

	uploaded := h.orch.RunCycle(context.Background())
	require.True(t, uploaded)

	require.Len(t, h.renderer.files, 1)
	_, err := os.Stat(h.renderer.files[0])
	assert.True(t, os.IsNotExist(err), "rendered file must be deleted after upload")

	require.Len(t, h.sink.comments, 1)
	assert.Equal(t, "http://site.example/r/pics/comments/abc", h.sink.comments[0].page)
	assert.Equal(t, "t3_full", h.sink.comments[0].replyTo, "the reply targets the link's full id")
	assert.Equal(t, "Imgur cache: http://img.host/abc", h.sink.comments[0].text)

	require.Len(t, h.store.saves, 1)
	assert.Equal(t, []string{"http://x.target.org/a"}, h.store.saves[0].Processed)
	assert.Equal(t, StatusProcessed, h.tracker.Status("http://x.target.org/a"))
}

func TestRun_SleepsFixedIntervalBetweenCycles(t *testing.T) {
	h := newHarness(t, defaultOptions(), link("abc", "http://x.target.org/a", "x.target.org"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h.orch.sleep = func(ctx context.Context, d time.Duration) error {
		h.sleeps = append(h.sleeps, d)
		if len(h.sleeps) == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	require.NoError(t, h.orch.Run(ctx))
	assert.Equal(t, []time.Duration{660 * time.Second, 660 * time.Second, 660 * time.Second}, h.sleeps)
	assert.Equal(t, 3, h.source.calls)
	assert.Len(t, h.sink.comments, 1, "later cycles see the link as processed")
	assert.Equal(t, int64(3), h.tracker.Stats().Cycles)
}

func TestRun_StopsWhenCancelledBeforeStart(t *testing.T) {
	h := newHarness(t, defaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.orch.Run(ctx))
	assert.Equal(t, 0, h.source.calls)
}

func TestRunCycle_ProcessedLinksAreNeverRepeated(t *testing.T) {
	h := newHarness(t, defaultOptions(), link("abc", "http://x.target.org/a", "x.target.org"))
	h.tracker.MarkProcessed("http://x.target.org/a")

	for i := 0; i < 3; i++ {
		assert.False(t, h.orch.RunCycle(context.Background()))
	}
	assert.Empty(t, h.renderer.calls)
	assert.Empty(t, h.host.uploads)
	assert.Empty(t, h.sink.comments)
}

func TestRunCycle_AtMostOneLinkPerCycle(t *testing.T) {
	h := newHarness(t, defaultOptions(),
		link("a", "http://x.target.org/a", "x.target.org"),
		link("b", "http://x.target.org/b", "x.target.org"),
		link("c", "http://target.org/c", "target.org"),
	)

	require.True(t, h.orch.RunCycle(context.Background()))
	assert.Equal(t, []string{"http://x.target.org/a"}, h.renderer.calls)
	assert.Equal(t, StatusNotFound, h.tracker.Status("http://x.target.org/b"))

	require.True(t, h.orch.RunCycle(context.Background()))
	require.True(t, h.orch.RunCycle(context.Background()))
	assert.False(t, h.orch.RunCycle(context.Background()))

	assert.Equal(t, []string{"http://x.target.org/a", "http://x.target.org/b", "http://target.org/c"}, h.renderer.calls)
	assert.Len(t, h.sink.comments, 3)
}

func TestRunCycle_DomainFilter(t *testing.T) {
	h := newHarness(t, defaultOptions(),
		link("o", "http://othertarget.org/o", "othertarget.org"),
		link("e", "http://evil.com/target.org", "evil.com"),
		link("s", "http://sub.target.org/s", "sub.target.org"),
	)

	require.True(t, h.orch.RunCycle(context.Background()))
	assert.Equal(t, []string{"http://sub.target.org/s"}, h.renderer.calls)

	assert.False(t, h.orch.RunCycle(context.Background()))
	assert.Len(t, h.renderer.calls, 1)
}

func TestRunCycle_ErrorQuarantineLastsOneCycle(t *testing.T) {
	x := "http://x.target.org/x"
	y := "http://x.target.org/y"
	h := newHarness(t, defaultOptions(),
		link("x", x, "x.target.org"),
		link("y", y, "x.target.org"),
	)
	h.renderer.failOnce[x] = fmt.Errorf("%w: %s", repository.ErrRenderTimeout, x)

	// Cycle 1: x fails and aborts the scan.
	assert.False(t, h.orch.RunCycle(context.Background()))
	assert.Equal(t, StatusQuarantined, h.tracker.Status(x))

	// Cycle 2: x is skipped, y goes through, the clean pass lifts the quarantine.
	assert.True(t, h.orch.RunCycle(context.Background()))
	assert.Equal(t, StatusProcessed, h.tracker.Status(y))
	assert.Equal(t, StatusNotFound, h.tracker.Status(x))

	// Cycle 3: x is eligible again.
	assert.True(t, h.orch.RunCycle(context.Background()))
	assert.Equal(t, []string{x, y, x}, h.renderer.calls)
	assert.Equal(t, StatusProcessed, h.tracker.Status(x))
}

func TestRunCycle_SearchFailureKeepsQuarantine(t *testing.T) {
	x := "http://x.target.org/x"
	h := newHarness(t, defaultOptions(), link("x", x, "x.target.org"))
	h.renderer.failOnce[x] = repository.ErrRender

	assert.False(t, h.orch.RunCycle(context.Background()))
	require.Equal(t, StatusQuarantined, h.tracker.Status(x))

	h.source.err = errBoom
	assert.False(t, h.orch.RunCycle(context.Background()))
	assert.Equal(t, StatusQuarantined, h.tracker.Status(x), "an aborted scan must not clear the error set")
	assert.Equal(t, 1, h.tracker.Stats().Quarantined)
}

func TestRunCycle_UploadFailureKeepsFile(t *testing.T) {
	h := newHarness(t, defaultOptions(), link("abc", "http://x.target.org/a", "x.target.org"))
	h.host.err = &repository.UploadError{Code: 108, Message: "Invalid API key"}

	assert.False(t, h.orch.RunCycle(context.Background()))

	require.Len(t, h.renderer.files, 1)
	_, err := os.Stat(h.renderer.files[0])
	assert.NoError(t, err, "file is kept when the upload fails")
	assert.Empty(t, h.sink.comments)
	assert.Empty(t, h.store.saves)
	assert.Equal(t, StatusQuarantined, h.tracker.Status("http://x.target.org/a"))
}

func TestRunCycle_CommentFailureIsNotMarkedProcessed(t *testing.T) {
	a := "http://x.target.org/a"
	h := newHarness(t, defaultOptions(), link("abc", a, "x.target.org"))
	h.sink.err = fmt.Errorf("%w: %w", repository.ErrComment, repository.ErrAuthRequired)

	assert.False(t, h.orch.RunCycle(context.Background()))
	assert.Len(t, h.host.uploads, 1)
	assert.Empty(t, h.store.saves)
	assert.False(t, h.tracker.IsProcessed(a))

	// Next cycle skips it, the one after re-renders and re-uploads.
	h.sink.err = nil
	assert.False(t, h.orch.RunCycle(context.Background()))
	assert.True(t, h.orch.RunCycle(context.Background()))
	assert.Equal(t, []string{a, a}, h.renderer.calls)
	assert.Len(t, h.host.uploads, 2)
	assert.Len(t, h.sink.comments, 2)
	assert.True(t, h.tracker.IsProcessed(a))
}

func TestRunCycle_PersistFailureDoesNotRepeatComment(t *testing.T) {
	a := "http://x.target.org/a"
	h := newHarness(t, defaultOptions(), link("abc", a, "x.target.org"))
	h.store.err = errBoom

	assert.False(t, h.orch.RunCycle(context.Background()))
	assert.True(t, h.tracker.IsProcessed(a))

	h.orch.RunCycle(context.Background())
	h.orch.RunCycle(context.Background())
	assert.Len(t, h.sink.comments, 1)
}

func TestRunCycle_DryRun(t *testing.T) {
	opts := defaultOptions()
	opts.DryRun = true
	a := "http://x.target.org/a"
	h := newHarness(t, opts, link("abc", a, "x.target.org"))

	assert.True(t, h.orch.RunCycle(context.Background()))
	assert.False(t, h.orch.RunCycle(context.Background()))

	assert.Equal(t, []string{a}, h.renderer.calls)
	assert.True(t, h.tracker.IsProcessed(a))
	assert.Empty(t, h.host.uploads)
	assert.Empty(t, h.sink.comments)
	assert.Empty(t, h.store.saves)

	_, err := os.Stat(h.renderer.files[0])
	assert.NoError(t, err, "dry-run leaves the rendered file for inspection")
}

func TestRunCycle_FailuresAreCountedByStage(t *testing.T) {
	tests := []struct {
		name  string
		setup func(h *harness)
		stage string
	}{
		{"search", func(h *harness) { h.source.err = errBoom }, "search"},
		{"render timeout", func(h *harness) {
			h.renderer.failOnce["http://x.target.org/a"] = fmt.Errorf("%w: slow", repository.ErrRenderTimeout)
		}, "render"},
		{"upload", func(h *harness) { h.host.err = &repository.UploadError{Code: 108, Message: "Invalid API key"} }, "upload"},
		{"comment", func(h *harness) { h.sink.err = fmt.Errorf("%w: RATELIMIT", repository.ErrComment) }, "comment"},
		{"persist", func(h *harness) { h.store.err = errBoom }, "persist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, defaultOptions(), link("abc", "http://x.target.org/a", "x.target.org"))
			tt.setup(h)

			assert.False(t, h.orch.RunCycle(context.Background()))
			assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.ErrorsTotal.WithLabelValues(tt.stage)))
			assert.Equal(t, 1, testutil.CollectAndCount(h.metrics.ErrorsTotal), "exactly one stage is charged")
		})
	}
}

func TestErrorStage(t *testing.T) {
	assert.Equal(t, "search", errorStage(fmt.Errorf("%w: bad sort", repository.ErrInvalidSearch)))
	assert.Equal(t, "persist", errorStage(fmt.Errorf("%w: %w", repository.ErrPersist, errBoom)))
	assert.Equal(t, "other", errorStage(errBoom))
}
