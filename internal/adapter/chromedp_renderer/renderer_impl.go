package chromedp_renderer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/user/snapbot/internal/repository"
	"github.com/user/snapbot/pkg/proxy"
	"github.com/user/snapbot/pkg/utils"
)

// Options configures the headless browser.
type Options struct {
	ViewportWidth  int
	ViewportHeight int
	// ExecPath overrides the Chrome binary lookup.
	ExecPath string
}

// ChromedpRenderer renders pages in one long-lived headless Chrome, one tab
// per render.
type ChromedpRenderer struct {
	allocCtx     context.Context
	allocCancel  context.CancelFunc
	browserCtx   context.Context
	browserClose context.CancelFunc
	opts         Options
	logger       *zap.Logger

	startMu sync.Mutex
	started bool
}

var _ repository.Renderer = (*ChromedpRenderer)(nil)

// NewChromedpRenderer starts the browser allocator. Chrome itself is
// launched by the first render.
func NewChromedpRenderer(opts Options, pm *proxy.Manager, logger *zap.Logger) *ChromedpRenderer {
	if opts.ViewportWidth <= 0 {
		opts.ViewportWidth = 800
	}
	if opts.ViewportHeight <= 0 {
		opts.ViewportHeight = 600
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(opts.ViewportWidth, opts.ViewportHeight),
	)
	if pm != nil {
		if ua := pm.GetUserAgent(); ua != "" {
			allocOpts = append(allocOpts, chromedp.UserAgent(ua))
		}
		if p := pm.GetProxy(); p != "" {
			allocOpts = append(allocOpts, chromedp.ProxyServer(p))
		}
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserClose := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(logger.Sugar().Debugf),
		chromedp.WithErrorf(logger.Sugar().Debugf),
	)

	return &ChromedpRenderer{
		allocCtx:     allocCtx,
		allocCancel:  allocCancel,
		browserCtx:   browserCtx,
		browserClose: browserClose,
		opts:         opts,
		logger:       logger,
	}
}

// Render loads url and writes a full-page PNG to a temporary file. The
// render is abandoned once timeout elapses or ctx is cancelled.
func (r *ChromedpRenderer) Render(ctx context.Context, url string, timeout time.Duration) (string, error) {
	if err := r.ensureBrowser(); err != nil {
		return "", fmt.Errorf("%w: failed to start browser: %v", repository.ErrRender, err)
	}

	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	// The browser context is rooted in Background, so tie the tab to the
	// caller's cancellation as well as the render deadline.
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, timeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	startTime := time.Now()

	var png []byte
	err := chromedp.Run(tabCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDeviceMetricsOverride(int64(r.opts.ViewportWidth), int64(r.opts.ViewportHeight), 1, false).Do(ctx)
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			png, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithCaptureBeyondViewport(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		if errors.Is(tabCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %s after %s", repository.ErrRenderTimeout, url, timeout)
		}
		return "", fmt.Errorf("%w: %s: %v", repository.ErrRender, url, err)
	}

	path, err := writeTemp(url, png)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", repository.ErrRender, url, err)
	}

	r.logger.Debug("rendered page",
		zap.String("url", url),
		zap.String("file", path),
		zap.Int("bytes", len(png)),
		zap.Duration("took", time.Since(startTime)),
	)
	return path, nil
}

// ensureBrowser launches Chrome on the browser context so later tabs share it
// instead of each starting a browser of its own.
func (r *ChromedpRenderer) ensureBrowser() error {
	r.startMu.Lock()
	defer r.startMu.Unlock()
	if r.started {
		return nil
	}
	if err := chromedp.Run(r.browserCtx); err != nil {
		return err
	}
	r.started = true
	return nil
}

func writeTemp(url string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty screenshot")
	}
	f, err := os.CreateTemp("", "webshot-"+utils.HashURL(url)[:12]+"-*.png")
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// Close shuts the browser down.
func (r *ChromedpRenderer) Close() error {
	r.browserClose()
	r.allocCancel()
	return nil
}
