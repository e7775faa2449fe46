package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const navigationGrace = 2 * time.Second

type Options struct {
	Headless    bool
	UserAgent   string
	IdleTimeout time.Duration
	// NavigationsPerSecond paces Navigate calls; zero or less disables pacing.
	NavigationsPerSecond float64
}

// Chrome drives a single headless Chrome tab through chromedp.
type Chrome struct {
	ctx    context.Context
	cancel context.CancelFunc

	mainFrame   cdp.FrameID
	idleTimeout time.Duration
	limiter     *rate.Limiter
	log         *zap.Logger
}

var _ Page = (*Chrome)(nil)

func NewChrome(opts Options, log *zap.Logger) (*Chrome, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("force-device-scale-factor", "1"),
		chromedp.Flag("window-size", "1920,1080"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		log.Debug("chromedp", zap.String("message", fmt.Sprintf(format, v...)))
	}))

	c := &Chrome{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		idleTimeout: opts.IdleTimeout,
		limiter:     rate.NewLimiter(rate.Inf, 1),
		log:         log,
	}
	if c.idleTimeout <= 0 {
		c.idleTimeout = 30 * time.Second
	}
	if opts.NavigationsPerSecond > 0 {
		burst := int(math.Max(1, math.Ceil(opts.NavigationsPerSecond)))
		c.limiter = rate.NewLimiter(rate.Limit(opts.NavigationsPerSecond), burst)
	}

	// The first Run starts the browser process.
	err := chromedp.Run(tabCtx,
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			c.mainFrame = tree.Frame.ID
			return nil
		}),
	)
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	log.Debug("browser started", zap.Bool("headless", opts.Headless))
	return c, nil
}

// run executes actions on the tab, aborting them if ctx ends. Cancelling the
// derived context stops the actions without closing the tab.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(c.ctx)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

type idleWatch struct {
	started chan struct{}
	idle    chan struct{}
	stop    context.CancelFunc
}

// watchIdle must be armed before the action that triggers a navigation so
// that no lifecycle event is missed.
func (c *Chrome) watchIdle() *idleWatch {
	listenCtx, cancel := context.WithCancel(c.ctx)
	w := &idleWatch{
		started: make(chan struct{}),
		idle:    make(chan struct{}),
		stop:    cancel,
	}

	var startOnce, idleOnce sync.Once
	var mu sync.Mutex
	seenInit := false

	chromedp.ListenTarget(listenCtx, func(ev interface{}) {
		e, ok := ev.(*page.EventLifecycleEvent)
		if !ok || e.FrameID != c.mainFrame {
			return
		}

		mu.Lock()
		defer mu.Unlock()
		switch e.Name {
		case "init":
			seenInit = true
			startOnce.Do(func() { close(w.started) })
		case "networkIdle":
			if seenInit {
				idleOnce.Do(func() { close(w.idle) })
			}
		}
	})

	return w
}

func (c *Chrome) waitIdle(ctx context.Context, w *idleWatch, mayNotNavigate bool) error {
	if mayNotNavigate {
		grace := time.NewTimer(navigationGrace)
		defer grace.Stop()

		select {
		case <-w.started:
		case <-grace.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	timeout := time.NewTimer(c.idleTimeout)
	defer timeout.Stop()

	select {
	case <-w.idle:
		return nil
	case <-timeout.C:
		c.log.Warn("network did not go idle, continuing", zap.Duration("timeout", c.idleTimeout))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	w := c.watchIdle()
	defer w.stop()

	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	return c.waitIdle(ctx, w, false)
}

func (c *Chrome) Location(ctx context.Context) (string, error) {
	var loc string
	err := c.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (c *Chrome) HTML(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, chromedp.OuterHTML(`html`, &html, chromedp.ByQuery))
	return html, err
}

func (c *Chrome) WaitReady(ctx context.Context, sel string) error {
	return c.run(ctx, chromedp.WaitReady(sel, chromedp.ByQuery))
}

func (c *Chrome) SetValue(ctx context.Context, sel, value string) error {
	return c.run(ctx,
		chromedp.WaitReady(sel, chromedp.ByQuery),
		chromedp.SetValue(sel, "", chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
}

func (c *Chrome) Click(ctx context.Context, sel string) error {
	w := c.watchIdle()
	defer w.stop()

	if err := c.run(ctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("click %s: %w", sel, err)
	}

	return c.waitIdle(ctx, w, true)
}

func (c *Chrome) Checkboxes(ctx context.Context, sel string) ([]Checkbox, error) {
	quoted, err := json.Marshal(sel)
	if err != nil {
		return nil, err
	}

	script := fmt.Sprintf(
		`Array.from(document.querySelectorAll(%s)).map(el => ({value: el.value, checked: el.checked}))`,
		quoted,
	)

	var boxes []Checkbox
	if err := c.run(ctx, chromedp.Evaluate(script, &boxes)); err != nil {
		return nil, err
	}

	return boxes, nil
}

// Toggle clicks through the DOM rather than the mouse, since styled
// checkboxes are often hidden behind a label.
func (c *Chrome) Toggle(ctx context.Context, sel string) error {
	quoted, err := json.Marshal(sel)
	if err != nil {
		return err
	}

	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%s); if (!el) return false; el.click(); return true; })()`,
		quoted,
	)

	var found bool
	if err := c.run(ctx, chromedp.Evaluate(script, &found)); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%s: %w", sel, ErrNotFound)
	}

	return nil
}

func (c *Chrome) Close() error {
	err := chromedp.Cancel(c.ctx)
	c.cancel()
	return err
}
