package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/yourusername/linkedin-connect/internal/logger"
)

const (
	// collectLabelsJS returns the aria-label of every button-like element in
	// document order, so the match can run on the Go side.
	collectLabelsJS = `() => Array.from(document.querySelectorAll('button, [role="button"]'))
		.map(b => b.getAttribute('aria-label') || '')`

	// activateJS clicks the button at index i if it still carries label.
	// The page may re-render between the scan and the click, so otherwise it
	// falls back to the first button with that exact label.
	activateJS = `(i, label) => {
		const buttons = Array.from(document.querySelectorAll('button, [role="button"]'));
		const labelOf = b => b.getAttribute('aria-label') || '';
		let btn = buttons[i];
		if (!btn || labelOf(btn) !== label) btn = buttons.find(b => labelOf(b) === label);
		if (!btn) return false;
		btn.scrollIntoView({block: 'center'});
		btn.click();
		return true;
	}`
)

// Options configures how RodDriver launches browsers.
type Options struct {
	Headless   bool
	SlowMotion time.Duration
	// BinPath overrides browser discovery. Empty means the system Chrome,
	// falling back to the browser rod downloads.
	BinPath string
	Stealth bool
}

// RodDriver launches a dedicated Chrome process for every session.
type RodDriver struct {
	opts Options
}

// NewRodDriver creates a driver with the given launch options
func NewRodDriver(opts Options) *RodDriver {
	return &RodDriver{opts: opts}
}

// Acquire launches a fresh browser with its own temporary profile and opens
// one incognito page in it.
func (d *RodDriver) Acquire(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l := d.newLauncher()

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	sess := &rodSession{launcher: l}

	b := rod.New().ControlURL(controlURL).SlowMotion(d.opts.SlowMotion)
	if err := b.Connect(); err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	sess.browser = b

	incognito, err := b.Incognito()
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to open incognito context: %w", err)
	}

	var page *rod.Page
	if d.opts.Stealth {
		page, err = stealth.Page(incognito)
	} else {
		page, err = incognito.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		sess.Close()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	if d.opts.Stealth {
		if err := disguise(page); err != nil {
			logger.Warn("Failed to apply fingerprint settings", "error", err)
		}
	}

	sess.page = &rodPage{page: page}

	logger.Debug("Browser session acquired", "headless", d.opts.Headless, "slow_motion", d.opts.SlowMotion)
	return sess, nil
}

func (d *RodDriver) newLauncher() *launcher.Launcher {
	l := launcher.New()
	if d.opts.BinPath != "" {
		l = l.Bin(d.opts.BinPath)
	} else if path, exists := launcher.LookPath(); exists {
		l = l.Bin(path)
	}

	return l.Headless(d.opts.Headless).
		Devtools(false).
		Leakless(false).
		Set(flags.Flag("user-agent"), RandomizeUserAgent())
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rodPage

	once     sync.Once
	closeErr error
}

func (s *rodSession) Page() Page {
	return s.page
}

func (s *rodSession) Close() error {
	s.once.Do(func() {
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		// Cleanup waits for the process to exit and removes the temporary
		// user data dir, so nothing leaks into the next session.
		s.launcher.Kill()
		s.launcher.Cleanup()
	})
	return s.closeErr
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Navigate(ctx context.Context, url string, until WaitUntil) error {
	pg := p.page.Context(ctx)

	if until == WaitDOMContentLoaded {
		wait := pg.WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)
		if err := pg.Navigate(url); err != nil {
			return withDeadline(ctx, err)
		}
		wait()
		return ctx.Err()
	}

	if err := pg.Navigate(url); err != nil {
		return withDeadline(ctx, err)
	}
	return withDeadline(ctx, pg.WaitLoad())
}

func (p *rodPage) Fill(ctx context.Context, selector, text string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return withDeadline(ctx, err)
	}
	if err := el.SelectAllText(); err != nil {
		return withDeadline(ctx, err)
	}
	return withDeadline(ctx, el.Input(text))
}

func (p *rodPage) Click(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return withDeadline(ctx, err)
	}
	return withDeadline(ctx, el.Click(proto.InputMouseButtonLeft, 1))
}

func (p *rodPage) WaitVisible(ctx context.Context, selector string) error {
	el, err := p.page.Context(ctx).Element(selector)
	if err != nil {
		return withDeadline(ctx, err)
	}
	return withDeadline(ctx, el.WaitVisible())
}

func (p *rodPage) ClickText(ctx context.Context, selector, pattern string) error {
	el, err := p.page.Context(ctx).ElementR(selector, pattern)
	if err != nil {
		return withDeadline(ctx, err)
	}
	return withDeadline(ctx, el.Click(proto.InputMouseButtonLeft, 1))
}

func (p *rodPage) ActivateByLabel(ctx context.Context, match LabelMatch) (bool, error) {
	pg := p.page.Context(ctx)

	res, err := pg.Eval(collectLabelsJS)
	if err != nil {
		return false, withDeadline(ctx, err)
	}

	values := res.Value.Arr()
	labels := make([]string, 0, len(values))
	for _, v := range values {
		labels = append(labels, v.Str())
	}

	idx := pickLabel(labels, match)
	if idx < 0 {
		logger.Debug("No button label matched", "buttons", len(labels))
		return false, nil
	}

	res, err = pg.Eval(activateJS, idx, labels[idx])
	if err != nil {
		return false, withDeadline(ctx, err)
	}
	return res.Value.Bool(), nil
}

// withDeadline makes sure an error caused by ctx expiring wraps ctx.Err(),
// whatever shape rod reported it in.
func withDeadline(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %v", ctxErr, err)
	}
	return err
}
