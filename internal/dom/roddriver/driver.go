// Package roddriver runs page objects against a real browser through go-rod.
package roddriver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/sirupsen/logrus"

	"github.com/agentic-research/pagetree/internal/dom"
	"github.com/agentic-research/pagetree/internal/logging"
	"github.com/agentic-research/pagetree/internal/scope"
)

// queryJS evaluates a locator inside the page. Narrowing unions the matches
// of every element matched so far, in document order, the way jQuery's find does.
const queryJS = `(container, segments) => {
	let set = container ? Array.from(document.querySelectorAll(container)) : [document.documentElement];
	for (const seg of segments) {
		if (seg.selector) {
			const next = new Set();
			for (const el of set) {
				for (const m of el.querySelectorAll(seg.selector)) next.add(m);
			}
			set = Array.from(next).sort((a, b) =>
				a.compareDocumentPosition(b) & Node.DOCUMENT_POSITION_FOLLOWING ? -1 : 1);
		}
		if (seg.indexed) {
			const i = seg.index < 0 ? set.length + seg.index : seg.index;
			set = i >= 0 && i < set.length ? [set[i]] : [];
		}
	}
	return set;
}`

// Config configures a browser connection.
type Config struct {
	// ControlURL attaches to a running browser; empty launches one.
	ControlURL  string
	Headless    bool
	NavTimeout  time.Duration
	IdleTimeout time.Duration
}

// Driver is a browser tab acting as a test context.
type Driver struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     Config
	log     logrus.FieldLogger
}

// Connect starts or attaches to a browser and opens a blank tab.
func Connect(ctx context.Context, cfg Config, log logrus.FieldLogger) (*Driver, error) {
	controlURL := cfg.ControlURL
	if controlURL == "" {
		u, err := launcher.New().Headless(cfg.Headless).Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return New(browser, page, cfg, log), nil
}

// New wraps an existing tab.
func New(browser *rod.Browser, page *rod.Page, cfg Config, log logrus.FieldLogger) *Driver {
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 5 * time.Second
	}
	return &Driver{browser: browser, page: page, cfg: cfg, log: logging.OrDiscard(log)}
}

// Close closes the tab and the browser.
func (d *Driver) Close() error {
	_ = d.page.Close()
	if d.browser == nil {
		return nil
	}
	return d.browser.Close()
}

type segment struct {
	Selector string `json:"selector"`
	Index    int    `json:"index"`
	Indexed  bool   `json:"indexed"`
}

// Query implements dom.Driver.
func (d *Driver) Query(ctx context.Context, loc scope.Locator) ([]dom.Element, error) {
	segs := make([]segment, len(loc.Segments))
	for i, s := range loc.Segments {
		segs[i] = segment{Selector: s.Selector, Index: s.Index, Indexed: s.Indexed}
	}
	els, err := d.page.Context(ctx).ElementsByJS(rod.Eval(queryJS, loc.Container, segs))
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", loc.String(), err)
	}
	out := make([]dom.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out, nil
}

// Visit implements dom.Driver.
func (d *Driver) Visit(ctx context.Context, url string) error {
	p := d.page.Context(ctx).Timeout(d.cfg.NavTimeout)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("visit %q: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("visit %q: %w", url, err)
	}
	d.log.WithField("url", url).Debug("visit")
	return nil
}

// Render implements dom.Renderer.
func (d *Driver) Render(ctx context.Context, html string) error {
	if err := d.page.Context(ctx).SetDocumentContent(html); err != nil {
		return fmt.Errorf("render: %w", err)
	}
	return nil
}

// Settle waits until the page has been idle for a moment.
func (d *Driver) Settle(ctx context.Context) error {
	if err := d.page.Context(ctx).WaitIdle(d.cfg.IdleTimeout); err != nil {
		return fmt.Errorf("wait idle: %w", err)
	}
	return nil
}

var (
	_ dom.Driver   = (*Driver)(nil)
	_ dom.Renderer = (*Driver)(nil)
	_ dom.Settler  = (*Driver)(nil)
)
