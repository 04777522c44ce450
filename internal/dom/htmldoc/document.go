// Package htmldoc is an in-memory test context backed by goquery. It renders
// HTML fragments, answers scoped queries and simulates user interaction
// closely enough to exercise page objects without a browser.
package htmldoc

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/agentic-research/pagetree/internal/dom"
	"github.com/agentic-research/pagetree/internal/logging"
	"github.com/agentic-research/pagetree/internal/scope"
)

// Event is one recorded interaction.
type Event struct {
	Type   string
	Target string
	Value  string
}

// Handler reacts to a click on an element matching its selector.
type Handler func(d *Document, el *goquery.Selection)

type handler struct {
	selector string
	fn       Handler
}

// Document is a rendered HTML document acting as a test context.
type Document struct {
	mu       sync.Mutex
	doc      *goquery.Document
	url      string
	routes   map[string]string
	handlers []handler
	pending  []func(doc *goquery.Document)
	events   []Event
	settles  int
	log      logrus.FieldLogger
}

// Option configures a Document.
type Option func(*Document)

// WithRoute renders html when path is visited.
func WithRoute(path, html string) Option {
	return func(d *Document) { d.routes[path] = html }
}

// WithLogger sets the logger interactions are traced to.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Document) { d.log = l }
}

// New returns an empty document.
func New(opts ...Option) *Document {
	d := &Document{routes: make(map[string]string), log: logging.Discard()}
	for _, opt := range opts {
		opt(d)
	}
	d.doc, _ = parse("")
	return d
}

// Parse returns a document rendering html.
func Parse(html string, opts ...Option) (*Document, error) {
	d := New(opts...)
	if err := d.Render(context.Background(), html); err != nil {
		return nil, err
	}
	return d, nil
}

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Render replaces the document with html. Pending work is discarded.
func (d *Document) Render(_ context.Context, html string) error {
	doc, err := parse(html)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.doc = doc
	d.pending = nil
	return nil
}

// HTML returns the current markup.
func (d *Document) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}

// OnClick registers fn for clicks on elements matching selector.
func (d *Document) OnClick(selector string, fn Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers = append(d.handlers, handler{selector: selector, fn: fn})
}

// Defer queues fn until the next Settle, simulating asynchronous work.
func (d *Document) Defer(fn func(doc *goquery.Document)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = append(d.pending, fn)
}

// Pending reports the number of queued jobs.
func (d *Document) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Settle runs queued work until none is left.
func (d *Document) Settle(ctx context.Context) error {
	d.mu.Lock()
	d.settles++
	d.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return nil
		}
		job := d.pending[0]
		d.pending = d.pending[1:]
		doc := d.doc
		d.mu.Unlock()

		job(doc)
	}
}

// Settles reports how often Settle was called.
func (d *Document) Settles() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settles
}

// Events returns the recorded interactions.
func (d *Document) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Event, len(d.events))
	copy(out, d.events)
	return out
}

// URL returns the last visited URL.
func (d *Document) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// Visit navigates to rawURL, rendering its route when one is registered.
func (d *Document) Visit(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("visit %q: %w", rawURL, err)
	}

	d.mu.Lock()
	d.url = rawURL
	html, ok := d.routes[u.Path]
	d.events = append(d.events, Event{Type: "visit", Value: rawURL})
	d.mu.Unlock()

	d.log.WithField("url", rawURL).Debug("visit")
	if !ok {
		return nil
	}
	return d.Render(ctx, html)
}

// Query implements dom.Driver.
func (d *Document) Query(_ context.Context, loc scope.Locator) ([]dom.Element, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	sel := d.doc.Selection
	if loc.Container != "" {
		sel = d.doc.Find(loc.Container)
	}
	for _, seg := range loc.Segments {
		if seg.Selector != "" {
			sel = sel.Find(seg.Selector)
		}
		if seg.Indexed {
			sel = sel.Eq(seg.Index)
		}
	}

	out := make([]dom.Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, &element{doc: d, sel: s})
	})
	return out, nil
}

func (d *Document) record(typ string, sel *goquery.Selection, value string) {
	e := Event{Type: typ, Target: describe(sel), Value: value}
	d.events = append(d.events, e)
	d.log.WithFields(logrus.Fields{"event": e.Type, "target": e.Target}).Debug("interaction")
}

func (d *Document) clickHandlers(sel *goquery.Selection) []Handler {
	var out []Handler
	for _, h := range d.handlers {
		if sel.Is(h.selector) {
			out = append(out, h.fn)
		}
	}
	return out
}

var (
	_ dom.Driver   = (*Document)(nil)
	_ dom.Renderer = (*Document)(nil)
	_ dom.Settler  = (*Document)(nil)
)
