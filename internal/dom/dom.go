// Package dom defines the document access a page object needs from its test
// context. Implementations live in subpackages.
package dom

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentic-research/pagetree/internal/scope"
)

// ErrNoContext reports a leaf read or action without a usable test context.
var ErrNoContext = errors.New("page object has no test context; call SetContext first")

// Element is one matched DOM element.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute reports the attribute value and whether it is present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	Value(ctx context.Context) (string, error)
	Visible(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
	// Fill sets the value of an input or textarea, or selects the matching
	// option of a select.
	Fill(ctx context.Context, value string) error
	Focus(ctx context.Context) error
	Blur(ctx context.Context) error
}

// Driver queries and navigates the application under test.
type Driver interface {
	// Query returns the elements matched by loc in document order.
	Query(ctx context.Context, loc scope.Locator) ([]Element, error)
	Visit(ctx context.Context, url string) error
}

// Renderer replaces the current document.
type Renderer interface {
	Render(ctx context.Context, html string) error
}

// Settler reports when the application has finished its pending work.
type Settler interface {
	Settle(ctx context.Context) error
}

// From extracts the driver from a test context.
func From(testContext any) (Driver, error) {
	if testContext == nil {
		return nil, ErrNoContext
	}
	d, ok := testContext.(Driver)
	if !ok {
		return nil, fmt.Errorf("%w: %T does not query documents", ErrNoContext, testContext)
	}
	return d, nil
}
