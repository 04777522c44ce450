// Package scope composes DOM query locators.
//
// A Locator is resolved once per node at build time. Narrowing means "elements
// matching the selector within the elements matched so far", never string
// concatenation, so index qualification (the i-th match) composes at any depth.
package scope

import (
	"fmt"
	"strings"
)

// Segment is one narrowing step of a locator.
type Segment struct {
	Selector string
	Index    int
	Indexed  bool
}

// Locator is an immutable query path from the query root.
// An empty Container means the default query root.
type Locator struct {
	Container string
	Segments  []Segment
}

// Root returns the locator matching the whole test container.
func Root(container string) Locator {
	return Locator{Container: container}
}

// Resolve computes the locator of a node from its parent locator, its own declared
// scope and its reset flag. A non-empty container replaces the parent's container.
//
//   - reset: own alone, from the query root (the query root itself when own is empty)
//   - own present: own within parent
//   - otherwise: parent unchanged
func Resolve(parent Locator, own string, reset bool, container string) Locator {
	if container == "" {
		container = parent.Container
	}
	if reset {
		return Root(container).Narrow(own)
	}
	out := parent.with(container)
	return out.Narrow(own)
}

func (l Locator) with(container string) Locator {
	return Locator{Container: container, Segments: l.Segments}
}

// Narrow returns the locator of elements matching sel within l.
// An empty selector leaves the locator unchanged.
func (l Locator) Narrow(sel string) Locator {
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return l
	}
	return l.push(Segment{Selector: sel})
}

// At returns the locator of the i-th element matched by l.
func (l Locator) At(i int) Locator {
	if n := len(l.Segments); n > 0 && !l.Segments[n-1].Indexed {
		segs := l.copySegments(0)
		segs[n-1].Index = i
		segs[n-1].Indexed = true
		return Locator{Container: l.Container, Segments: segs}
	}
	return l.push(Segment{Index: i, Indexed: true})
}

func (l Locator) push(s Segment) Locator {
	segs := l.copySegments(1)
	segs = append(segs, s)
	return Locator{Container: l.Container, Segments: segs}
}

// copySegments never aliases the receiver's backing array.
func (l Locator) copySegments(extra int) []Segment {
	segs := make([]Segment, len(l.Segments), len(l.Segments)+extra)
	copy(segs, l.Segments)
	return segs
}

// IsRoot reports whether l matches the query root.
func (l Locator) IsRoot() bool {
	return len(l.Segments) == 0
}

// String renders l in jQuery-like notation, e.g. ".scope li:eq(1) span".
func (l Locator) String() string {
	parts := make([]string, 0, len(l.Segments))
	for _, s := range l.Segments {
		switch {
		case s.Indexed && s.Selector == "":
			parts = append(parts, fmt.Sprintf(":eq(%d)", s.Index))
		case s.Indexed:
			parts = append(parts, fmt.Sprintf("%s:eq(%d)", s.Selector, s.Index))
		default:
			parts = append(parts, s.Selector)
		}
	}
	return strings.Join(parts, " ")
}
