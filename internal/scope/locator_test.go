package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	parent := Root("").Narrow(".scope")

	tests := []struct {
		name      string
		own       string
		reset     bool
		container string
		want      string
		wantCont  string
	}{
		{name: "inherits parent verbatim", want: ".scope"},
		{name: "narrows within parent", own: ".inner", want: ".scope .inner"},
		{name: "reset keeps own only", own: ".inner", reset: true, want: ".inner"},
		{name: "reset without own is query root", reset: true, want: ""},
		{name: "container replaces query root", own: "span", container: "#alt", want: ".scope span", wantCont: "#alt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(parent, tt.own, tt.reset, tt.container)
			assert.Equal(t, tt.want, got.String())
			assert.Equal(t, tt.wantCont, got.Container)
		})
	}
}

func TestResolve_InheritsContainer(t *testing.T) {
	parent := Root("#alt").Narrow("div")
	got := Resolve(parent, "span", false, "")
	assert.Equal(t, "#alt", got.Container)

	reset := Resolve(parent, "span", true, "")
	assert.Equal(t, "#alt", reset.Container)
	assert.Equal(t, "span", reset.String())
}

func TestLocator_At(t *testing.T) {
	l := Root("").Narrow(".scope").Narrow("li")
	assert.Equal(t, ".scope li:eq(1)", l.At(1).String())
	assert.Equal(t, ".scope li:eq(1) span", l.At(1).Narrow("span").String())
	assert.Equal(t, ":eq(0)", Root("").At(0).String())

	// indexing an already indexed segment appends a new step
	assert.Equal(t, "li:eq(1) :eq(0)", Root("").Narrow("li").At(1).At(0).String())
}

func TestLocator_Immutable(t *testing.T) {
	base := Root("").Narrow(".a").Narrow(".b")
	first := base.Narrow(".c")
	second := base.Narrow(".d")
	indexed := base.At(2)

	assert.Equal(t, ".a .b", base.String())
	assert.Equal(t, ".a .b .c", first.String())
	assert.Equal(t, ".a .b .d", second.String())
	assert.Equal(t, ".a .b:eq(2)", indexed.String())
	assert.False(t, base.Segments[1].Indexed)
}

func TestLocator_NarrowIgnoresBlank(t *testing.T) {
	l := Root("").Narrow("  ")
	assert.True(t, l.IsRoot())
}
