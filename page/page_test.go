package page

import (
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/dom"
	"github.com/agentic-research/pagetree/internal/dom/htmldoc"
	"github.com/agentic-research/pagetree/internal/tree"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func parse(t *testing.T, html string) *htmldoc.Document {
	t.Helper()
	doc, err := htmldoc.Parse(html)
	require.NoError(t, err)
	return doc
}

func TestExtend(t *testing.T) {
	tests := []struct {
		name      string
		def       api.Definition
		overrides api.Definition
		want      api.Definition
	}{
		{
			name:      "empty overrides yield the normalized definition",
			def:       api.Definition{"scope": ".a", "foo": api.Definition{"bar": "prop"}},
			overrides: api.Definition{},
			want:      api.Definition{"scope": ".a", "foo": api.Definition{"bar": "prop"}},
		},
		{
			name:      "disjoint keys are united",
			def:       api.Definition{"foo": "x"},
			overrides: api.Definition{"bar": api.Definition{"baz": "y"}},
			want:      api.Definition{"foo": "x", "bar": api.Definition{"baz": "y"}},
		},
		{
			name:      "override wins at leaves and merges composites",
			def:       api.Definition{"foo": api.Definition{"bar": api.Definition{"baz": "prop", "keep": "x"}}},
			overrides: api.Definition{"foo": api.Definition{"bar": api.Definition{"baz": "changed"}}},
			want:      api.Definition{"foo": api.Definition{"bar": api.Definition{"baz": "changed", "keep": "x"}}},
		},
		{
			name:      "leaf replaces composite",
			def:       api.Definition{"foo": api.Definition{"bar": "x"}},
			overrides: api.Definition{"foo": "flat"},
			want:      api.Definition{"foo": "flat"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Create(tt.def)
			require.NoError(t, err)

			before := p.Definition()
			got := p.Extend(tt.overrides)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, before, p.Definition())

			again, err := Create(got)
			require.NoError(t, err)
			assert.Equal(t, tt.want, again.Definition())
		})
	}
}

func TestExtend_DoesNotShareMappings(t *testing.T) {
	p, err := Create(api.Definition{"foo": api.Definition{"bar": "x"}})
	require.NoError(t, err)

	ext := p.Extend(nil)
	ext["foo"].(api.Definition)["bar"] = "mutated"
	assert.Equal(t, "x", p.Definition()["foo"].(api.Definition)["bar"])
}

func TestStoredDefinition_IsACopy(t *testing.T) {
	p, err := Create(api.Definition{"foo": api.Definition{"bar": "x"}})
	require.NoError(t, err)

	stored, ok := p.StoredDefinition()
	require.True(t, ok)
	stored["injected"] = "leak"
	stored["foo"].(api.Definition)["bar"] = "mutated"

	want := api.Definition{"foo": api.Definition{"bar": "x"}}
	assert.Equal(t, want, p.Extend(nil))
	assert.Equal(t, want, p.Definition())

	again, _ := p.StoredDefinition()
	assert.Equal(t, want, again)
}

func TestComposition(t *testing.T) {
	child, err := Create(api.Definition{"scope": ".child", "label": "c"})
	require.NoError(t, err)

	parent, err := Create(api.Definition{"scope": ".parent", "somePage": child})
	require.NoError(t, err)

	stored := parent.Definition()
	assert.Equal(t, child.Definition(), stored["somePage"])
	assert.IsType(t, api.Definition{}, stored["somePage"])

	composed := parent.Child("somePage")
	require.NotNil(t, composed)
	_, ok := composed.StoredDefinition()
	assert.False(t, ok)
	assert.Equal(t, ".parent .child", composed.Locator().String())

	ext := parent.Extend(api.Definition{"other": child})
	assert.Equal(t, child.Definition(), ext["other"])
}

func TestCreate_Untracked(t *testing.T) {
	p, err := Create(api.Definition{"a": "b"}, Untracked())
	require.NoError(t, err)

	_, ok := p.StoredDefinition()
	assert.False(t, ok)

	_, err = Create(api.Definition{"embedded": p})
	assert.ErrorIs(t, err, tree.ErrMalformed)
}

func TestScopeResolution(t *testing.T) {
	doc := parse(t, `
<div class="scope"><div class="inner">X</div></div>
<div class="inner">Y</div>`)

	p, err := Create(api.Definition{
		"scope": ".scope",
		"foo": api.Definition{
			"bar": api.Definition{"scope": ".inner", "text": Text("")},
		},
	}, WithContext(doc))
	require.NoError(t, err)

	got, err := p.Child("foo").Child("bar").StringValue(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "X", got)

	reset, err := Create(api.Definition{
		"scope": ".scope",
		"foo": api.Definition{
			"bar": api.Definition{"scope": "body > .inner", "resetScope": true, "text": Text("")},
		},
	}, WithContext(doc))
	require.NoError(t, err)

	got, err = reset.Child("foo").Child("bar").StringValue(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "Y", got)
}

func TestDefaults(t *testing.T) {
	doc := parse(t, `<div id="my-page">My super text <input name="q" value="v"><button>Press Me</button></div>`)
	p, err := Create(api.Definition{
		"scope": "#my-page",
		"input": api.Definition{"scope": "input"},
		"label": api.Definition{"scope": "button", "text": "static"},
	}, WithContext(doc))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Contains(t, p.Keys(), "isVisible")
	assert.NotContains(t, p.Keys(), "scope")

	text, err := p.StringValue(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, "My super text Press Me", text)

	for name, want := range map[string]bool{"isPresent": true, "isVisible": true, "isHidden": false} {
		got, err := p.BoolValue(ctx, name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	contains, err := p.BoolValue(ctx, "contains", "super")
	require.NoError(t, err)
	assert.True(t, contains)

	value, err := p.Child("input").StringValue(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "v", value)

	label, err := p.Child("label").Value(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, "static", label)

	var clicked []string
	doc.OnClick("button", func(_ *htmldoc.Document, el *goquery.Selection) {
		clicked = append(clicked, el.Text())
	})
	require.NoError(t, p.Do(ctx, "clickOn", "Press Me").Err())
	require.NoError(t, p.Do(ctx, "fillIn", "q", "w").Err())
	assert.Equal(t, []string{"Press Me"}, clicked)

	value, err = p.Child("input").StringValue(ctx, "value")
	require.NoError(t, err)
	assert.Equal(t, "w", value)
}

func TestChainedSettling(t *testing.T) {
	ctx := context.Background()
	html := `<button class="a">A</button><button class="b">B</button>`
	def := api.Definition{
		"a": api.Definition{"scope": ".a"},
		"b": api.Definition{"scope": ".b"},
	}

	t.Run("primary calls do not wait", func(t *testing.T) {
		doc := parse(t, html)
		p, err := Create(def, WithContext(doc))
		require.NoError(t, err)

		require.NoError(t, p.Child("a").Do(ctx, "click").Err())
		require.NoError(t, p.Child("a").Do(ctx, "click").Err())
		assert.Equal(t, 0, doc.Settles())
	})

	t.Run("chained calls wait in between", func(t *testing.T) {
		doc := parse(t, html)
		p, err := Create(def, WithContext(doc))
		require.NoError(t, err)

		step := p.Child("a").Do(ctx, "click").Do(ctx, "click")
		require.NoError(t, step.Err())
		assert.Equal(t, 1, doc.Settles())
		assert.True(t, step.Node().IsChained())
		assert.Same(t, p.Chained().Child("a"), step.Node())
	})

	t.Run("chained call sees settled work", func(t *testing.T) {
		doc := parse(t, html)
		p, err := Create(def, WithContext(doc))
		require.NoError(t, err)

		doc.OnClick(".a", func(d *htmldoc.Document, _ *goquery.Selection) {
			d.Defer(func(gd *goquery.Document) { gd.Find(".b").SetAttr("hidden", "") })
		})
		step := p.Child("a").Do(ctx, "click")
		require.NoError(t, step.Err())

		hidden, err := p.Child("b").BoolValue(ctx, "isHidden")
		require.NoError(t, err)
		assert.False(t, hidden)

		require.NoError(t, step.Wait(ctx))
		hidden, err = p.Child("b").BoolValue(ctx, "isHidden")
		require.NoError(t, err)
		assert.True(t, hidden)
	})
}

func TestCollections(t *testing.T) {
	doc := parse(t, `
<ul class="list">
  <li><span class="name">one</span></li>
  <li><span class="name">two</span></li>
</ul>`)
	item, err := Create(api.Definition{"name": Text(".name")})
	require.NoError(t, err)

	p, err := Create(api.Definition{
		"scope": ".list",
		"items": Collection("li", item),
	}, WithContext(doc))
	require.NoError(t, err)
	ctx := context.Background()

	items := p.Collection("items")
	require.NotNil(t, items)

	n, err := items.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	first, err := items.ObjectAt(0)
	require.NoError(t, err)
	same, err := items.ObjectAt(0)
	require.NoError(t, err)
	assert.Same(t, first, same)

	names, err := items.MapBy(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, []any{"one", "two"}, names)

	last, err := items.ObjectAt(-1)
	require.NoError(t, err)
	name, err := last.StringValue(ctx, "name")
	require.NoError(t, err)
	assert.Equal(t, "two", name)

	text, err := first.StringValue(ctx, "text")
	require.NoError(t, err)
	assert.Equal(t, "one", text)

	require.NoError(t, doc.Render(ctx, `<ul class="list"><li><span class="name">only</span></li></ul>`))
	n, err = items.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	beyond, err := items.ObjectAt(5)
	require.NoError(t, err)
	_, err = beyond.Value(ctx, "name")
	assert.Error(t, err)

	stored := p.Definition()["items"].(*api.Collection)
	assert.Equal(t, "li", stored.Scope)
	assert.Len(t, stored.Item, 1)
	assert.Contains(t, stored.Item, "name")
}

func TestCollections_IndependentRebuilds(t *testing.T) {
	def := api.Definition{
		"items": Collection("li", api.Definition{"nested": Collection("span", api.Definition{})}),
	}
	doc := parse(t, `<li><span></span></li>`)

	p1, err := Create(def, WithContext(doc))
	require.NoError(t, err)
	p2, err := Create(def, WithContext(doc))
	require.NoError(t, err)

	it1, err := p1.Collection("items").ObjectAt(3)
	require.NoError(t, err)
	assert.True(t, p1.Collection("items").Materialized().Contains(3))
	assert.True(t, p2.Collection("items").Materialized().IsEmpty())

	it2, err := p2.Collection("items").ObjectAt(3)
	require.NoError(t, err)
	assert.NotSame(t, it1, it2)
	assert.NotSame(t, it1.Collection("nested"), it2.Collection("nested"))

	_, isDescriptor := def["items"].(*api.Collection)
	assert.True(t, isDescriptor)
}

func TestCollections_Options(t *testing.T) {
	doc := parse(t, `<div class="outer"></div><ul id="elsewhere"><li>a</li><li>b</li></ul>`)
	p, err := Create(api.Definition{
		"scope": ".outer",
		"reset": Collection("li", api.Definition{}, ItemsFromRoot()),
		"inner": Collection("li", api.Definition{}),
		"moved": Collection("li", api.Definition{}, ItemsIn("#elsewhere"), ItemsFromRoot()),
	}, WithContext(doc))
	require.NoError(t, err)
	ctx := context.Background()

	for key, want := range map[string]int{"reset": 2, "inner": 0, "moved": 2} {
		n, err := p.Collection(key).Len(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, n, key)
	}
}

func TestContextLifecycle(t *testing.T) {
	doc := parse(t, `<h1>Title</h1>`)
	p, err := Create(api.Definition{"context": doc, "title": Text("h1")})
	require.NoError(t, err)
	ctx := context.Background()

	assert.NotContains(t, p.Keys(), "context")
	_, ok := p.Definition()["context"]
	assert.False(t, ok)

	title, err := p.StringValue(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, "Title", title)

	require.NoError(t, p.Render(ctx, `<h1>Other</h1>`))
	title, err = p.StringValue(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, "Other", title)

	p.RemoveContext()
	_, err = p.Value(ctx, "title")
	assert.ErrorIs(t, err, dom.ErrNoContext)
	assert.ErrorIs(t, p.Render(ctx, ""), dom.ErrNoContext)
	assert.Nil(t, p.Chained().Context())

	other := parse(t, `<h1>Again</h1>`)
	p.SetContext(other)
	assert.Same(t, other, p.Chained().Context())
}

func TestCreateAt(t *testing.T) {
	doc := htmldoc.New(htmldoc.WithRoute("/users/5", `<h1>User 5</h1>`))
	p, err := CreateAt("/users/:id", api.Definition{"title": Text("h1")}, WithContext(doc))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, p.Do(ctx, "visit", Params{"id": 5}).Err())
	assert.Equal(t, "/users/5", doc.URL())

	title, err := p.StringValue(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, "User 5", title)

	composed, err := Create(api.Definition{"scope": ".container", "visitPage": p})
	require.NoError(t, err)
	composed.SetContext(doc)
	require.NoError(t, composed.Child("visitPage").Do(ctx, "visit", Params{"id": 5}).Err())
}
