package props

import (
	"context"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/pagetree/api"
	"github.com/agentic-research/pagetree/internal/dom"
	"github.com/agentic-research/pagetree/internal/dom/htmldoc"
	"github.com/agentic-research/pagetree/internal/tree"
)

func build(t *testing.T, def api.Definition, html string) (*tree.Node, *htmldoc.Document) {
	t.Helper()
	doc, err := htmldoc.Parse(html)
	require.NoError(t, err)
	cell := &tree.ContextCell{}
	cell.Store(doc)
	root, err := tree.Build(def, tree.Options{Context: cell, Count: CountElements})
	require.NoError(t, err)
	return root, doc
}

func TestAttribute(t *testing.T) {
	tests := []struct {
		name string
		def  api.Definition
		html string
		want any
	}{
		{
			name: "returns attribute value",
			def:  api.Definition{"foo": Attribute("placeholder", "input")},
			html: `<input placeholder="a value">`,
			want: "a value",
		},
		{
			name: "nil when attribute is absent",
			def:  api.Definition{"foo": Attribute("placeholder", "input")},
			html: `<input>`,
			want: nil,
		},
		{
			name: "looks inside the scope option",
			def:  api.Definition{"foo": Attribute("placeholder", "input", Scope(".scope"))},
			html: `<div><input></div><div class="scope"><input placeholder="a value"></div><div><input></div>`,
			want: "a value",
		},
		{
			name: "looks inside the page scope",
			def:  api.Definition{"scope": ".scope", "foo": Attribute("placeholder", "input")},
			html: `<div><input></div><div class="scope"><input placeholder="a value"></div><div><input></div>`,
			want: "a value",
		},
		{
			name: "resets scope",
			def:  api.Definition{"scope": ".scope", "foo": Attribute("placeholder", "input", ResetScope())},
			html: `<div class="scope"></div><div><input placeholder="a value"></div>`,
			want: "a value",
		},
		{
			name: "returns multiple values",
			def:  api.Definition{"foo": Attribute("placeholder", "input", Multiple())},
			html: `<input placeholder="a value"><input placeholder="other value">`,
			want: []any{"a value", "other value"},
		},
		{
			name: "finds element by index",
			def:  api.Definition{"foo": Attribute("placeholder", "input", At(1))},
			html: `<input><input placeholder="a value">`,
			want: "a value",
		},
		{
			name: "looks inside the test container",
			def:  api.Definition{"foo": Attribute("placeholder", "input", TestContainer("#alt"))},
			html: `<input placeholder="main"><div id="alt"><input placeholder="alt"></div>`,
			want: "alt",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, _ := build(t, tt.def, tt.html)
			got, err := root.Value(context.Background(), "foo")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAttribute_Errors(t *testing.T) {
	ctx := context.Background()

	root, _ := build(t, api.Definition{
		"foo": api.Definition{"bar": api.Definition{"baz": api.Definition{
			"qux": Attribute("placeholder", "input"),
		}}},
	}, `<p></p>`)
	baz := root.Child("foo").Child("bar").Child("baz")
	_, err := baz.Value(ctx, "qux")
	require.ErrorIs(t, err, ErrElementNotFound)
	assert.Contains(t, err.Error(), "page.foo.bar.baz.qux")

	var qe *QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "input", qe.Selector)

	root, _ = build(t, api.Definition{"foo": Attribute("placeholder", "input")},
		`<input placeholder="a value"><input placeholder="other value">`)
	_, err = root.Value(ctx, "foo")
	assert.ErrorIs(t, err, ErrMultipleElements)
}

func TestQueries(t *testing.T) {
	html := `
<div class="card active" id="c1">
  <h2>  Hello
     world </h2>
  <p hidden>secret</p>
  <input value="v1">
  <span>a</span><span>b</span>
</div>`
	root, _ := build(t, api.Definition{
		"scope":     ".card",
		"title":     Text("h2"),
		"rawTitle":  Text("h2", Raw()),
		"spans":     Text("span", Multiple()),
		"input":     Value("input"),
		"active":    HasClass("active", ""),
		"closed":    HasClass("closed", ""),
		"secretVis": IsVisible("p"),
		"secretHid": IsHidden("p"),
		"ghostHid":  IsHidden(".ghost"),
		"present":   IsPresent("h2"),
		"ghost":     IsPresent(".ghost"),
		"spanCount": Count("span"),
		"has":       Contains(""),
	}, html)
	ctx := context.Background()

	tests := []struct {
		key  string
		args []any
		want any
	}{
		{"title", nil, "Hello world"},
		{"spans", nil, []string{"a", "b"}},
		{"input", nil, "v1"},
		{"active", nil, true},
		{"closed", nil, false},
		{"secretVis", nil, false},
		{"secretHid", nil, true},
		{"ghostHid", nil, true},
		{"present", nil, true},
		{"ghost", nil, false},
		{"spanCount", nil, 2},
		{"has", []any{"Hello   world"}, true},
		{"has", []any{"nope"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := root.Value(ctx, tt.key, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	raw, err := root.StringValue(ctx, "rawTitle")
	require.NoError(t, err)
	assert.Contains(t, raw, "\n")

	_, err = root.Value(ctx, "has")
	assert.Error(t, err)
}

func TestQueries_NoContext(t *testing.T) {
	root, err := tree.Build(api.Definition{"title": Text("h1")}, tree.Options{})
	require.NoError(t, err)

	_, err = root.Value(context.Background(), "title")
	assert.ErrorIs(t, err, dom.ErrNoContext)
}

func TestActions(t *testing.T) {
	html := `
<form>
  <label>Name <input name="name"></label>
  <input placeholder="Email">
  <textarea data-test="bio"></textarea>
  <select id="color"><option value="r">Red</option><option value="g">Green</option></select>
  <div class="menu"><a>Home</a><a>About us</a></div>
  <button class="save">Save</button>
</form>`
	root, doc := build(t, api.Definition{
		"scope":  "form",
		"save":   Clickable(".save"),
		"menu":   ClickOnText(".menu"),
		"fill":   Fillable(""),
		"email":  Fillable("input", At(1)),
		"color":  Selectable("#color"),
		"focus":  Focusable("textarea"),
		"blur":   Blurrable("textarea"),
		"ghost":  Clickable(".ghost"),
		"onSelf": ClickOnText(".save"),
	}, html)
	ctx := context.Background()

	var clicked []string
	doc.OnClick("a, button", func(_ *htmldoc.Document, el *goquery.Selection) {
		clicked = append(clicked, el.Text())
	})

	require.NoError(t, root.Do(ctx, "save").Err())
	require.NoError(t, root.Do(ctx, "menu", "About").Err())
	require.NoError(t, root.Do(ctx, "onSelf", "Save").Err())
	assert.Equal(t, []string{"Save", "About us", "Save"}, clicked)

	require.NoError(t, root.Do(ctx, "fill", "name", "John").Err())
	require.NoError(t, root.Do(ctx, "fill", "Email", "j@x.io").Err())
	require.NoError(t, root.Do(ctx, "fill", "bio", "hi").Err())
	require.NoError(t, root.Do(ctx, "email", "k@x.io").Err())
	require.NoError(t, root.Do(ctx, "color", "Green").Err())
	require.NoError(t, root.Do(ctx, "focus").Err())
	require.NoError(t, root.Do(ctx, "blur").Err())

	err := root.Do(ctx, "ghost").Err()
	require.ErrorIs(t, err, ErrElementNotFound)
	assert.Contains(t, err.Error(), "page.ghost")

	assert.Error(t, root.Do(ctx, "menu", "Contact").Err())
	assert.Error(t, root.Do(ctx, "fill").Err())

	var fills []string
	for _, e := range doc.Events() {
		if e.Type == "change" {
			fills = append(fills, e.Target+"="+e.Value)
		}
	}
	assert.Equal(t, []string{"input=John", "input=j@x.io", "textarea=hi", "input=k@x.io", "select#color=Green"}, fills)
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		params  Params
		want    string
		wantErr string
	}{
		{name: "static", path: "/html-render", want: "/html-render"},
		{name: "dynamic segments", path: "/users/:user_id/comments/:comment_id", params: Params{"user_id": 5, "comment_id": 1}, want: "/users/5/comments/1"},
		{name: "query params", path: "/html-render", params: Params{"lorem": "ipsum", "hello": "world"}, want: "/html-render?hello=world&lorem=ipsum"},
		{name: "segments and query", path: "/users/:user_id", params: Params{"user_id": 5, "hello": "world"}, want: "/users/5?hello=world"},
		{name: "encoded segment", path: "/users/:user_id/comments/:comment_id", params: Params{"user_id": "a/user", "comment_id": 1}, want: "/users/a%2Fuser/comments/1"},
		{name: "missing segment", path: "/users/:user_id", wantErr: "Missing parameter for 'user_id'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildURL(tt.path, tt.params)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVisitable(t *testing.T) {
	root, doc := build(t, api.Definition{
		"visit": Visitable("/users/:user_id"),
	}, ``)
	ctx := context.Background()

	require.NoError(t, root.Do(ctx, "visit", Params{"user_id": 5}).Err())
	assert.Equal(t, "/users/5", doc.URL())

	require.NoError(t, root.Do(ctx, "visit", map[string]any{"user_id": "x", "tab": "info"}).Err())
	assert.Equal(t, "/users/x?tab=info", doc.URL())

	err := root.Do(ctx, "visit").Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Missing parameter for 'user_id'")

	assert.Error(t, root.Do(ctx, "visit", 42).Err())
}

func TestCountElements(t *testing.T) {
	root, err := tree.Build(api.Definition{
		"scope": "ul",
		"items": tree.NewCollectionSpec(&api.Collection{Scope: "li"}, api.Definition{"label": Text("")}),
	}, tree.Options{Count: CountElements})
	require.NoError(t, err)

	_, err = root.Collection("items").Len(context.Background())
	assert.ErrorIs(t, err, dom.ErrNoContext)

	items, _ := build(t, api.Definition{
		"scope": "ul",
		"items": tree.NewCollectionSpec(&api.Collection{Scope: "li"}, api.Definition{"label": Text("")}),
	}, `<ul><li>a</li><li> b </li></ul><li>c</li>`)

	c := items.Collection("items")
	n, err := c.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	labels, err := c.MapBy(context.Background(), "label")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, labels)
}
