package props

import "github.com/agentic-research/pagetree/api"

// Defaults returns the leaves every page object node offers unless its
// definition provides its own. They all act on the node's own scope.
func Defaults() api.Definition {
	return api.Definition{
		"isPresent": IsPresent(""),
		"isVisible": IsVisible(""),
		"isHidden":  IsHidden(""),
		"text":      Text(""),
		"value":     Value(""),
		"contains":  Contains(""),
		"click":     Clickable(""),
		"clickOn":   ClickOnText(""),
		"fillIn":    Fillable(""),
		"select":    Selectable(""),
		"focus":     Focusable(""),
		"blur":      Blurrable(""),
	}
}
