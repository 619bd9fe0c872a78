package browser

import (
	"strings"

	"golang.org/x/text/cases"
)

// MatchMode selects how element text is compared to a fragment.
type MatchMode int

const (
	// MatchContains is the has-text rule: the fragment occurs anywhere in
	// the element's text.
	MatchContains MatchMode = iota
	// MatchExact requires the whole element text to equal the fragment.
	MatchExact
)

// Probe is a snapshot of one element, collected in document order.
// Parent is the index of the nearest probed ancestor, or -1.
type Probe struct {
	Text           string  `json:"text"`
	Width          float64 `json:"width"`
	Height         float64 `json:"height"`
	Opacity        float64 `json:"opacity"`
	Display        string  `json:"display"`
	Visibility     string  `json:"visibility"`
	AncestorHidden bool    `json:"ancestorHidden"`
	Parent         int     `json:"parent"`
}

// Visible is true when the element occupies space and is not hidden by its
// own style or by a collapsed ancestor.
func (p Probe) Visible() bool {
	switch {
	case p.AncestorHidden:
		return false
	case p.Width <= 0 || p.Height <= 0:
		return false
	case p.Display == "none":
		return false
	case p.Visibility == "hidden" || p.Visibility == "collapse":
		return false
	case p.Opacity <= 0:
		return false
	}
	return true
}

// NormalizeText collapses runs of whitespace the way rendered text does.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Matches applies the text rule. Comparison is whitespace-normalised and
// Unicode case-folded, so "valène" matches "VALÈNE".
func Matches(text, fragment string, mode MatchMode) bool {
	fold := cases.Fold()
	t := fold.String(NormalizeText(text))
	f := fold.String(NormalizeText(fragment))
	if mode == MatchExact {
		return t == f
	}
	return strings.Contains(t, f)
}

// First returns the index of the first visible probe matching fragment, or
// -1. Probes are in document order, so this is the first-match-wins rule.
func First(probes []Probe, fragment string, mode MatchMode) int {
	for i, p := range probes {
		if p.Visible() && Matches(p.Text, fragment, mode) {
			return i
		}
	}
	return -1
}

// Innermost returns the indexes of matching probes that have no matching
// descendant. Ancestors always contain their children's text, so only the
// innermost matches say anything about where the text is rendered.
func Innermost(probes []Probe, fragment string, mode MatchMode) []int {
	matched := make([]bool, len(probes))
	for i, p := range probes {
		matched[i] = Matches(p.Text, fragment, mode)
	}

	outer := make([]bool, len(probes))
	for i := range probes {
		if !matched[i] {
			continue
		}
		for parent := probes[i].Parent; parent >= 0 && parent < len(probes); parent = probes[parent].Parent {
			if outer[parent] {
				break
			}
			outer[parent] = true
		}
	}

	var idx []int
	for i := range probes {
		if matched[i] && !outer[i] {
			idx = append(idx, i)
		}
	}
	return idx
}

// AnyVisible reports whether any innermost match is visible.
func AnyVisible(probes []Probe, fragment string, mode MatchMode) bool {
	for _, i := range Innermost(probes, fragment, mode) {
		if probes[i].Visible() {
			return true
		}
	}
	return false
}

// VisibleTexts returns the normalised text of every visible probe.
func VisibleTexts(probes []Probe) []string {
	var out []string
	for _, p := range probes {
		if p.Visible() {
			out = append(out, NormalizeText(p.Text))
		}
	}
	return out
}

// Expanded is the collapsible-panel rule: content counts as expanded only
// when it is rendered with extent and opacity.
func Expanded(content *Probe) bool {
	return content != nil && content.Visible()
}
