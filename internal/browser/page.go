package browser

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/jwebster45206/perec-verify/integration/runner"
)

// Rendered-DOM contract of the narrative client.
const (
	landmarkSelector  = "nav"
	textSelector      = "body *"
	controlSelector   = "button"
	actionsHeading    = "Available Actions"
	inventoryTitle    = "Inventory"
	screenshotQuality = 100 // PNG
)

// Page drives the client's rendered surface. Elements are located by their
// text; visibility and first-match are decided by the probe rules.
type Page struct {
	s *Session
}

var _ runner.Page = (*Page)(nil)

func (p *Page) Navigate(ctx context.Context, url string) error {
	return p.s.run(ctx, chromedp.Navigate(url))
}

func (p *Page) Reload(ctx context.Context) error {
	return p.s.run(ctx, chromedp.Reload())
}

func (p *Page) probe(ctx context.Context, selector, fragment string) ([]Probe, error) {
	var probes []Probe
	if err := p.s.run(ctx, chromedp.Evaluate(probeScript(selector, fragment), &probes)); err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", selector, err)
	}
	return probes, nil
}

func (p *Page) LandmarkVisible(ctx context.Context) (bool, error) {
	probes, err := p.probe(ctx, landmarkSelector, "")
	if err != nil {
		return false, err
	}
	for _, pr := range probes {
		if pr.Visible() {
			return true, nil
		}
	}
	return false, nil
}

func (p *Page) TextVisible(ctx context.Context, fragment string) (bool, error) {
	probes, err := p.probe(ctx, textSelector, fragment)
	if err != nil {
		return false, err
	}
	return AnyVisible(probes, fragment, MatchContains), nil
}

func (p *Page) SelectRoom(ctx context.Context, displayName string) error {
	return p.clickFirst(ctx, displayName)
}

func (p *Page) TriggerInteraction(ctx context.Context, label string) error {
	return p.clickFirst(ctx, label)
}

// clickFirst clicks the first visible control whose text contains fragment.
func (p *Page) clickFirst(ctx context.Context, fragment string) error {
	var nodes []*cdp.Node
	var probes []Probe
	err := p.s.run(ctx,
		chromedp.Nodes(controlSelector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
		chromedp.Evaluate(probeScript(controlSelector, ""), &probes),
	)
	if err != nil {
		return fmt.Errorf("failed to locate controls: %w", err)
	}
	if len(nodes) != len(probes) {
		// re-rendered between the two queries; the driver retries
		return fmt.Errorf("%w: controls changed while locating %q", runner.ErrElementNotFound, fragment)
	}

	i := First(probes, fragment, MatchContains)
	if i < 0 {
		return fmt.Errorf("%w: no visible control contains %q", runner.ErrElementNotFound, fragment)
	}
	p.s.logger.Debug("Clicking control", "match", fragment, "text", NormalizeText(probes[i].Text), "index", i)
	if err := p.s.run(ctx, chromedp.MouseClickNode(nodes[i])); err != nil {
		return fmt.Errorf("failed to click %q: %w", fragment, err)
	}
	return nil
}

func (p *Page) AvailableActions(ctx context.Context) ([]string, bool, error) {
	var res sectionResult
	if err := p.s.run(ctx, chromedp.Evaluate(sectionScript(actionsHeading), &res)); err != nil {
		return nil, false, fmt.Errorf("failed to probe %q: %w", actionsHeading, err)
	}
	if res.Heading == nil || !res.Heading.Visible() {
		return nil, false, nil
	}
	return VisibleTexts(res.Buttons), true, nil
}

func (p *Page) inventory(ctx context.Context, click bool) (panelResult, error) {
	var res panelResult
	if err := p.s.run(ctx, chromedp.Evaluate(panelScript(inventoryTitle, click), &res)); err != nil {
		return res, fmt.Errorf("failed to probe %q panel: %w", inventoryTitle, err)
	}
	return res, nil
}

func (p *Page) ToggleInventory(ctx context.Context) error {
	res, err := p.inventory(ctx, false)
	if err != nil {
		return err
	}
	if res.Header == nil || !res.Header.Visible() {
		return fmt.Errorf("%w: no visible %q header", runner.ErrElementNotFound, inventoryTitle)
	}
	if _, err := p.inventory(ctx, true); err != nil {
		return err
	}
	return nil
}

// IsInventoryExpanded is true when the panel content has extent and is not
// transparent. A missing content element counts as collapsed.
func (p *Page) IsInventoryExpanded(ctx context.Context) (bool, error) {
	res, err := p.inventory(ctx, false)
	if err != nil {
		return false, err
	}
	return Expanded(res.Content), nil
}

func (p *Page) CaptureFullPage(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := p.s.run(ctx, chromedp.FullScreenshot(&buf, screenshotQuality)); err != nil {
		return nil, err
	}
	return buf, nil
}
