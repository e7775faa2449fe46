// Package browsertest provides an in-memory browser.Page that serves canned
// HTML, for exercising page-driven code without Chrome.
package browsertest

import (
	"context"
	"fmt"
	"strings"

	"mxshs/oddsranker/src/browser"

	"github.com/PuerkitoBio/goquery"
)

type Response struct {
	HTML string
	// Location is the URL the page ends up on, as after a server redirect.
	// Empty means the requested URL.
	Location string
}

type Handler func(url string) (Response, error)

// Static serves fixed documents keyed by exact URL.
func Static(pages map[string]string) Handler {
	return func(url string) (Response, error) {
		html, ok := pages[url]
		if !ok {
			return Response{}, fmt.Errorf("404 %s", url)
		}
		return Response{HTML: html}, nil
	}
}

type FakePage struct {
	Handler Handler
	// OnClick runs before the default click behavior; returning handled
	// skips it.
	OnClick func(p *FakePage, sel string) (handled bool, err error)

	// Failures makes the next n navigations to a URL fail.
	Failures map[string]int

	Navigations []string
	Clicks      []string
	Values      map[string]string
	Closed      bool

	location string
	doc      *goquery.Document
}

var _ browser.Page = (*FakePage)(nil)

func New(h Handler) *FakePage {
	return &FakePage{
		Handler:  h,
		Failures: map[string]int{},
		Values:   map[string]string{},
	}
}

func (p *FakePage) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.Navigations = append(p.Navigations, url)
	if n := p.Failures[url]; n > 0 {
		p.Failures[url] = n - 1
		return fmt.Errorf("navigate %s: net::ERR_CONNECTION_RESET", url)
	}

	res, err := p.Handler(url)
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}

	return p.Load(url, res)
}

// Load replaces the current document without recording a navigation.
func (p *FakePage) Load(url string, res Response) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.HTML))
	if err != nil {
		return err
	}

	p.doc = doc
	p.location = url
	if res.Location != "" {
		p.location = res.Location
	}

	return nil
}

func (p *FakePage) Location(ctx context.Context) (string, error) {
	return p.location, nil
}

func (p *FakePage) HTML(ctx context.Context) (string, error) {
	if p.doc == nil {
		return "", fmt.Errorf("no document loaded")
	}
	return goquery.OuterHtml(p.doc.Selection)
}

func (p *FakePage) find(sel string) (*goquery.Selection, error) {
	if p.doc == nil {
		return nil, fmt.Errorf("%s: %w", sel, browser.ErrNotFound)
	}

	s := p.doc.Find(sel)
	if s.Length() == 0 {
		return nil, fmt.Errorf("%s: %w", sel, browser.ErrNotFound)
	}

	return s.First(), nil
}

func (p *FakePage) WaitReady(ctx context.Context, sel string) error {
	_, err := p.find(sel)
	return err
}

func (p *FakePage) SetValue(ctx context.Context, sel, value string) error {
	s, err := p.find(sel)
	if err != nil {
		return err
	}

	s.SetAttr("value", value)
	p.Values[sel] = value
	return nil
}

func (p *FakePage) Click(ctx context.Context, sel string) error {
	p.Clicks = append(p.Clicks, sel)

	if p.OnClick != nil {
		handled, err := p.OnClick(p, sel)
		if err != nil || handled {
			return err
		}
	}

	s, err := p.find(sel)
	if err != nil {
		return err
	}
	if isCheckbox(s) {
		flip(s)
	}

	return nil
}

func (p *FakePage) Checkboxes(ctx context.Context, sel string) ([]browser.Checkbox, error) {
	if p.doc == nil {
		return nil, nil
	}

	var boxes []browser.Checkbox
	p.doc.Find(sel).Each(func(i int, s *goquery.Selection) {
		boxes = append(boxes, browser.Checkbox{
			Value:   s.AttrOr("value", "on"),
			Checked: checked(s),
		})
	})

	return boxes, nil
}

func (p *FakePage) Toggle(ctx context.Context, sel string) error {
	s, err := p.find(sel)
	if err != nil {
		return err
	}

	flip(s)
	return nil
}

func (p *FakePage) Close() error {
	p.Closed = true
	return nil
}

func isCheckbox(s *goquery.Selection) bool {
	return goquery.NodeName(s) == "input" && strings.EqualFold(s.AttrOr("type", ""), "checkbox")
}

func checked(s *goquery.Selection) bool {
	_, ok := s.Attr("checked")
	return ok
}

func flip(s *goquery.Selection) {
	if checked(s) {
		s.RemoveAttr("checked")
	} else {
		s.SetAttr("checked", "checked")
	}
}
