package core

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mxshs/oddsranker/src/browser"
	"mxshs/oddsranker/src/config"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

type PaginationDiscoverer struct {
	page browser.Page
	site *config.Site
	log  *zap.Logger
}

func NewPaginationDiscoverer(page browser.Page, site *config.Site, log *zap.Logger) *PaginationDiscoverer {
	return &PaginationDiscoverer{
		page: page,
		site: site,
		log:  log.Named("pagination"),
	}
}

// TotalPages loads the first page of a listing and returns the highest
// numeric page label in its pagination control, or 1 when there is none.
func (pd *PaginationDiscoverer) TotalPages(ctx context.Context, listingURL string) (int, error) {
	if err := pd.page.Navigate(ctx, listingURL); err != nil {
		return 0, err
	}

	html, err := pd.page.HTML(ctx)
	if err != nil {
		return 0, fmt.Errorf("read listing html: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, err
	}

	total := MaxPageLabel(doc.Selection, pd.site.Selector.Pagination, pd.site.Selector.PaginationLink)
	pd.log.Debug("pagination discovered", zap.String("url", listingURL), zap.Int("pages", total))

	return total, nil
}

// MaxPageLabel returns the largest integer label among the links of the
// pagination region, ignoring labels such as ">>" or "Next".
func MaxPageLabel(s *goquery.Selection, region, link string) int {
	highest := 1

	s.Find(region).Find(link).Each(func(i int, a *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(a.Text()))
		if err != nil {
			return
		}
		if n > highest {
			highest = n
		}
	})

	return highest
}

// PageURL sets the page query parameter on a listing URL.
func PageURL(listingURL, param string, page int) (string, error) {
	u, err := url.Parse(listingURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()

	return u.String(), nil
}
