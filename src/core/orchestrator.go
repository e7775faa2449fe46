package core

import (
	"context"
	"fmt"
	"time"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/browser"
	"mxshs/oddsranker/src/config"
	"mxshs/oddsranker/src/domain"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const DefaultPageAttempts = 3

type ExtractionOrchestrator struct {
	page      browser.Page
	site      *config.Site
	pages     *PaginationDiscoverer
	extractor *MatchExtractor
	log       *zap.Logger

	// Attempts bounds the loads of a single page, first try included.
	Attempts int
	// NewBackOff builds the wait schedule between attempts.
	NewBackOff func() backoff.BackOff
}

func NewExtractionOrchestrator(
	page browser.Page,
	site *config.Site,
	pages *PaginationDiscoverer,
	extractor *MatchExtractor,
	log *zap.Logger,
) *ExtractionOrchestrator {
	return &ExtractionOrchestrator{
		page:      page,
		site:      site,
		pages:     pages,
		extractor: extractor,
		log:       log.Named("orchestrator"),
		Attempts:  DefaultPageAttempts,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 2 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// ExtractAll walks every page of a listing in order and returns the records
// in page-ascending, then document, order.
func (eo *ExtractionOrchestrator) ExtractAll(ctx context.Context, listingURL string, sport domain.Sport) ([]domain.MatchRecord, error) {
	var total int
	err := eo.retry(ctx, listingURL, func() error {
		n, err := eo.pages.TotalPages(ctx, listingURL)
		total = n
		return err
	})
	if err != nil {
		return nil, err
	}

	eo.log.Info("extracting listing",
		zap.String("sport", sport.String()),
		zap.String("url", listingURL),
		zap.Int("pages", total),
	)

	records := []domain.MatchRecord{}
	for i := 1; i <= total; i++ {
		pageURL, err := PageURL(listingURL, eo.site.PageParam, i)
		if err != nil {
			return nil, fmt.Errorf("build page url: %w", err)
		}

		var html string
		err = eo.retry(ctx, pageURL, func() error {
			if err := eo.page.Navigate(ctx, pageURL); err != nil {
				return err
			}
			h, err := eo.page.HTML(ctx)
			html = h
			return err
		})
		if err != nil {
			return nil, err
		}

		found, err := eo.extractor.Extract(html, sport)
		if err != nil {
			return nil, err
		}
		records = append(records, found...)

		eo.log.Info("page extracted",
			zap.String("sport", sport.String()),
			zap.String("progress", fmt.Sprintf("%d/%d", i, total)),
			zap.Int("matches", len(found)),
		)
	}

	return records, nil
}

func (eo *ExtractionOrchestrator) retry(ctx context.Context, url string, load func() error) error {
	attempts := eo.Attempts
	if attempts < 1 {
		attempts = 1
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(eo.NewBackOff(), uint64(attempts-1)),
		ctx,
	)

	attempt := 0
	err := backoff.RetryNotify(
		func() error {
			attempt++
			err := load()
			if err != nil && ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		},
		b,
		func(err error, wait time.Duration) {
			eo.log.Warn("page load failed, retrying",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err),
			)
		},
	)
	if err != nil {
		return apperr.Wrap(apperr.CodePageLoadFailure, err, "%s after %d attempts", url, attempt)
	}

	return nil
}
