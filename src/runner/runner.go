// Package runner drives one crawl: a single login, then for every bookmaker
// subset a selection, one extraction per sport, ranking and persistence.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/config"
	"mxshs/oddsranker/src/core"
	"mxshs/oddsranker/src/domain"
	"mxshs/oddsranker/src/sink"

	"go.uber.org/zap"
)

// AllBookmakers selects every catalog entry, one pass each.
const AllBookmakers = "all"

type Plan struct {
	Subsets [][]domain.Bookmaker
	Sports  []domain.Sport
	// Reset clears the selection after every subset.
	Reset bool
}

// NewPlan resolves a bookmaker choice against the catalog. choice is a
// bookmaker id, "all" or "0".
func NewPlan(site *config.Site, choice string, sports []domain.Sport) (Plan, error) {
	if len(sports) == 0 {
		sports = domain.Sports
	}
	for _, s := range sports {
		if _, ok := site.ListingURL(s); !ok {
			return Plan{}, apperr.New(apperr.CodeConfigurationMissing, "no listing url for sport %s", s)
		}
	}

	choice = strings.TrimSpace(choice)
	if choice == AllBookmakers || choice == "0" {
		plan := Plan{Sports: sports, Reset: true}
		for _, b := range site.Bookmakers {
			plan.Subsets = append(plan.Subsets, []domain.Bookmaker{b})
		}
		return plan, nil
	}

	b, ok := site.Bookmaker(choice)
	if !ok {
		return Plan{}, apperr.New(apperr.CodeConfigurationMissing, "unknown bookmaker %q", choice)
	}

	return Plan{Subsets: [][]domain.Bookmaker{{b}}, Sports: sports}, nil
}

type Runner struct {
	auth      core.Authenticator
	selection core.Selection
	listings  core.ListingExtractor
	site      *config.Site
	sink      sink.Sink
	log       *zap.Logger

	Now func() time.Time
}

func New(
	auth core.Authenticator,
	selection core.Selection,
	listings core.ListingExtractor,
	site *config.Site,
	out sink.Sink,
	log *zap.Logger,
) *Runner {
	return &Runner{
		auth:      auth,
		selection: selection,
		listings:  listings,
		site:      site,
		sink:      out,
		log:       log.Named("runner"),
		Now:       time.Now,
	}
}

type failure struct {
	sport domain.Sport
	label string
	err   error
}

// Run executes plan. Authentication problems abort the run. A sport whose
// listing cannot be loaded is skipped and reported as a PageLoadFailure once
// every other pass has finished.
func (r *Runner) Run(ctx context.Context, creds domain.Credentials, plan Plan) error {
	if _, err := r.auth.Login(ctx, creds); err != nil {
		return err
	}

	var (
		failed  []failure
		sinkErr []error
	)

	for _, subset := range plan.Subsets {
		label := domain.ResultSet{Bookmakers: subset}.Label()
		if err := r.selectWithRelogin(ctx, creds, ids(subset)); err != nil {
			return err
		}

		for _, sport := range plan.Sports {
			if err := ctx.Err(); err != nil {
				return err
			}

			rs, err := r.extract(ctx, sport, subset)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				r.log.Error("extraction abandoned",
					zap.String("sport", sport.String()),
					zap.String("bookmakers", label),
					zap.Error(err),
				)
				failed = append(failed, failure{sport: sport, label: label, err: err})
				continue
			}

			if err := r.sink.Persist(ctx, rs); err != nil {
				r.log.Error("persist results", zap.String("sport", sport.String()), zap.Error(err))
				sinkErr = append(sinkErr, err)
			}
		}

		if plan.Reset {
			if err := r.selectWithRelogin(ctx, creds, nil); err != nil {
				return err
			}
		}
	}

	if len(failed) > 0 {
		names := make([]string, 0, len(failed))
		for _, f := range failed {
			names = append(names, fmt.Sprintf("%s/%s", f.sport, f.label))
		}
		err := apperr.Wrap(apperr.CodePageLoadFailure, failed[0].err,
			"%d extraction(s) failed: %s", len(failed), strings.Join(names, ", "))
		return errors.Join(append([]error{err}, sinkErr...)...)
	}

	return errors.Join(sinkErr...)
}

func (r *Runner) extract(ctx context.Context, sport domain.Sport, subset []domain.Bookmaker) (domain.ResultSet, error) {
	url, ok := r.site.ListingURL(sport)
	if !ok {
		return domain.ResultSet{}, apperr.New(apperr.CodeConfigurationMissing, "no listing url for sport %s", sport)
	}

	records, err := r.listings.ExtractAll(ctx, url, sport)
	if err != nil {
		return domain.ResultSet{}, err
	}

	rs := domain.ResultSet{
		Sport:      sport,
		Bookmakers: subset,
		Date:       r.Now(),
		Records:    core.Rank(records),
	}
	r.log.Info("listing ranked",
		zap.String("sport", sport.String()),
		zap.String("bookmakers", rs.Label()),
		zap.Int("matches", len(rs.Records)),
	)

	return rs, nil
}

// selectWithRelogin applies ids, logging in again once if the session turns
// out to have expired.
func (r *Runner) selectWithRelogin(ctx context.Context, creds domain.Credentials, ids []string) error {
	err := r.selection.Select(ctx, ids)
	if !apperr.Is(err, apperr.CodeNotAuthenticated) {
		return err
	}

	r.log.Warn("session lost, logging in again", zap.Error(err))
	if _, err := r.auth.Login(ctx, creds); err != nil {
		return err
	}

	return r.selection.Select(ctx, ids)
}

func ids(bs []domain.Bookmaker) []string {
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.ID)
	}
	return out
}
