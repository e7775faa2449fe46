package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/browser"
	"mxshs/oddsranker/src/config"

	"go.uber.org/zap"
)

// BookmakerSelector drives the account settings form that controls which
// bookmakers' odds the listing pages show.
type BookmakerSelector struct {
	page browser.Page
	site *config.Site
	log  *zap.Logger
}

func NewBookmakerSelector(page browser.Page, site *config.Site, log *zap.Logger) *BookmakerSelector {
	return &BookmakerSelector{
		page: page,
		site: site,
		log:  log.Named("selector"),
	}
}

var cssString = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func (bs *BookmakerSelector) checkboxSelector() string {
	return bs.site.Selector.SettingsForm + " " + bs.site.Selector.SettingsCheckbox
}

func (bs *BookmakerSelector) checkboxByValue(id string) string {
	return fmt.Sprintf(`%s[value="%s"]`, bs.checkboxSelector(), cssString.Replace(id))
}

// open loads the settings surface and checks it was not bounced elsewhere,
// which happens when the session has expired.
func (bs *BookmakerSelector) open(ctx context.Context) error {
	if err := bs.page.Navigate(ctx, bs.site.SettingsURL()); err != nil {
		return fmt.Errorf("open settings: %w", err)
	}

	loc, err := bs.page.Location(ctx)
	if err != nil {
		return fmt.Errorf("read settings location: %w", err)
	}
	if !samePath(loc, bs.site.SettingsURL()) {
		return apperr.New(apperr.CodeNotAuthenticated, "settings redirected to %s", loc)
	}

	if err := bs.page.WaitReady(ctx, bs.site.Selector.SettingsForm); err != nil {
		return fmt.Errorf("settings form: %w", err)
	}

	return nil
}

// Select makes exactly ids visible. Everything currently on is cleared first
// so the outcome does not depend on what a previous pass left behind.
// Select(ctx, nil) is the "none selected" baseline.
func (bs *BookmakerSelector) Select(ctx context.Context, ids []string) error {
	if err := bs.open(ctx); err != nil {
		return err
	}

	target := make(map[string]bool, len(ids))
	for _, id := range ids {
		target[id] = true
	}

	boxes, err := bs.page.Checkboxes(ctx, bs.checkboxSelector())
	if err != nil {
		return fmt.Errorf("read bookmaker checkboxes: %w", err)
	}

	for _, box := range boxes {
		if !box.Checked || target[box.Value] {
			continue
		}
		if err := bs.page.Toggle(ctx, bs.checkboxByValue(box.Value)); err != nil {
			return fmt.Errorf("clear bookmaker %s: %w", box.Value, err)
		}
	}

	// State after clearing.
	boxes, err = bs.page.Checkboxes(ctx, bs.checkboxSelector())
	if err != nil {
		return fmt.Errorf("read bookmaker checkboxes: %w", err)
	}
	state := make(map[string]bool, len(boxes))
	for _, box := range boxes {
		state[box.Value] = box.Checked
	}

	applied := 0
	for _, id := range ids {
		on, found := state[id]
		if !found {
			missing := apperr.New(apperr.CodeSelectionElementMissing, "no checkbox for bookmaker %s", id)
			bs.log.Warn("skipping bookmaker", zap.String("id", id), zap.Error(missing))
			continue
		}
		if on {
			applied++
			continue
		}
		if err := bs.page.Toggle(ctx, bs.checkboxByValue(id)); err != nil {
			return fmt.Errorf("set bookmaker %s: %w", id, err)
		}
		state[id] = true
		applied++
	}

	if err := bs.page.Click(ctx, bs.site.Selector.SettingsSubmit); err != nil {
		return fmt.Errorf("submit bookmaker selection: %w", err)
	}

	bs.log.Info("bookmaker selection applied",
		zap.Strings("requested", ids),
		zap.Int("applied", applied),
	)
	return nil
}

// State returns the ids currently checked on the settings form.
func (bs *BookmakerSelector) State(ctx context.Context) ([]string, error) {
	if err := bs.open(ctx); err != nil {
		return nil, err
	}

	boxes, err := bs.page.Checkboxes(ctx, bs.checkboxSelector())
	if err != nil {
		return nil, err
	}

	ids := []string{}
	for _, box := range boxes {
		if box.Checked {
			ids = append(ids, box.Value)
		}
	}

	return ids, nil
}

func samePath(a, b string) bool {
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return a == b
	}

	return strings.TrimRight(ua.Path, "/") == strings.TrimRight(ub.Path, "/")
}
