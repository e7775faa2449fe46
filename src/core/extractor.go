package core

import (
	"fmt"
	"regexp"
	"strings"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/config"
	"mxshs/oddsranker/src/domain"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var whitespace = regexp.MustCompile(`\s+`)

// OddsLayout names the position of each outcome among a match block's odds
// values, in document order. Draw is -1 when the layout has no draw.
type OddsLayout struct {
	Name  string
	Team1 int
	Draw  int
	Team2 int
}

var (
	// FIXME: positional. The site has rendered the draw both in the
	// middle and last; only the middle position is handled.
	ThreeWay = OddsLayout{Name: "1X2", Team1: 0, Draw: 1, Team2: 2}
	TwoWay   = OddsLayout{Name: "12", Team1: 0, Draw: -1, Team2: 1}
)

// LayoutFor picks the odds layout for a block of sport carrying n values.
// Only a football block with exactly three values is read as 1X2; anything
// else is read as two-way from its first two values.
func LayoutFor(sport domain.Sport, n int) OddsLayout {
	if sport.HasDraw() && n == 3 {
		return ThreeWay
	}
	return TwoWay
}

type MatchExtractor struct {
	sel config.Selector
	log *zap.Logger
}

func NewMatchExtractor(sel config.Selector, log *zap.Logger) *MatchExtractor {
	return &MatchExtractor{
		sel: sel,
		log: log.Named("extractor"),
	}
}

func (me *MatchExtractor) Extract(html string, sport domain.Sport) ([]domain.MatchRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	return me.ExtractSelection(doc.Selection, sport), nil
}

// ExtractSelection returns the valid match records under s in document order.
// Malformed blocks and blocks with a zero mandatory odd are dropped.
func (me *MatchExtractor) ExtractSelection(s *goquery.Selection, sport domain.Sport) []domain.MatchRecord {
	records := []domain.MatchRecord{}

	s.Find(me.sel.MatchBlock).Each(func(i int, block *goquery.Selection) {
		record, err := me.parseBlock(block, sport)
		if err != nil {
			me.log.Debug("skipping match block", zap.Int("block", i), zap.Error(err))
			return
		}
		if record == nil {
			return
		}

		records = append(records, *record)
	})

	return records
}

// parseBlock returns an error for malformed markup and a nil record for a
// well-formed block that fails validation.
func (me *MatchExtractor) parseBlock(block *goquery.Selection, sport domain.Sport) (*domain.MatchRecord, error) {
	var teams []string
	block.Find(me.sel.Participant).Each(func(i int, s *goquery.Selection) {
		teams = append(teams, normalizeText(s.Text()))
	})
	if len(teams) < 2 {
		return nil, apperr.New(apperr.CodeMalformedMatchBlock, "found %d participants, expected 2", len(teams))
	}

	rateText := normalizeText(block.Find(me.sel.ReturnRate).First().Text())
	rate, err := parseReturnRate(rateText)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeMalformedMatchBlock, err, "return rate %q", rateText)
	}

	var values []string
	block.Find(me.sel.Odd).Each(func(i int, s *goquery.Selection) {
		values = append(values, normalizeText(s.Text()))
	})

	odds, ok := mapOdds(values, LayoutFor(sport, len(values)))
	if !ok {
		return nil, nil
	}

	return &domain.MatchRecord{
		Sport:          sport,
		Kickoff:        normalizeText(block.Find(me.sel.MatchTime).First().Text()),
		Team1:          teams[0],
		Team2:          teams[1],
		ReturnRate:     rate,
		ReturnRateText: rateText,
		Odds:           odds,
	}, nil
}

// mapOdds applies layout to values. It reports false when a mandatory odd is
// missing, unreadable or zero. A zero draw is kept as-is.
func mapOdds(values []string, layout OddsLayout) (domain.OddsSet, bool) {
	var odds domain.OddsSet

	team1, ok := oddAt(values, layout.Team1)
	if !ok {
		return odds, false
	}
	team2, ok := oddAt(values, layout.Team2)
	if !ok {
		return odds, false
	}

	odds.Team1 = team1
	odds.Team2 = team2

	if layout.Draw >= 0 {
		if draw, err := parseDecimal(valueAt(values, layout.Draw)); err == nil {
			odds.Draw = decimal.NewNullDecimal(draw)
		}
	}

	return odds, true
}

func oddAt(values []string, i int) (decimal.Decimal, bool) {
	d, err := parseDecimal(valueAt(values, i))
	if err != nil || d.IsZero() {
		return decimal.Zero, false
	}
	return d, true
}

func valueAt(values []string, i int) string {
	if i < 0 || i >= len(values) {
		return ""
	}
	return values[i]
}

func parseDecimal(text string) (decimal.Decimal, error) {
	text = strings.ReplaceAll(strings.TrimSpace(text), ",", ".")
	if text == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	return decimal.NewFromString(text)
}

func parseReturnRate(text string) (decimal.Decimal, error) {
	return parseDecimal(strings.TrimSuffix(strings.TrimSpace(text), "%"))
}

func normalizeText(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
