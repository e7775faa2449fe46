package core

import (
	"testing"

	"mxshs/oddsranker/src/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extract(t *testing.T, sport domain.Sport, blocks ...block) []domain.MatchRecord {
	t.Helper()
	me := NewMatchExtractor(testSite(t).Selector, testLogger())
	records, err := me.Extract(listingHTML(nil, blocks...), sport)
	require.NoError(t, err)
	return records
}

func TestExtractFootballDropsZeroOdds(t *testing.T) {
	records := extract(t, domain.Football,
		block{time: "Sam. 18/10 21:00", teams: []string{"PSG", "OM"}, rate: "108.0%", odds: []string{"2.10", "3.40", "3.00"}},
		block{time: "Sam. 18/10 17:00", teams: []string{"OL", "LOSC"}, rate: "95.0%", odds: []string{"0.00", "2.00", "1.90"}},
	)

	require.Len(t, records, 1)
	r := records[0]
	assert.Equal(t, "PSG", r.Team1)
	assert.Equal(t, "OM", r.Team2)
	assert.Equal(t, "108.0%", r.ReturnRateText)
	assert.Equal(t, "108", r.ReturnRate.String())
	assert.Equal(t, "2.10", r.Odds.Team1.StringFixed(2))
	assert.Equal(t, "3.00", r.Odds.Team2.StringFixed(2))
	require.True(t, r.Odds.HasDraw())
	assert.Equal(t, "3.40", r.Odds.Draw.Decimal.StringFixed(2))

	ranked := Rank(records)
	require.Len(t, ranked, 1)
	assert.Equal(t, r, ranked[0])
}

func TestExtractTennisHasNoDraw(t *testing.T) {
	records := extract(t, domain.Tennis,
		block{time: "Dim. 19/10 14:00", teams: []string{"Sinner J.", "Alcaraz C."}, rate: "97.5%", odds: []string{"1.50", "2.60"}},
	)

	require.Len(t, records, 1)
	assert.False(t, records[0].Odds.HasDraw())
	assert.Equal(t, "1.50", records[0].Odds.Team1.StringFixed(2))
	assert.Equal(t, "2.60", records[0].Odds.Team2.StringFixed(2))
}

func TestExtractOddsLayout(t *testing.T) {
	tests := []struct {
		name      string
		sport     domain.Sport
		odds      []string
		team1     string
		team2     string
		draw      string
		wantEmpty bool
	}{
		{name: "football 1X2", sport: domain.Football, odds: []string{"1.80", "3.50", "4.20"}, team1: "1.80", team2: "4.20", draw: "3.50"},
		{name: "football two values", sport: domain.Football, odds: []string{"1.80", "2.05"}, team1: "1.80", team2: "2.05"},
		{name: "football four values read two-way", sport: domain.Football, odds: []string{"1.80", "2.05", "3.10", "1.01"}, team1: "1.80", team2: "2.05"},
		{name: "tennis three values read two-way", sport: domain.Tennis, odds: []string{"1.30", "3.40", "9.99"}, team1: "1.30", team2: "3.40"},
		{name: "zero draw keeps record", sport: domain.Football, odds: []string{"2.00", "0.00", "3.00"}, team1: "2.00", team2: "3.00", draw: "0.00"},
		{name: "zero team2", sport: domain.Football, odds: []string{"2.00", "3.10", "0.00"}, wantEmpty: true},
		{name: "zero tennis team1", sport: domain.Tennis, odds: []string{"0.00", "1.01"}, wantEmpty: true},
		{name: "single value", sport: domain.Tennis, odds: []string{"1.50"}, wantEmpty: true},
		{name: "unreadable odd", sport: domain.Tennis, odds: []string{"-", "1.50"}, wantEmpty: true},
		{name: "comma decimals", sport: domain.Tennis, odds: []string{"1,45", "2,75"}, team1: "1.45", team2: "2.75"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records := extract(t, tt.sport, block{
				time:  "20:00",
				teams: []string{"A", "B"},
				rate:  "99.0%",
				odds:  tt.odds,
			})

			if tt.wantEmpty {
				assert.Empty(t, records)
				return
			}

			require.Len(t, records, 1)
			odds := records[0].Odds
			assert.Equal(t, tt.team1, odds.Team1.StringFixed(2))
			assert.Equal(t, tt.team2, odds.Team2.StringFixed(2))
			if tt.draw == "" {
				assert.False(t, odds.HasDraw())
			} else {
				require.True(t, odds.HasDraw())
				assert.Equal(t, tt.draw, odds.Draw.Decimal.StringFixed(2))
			}
		})
	}
}

func TestExtractSkipsMalformedBlocks(t *testing.T) {
	records := extract(t, domain.Football,
		block{time: "20:00", teams: []string{"Only one"}, rate: "101.0%", odds: []string{"1.50", "3.00", "5.00"}},
		block{time: "20:00", teams: []string{"A", "B"}, rate: "n/a", odds: []string{"1.50", "3.00", "5.00"}},
		block{time: "21:00", teams: []string{"C", "D"}, rate: "100.5 %", odds: []string{"1.50", "3.00", "5.00"}},
	)

	require.Len(t, records, 1)
	assert.Equal(t, "C", records[0].Team1)
	assert.Equal(t, "100.5", records[0].ReturnRate.String())
}

func TestExtractNormalizesText(t *testing.T) {
	records := extract(t, domain.Tennis, block{
		time:  "\n  Dim. 19/10\n\n   14:00  ",
		teams: []string{"  Medvedev\n D. ", "Zverev A."},
		rate:  " 96.2% ",
		odds:  []string{" 1.90 ", "1.90"},
	})

	require.Len(t, records, 1)
	assert.Equal(t, "Dim. 19/10 14:00", records[0].Kickoff)
	assert.Equal(t, "Medvedev D.", records[0].Team1)
	assert.Equal(t, "96.2%", records[0].ReturnRateText)
	assert.Equal(t, domain.Tennis, records[0].Sport)
}

func TestExtractNeverEmitsZeroMandatoryOdds(t *testing.T) {
	values := []string{"0.00", "1.01", "2.50", "0", "3.75"}
	var blocks []block
	for _, a := range values {
		for _, b := range values {
			for _, c := range values {
				blocks = append(blocks, block{time: "x", teams: []string{"A", "B"}, rate: "100%", odds: []string{a, b, c}})
			}
		}
	}

	for _, sport := range domain.Sports {
		for _, r := range extract(t, sport, blocks...) {
			assert.False(t, r.Odds.Team1.IsZero())
			assert.False(t, r.Odds.Team2.IsZero())
			if !sport.HasDraw() {
				assert.False(t, r.Odds.HasDraw())
			} else {
				assert.True(t, r.Odds.HasDraw())
			}
		}
	}
}

func TestLayoutFor(t *testing.T) {
	assert.Equal(t, ThreeWay, LayoutFor(domain.Football, 3))
	assert.Equal(t, TwoWay, LayoutFor(domain.Football, 2))
	assert.Equal(t, TwoWay, LayoutFor(domain.Tennis, 3))
}
