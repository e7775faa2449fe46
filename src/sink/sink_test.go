package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mxshs/oddsranker/src/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func sampleSet() domain.ResultSet {
	return domain.ResultSet{
		Sport:      domain.Football,
		Bookmakers: []domain.Bookmaker{{ID: "1", Name: "Betclic"}},
		Date:       time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC),
		Records: []domain.MatchRecord{
			{
				Sport:          domain.Football,
				Kickoff:        "Sam. 18/10 21:00",
				Team1:          "PSG",
				Team2:          "OM",
				ReturnRate:     decimal.RequireFromString("108.0"),
				ReturnRateText: "108.0%",
				Odds: domain.OddsSet{
					Team1: decimal.RequireFromString("2.1"),
					Team2: decimal.RequireFromString("3"),
					Draw:  decimal.NewNullDecimal(decimal.RequireFromString("3.40")),
				},
			},
			{
				Sport:      domain.Football,
				Kickoff:    "Dim. 19/10 15:00",
				Team1:      "Nantes",
				Team2:      "Lens",
				ReturnRate: decimal.RequireFromString("96.5"),
				Odds: domain.OddsSet{
					Team1: decimal.RequireFromString("3.10"),
					Team2: decimal.RequireFromString("2.25"),
				},
			},
		},
	}
}

func TestFilePersist(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	f := NewFile(dir, zap.NewNop())

	rs := sampleSet()
	require.NoError(t, f.Persist(context.Background(), rs))

	path := filepath.Join(dir, "football_Betclic_18-10-2026.txt")
	assert.Equal(t, path, f.Path(rs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := strings.Join([]string{
		"Football matches ranked by return rate - Betclic - 18/10/2026 (2)",
		rule,
		"Match: PSG - OM",
		"Kickoff: Sam. 18/10 21:00",
		"Return rate: 108.0%",
		"Odd PSG: 2.10",
		"Odd draw: 3.40",
		"Odd OM: 3.00",
		rule,
		"Match: Nantes - Lens",
		"Kickoff: Dim. 19/10 15:00",
		"Return rate: 96.5%",
		"Odd Nantes: 3.10",
		"Odd Lens: 2.25",
		rule,
		"",
	}, "\n")
	assert.Equal(t, want, string(data))
}

func TestFilePathSanitizesLabel(t *testing.T) {
	f := NewFile("results", zap.NewNop())
	rs := sampleSet()
	rs.Sport = domain.Tennis
	rs.Bookmakers = []domain.Bookmaker{{ID: "5", Name: "Parions Sport"}, {ID: "9", Name: "a/b"}}

	assert.Equal(t, filepath.Join("results", "tennis_Parions_Sport+a_b_18-10-2026.txt"), f.Path(rs))
}

func TestNewRankedMatch(t *testing.T) {
	rs := sampleSet()

	with := NewRankedMatch("run-1", 1, rs, rs.Records[0])
	require.NotNil(t, with.OddDraw)
	assert.Equal(t, "3.40", *with.OddDraw)
	assert.Equal(t, "odds.ranked.football", StreamKey(rs.Sport))

	without := NewRankedMatch("run-1", 2, rs, rs.Records[1])
	data, err := json.Marshal(without)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "odd_draw")
	assert.Contains(t, string(data), `"return_rate":"96.5"`)
	assert.Contains(t, string(data), `"date":"2026-10-18"`)
}

func TestTableLimit(t *testing.T) {
	var buf bytes.Buffer
	tbl := &Table{Out: &buf, Limit: 1}

	require.NoError(t, tbl.Persist(context.Background(), sampleSet()))
	out := buf.String()
	assert.Contains(t, out, "PSG - OM")
	assert.NotContains(t, out, "Nantes - Lens")
	assert.Contains(t, strings.ToLower(out), "2 matches")
}

type sinkFunc func(ctx context.Context, rs domain.ResultSet) error

func (f sinkFunc) Persist(ctx context.Context, rs domain.ResultSet) error { return f(ctx, rs) }

func TestMultiContinuesAfterFailure(t *testing.T) {
	boom := errors.New("disk full")
	calls := 0
	m := Multi{
		sinkFunc(func(context.Context, domain.ResultSet) error { calls++; return boom }),
		sinkFunc(func(context.Context, domain.ResultSet) error { calls++; return nil }),
	}

	err := m.Persist(context.Background(), sampleSet())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, calls)
}
