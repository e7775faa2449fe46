package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Credentials struct {
	Username string
	Password string
}

type Bookmaker struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type OddsSet struct {
	Team1 decimal.Decimal
	Team2 decimal.Decimal
	// Valid only for sports with a draw outcome.
	Draw decimal.NullDecimal
}

func (o OddsSet) HasDraw() bool {
	return o.Draw.Valid
}

type MatchRecord struct {
	Sport   Sport
	Kickoff string
	Team1   string
	Team2   string

	ReturnRate decimal.Decimal
	// ReturnRateText is the figure as the site rendered it, e.g. "108.0%".
	ReturnRateText string

	Odds OddsSet
}

func (m MatchRecord) Participants() string {
	return m.Team1 + " - " + m.Team2
}

// ResultSet is the ranked output of one (sport, bookmaker selection) pass.
type ResultSet struct {
	Sport      Sport
	Bookmakers []Bookmaker
	Date       time.Time
	Records    []MatchRecord
}

func (r ResultSet) Label() string {
	names := make([]string, 0, len(r.Bookmakers))
	for _, b := range r.Bookmakers {
		names = append(names, b.Name)
	}
	return strings.Join(names, "+")
}
