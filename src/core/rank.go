package core

import (
	"sort"

	"mxshs/oddsranker/src/domain"
)

// Rank returns a copy of records ordered by descending return rate. Equal
// rates keep their input order.
func Rank(records []domain.MatchRecord) []domain.MatchRecord {
	ranked := make([]domain.MatchRecord, len(records))
	copy(ranked, records)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].ReturnRate.GreaterThan(ranked[j].ReturnRate)
	})

	return ranked
}
