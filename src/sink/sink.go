package sink

import (
	"context"
	"errors"

	"mxshs/oddsranker/src/domain"
)

// Sink persists one ranked result set.
type Sink interface {
	Persist(ctx context.Context, rs domain.ResultSet) error
}

type Multi []Sink

// Persist hands rs to every sink, even after one fails, and joins the errors.
func (m Multi) Persist(ctx context.Context, rs domain.ResultSet) error {
	var errs []error
	for _, s := range m {
		if err := s.Persist(ctx, rs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
