package core

import (
	"context"

	"mxshs/oddsranker/src/domain"
)

type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (*Session, error)
}

type Selection interface {
	Select(ctx context.Context, ids []string) error
}

type ListingExtractor interface {
	ExtractAll(ctx context.Context, listingURL string, sport domain.Sport) ([]domain.MatchRecord, error)
}

var (
	_ Authenticator    = (*SessionManager)(nil)
	_ Selection        = (*BookmakerSelector)(nil)
	_ ListingExtractor = (*ExtractionOrchestrator)(nil)
)
