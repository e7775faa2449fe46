package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"mxshs/oddsranker/src/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RankedMatch is the stream payload of one ranked record.
type RankedMatch struct {
	RunID      string  `json:"run_id"`
	Rank       int     `json:"rank"`
	Sport      string  `json:"sport"`
	Bookmakers string  `json:"bookmakers"`
	Date       string  `json:"date"`
	Kickoff    string  `json:"kickoff"`
	Team1      string  `json:"team1"`
	Team2      string  `json:"team2"`
	ReturnRate string  `json:"return_rate"`
	Odd1       string  `json:"odd_1"`
	OddDraw    *string `json:"odd_draw,omitempty"`
	Odd2       string  `json:"odd_2"`
}

func NewRankedMatch(runID string, rank int, rs domain.ResultSet, r domain.MatchRecord) RankedMatch {
	m := RankedMatch{
		RunID:      runID,
		Rank:       rank,
		Sport:      rs.Sport.String(),
		Bookmakers: rs.Label(),
		Date:       rs.Date.Format("2006-01-02"),
		Kickoff:    r.Kickoff,
		Team1:      r.Team1,
		Team2:      r.Team2,
		ReturnRate: r.ReturnRate.String(),
		Odd1:       r.Odds.Team1.StringFixed(2),
		Odd2:       r.Odds.Team2.StringFixed(2),
	}
	if r.Odds.HasDraw() {
		draw := r.Odds.Draw.Decimal.StringFixed(2)
		m.OddDraw = &draw
	}
	return m
}

// Redis publishes ranked records to the stream odds.ranked.{sport}, one entry
// per record, in rank order.
type Redis struct {
	client redis.Cmdable
	runID  string
	log    *zap.Logger
}

func NewRedis(client redis.Cmdable, runID string, log *zap.Logger) *Redis {
	return &Redis{client: client, runID: runID, log: log.Named("redis-sink")}
}

func StreamKey(sport domain.Sport) string {
	return fmt.Sprintf("odds.ranked.%s", sport)
}

func (r *Redis) Persist(ctx context.Context, rs domain.ResultSet) error {
	if len(rs.Records) == 0 {
		return nil
	}

	key := StreamKey(rs.Sport)
	pipe := r.client.Pipeline()
	for i, rec := range rs.Records {
		data, err := json.Marshal(NewRankedMatch(r.runID, i+1, rs, rec))
		if err != nil {
			return fmt.Errorf("marshal ranked match: %w", err)
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: key,
			Values: map[string]interface{}{"data": string(data)},
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish to stream %s: %w", key, err)
	}

	r.log.Info("published ranked matches", zap.String("stream", key), zap.Int("count", len(rs.Records)))
	return nil
}
