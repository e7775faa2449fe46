package sink

import (
	"context"
	"fmt"
	"io"

	"mxshs/oddsranker/src/domain"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Table prints the top Limit records of each result set. Limit <= 0 prints
// everything.
type Table struct {
	Out   io.Writer
	Limit int
}

func (t *Table) Persist(ctx context.Context, rs domain.ResultSet) error {
	tw := table.NewWriter()
	tw.SetOutputMirror(t.Out)
	tw.SetTitle(fmt.Sprintf("%s - %s - %s", rs.Sport, rs.Label(), rs.Date.Format("02/01/2006")))
	tw.AppendHeader(table.Row{"#", "Match", "Kickoff", "Return", "1", "X", "2"})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})

	for i, r := range rs.Records {
		if t.Limit > 0 && i >= t.Limit {
			break
		}
		draw := "-"
		if r.Odds.HasDraw() {
			draw = r.Odds.Draw.Decimal.StringFixed(2)
		}
		tw.AppendRow(table.Row{
			i + 1,
			r.Participants(),
			r.Kickoff,
			returnRate(r),
			r.Odds.Team1.StringFixed(2),
			draw,
			r.Odds.Team2.StringFixed(2),
		})
	}
	tw.AppendFooter(table.Row{"", fmt.Sprintf("%d matches", len(rs.Records))})

	tw.Render()
	return nil
}
