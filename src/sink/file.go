package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"mxshs/oddsranker/src/domain"

	"go.uber.org/zap"
)

const (
	fileDateLayout = "02-01-2006"
	rule           = "----------------------------------------"
)

var unsafeName = regexp.MustCompile(`[^\pL\pN+._-]+`)

// File writes one text report per result set to
// {Dir}/{sport}_{bookmaker}_{DD-MM-YYYY}.txt.
type File struct {
	Dir string
	log *zap.Logger
}

func NewFile(dir string, log *zap.Logger) *File {
	return &File{Dir: dir, log: log.Named("file-sink")}
}

func (f *File) Path(rs domain.ResultSet) string {
	label := unsafeName.ReplaceAllString(rs.Label(), "_")
	if label == "" {
		label = "none"
	}
	name := fmt.Sprintf("%s_%s_%s.txt", rs.Sport, label, rs.Date.Format(fileDateLayout))
	return filepath.Join(f.Dir, name)
}

func (f *File) Persist(ctx context.Context, rs domain.ResultSet) error {
	if err := os.MkdirAll(f.Dir, 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}

	path := f.Path(rs)
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer out.Close()

	w := bufio.NewWriter(out)
	if err := WriteReport(w, rs); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	f.log.Info("report written", zap.String("path", path), zap.Int("matches", len(rs.Records)))
	return out.Close()
}

func WriteReport(w *bufio.Writer, rs domain.ResultSet) error {
	fmt.Fprintf(w, "%s matches ranked by return rate - %s - %s (%d)\n",
		capitalize(rs.Sport.String()), rs.Label(), rs.Date.Format("02/01/2006"), len(rs.Records))
	w.WriteString(rule + "\n")

	for _, r := range rs.Records {
		fmt.Fprintf(w, "Match: %s\n", r.Participants())
		fmt.Fprintf(w, "Kickoff: %s\n", r.Kickoff)
		fmt.Fprintf(w, "Return rate: %s\n", returnRate(r))
		fmt.Fprintf(w, "Odd %s: %s\n", r.Team1, r.Odds.Team1.StringFixed(2))
		if r.Odds.HasDraw() {
			fmt.Fprintf(w, "Odd draw: %s\n", r.Odds.Draw.Decimal.StringFixed(2))
		}
		fmt.Fprintf(w, "Odd %s: %s\n", r.Team2, r.Odds.Team2.StringFixed(2))
		if _, err := w.WriteString(rule + "\n"); err != nil {
			return err
		}
	}

	return nil
}

func returnRate(r domain.MatchRecord) string {
	if r.ReturnRateText != "" {
		return r.ReturnRateText
	}
	return r.ReturnRate.String() + "%"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
