package core

import (
	"fmt"
	"strings"
	"testing"

	"mxshs/oddsranker/src/config"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type block struct {
	time  string
	teams []string
	rate  string
	odds  []string
}

func testSite(t *testing.T) *config.Site {
	t.Helper()
	site, err := config.DefaultSite()
	require.NoError(t, err)
	return site
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}

func renderBlock(b block) string {
	var sb strings.Builder
	sb.WriteString(`<div class="match-block">`)
	fmt.Fprintf(&sb, `<span class="match-time">%s</span>`, b.time)
	for _, team := range b.teams {
		fmt.Fprintf(&sb, `<span class="team-name">%s</span>`, team)
	}
	fmt.Fprintf(&sb, `<span class="return-rate">%s</span>`, b.rate)
	for _, odd := range b.odds {
		fmt.Fprintf(&sb, `<button class="odd"><span class="odd-value">%s</span></button>`, odd)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}

// listingHTML renders a listing page. labels are the pagination link texts;
// none means the page has no pagination control.
func listingHTML(labels []string, blocks ...block) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><main>`)
	for _, b := range blocks {
		sb.WriteString(renderBlock(b))
	}
	if len(labels) > 0 {
		sb.WriteString(`<nav class="pagination">`)
		for _, l := range labels {
			fmt.Fprintf(&sb, `<a href="#">%s</a>`, l)
		}
		sb.WriteString(`</nav>`)
	}
	sb.WriteString(`</main></body></html>`)
	return sb.String()
}
