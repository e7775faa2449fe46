package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"mxshs/oddsranker/src/apperr"
	"mxshs/oddsranker/src/domain"
	"mxshs/oddsranker/src/runner"
)

const promptAttempts = 3

// PromptBookmaker asks for a catalog id, or 0 for every bookmaker, and
// returns the choice in the form runner.NewPlan accepts.
func PromptBookmaker(in io.Reader, out io.Writer, catalog []domain.Bookmaker) (string, error) {
	fmt.Fprintln(out, "Bookmakers:")
	fmt.Fprintln(out, "  0) all")
	for _, b := range catalog {
		fmt.Fprintf(out, "  %s) %s\n", b.ID, b.Name)
	}

	scanner := bufio.NewScanner(in)
	for attempt := 1; attempt <= promptAttempts; attempt++ {
		fmt.Fprint(out, "Choose a bookmaker (0 = all): ")
		if !scanner.Scan() {
			break
		}

		answer := strings.TrimSpace(scanner.Text())
		if answer == "0" || strings.EqualFold(answer, runner.AllBookmakers) {
			return runner.AllBookmakers, nil
		}
		for _, b := range catalog {
			if answer == b.ID {
				return b.ID, nil
			}
		}

		fmt.Fprintf(out, "Invalid choice %q\n", answer)
	}

	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read bookmaker choice: %w", err)
	}

	return "", apperr.New(apperr.CodeConfigurationMissing, "no valid bookmaker chosen after %d attempts", promptAttempts)
}
