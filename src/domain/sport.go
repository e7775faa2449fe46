package domain

import (
	"fmt"
	"strings"
)

type Sport string

const (
	Football Sport = "football"
	Tennis   Sport = "tennis"
)

var Sports = []Sport{Football, Tennis}

// HasDraw reports whether a match of this sport can end in a draw.
func (s Sport) HasDraw() bool {
	return s == Football
}

func (s Sport) String() string {
	return string(s)
}

func ParseSport(v string) (Sport, error) {
	s := Sport(strings.ToLower(strings.TrimSpace(v)))
	for _, known := range Sports {
		if s == known {
			return s, nil
		}
	}

	return "", fmt.Errorf("unknown sport %q", v)
}
