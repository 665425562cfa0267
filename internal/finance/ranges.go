package finance

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseWindow maps a user window such as "10d", "3w", "18m" or "2y" to the
// smallest Yahoo range that covers it. An empty window means one year.
func ParseWindow(window string) (string, error) {
	w := strings.ToLower(strings.TrimSpace(window))
	if w == "" {
		return "1y", nil
	}
	switch w {
	case "max", "ytd":
		return w, nil
	case "1mo", "3mo", "6mo":
		return w, nil
	}

	unit := w[len(w)-1]
	n, err := strconv.Atoi(w[:len(w)-1])
	if err != nil || n <= 0 {
		return "", fmt.Errorf("invalid window format: %s (use format like 1w, 6m, 2y)", window)
	}

	var days int
	switch unit {
	case 'd':
		days = n
	case 'w':
		days = n * 7
	case 'm':
		days = n * 30
	case 'y':
		days = n * 365
	default:
		return "", fmt.Errorf("invalid window format: %s (use format like 1w, 6m, 2y)", window)
	}

	switch {
	case days <= 5:
		return "5d", nil
	case days <= 31:
		return "1mo", nil
	case days <= 93:
		return "3mo", nil
	case days <= 186:
		return "6mo", nil
	case days <= 366:
		return "1y", nil
	case days <= 2*366:
		return "2y", nil
	case days <= 5*366:
		return "5y", nil
	case days <= 10*366:
		return "10y", nil
	default:
		return "max", nil
	}
}

// Candidates returns the non-empty ranges of chain in order, without duplicates.
func Candidates(chain []string) []string {
	seen := make(map[string]bool, len(chain))
	out := make([]string, 0, len(chain))
	for _, r := range chain {
		r = strings.ToLower(strings.TrimSpace(r))
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}
