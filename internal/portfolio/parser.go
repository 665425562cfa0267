package portfolio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AddRequest is a parsed "/add SYMBOL QTY COST [PRICE]" command.
// CurrentPrice is nil when the price should be fetched.
type AddRequest struct {
	Symbol        string
	Quantity      float64
	PurchasePrice float64
	CurrentPrice  *float64
}

// PriceRequest is a parsed "/price ID PRICE" command.
type PriceRequest struct {
	ID    string
	Price float64
}

// stripCommand removes "/cmd" and an optional "@botname" suffix.
func stripCommand(input, cmd string) string {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, cmd) {
		return input
	}
	rest := input[len(cmd):]
	if strings.HasPrefix(rest, "@") {
		if i := strings.IndexAny(rest, " \t"); i >= 0 {
			rest = rest[i:]
		} else {
			rest = ""
		}
	}
	return strings.TrimSpace(rest)
}

func parseAmount(field, what string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimPrefix(strings.ReplaceAll(field, ",", ""), "$"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s': %w", what, field, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("invalid %s '%s': must be a non-negative number", what, field)
	}
	return v, nil
}

// ParseAddCommand parses "/add AAPL 10 150.25 [172.10]".
func ParseAddCommand(input string) (AddRequest, error) {
	parts := strings.Fields(stripCommand(input, "/add"))
	if len(parts) < 3 || len(parts) > 4 {
		return AddRequest{}, fmt.Errorf("usage: /add SYMBOL QTY COST [PRICE]")
	}

	req := AddRequest{Symbol: NormalizeSymbol(parts[0])}
	if req.Symbol == "" {
		return AddRequest{}, fmt.Errorf("empty symbol")
	}

	var err error
	if req.Quantity, err = parseAmount(parts[1], "quantity"); err != nil {
		return AddRequest{}, err
	}
	if req.PurchasePrice, err = parseAmount(parts[2], "purchase price"); err != nil {
		return AddRequest{}, err
	}
	if len(parts) == 4 {
		price, err := parseAmount(parts[3], "current price")
		if err != nil {
			return AddRequest{}, err
		}
		req.CurrentPrice = &price
	}
	return req, nil
}

// ParsePriceCommand parses "/price ID 123.45".
func ParsePriceCommand(input string) (PriceRequest, error) {
	parts := strings.Fields(stripCommand(input, "/price"))
	if len(parts) != 2 {
		return PriceRequest{}, fmt.Errorf("usage: /price ID PRICE")
	}
	price, err := parseAmount(parts[1], "price")
	if err != nil {
		return PriceRequest{}, err
	}
	return PriceRequest{ID: parts[0], Price: price}, nil
}

// ParseSymbolArgs parses "/cmd SYMBOL [ARG]" and returns the normalized symbol and the optional argument.
func ParseSymbolArgs(input, cmd string) (string, string, error) {
	parts := strings.Fields(stripCommand(input, cmd))
	if len(parts) == 0 || len(parts) > 2 {
		return "", "", fmt.Errorf("usage: %s SYMBOL", cmd)
	}
	arg := ""
	if len(parts) == 2 {
		arg = parts[1]
	}
	return NormalizeSymbol(parts[0]), arg, nil
}

// ParseCompareCommand parses "/compare S1 S2 ... [WINDOW]". A trailing field that
// starts with a digit is the window. Symbols are normalized and deduplicated.
func ParseCompareCommand(input string) ([]string, string, error) {
	parts := strings.Fields(stripCommand(input, "/compare"))
	window := ""
	if n := len(parts); n > 0 && parts[n-1][0] >= '0' && parts[n-1][0] <= '9' {
		window = parts[n-1]
		parts = parts[:n-1]
	}
	seen := map[string]struct{}{}
	syms := make([]string, 0, len(parts))
	for _, p := range parts {
		s := NormalizeSymbol(p)
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		syms = append(syms, s)
	}
	if len(syms) < 2 {
		return nil, "", fmt.Errorf("please provide at least two symbols, e.g. /compare SPY AAPL 1y")
	}
	return syms, window, nil
}
