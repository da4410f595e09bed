// Package pricing parses raw "item, price" price lists submitted by
// operators into a structured list, skipping lines that do not parse.
package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type Item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ParsePriceList reads one "item, price" pair per line. Blank lines are
// skipped; malformed lines are logged and skipped rather than failing the
// whole list.
func ParsePriceList(raw string, logger *zap.Logger) []Item {
	var items []Item
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		name, priceStr, ok := strings.Cut(line, ",")
		if !ok {
			logger.Warn("skipping price line without separator", zap.String("line", line))
			continue
		}

		price, err := strconv.ParseFloat(strings.TrimSpace(priceStr), 64)
		if err != nil {
			logger.Warn("skipping price line with invalid price",
				zap.String("line", line),
				zap.Error(err))
			continue
		}

		items = append(items, Item{
			Name:  strings.TrimSpace(name),
			Price: price,
		})
	}
	return items
}

// Format renders the list for operator confirmation.
func Format(items []Item) string {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "- %s: $%.2f\n", item.Name, item.Price)
	}
	return b.String()
}
