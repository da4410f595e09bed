package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParsePriceList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []Item
	}{
		{
			name: "well formed list",
			raw:  "5000 cp unsafe, 12.50\n10000 cp fund, 20",
			want: []Item{
				{Name: "5000 cp unsafe", Price: 12.5},
				{Name: "10000 cp fund", Price: 20},
			},
		},
		{
			name: "blank lines skipped",
			raw:  "\n\nitem one, 5\n\n",
			want: []Item{{Name: "item one", Price: 5}},
		},
		{
			name: "line without separator skipped",
			raw:  "no separator here\nitem two, 7.25",
			want: []Item{{Name: "item two", Price: 7.25}},
		},
		{
			name: "line with bad price skipped",
			raw:  "item one, cheap\nitem two, 3",
			want: []Item{{Name: "item two", Price: 3}},
		},
		{
			name: "surrounding whitespace trimmed",
			raw:  "  item one ,  9.99  ",
			want: []Item{{Name: "item one", Price: 9.99}},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePriceList(tt.raw, zap.NewNop()))
		})
	}
}

func TestFormat(t *testing.T) {
	items := []Item{
		{Name: "5000 cp unsafe", Price: 12.5},
		{Name: "10000 cp fund", Price: 20},
	}
	assert.Equal(t, "- 5000 cp unsafe: $12.50\n- 10000 cp fund: $20.00\n", Format(items))

	assert.Empty(t, Format(nil))
}
