package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchOptions_Normalise(t *testing.T) {
	tests := []struct {
		name string
		in   SearchOptions
		want SearchOptions
	}{
		{"defaults", SearchOptions{}, SearchOptions{Limit: DefaultSearchLimit}},
		{"negative offset", SearchOptions{Limit: 5, Offset: -3}, SearchOptions{Limit: 5}},
		{"limit capped", SearchOptions{Limit: 1000}, SearchOptions{Limit: MaxSearchLimit}},
		{"kept as-is", SearchOptions{Limit: 25, Offset: 50}, SearchOptions{Limit: 25, Offset: 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalise())
		})
	}
}
