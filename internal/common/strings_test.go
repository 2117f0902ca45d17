package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "lowercases", input: "Alice@Example.COM", want: "alice@example.com"},
		{name: "trims whitespace", input: "  alice@example.com\t", want: "alice@example.com"},
		{name: "already normal", input: "alice@example.com", want: "alice@example.com"},
		{name: "only whitespace", input: "   ", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIdentifier(tt.input))
		})
	}
}

func TestSortIdentifiers(t *testing.T) {
	identifiers := []string{"carol@x.com", "Alice@x.com", "bob@x.com", "alice@x.com"}

	sorted := SortIdentifiers(identifiers)

	// case-insensitive order, byte order breaking ties so runs are stable
	assert.Equal(t, []string{"Alice@x.com", "alice@x.com", "bob@x.com", "carol@x.com"}, sorted)
}

func TestSortIdentifiers_Empty(t *testing.T) {
	assert.Empty(t, SortIdentifiers(nil))
	assert.Equal(t, []string{"one"}, SortIdentifiers([]string{"one"}))
}
