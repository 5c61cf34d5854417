package entry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"trims", []string{"  a ", "b"}, []string{"a", "b"}},
		{"collapses whitespace", []string{"road   trip\t2024"}, []string{"road trip 2024"}},
		{"keeps case and duplicates", []string{"A", "a", "A"}, []string{"A", "a", "A"}},
		{"drops empty", []string{"", "   ", "x"}, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeTags(tt.in))
		})
	}
}

func TestNormalizeTitle(t *testing.T) {
	require.Equal(t, DefaultTitle, NormalizeTitle(""))
	require.Equal(t, DefaultTitle, NormalizeTitle("  \n"))
	require.Equal(t, "Hello  world", NormalizeTitle(" Hello  world "))
}
