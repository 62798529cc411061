package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeProfileURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"regional india", "https://in.linkedin.com/in/alice", "https://www.linkedin.com/in/alice"},
		{"canonical passthrough", "https://www.linkedin.com/in/bob", "https://www.linkedin.com/in/bob"},
		{"regional uk keeps path and query", "https://uk.linkedin.com/in/carol/?originalSubdomain=uk", "https://www.linkedin.com/in/carol/?originalSubdomain=uk"},
		{"uppercase host", "https://DE.LinkedIn.com/in/dieter", "https://www.linkedin.com/in/dieter"},
		{"surrounding whitespace", "  https://www.linkedin.com/in/erin  ", "https://www.linkedin.com/in/erin"},
		{"other site untouched", "https://example.com/in/frank", "https://example.com/in/frank"},
		{"mobile subdomain untouched", "https://mobile.linkedin.com/in/gina", "https://mobile.linkedin.com/in/gina"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeProfileURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeProfileURLRejectsRelative(t *testing.T) {
	for _, in := range []string{"", "linkedin.com/in/alice", "/in/alice", "ftp://www.linkedin.com/in/alice", "https://%zz"} {
		_, err := NormalizeProfileURL(in)
		assert.ErrorIs(t, err, ErrInvalidProfileURL, in)
	}
}
