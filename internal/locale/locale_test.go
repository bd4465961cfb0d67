package locale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"es", "es"},
		{"ES", "es"},
		{"es-es", "es-ES"},
		{"pt_br", "pt-BR"},
		{"  de-AT ", "de-AT"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := Normalize(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.String())
		})
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, in := range []string{"", "e", "english", "es-ESP", "es--ES", "xx"} {
		t.Run(in, func(t *testing.T) {
			_, err := Normalize(in)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestDisplayName(t *testing.T) {
	l, err := Normalize("de")
	require.NoError(t, err)
	assert.Equal(t, "German", l.DisplayName())
}
