package duration

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{input: "90", expected: 90 * time.Second},
		{input: "0", expected: 0},
		{input: " 10m ", expected: 10 * time.Minute},
		{input: "1d12h", expected: 36 * time.Hour},
		{input: "2d", expected: 48 * time.Hour},
		{input: "", wantErr: true},
		{input: "-5", wantErr: true},
		{input: "-1m", wantErr: true},
		{input: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			d, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}
