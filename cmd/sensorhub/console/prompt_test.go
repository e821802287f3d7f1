package console

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchConstraint(t *testing.T) {
	tests := []struct {
		response string
		want     string
	}{
		{"", No},
		{"y", Yes},
		{" Y ", Yes},
		{"n", No},
		{"maybe", No},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchConstraint(tt.response, []string{No, Yes}), "response %q", tt.response)
	}
}
