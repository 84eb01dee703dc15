package outbound

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMoveEncodesFieldsWithGCharBias(t *testing.T) {
	got := Move(21, 24, 1, 3)
	assert.Equal(t, []byte{byte(PLIMove), 21 + 32, 24 + 32, 1 + 32, 3 + 32}, got)
}

func TestMoveClampsOutOfRangeValues(t *testing.T) {
	got := Move(-5, 999, 9, 500)
	assert.Equal(t, []byte{byte(PLIMove), 0 + 32, 127 + 32, 3 + 32, 223 + 32}, got)
}
