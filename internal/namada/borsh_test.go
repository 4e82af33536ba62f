package namada

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBorshReader_Dec(t *testing.T) {
	negative := new(uint256.Int).Neg(uint256.NewInt(1_500_000_000_000)).Bytes32()
	var le []byte
	for i := 31; i >= 0; i-- {
		le = append(le, negative[i])
	}

	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{"positive", (&borshWriter{}).dec("0.05").buf, "0.05"},
		{"zero", (&borshWriter{}).dec("0").buf, "0"},
		{"whole", (&borshWriter{}).dec("12").buf, "12"},
		{"negative", le, "-1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newBorshReader(tt.input)
			got, err := r.dec()
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.expected).Equal(got), "got %s", got)
			assert.NoError(t, r.done())
		})
	}
}

func TestBorshReader_Option(t *testing.T) {
	r := newBorshReader([]byte{0, 1, 2})

	some, err := r.option()
	require.NoError(t, err)
	assert.False(t, some)

	some, err = r.option()
	require.NoError(t, err)
	assert.True(t, some)

	_, err = r.option()
	assert.ErrorContains(t, err, "invalid option tag 2")
}

func TestBorshReader_String(t *testing.T) {
	r := newBorshReader((&borshWriter{}).str("validator@example.com").buf)
	s, err := r.string()
	require.NoError(t, err)
	assert.Equal(t, "validator@example.com", s)

	r = newBorshReader([]byte{2, 0, 0, 0, 0xff, 0xfe})
	_, err = r.string()
	assert.ErrorContains(t, err, "invalid utf-8")
}

func TestBorshReader_Errors(t *testing.T) {
	r := newBorshReader([]byte{1, 2, 3})
	_, err := r.u64()
	assert.ErrorContains(t, err, "need 8 bytes")

	r = newBorshReader([]byte{1, 2, 3, 4, 5})
	_, err = r.u32()
	require.NoError(t, err)
	assert.ErrorContains(t, r.done(), "1 trailing bytes")
}
