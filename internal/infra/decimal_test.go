package infra

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecimal128RoundTripKeepsScale(t *testing.T) {
	for _, raw := range []string{"0", "0.01", "150.25", "99999999.99"} {
		d := decimal.RequireFromString(raw)

		enc, err := ToDecimal128(d)
		require.NoError(t, err)

		dec, err := FromDecimal128(enc)
		require.NoError(t, err)
		assert.True(t, d.Equal(dec), "expected %s, got %s", d, dec)
	}
}
