package eosio

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeAsset(t *testing.T) {
	// 1.0000 EOS
	a, err := DecodeAsset("102700000000000004454f5300000000")
	require.NoError(t, err)
	assert.Equal(t, "EOS", a.Symbol)
	assert.Equal(t, uint8(4), a.Precision)
	assert.True(t, a.Amount.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "1.0000 EOS", a.String())
}

func TestEncodeAssetRoundTrip(t *testing.T) {
	in := Asset{Amount: decimal.RequireFromString("1234.5678"), Precision: 4, Symbol: "DUCAT"}
	row, err := EncodeAsset(in)
	require.NoError(t, err)

	out, err := DecodeAsset(row)
	require.NoError(t, err)
	assert.Equal(t, in.Symbol, out.Symbol)
	assert.True(t, in.Amount.Equal(out.Amount), "got %s", out.Amount)
}

func TestDecodeAssetErrors(t *testing.T) {
	_, err := DecodeAsset("1027")
	assert.Error(t, err)

	// 小写 symbol
	_, err = DecodeAsset("102700000000000004656f7300000000")
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	_, err = EncodeAsset(Asset{Symbol: "TOOLONGSYM"})
	assert.ErrorIs(t, err, ErrInvalidSymbol)
}
