package eosio

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// AssetLen asset 编码后的字节数: int64 amount + uint64 symbol
const AssetLen = 16

const maxSymbolLen = 7

var ErrInvalidSymbol = errors.New("invalid asset symbol")

// Asset 链上资产
type Asset struct {
	Amount    decimal.Decimal
	Precision uint8
	Symbol    string
}

func (a Asset) String() string {
	return a.Amount.StringFixed(int32(a.Precision)) + " " + a.Symbol
}

// DecodeAsset 解析 accounts 表的十六进制行
func DecodeAsset(row string) (Asset, error) {
	raw, err := hex.DecodeString(row)
	if err != nil {
		return Asset{}, fmt.Errorf("decode asset row: %w", err)
	}
	if len(raw) < AssetLen {
		return Asset{}, fmt.Errorf("decode asset row: need %d bytes, got %d", AssetLen, len(raw))
	}

	amount := int64(binary.LittleEndian.Uint64(raw[:8]))
	precision := raw[8]

	symbol := make([]byte, 0, maxSymbolLen)
	for _, c := range raw[9:AssetLen] {
		if c == 0 {
			break
		}
		if c < 'A' || c > 'Z' {
			return Asset{}, fmt.Errorf("%w: byte 0x%02x", ErrInvalidSymbol, c)
		}
		symbol = append(symbol, c)
	}
	if len(symbol) == 0 {
		return Asset{}, ErrInvalidSymbol
	}

	return Asset{
		Amount:    decimal.New(amount, -int32(precision)),
		Precision: precision,
		Symbol:    string(symbol),
	}, nil
}

// EncodeAsset 与 DecodeAsset 相反，amount 按 precision 截断
func EncodeAsset(a Asset) (string, error) {
	if len(a.Symbol) == 0 || len(a.Symbol) > maxSymbolLen {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, a.Symbol)
	}
	var raw [AssetLen]byte
	units := a.Amount.Shift(int32(a.Precision)).Truncate(0).IntPart()
	binary.LittleEndian.PutUint64(raw[:8], uint64(units))
	raw[8] = a.Precision
	copy(raw[9:], a.Symbol)
	return hex.EncodeToString(raw[:]), nil
}
