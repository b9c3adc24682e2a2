package model

import (
	"github.com/shopspring/decimal"
)

// BalanceKey 余额记录主键
type BalanceKey struct {
	Holder string
	Symbol string
}

func (k BalanceKey) String() string {
	return k.Symbol + ":" + k.Holder
}

// Balance 单个持有人在某个资产上的余额
type Balance struct {
	Holder string          `gorm:"column:holder;primaryKey;type:varchar(13)" json:"holder"`
	Symbol string          `gorm:"column:symbol;primaryKey;type:varchar(7)" json:"symbol"`
	Amount decimal.Decimal `gorm:"column:amount;type:numeric(38,18);not null;default:0" json:"amount"`
}

func (b Balance) Key() BalanceKey {
	return BalanceKey{Holder: b.Holder, Symbol: b.Symbol}
}

// Equal 所有字段相等，amount 按数值比较
func (b Balance) Equal(other Balance) bool {
	return b.Holder == other.Holder && b.Symbol == other.Symbol && b.Amount.Equal(other.Amount)
}
