package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ChangeInsert   = "insert"
	ChangeUpdate   = "update"
	ChangeSnapshot = "snapshot" // 启动时回放的已持久化余额
)

// BalanceChange 对账成功后发往下游的变更事件
type BalanceChange struct {
	Holder     string           `json:"holder"`
	Symbol     string           `json:"symbol"`
	Amount     decimal.Decimal  `json:"amount"`
	Previous   *decimal.Decimal `json:"previous,omitempty"`
	Op         string           `json:"op"`
	ObservedAt int64            `json:"observed_at"`
}

func NewBalanceChange(b Balance, previous *decimal.Decimal, op string) BalanceChange {
	return BalanceChange{
		Holder:     b.Holder,
		Symbol:     b.Symbol,
		Amount:     b.Amount,
		Previous:   previous,
		Op:         op,
		ObservedAt: time.Now().UnixMilli(),
	}
}

func (c BalanceChange) Key() BalanceKey {
	return BalanceKey{Holder: c.Holder, Symbol: c.Symbol}
}
