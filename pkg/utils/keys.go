package utils

import "fmt"

func BalanceKey(symbol, holder string) string {
	return fmt.Sprintf("eos_watcher:balance:%s:%s", symbol, holder)
}

// BalanceKeyPattern 匹配所有单条余额缓存，不匹配 BalanceHashKey
func BalanceKeyPattern() string {
	return "eos_watcher:balance:*:*"
}

// BalanceHashKey 每个 symbol 一个 hash，field 为 holder
func BalanceHashKey(symbol string) string {
	return fmt.Sprintf("eos_watcher:balance:%s", symbol)
}

// BalanceRankKey 按余额排序的 zset
func BalanceRankKey(symbol string) string {
	return fmt.Sprintf("eos_watcher:rank:%s", symbol)
}
