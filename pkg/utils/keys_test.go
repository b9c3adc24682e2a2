package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "eos_watcher:balance:DUCAT:alice", BalanceKey("DUCAT", "alice"))
	assert.Equal(t, "eos_watcher:balance:EOS", BalanceHashKey("EOS"))
	assert.Equal(t, "eos_watcher:rank:EOS", BalanceRankKey("EOS"))
	assert.Equal(t, "eos_watcher:balance:*:*", BalanceKeyPattern())
}
