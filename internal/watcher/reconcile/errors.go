package reconcile

import (
	"errors"
	"fmt"
	"strings"

	"eos-watcher/internal/watcher/model"
)

// ErrMissingHolder 已持久化的持有人不在新快照中。链上持有人不会消失，出现即为逻辑错误
var ErrMissingHolder = errors.New("reconcile: persisted holder missing from snapshot")

// ErrDuplicateKey 快照中同一主键出现多次
var ErrDuplicateKey = errors.New("reconcile: duplicate key in snapshot")

type MissingHolderError struct {
	Keys []model.BalanceKey
}

func (e *MissingHolderError) Error() string {
	keys := make([]string, 0, len(e.Keys))
	for _, k := range e.Keys {
		keys = append(keys, k.String())
	}
	return fmt.Sprintf("%s: %s", ErrMissingHolder, strings.Join(keys, ", "))
}

func (e *MissingHolderError) Is(target error) bool {
	return target == ErrMissingHolder
}
