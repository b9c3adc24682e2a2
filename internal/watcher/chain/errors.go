package chain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyPool 节点列表为空，属于配置错误，不会等待任何超时
var ErrEmptyPool = errors.New("chain: endpoint pool is empty")

// ErrAssetNotFound 持有人查询成功但没有目标资产，与余额为 0 不同
var ErrAssetNotFound = errors.New("chain: asset not found for holder")

// EndpointError 单个节点的传输或 HTTP 错误
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error {
	return e.Err
}

// AllEndpointsFailedError 选中的节点全部失败，Failures 按返回先后排列
type AllEndpointsFailedError struct {
	Action   string
	Failures []*EndpointError
}

func (e *AllEndpointsFailedError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "chain: all %d endpoints failed for %s", len(e.Failures), e.Action)
	for _, f := range e.Failures {
		sb.WriteString("\n\t")
		sb.WriteString(f.Error())
	}
	return sb.String()
}

func (e *AllEndpointsFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}
	return errs
}

type AssetNotFoundError struct {
	Holder string
	Symbol string
}

func (e *AssetNotFoundError) Error() string {
	return fmt.Sprintf("chain: asset %s not found for holder %s", e.Symbol, e.Holder)
}

func (e *AssetNotFoundError) Is(target error) bool {
	return target == ErrAssetNotFound
}
