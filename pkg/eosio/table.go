// Package eosio holds the wire types of the chain RPC table API and the
// decoders for the binary rows it returns.
package eosio

const (
	ActionGetTableRows = "get_table_rows"

	TableHolders  = "holders"
	TableAccounts = "accounts"
)

// TableRowsRequest get_table_rows 请求体
type TableRowsRequest struct {
	Code       string `json:"code"`
	Scope      string `json:"scope"`
	Table      string `json:"table"`
	JSON       bool   `json:"json"`
	LowerBound string `json:"lower_bound,omitempty"`
	UpperBound string `json:"upper_bound,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

// TableRowsResponse json=false 时 rows 为十六进制字符串
type TableRowsResponse struct {
	Rows []string `json:"rows"`
	More bool     `json:"more"`
}
