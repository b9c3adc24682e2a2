package api

import (
	"context"
	"net/http"
	"regexp"
	"strconv"

	"eos-watcher/internal/watcher/model"
	"eos-watcher/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 10000
)

var (
	symbolPattern = regexp.MustCompile(`^[A-Z]{1,7}$`)
	holderPattern = regexp.MustCompile(`^[.1-5a-z]{1,13}$`)
)

// BalanceQuery 查询侧只读接口，dao.BalanceDAO 满足
type BalanceQuery interface {
	Holders(ctx context.Context, symbol string) ([]string, error)
	TopBalances(ctx context.Context, symbol string, limit int) ([]model.Balance, error)
	GetByHolder(ctx context.Context, holder, symbol string) (*model.Balance, error)
}

type Handler struct {
	query BalanceQuery
	tl    *zap.Logger
}

func NewHandler(query BalanceQuery, tl *zap.Logger) *Handler {
	return &Handler{query: query, tl: tl}
}

type holdersResponse struct {
	Symbol  string   `json:"symbol"`
	Holders []string `json:"holders"`
}

type balancesResponse struct {
	Symbol   string          `json:"symbol"`
	Balances []model.Balance `json:"balances"`
}

func (h *Handler) ListHolders(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbol(w, r)
	if !ok {
		return
	}

	holders, err := h.query.Holders(r.Context(), symbol)
	if err != nil {
		h.internalError(w, r, "list holders", err)
		return
	}
	if holders == nil {
		holders = []string{}
	}
	h.writeJSON(w, http.StatusOK, holdersResponse{Symbol: symbol, Holders: holders})
}

func (h *Handler) TopBalances(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbol(w, r)
	if !ok {
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxLimit {
			h.writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxLimit))
			return
		}
		limit = n
	}

	balances, err := h.query.TopBalances(r.Context(), symbol, limit)
	if err != nil {
		h.internalError(w, r, "top balances", err)
		return
	}
	if balances == nil {
		balances = []model.Balance{}
	}
	h.writeJSON(w, http.StatusOK, balancesResponse{Symbol: symbol, Balances: balances})
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	symbol, ok := h.symbol(w, r)
	if !ok {
		return
	}
	holder := chi.URLParam(r, "holder")
	if !holderPattern.MatchString(holder) {
		h.writeError(w, http.StatusBadRequest, "invalid holder")
		return
	}

	balance, err := h.query.GetByHolder(r.Context(), holder, symbol)
	if err != nil {
		h.internalError(w, r, "get balance", err)
		return
	}
	if balance == nil {
		h.writeError(w, http.StatusNotFound, "balance not found")
		return
	}
	h.writeJSON(w, http.StatusOK, balance)
}

// --- Helpers ---

func (h *Handler) symbol(w http.ResponseWriter, r *http.Request) (string, bool) {
	symbol := chi.URLParam(r, "symbol")
	if !symbolPattern.MatchString(symbol) {
		h.writeError(w, http.StatusBadRequest, "invalid symbol")
		return "", false
	}
	return symbol, true
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.NewLoggerWithTrace(r.Context(), h.tl).Error("Query failed", zap.String("op", op), zap.Error(err))
	h.writeError(w, http.StatusInternalServerError, "internal error")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		h.tl.Error("failed to encode JSON response", zap.Error(err))
		http.Error(w, `{"error":"internal json encode failure"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
