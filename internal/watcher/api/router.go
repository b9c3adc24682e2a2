package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter 查询接口和 /metrics 共用一个端口
func NewRouter(query BalanceQuery, tl *zap.Logger) http.Handler {
	h := NewHandler(query, tl)
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(traceRequest)
		r.Get("/holders/{symbol}", h.ListHolders)
		r.Get("/balances/{symbol}", h.TopBalances)
		r.Get("/balances/{symbol}/{holder}", h.GetBalance)
	})

	return r
}
