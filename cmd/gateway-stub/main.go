// Command gateway-stub is a minimal stand-in for the Razorpay Orders API,
// used by the integration compose stack so online checkouts run without
// external credentials. It accepts any order and hands back a fresh order id.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"time"
)

type orderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func main() {
	var addr string
	flag.StringVar(&addr, "addr", ":9090", "listen address")
	flag.Parse()

	var seq atomic.Int64

	mux := http.NewServeMux()
	mux.HandleFunc("POST /orders", func(w http.ResponseWriter, r *http.Request) {
		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.Amount <= 0 || req.Currency == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		resp := orderResponse{
			ID:       fmt.Sprintf("order_stub_%06d", seq.Add(1)),
			Amount:   req.Amount,
			Currency: req.Currency,
		}

		slog.Info("created gateway order",
			slog.String("id", resp.ID),
			slog.Int64("amount", resp.Amount),
			slog.String("currency", resp.Currency))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("gateway stub listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
