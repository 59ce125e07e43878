package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Search-Feedback-Reranker/pkg/logger"
)

const maxTopQueries = 100

type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     logger.WithComponent("analytics-handler"),
	}
}

// Stats serves GET /api/v1/analytics/rerank. The optional strategy
// parameter narrows the per-strategy breakdown to one rtype and top trims
// the query lists.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	top := 10
	if v := params.Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxTopQueries {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "top must be an integer between 1 and " + strconv.Itoa(maxTopQueries),
			})
			return
		}
		top = n
	}

	stats := h.aggregator.StatsTop(top)
	if name := params.Get("strategy"); name != "" {
		narrowed := make(map[string]StrategyStats, 1)
		if ss, ok := stats.Strategies[name]; ok {
			narrowed[name] = ss
		}
		stats.Strategies = narrowed
	}
	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
