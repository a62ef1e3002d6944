package handler

import (
	"context"
	"net/http"

	"github.com/iho/expenseledger/internal/adapter/http/dto"
	"github.com/iho/expenseledger/internal/domain"
)

// StatsService defines the behavior needed by StatsHandler.
type StatsService interface {
	FetchStats(ctx context.Context, uid string, period domain.Period) (*domain.Stats, error)
}

// StatsHandler serves bucketed income and expense statistics.
type StatsHandler struct {
	statsUC StatsService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(statsUC StatsService) *StatsHandler {
	return &StatsHandler{statsUC: statsUC}
}

// Get returns the series for ?uid=&period=week|month|year.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	period, err := domain.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	stats, err := h.statsUC.FetchStats(r.Context(), r.URL.Query().Get("uid"), period)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatsFromDomain(stats))
}
