package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/logger"
)

// UniverseSource returns the latest universe snapshot
type UniverseSource interface {
	LatestUniverse(ctx context.Context) (*contracts.Universe, error)
}

// UniverseHandler serves the universe snapshot
type UniverseHandler struct {
	universe UniverseSource
	logger   *logger.Logger
}

// NewUniverseHandler creates a new universe handler
func NewUniverseHandler(universe UniverseSource, log *logger.Logger) *UniverseHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &UniverseHandler{
		universe: universe,
		logger:   log.WithModule("api"),
	}
}

// GetUniverse returns the latest universe
// GET /api/universe
func (h *UniverseHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	universe, err := h.universe.LatestUniverse(r.Context())
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No universe snapshot yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get universe")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve universe")
		return
	}

	respondJSON(w, http.StatusOK, universe)
}
