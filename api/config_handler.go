// Package api — configuration endpoints.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/seenimoa/krxvalue/internal/config"
)

// ConfigResponse is the JSON envelope returned by GET /api/v1/config.
type ConfigResponse struct {
	Config     config.Config `json:"config"`
	ConfigFile string        `json:"config_file,omitempty"` // path to the active config file
}

// ValuationUpdate is the body for PUT /api/v1/config. Zero fields keep the
// running value.
type ValuationUpdate struct {
	RequiredReturn float64 `json:"required_return"`
	AveragePeriods int     `json:"average_periods"`
	Basis          string  `json:"basis"`
}

// handleGetConfig returns a snapshot of the running configuration.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.configSnapshot(),
	})
}

// handleUpdateConfig merges new valuation defaults into the running config.
// The change lives in memory only and is validated before it is applied.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var in ValuationUpdate
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	s.mu.Lock()
	cfg := s.engine.Config()
	merged := *cfg
	mergeValuation(&merged.Valuation, in)
	if err := merged.Validate(); err != nil {
		s.mu.Unlock()
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	cfg.Valuation.RequiredReturn = merged.Valuation.RequiredReturn
	cfg.Valuation.AveragePeriods = merged.Valuation.AveragePeriods
	cfg.Valuation.Basis = merged.Valuation.Basis
	s.mu.Unlock()

	log.Info().
		Float64("required_return", merged.Valuation.RequiredReturn).
		Int("average_periods", merged.Valuation.AveragePeriods).
		Str("basis", merged.Valuation.Basis).
		Msg("valuation defaults updated")

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.configSnapshot(),
	})
}

func (s *Server) configSnapshot() ConfigResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ConfigResponse{
		Config:     *s.engine.Config(),
		ConfigFile: s.configFile,
	}
}

// mergeValuation copies non-zero values from src into dst.
func mergeValuation(dst *config.ValuationConfig, src ValuationUpdate) {
	if src.RequiredReturn != 0 {
		dst.RequiredReturn = src.RequiredReturn
	}
	if src.AveragePeriods != 0 {
		dst.AveragePeriods = src.AveragePeriods
	}
	if src.Basis != "" {
		dst.Basis = src.Basis
	}
}
