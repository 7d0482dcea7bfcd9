package api

import (
	"net/http"

	"github.com/dgallion1/papersumm/internal/pipeline"
)

func (s *Server) handleInferenceStats(w http.ResponseWriter, r *http.Request) {
	if s.client == nil || s.client.Stats == nil {
		writeError(w, &pipeline.Error{Kind: pipeline.KindInternal, Message: "inference stats unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"default_model": s.cfg.DefaultModel,
		"stats":         s.client.Stats.Snapshot(),
	})
}
