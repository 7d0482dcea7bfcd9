package api

import (
	"net/http"

	"github.com/dgallion1/papersumm/internal/pipeline"
)

type modelsResponse struct {
	Models  []string `json:"models"`
	Default string   `json:"default"`
}

// handleListModels passes the backend's installed models through. The
// configured default is advertised only when it is actually installed;
// otherwise the first available model takes its place.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.client.ListModels(r.Context())
	if err != nil {
		writeError(w, &pipeline.Error{
			Kind:    pipeline.KindInferenceUnavailable,
			Message: "could not list models from the inference backend",
		})
		return
	}
	if models == nil {
		models = []string{}
	}

	def := s.cfg.DefaultModel
	if len(models) > 0 && !containsModel(models, def) {
		def = models[0]
	}
	writeJSON(w, http.StatusOK, modelsResponse{Models: models, Default: def})
}

func containsModel(models []string, name string) bool {
	for _, m := range models {
		if m == name {
			return true
		}
	}
	return false
}
