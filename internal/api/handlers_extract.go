package api

import "net/http"

type headersResponse struct {
	Total   int      `json:"total"`
	Headers []string `json:"headers"`
}

// handleExtractHeaders returns the section names the extractor would use,
// so the frontend can offer them for weighting before a summary is requested.
func (s *Server) handleExtractHeaders(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	headers, err := s.orchestrator.ExtractHeaders(r.Context(), up)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, headersResponse{Total: len(headers), Headers: headers})
}
