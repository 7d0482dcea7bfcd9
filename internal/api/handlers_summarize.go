package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/papersumm/internal/inference"
	"github.com/dgallion1/papersumm/internal/pipeline"
)

type summarizeResponse struct {
	Summary      string   `json:"summary"`
	Language     string   `json:"language"`
	SectionsUsed []string `json:"sections_used"`
	Model        string   `json:"model"`
	Warnings     []string `json:"warnings"`
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	up, ok := s.readUpload(w, r)
	if !ok {
		return
	}
	params, err := s.formParams(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.orchestrator.Summarize(r.Context(), up, params, r.FormValue("header_weights"))
	if err != nil {
		writeError(w, err)
		return
	}

	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	writeJSON(w, http.StatusOK, summarizeResponse{
		Summary:      res.Summary,
		Language:     res.Language,
		SectionsUsed: res.SectionsUsed,
		Model:        res.Model,
		Warnings:     warnings,
	})
}

// readUpload parses the multipart form and buffers the archivo_pdf part.
// The reader is capped one byte past the configured ceiling so the pipeline
// can tell an oversized file apart from one that just fits.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (pipeline.Upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, &pipeline.Error{Kind: pipeline.KindInvalidUpload, Message: "invalid multipart form: " + err.Error()})
		return pipeline.Upload{}, false
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("archivo_pdf")
	if err != nil {
		writeError(w, &pipeline.Error{Kind: pipeline.KindInvalidUpload, Message: "archivo_pdf file field is required"})
		return pipeline.Upload{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		writeError(w, &pipeline.Error{Kind: pipeline.KindInternal, Message: "internal error"})
		return pipeline.Upload{}, false
	}

	return pipeline.Upload{
		Filename:    sanitizeFilename(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

// formParams applies the documented form defaults and decodes any overrides.
// Bounds checking happens in the pipeline; here only the syntax can fail.
func (s *Server) formParams(r *http.Request) (inference.Parameters, error) {
	params := inference.Parameters{
		Model:    s.cfg.DefaultModel,
		Language: "auto",
		Options:  inference.DefaultOptions(),
	}
	if v := r.FormValue("model"); v != "" {
		params.Model = v
	}
	if v := r.FormValue("language"); v != "" {
		params.Language = v
	}

	var err error
	if params.Temperature, err = formFloat(r, "temperature", params.Temperature); err != nil {
		return params, err
	}
	if params.TopP, err = formFloat(r, "top_p", params.TopP); err != nil {
		return params, err
	}
	if params.RepeatPenalty, err = formFloat(r, "repeat_penalty", params.RepeatPenalty); err != nil {
		return params, err
	}
	if params.RepeatLastN, err = formInt(r, "repeat_last_n", params.RepeatLastN); err != nil {
		return params, err
	}
	if params.NumPredict, err = formInt(r, "num_predict", params.NumPredict); err != nil {
		return params, err
	}
	return params, nil
}

func formFloat(r *http.Request, key string, def float64) (float64, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &pipeline.Error{Kind: pipeline.KindInvalidParams, Message: fmt.Sprintf("%s must be a number", key)}
	}
	return f, nil
}

func formInt(r *http.Request, key string, def int) (int, error) {
	v := strings.TrimSpace(r.FormValue(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, &pipeline.Error{Kind: pipeline.KindInvalidParams, Message: fmt.Sprintf("%s must be an integer", key)}
	}
	return n, nil
}

// writeError maps any error onto the stable {error_kind, message} envelope.
func writeError(w http.ResponseWriter, err error) {
	e := pipeline.AsError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error_kind": string(e.Kind),
		"message":    e.Message,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
