package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/dgallion1/papersumm/internal/config"
	"github.com/dgallion1/papersumm/internal/document"
	"github.com/dgallion1/papersumm/internal/inference"
	"github.com/dgallion1/papersumm/internal/layout"
	"github.com/dgallion1/papersumm/internal/prompt"
	"github.com/dgallion1/papersumm/internal/section"
	"github.com/dgallion1/papersumm/internal/textproc"
	"github.com/dgallion1/papersumm/internal/weighting"
)

// State names a request's position in the pipeline, for logging.
type State string

const (
	StateReceived   State = "received"
	StateValidated  State = "validated"
	StateExtracted  State = "extracted"
	StateWeighted   State = "weighted"
	StateDispatched State = "dispatched"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// Source yields the positioned text fragments of a stored PDF.
type Source interface {
	ReadFile(path string) ([]document.Fragment, error)
}

// ChatClient is the single inference call the pipeline depends on.
type ChatClient interface {
	Chat(ctx context.Context, model, system, user string, opts inference.Options) (string, error)
}

// Upload is one received file, fully buffered.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Result is a completed summarization.
type Result struct {
	Summary      string
	Language     string
	SectionsUsed []string
	Model        string
	Warnings     []string
}

// Orchestrator runs the summarization pipeline. A request moves through
// received, validated, extracted, weighted, dispatched and ends completed or
// failed. Requests share nothing but the read-only config and the inference
// admission semaphore, so the orchestrator is safe for concurrent use.
type Orchestrator struct {
	source Source
	client ChatClient
	log    *slog.Logger
	cfg    config.Config
	secCfg section.Config

	sem chan struct{}
}

// NewOrchestrator wires the pipeline. The semaphore bounds how many requests
// may hold an inference slot at once; everything before dispatch runs
// unbounded.
func NewOrchestrator(cfg config.Config, source Source, client ChatClient, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		source: source,
		client: client,
		log:    log,
		cfg:    cfg,
		secCfg: section.DefaultConfig(),
		sem:    make(chan struct{}, cfg.MaxConcurrentInference),
	}
}

// Summarize runs the full pipeline for one upload and blocks until the
// summary is ready or a stage fails. Every error it returns is a *Error.
func (o *Orchestrator) Summarize(ctx context.Context, up Upload, params inference.Parameters, rawWeights string) (*Result, error) {
	id := uuid.NewString()
	log := o.log.With("request_id", id)
	log.Info("request received", "state", StateReceived, "filename", up.Filename, "bytes", len(up.Data), "model", params.Model)

	// Received -> Validated. Nothing touches the disk or the extractor
	// until the upload and parameters pass.
	if err := o.validateUpload(up); err != nil {
		return nil, o.fail(log, err)
	}
	target, err := o.validateParams(params)
	if err != nil {
		return nil, o.fail(log, err)
	}
	log.Info("upload accepted", "state", StateValidated, "language", target)

	// Validated -> Extracted.
	ex, err := o.extract(log, id, up.Data)
	if err != nil {
		return nil, o.fail(log, err)
	}
	log.Info("sections extracted", "state", StateExtracted, "sections", len(ex.sections), "detected_language", ex.language)

	var warnings []string
	if target == "auto" {
		if ex.language != "" {
			target = ex.language
		} else {
			target = o.cfg.DefaultLanguage
			warnings = append(warnings, fmt.Sprintf("document language could not be detected reliably, defaulting to %s", textproc.LanguageName(target)))
		}
	}

	// Extracted -> Weighted.
	weighted, err := o.weigh(rawWeights, ex.sections, params.NumPredict)
	if err != nil {
		return nil, o.fail(log, err)
	}
	used := sectionsUsed(weighted)
	log.Info("budget allocated", "state", StateWeighted, "sections_used", len(used), "budget_chars", allocatedTotal(weighted))

	// Weighted -> Dispatched -> Completed.
	req := prompt.Build(ex.title, weighted, params, target)
	summary, dispatchWarnings, err := o.dispatch(ctx, log, req, params)
	if err != nil {
		return nil, o.fail(log, err)
	}
	warnings = append(warnings, dispatchWarnings...)

	log.Info("summary ready", "state", StateCompleted, "summary_chars", utf8.RuneCountInString(summary), "warnings", len(warnings))
	return &Result{
		Summary:      summary,
		Language:     target,
		SectionsUsed: used,
		Model:        params.Model,
		Warnings:     warnings,
	}, nil
}

// ExtractHeaders runs the pipeline through extraction only and returns the
// section names in document order.
func (o *Orchestrator) ExtractHeaders(ctx context.Context, up Upload) ([]string, error) {
	id := uuid.NewString()
	log := o.log.With("request_id", id)
	log.Info("request received", "state", StateReceived, "filename", up.Filename, "bytes", len(up.Data))

	if err := o.validateUpload(up); err != nil {
		return nil, o.fail(log, err)
	}
	log.Info("upload accepted", "state", StateValidated)

	ex, err := o.extract(log, id, up.Data)
	if err != nil {
		return nil, o.fail(log, err)
	}

	names := make([]string, len(ex.sections))
	for i, s := range ex.sections {
		names[i] = s.Name
	}
	log.Info("headers extracted", "state", StateCompleted, "sections", len(names))
	return names, nil
}

// validateUpload rejects empty, oversized and non-PDF files before any
// extraction work happens.
func (o *Orchestrator) validateUpload(up Upload) *Error {
	if len(up.Data) == 0 {
		return newError(KindInvalidUpload, "uploaded file is empty", nil)
	}
	if int64(len(up.Data)) > o.cfg.MaxUploadBytes {
		return newError(KindInvalidUpload, fmt.Sprintf("file exceeds the %d byte upload limit", o.cfg.MaxUploadBytes), nil)
	}
	if ext := strings.ToLower(filepath.Ext(up.Filename)); ext != "" && ext != ".pdf" {
		return newError(KindInvalidUpload, "only PDF files are accepted", nil)
	}
	if up.ContentType != "" && up.ContentType != "application/pdf" && up.ContentType != "application/octet-stream" {
		return newError(KindInvalidUpload, fmt.Sprintf("unsupported content type %q", up.ContentType), nil)
	}
	if http.DetectContentType(up.Data) != "application/pdf" {
		return newError(KindInvalidUpload, "the file is not a well-formed PDF", nil)
	}
	return nil
}

// validateParams checks the inference parameters and resolves the requested
// language to "auto", "es" or "en".
func (o *Orchestrator) validateParams(params inference.Parameters) (string, *Error) {
	if err := params.Validate(); err != nil {
		return "", newError(KindInvalidParams, err.Error(), err)
	}
	target, ok := textproc.NormalizeLanguage(params.Language)
	if !ok {
		return "", newError(KindInvalidParams, fmt.Sprintf("unsupported language %q", params.Language), nil)
	}
	if len(o.cfg.AllowedModels) > 0 && !contains(o.cfg.AllowedModels, params.Model) {
		return "", newError(KindInvalidParams, fmt.Sprintf("model %q is not allowed", params.Model), nil)
	}
	return target, nil
}

// extraction is what the extract stage hands to the rest of the pipeline.
type extraction struct {
	title    string
	sections []document.Section
	language string // detected document language, empty when unreliable
}

// extract spools the upload to a scoped temp file, reads its fragments and
// segments them into cleaned sections. The temp file is removed on every
// path out of this function.
func (o *Orchestrator) extract(log *slog.Logger, id string, data []byte) (*extraction, *Error) {
	tmp := filepath.Join(o.cfg.TmpDir, "papersumm-"+id+".pdf")
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return nil, newError(KindInternal, "internal error", fmt.Errorf("spool upload: %w", err))
	}
	defer func() {
		if err := os.Remove(tmp); err != nil {
			log.Warn("temp file cleanup failed", "path", tmp, "error", err)
		}
	}()

	frags, err := o.source.ReadFile(tmp)
	if err != nil {
		if errors.Is(err, layout.ErrNoText) {
			return nil, newError(KindExtractionEmpty, "the PDF contains no extractable text", err)
		}
		return nil, newError(KindInvalidUpload, "the file could not be read as a PDF", err)
	}

	frags = textproc.FilterNoise(frags)
	sections, err := section.Extract(frags, o.secCfg)
	if err != nil {
		return nil, newError(KindExtractionEmpty, "no usable text could be extracted", err)
	}

	var all strings.Builder
	for i := range sections {
		sections[i].Body = textproc.CleanBody(sections[i].Body)
		all.WriteString(sections[i].Body)
		all.WriteByte(' ')
	}
	lang, ok := textproc.DetectLanguage(all.String())
	if !ok {
		lang = ""
	}

	return &extraction{
		title:    section.Title(frags),
		sections: sections,
		language: lang,
	}, nil
}

// weigh parses the weight spec, normalizes it against the extracted sections
// and allocates the character budget.
func (o *Orchestrator) weigh(rawWeights string, sections []document.Section, numPredict int) ([]document.WeightedSection, *Error) {
	spec, err := weighting.ParseSpec(rawWeights)
	if err != nil {
		return nil, newError(KindInvalidWeightSpec, err.Error(), err)
	}

	normalized, raw := weighting.Normalize(spec, sections)
	lengths := make([]int, len(sections))
	for i, s := range sections {
		lengths[i] = utf8.RuneCountInString(s.Body)
	}
	budget := weighting.Budget(o.cfg.ModelContextTokens, numPredict)
	alloc := weighting.Allocate(normalized, lengths, budget)

	weighted := make([]document.WeightedSection, len(sections))
	for i, s := range sections {
		weighted[i] = document.WeightedSection{
			Section:          s,
			RawWeight:        raw[i],
			NormalizedWeight: normalized[i],
			AllocatedChars:   alloc[i],
		}
	}
	return weighted, nil
}

// dispatch holds an inference slot across the summary call and any
// translation retry, so a request costs one slot no matter how many backend
// calls it makes.
func (o *Orchestrator) dispatch(ctx context.Context, log *slog.Logger, req document.SummaryRequest, params inference.Parameters) (string, []string, *Error) {
	select {
	case o.sem <- struct{}{}:
		defer func() { <-o.sem }()
	case <-ctx.Done():
		return "", nil, newError(KindInferenceUnavailable, "request canceled while waiting for an inference slot", ctx.Err())
	}
	log.Info("prompt dispatched", "state", StateDispatched, "model", params.Model, "target_language", req.Language)

	summary, cerr := o.chat(ctx, params, req.System, req.User)
	if cerr != nil {
		return "", nil, cerr
	}

	detected, ok := textproc.DetectLanguage(summary)
	if !ok {
		detected = ""
	}
	if detected == req.Language {
		return summary, nil, nil
	}

	// One translation pass. If the model still answers in the wrong
	// language the summary ships with a warning rather than failing.
	log.Info("summary language mismatch, translating", "expected", req.Language, "detected", detected)
	translated, cerr := o.chat(ctx, params, prompt.BuildTranslation(req.Language), summary)
	if cerr != nil {
		return "", nil, cerr
	}
	summary = translated

	detected, ok = textproc.DetectLanguage(summary)
	if !ok {
		detected = ""
	}
	var warnings []string
	if detected != req.Language {
		warnings = append(warnings, fmt.Sprintf("language mismatch: expected %s, detected %s", req.Language, orUnknown(detected)))
	}
	return summary, warnings, nil
}

// chat runs one backend call under the per-call timeout and maps its
// failures onto the pipeline error kinds.
func (o *Orchestrator) chat(ctx context.Context, params inference.Parameters, system, user string) (string, *Error) {
	callCtx, cancel := context.WithTimeout(ctx, o.cfg.InferenceTimeout)
	defer cancel()

	out, err := o.client.Chat(callCtx, params.Model, system, user, params.Options)
	if err != nil {
		var apiErr *inference.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
			return "", newError(KindInvalidParams, fmt.Sprintf("model %q is not available on the inference backend", params.Model), err)
		}
		return "", newError(KindInferenceUnavailable, "inference backend request failed", err)
	}
	return strings.TrimSpace(out), nil
}

func (o *Orchestrator) fail(log *slog.Logger, e *Error) *Error {
	log.Error("request failed", "state", StateFailed, "kind", e.Kind, "error", e)
	return e
}

// sectionsUsed returns the names of sections that received budget, in
// document order.
func sectionsUsed(weighted []document.WeightedSection) []string {
	used := make([]string, 0, len(weighted))
	for _, ws := range weighted {
		if ws.AllocatedChars > 0 {
			used = append(used, ws.Name)
		}
	}
	return used
}

func allocatedTotal(weighted []document.WeightedSection) int {
	total := 0
	for _, ws := range weighted {
		total += ws.AllocatedChars
	}
	return total
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func orUnknown(lang string) string {
	if lang == "" {
		return "unknown"
	}
	return lang
}
