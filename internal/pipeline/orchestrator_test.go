package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dgallion1/papersumm/internal/config"
	"github.com/dgallion1/papersumm/internal/document"
	"github.com/dgallion1/papersumm/internal/inference"
	"github.com/dgallion1/papersumm/internal/layout"
)

const englishSummary = "The study finds that weighted prompts steer machine generated summaries " +
	"toward the sections readers care about, and that the effect grows with the share " +
	"of weight assigned to a single section."

const spanishSummary = "El estudio muestra que las ponderaciones indicadas por el lector desplazan " +
	"el contenido del resumen hacia las secciones priorizadas, y que el efecto crece " +
	"cuando una sola sección concentra la mayor parte del peso."

// fakeSource serves canned fragments instead of parsing the spooled file,
// but records whether the file actually existed when read.
type fakeSource struct {
	frags   []document.Fragment
	err     error
	calls   atomic.Int32
	sawFile atomic.Bool
}

func (s *fakeSource) ReadFile(path string) ([]document.Fragment, error) {
	s.calls.Add(1)
	if _, err := os.Stat(path); err == nil {
		s.sawFile.Store(true)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.frags, nil
}

type chatCall struct {
	model  string
	system string
	user   string
	opts   inference.Options
}

// fakeChat replays canned replies in call order, repeating the last one, and
// tracks how many calls were in flight at once.
type fakeChat struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   []chatCall

	delay    time.Duration
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func (c *fakeChat) Chat(ctx context.Context, model, system, user string, opts inference.Options) (string, error) {
	n := c.inflight.Add(1)
	defer c.inflight.Add(-1)
	for {
		seen := c.maxSeen.Load()
		if n <= seen || c.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, chatCall{model: model, system: system, user: user, opts: opts})
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", nil
	}
	idx := len(c.calls) - 1
	if idx >= len(c.replies) {
		idx = len(c.replies) - 1
	}
	return c.replies[idx], nil
}

func (c *fakeChat) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *fakeChat) call(i int) chatCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[i]
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Port:                   "8080",
		OllamaURL:              "http://localhost:11434",
		DefaultModel:           "llama3.2:3b",
		ModelContextTokens:     4096,
		MaxConcurrentInference: 2,
		InferenceTimeout:       5 * time.Second,
		MaxUploadBytes:         30 << 20,
		DefaultLanguage:        "es",
		TmpDir:                 t.TempDir(),
	}
}

func newTestOrchestrator(cfg config.Config, src Source, chat ChatClient) *Orchestrator {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewOrchestrator(cfg, src, chat, log)
}

func pdfUpload() Upload {
	return Upload{
		Filename:    "paper.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\n"),
	}
}

func defaultParams() inference.Parameters {
	return inference.Parameters{
		Model:    "llama3.2:3b",
		Language: "en",
		Options: inference.Options{
			Temperature:   0.5,
			TopP:          0.8,
			RepeatPenalty: 1.1,
			RepeatLastN:   32,
			NumPredict:    1000,
		},
	}
}

// paperFrags models a short English article: a large-font title line, an
// abstract sentence and four lexical section headers with body text.
func paperFrags() []document.Fragment {
	body := func(text string) document.Fragment {
		return document.Fragment{Text: text, FontSize: 10}
	}
	header := func(text string) document.Fragment {
		return document.Fragment{Text: text, FontSize: 14, Bold: true}
	}
	return []document.Fragment{
		{Text: "Weighted Summaries of Scientific Articles", FontSize: 20},
		body("The reported study measures the effect of weighted emphasis on the quality of machine generated summaries."),
		header("Introduction"),
		body("Scientific articles follow a stable sectional structure and readers rarely value every section equally."),
		body("This work proposes letting the reader state that preference explicitly before summarization."),
		header("Methods"),
		body("The corpus contains four hundred articles drawn from three open repositories of computer science papers."),
		body("Each article was segmented with layout heuristics and summarized under five different weight profiles."),
		header("Results"),
		body("Weighted prompts shifted the topical distribution of the summaries toward the emphasized sections in every profile."),
		body("The effect was strongest when the weight of a single section exceeded half of the total mass."),
		header("Conclusion"),
		body("Reader specified weights are a cheap and effective control surface for scientific summarization systems."),
	}
}

var paperSectionNames = []string{
	"Weighted Summaries of Scientific Articles",
	"Introduction",
	"Methods",
	"Results",
	"Conclusion",
}

func wantKind(t *testing.T, err error, kind Kind) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("want %s error, got nil", kind)
	}
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("want *Error, got %T: %v", err, err)
	}
	if perr.Kind != kind {
		t.Fatalf("kind = %s, want %s (err: %v)", perr.Kind, kind, perr)
	}
	return perr
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("temp dir should be empty, %d entries left", len(entries))
	}
}

func TestSummarize_ReturnsWeightedSummary(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frags: paperFrags()}
	chat := &fakeChat{replies: []string{englishSummary}}
	o := newTestOrchestrator(cfg, src, chat)

	res, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), `{"Results": 80}`)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if res.Summary != englishSummary {
		t.Errorf("summary = %q", res.Summary)
	}
	if res.Language != "en" {
		t.Errorf("language = %q, want en", res.Language)
	}
	if res.Model != "llama3.2:3b" {
		t.Errorf("model = %q", res.Model)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, want none", res.Warnings)
	}
	if len(res.SectionsUsed) != len(paperSectionNames) {
		t.Fatalf("sections_used = %v", res.SectionsUsed)
	}
	for i, name := range paperSectionNames {
		if res.SectionsUsed[i] != name {
			t.Errorf("sections_used[%d] = %q, want %q", i, res.SectionsUsed[i], name)
		}
	}

	if chat.callCount() != 1 {
		t.Fatalf("chat calls = %d, want 1", chat.callCount())
	}
	call := chat.call(0)
	if call.model != "llama3.2:3b" {
		t.Errorf("model sent = %q", call.model)
	}
	if call.opts != defaultParams().Options {
		t.Errorf("options sent = %+v", call.opts)
	}
	// Four floor weights of 8 plus the explicit 80: Results holds 80/112.
	if !strings.Contains(call.system, "- Results: 71.43% importance") {
		t.Errorf("system prompt missing Results emphasis:\n%s", call.system)
	}
	if !strings.Contains(call.user, `Document: "Weighted Summaries of Scientific Articles"`) {
		t.Errorf("user message missing title:\n%s", call.user)
	}
	if !strings.Contains(call.user, "## Results\n") {
		t.Errorf("user message missing Results excerpt:\n%s", call.user)
	}

	if !src.sawFile.Load() {
		t.Error("source never saw the spooled temp file")
	}
	assertNoTempFiles(t, cfg.TmpDir)
}

func TestSummarize_RejectsEmptyUpload(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frags: paperFrags()}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	_, err := o.Summarize(context.Background(), Upload{Filename: "paper.pdf"}, defaultParams(), "")
	wantKind(t, err, KindInvalidUpload)
	if src.calls.Load() != 0 {
		t.Error("extraction ran on an empty upload")
	}
}

func TestSummarize_RejectsOversizedUpload(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxUploadBytes = 16
	src := &fakeSource{frags: paperFrags()}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	_, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
	perr := wantKind(t, err, KindInvalidUpload)
	if perr.HTTPStatus() != http.StatusBadRequest {
		t.Errorf("status = %d", perr.HTTPStatus())
	}
	if src.calls.Load() != 0 {
		t.Error("extraction ran on an oversized upload")
	}
	assertNoTempFiles(t, cfg.TmpDir)
}

func TestSummarize_RejectsNonPDFContent(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frags: paperFrags()}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	up := Upload{Filename: "paper.pdf", Data: []byte("this is just plain text, not a pdf")}
	_, err := o.Summarize(context.Background(), up, defaultParams(), "")
	wantKind(t, err, KindInvalidUpload)
	if src.calls.Load() != 0 {
		t.Error("extraction ran on non-PDF content")
	}
}

func TestSummarize_RejectsWrongExtension(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, &fakeChat{})

	up := pdfUpload()
	up.Filename = "paper.docx"
	_, err := o.Summarize(context.Background(), up, defaultParams(), "")
	wantKind(t, err, KindInvalidUpload)
}

func TestSummarize_RejectsOutOfRangeParams(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frags: paperFrags()}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	params := defaultParams()
	params.Temperature = 3.0
	_, err := o.Summarize(context.Background(), pdfUpload(), params, "")
	wantKind(t, err, KindInvalidParams)
	if src.calls.Load() != 0 {
		t.Error("extraction ran with invalid parameters")
	}
}

func TestSummarize_RejectsUnknownLanguage(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, &fakeChat{})

	params := defaultParams()
	params.Language = "fr"
	_, err := o.Summarize(context.Background(), pdfUpload(), params, "")
	wantKind(t, err, KindInvalidParams)
}

func TestSummarize_EnforcesModelAllowList(t *testing.T) {
	cfg := testConfig(t)
	cfg.AllowedModels = []string{"llama3.2:3b"}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, &fakeChat{})

	params := defaultParams()
	params.Model = "mistral:7b"
	_, err := o.Summarize(context.Background(), pdfUpload(), params, "")
	wantKind(t, err, KindInvalidParams)
}

func TestSummarize_MalformedWeightsSkipInference(t *testing.T) {
	cfg := testConfig(t)
	chat := &fakeChat{replies: []string{englishSummary}}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	for _, raw := range []string{`{"Results": `, `[80]`, `{"Results": "high"}`, `"Results"`} {
		_, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), raw)
		wantKind(t, err, KindInvalidWeightSpec)
	}
	if chat.callCount() != 0 {
		t.Errorf("chat calls = %d, weight errors must fail before inference", chat.callCount())
	}
	assertNoTempFiles(t, cfg.TmpDir)
}

func TestSummarize_UnmatchedWeightNamesAreIgnored(t *testing.T) {
	cfg := testConfig(t)
	chat := &fakeChat{replies: []string{englishSummary}}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	res, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), `{"Discussion": 90, "results": 50}`)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if len(res.SectionsUsed) != len(paperSectionNames) {
		t.Fatalf("sections_used = %v", res.SectionsUsed)
	}
	sys := chat.call(0).system
	if strings.Contains(sys, "Discussion") {
		t.Errorf("ghost section leaked into the prompt:\n%s", sys)
	}
	// Case-insensitive match: "results" applies to the Results section.
	if !strings.Contains(sys, "- Results: ") {
		t.Errorf("Results emphasis missing:\n%s", sys)
	}
}

func TestSummarize_ExtractionEmptyFromUnreadablePDF(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{err: layout.ErrNoText}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	_, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
	perr := wantKind(t, err, KindExtractionEmpty)
	if perr.HTTPStatus() != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", perr.HTTPStatus())
	}
	assertNoTempFiles(t, cfg.TmpDir)
}

func TestSummarize_ExtractionEmptyWithoutBodyText(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frags: []document.Fragment{
		{Text: "Introduction", FontSize: 14, Bold: true},
		{Text: "Results", FontSize: 14, Bold: true},
	}}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	_, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
	wantKind(t, err, KindExtractionEmpty)
	assertNoTempFiles(t, cfg.TmpDir)
}

func TestSummarize_CorruptPDFIsInvalidUpload(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{err: errors.New("pdf: malformed xref table")}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	_, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
	wantKind(t, err, KindInvalidUpload)
	assertNoTempFiles(t, cfg.TmpDir)
}

func TestSummarize_InferenceUnavailable(t *testing.T) {
	cfg := testConfig(t)
	chat := &fakeChat{err: errors.New("dial tcp 127.0.0.1:11434: connection refused")}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	res, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
	perr := wantKind(t, err, KindInferenceUnavailable)
	if res != nil {
		t.Errorf("result should be nil on backend failure, got %+v", res)
	}
	if perr.HTTPStatus() != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", perr.HTTPStatus())
	}
	assertNoTempFiles(t, cfg.TmpDir)
}

func TestSummarize_DeadlineMapsToGatewayTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.InferenceTimeout = 10 * time.Millisecond
	chat := &fakeChat{delay: time.Second, replies: []string{englishSummary}}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	_, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
	perr := wantKind(t, err, KindInferenceUnavailable)
	if perr.HTTPStatus() != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504", perr.HTTPStatus())
	}
}

func TestSummarize_MissingModelIsInvalidParams(t *testing.T) {
	cfg := testConfig(t)
	chat := &fakeChat{err: &inference.APIError{StatusCode: http.StatusNotFound, Message: `model "nope" not found`}}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	_, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
	wantKind(t, err, KindInvalidParams)
}

func TestSummarize_TranslatesOnLanguageMismatch(t *testing.T) {
	cfg := testConfig(t)
	chat := &fakeChat{replies: []string{englishSummary, spanishSummary}}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	params := defaultParams()
	params.Language = "es"
	res, err := o.Summarize(context.Background(), pdfUpload(), params, "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if chat.callCount() != 2 {
		t.Fatalf("chat calls = %d, want summary + translation", chat.callCount())
	}
	second := chat.call(1)
	if !strings.Contains(second.system, "Translate the following text into Spanish") {
		t.Errorf("second call is not a translation:\n%s", second.system)
	}
	if second.user != englishSummary {
		t.Errorf("translation input = %q, want the first summary", second.user)
	}
	if res.Summary != spanishSummary {
		t.Errorf("summary = %q", res.Summary)
	}
	if res.Language != "es" {
		t.Errorf("language = %q", res.Language)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v, successful translation should not warn", res.Warnings)
	}
}

func TestSummarize_WarnsWhenTranslationStillMismatches(t *testing.T) {
	cfg := testConfig(t)
	chat := &fakeChat{replies: []string{englishSummary, englishSummary}}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	params := defaultParams()
	params.Language = "es"
	res, err := o.Summarize(context.Background(), pdfUpload(), params, "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if res.Summary != englishSummary {
		t.Errorf("summary = %q, mismatched output is kept rather than dropped", res.Summary)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "language mismatch") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestSummarize_AutoLanguageFollowsDocument(t *testing.T) {
	cfg := testConfig(t)
	chat := &fakeChat{replies: []string{englishSummary}}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	params := defaultParams()
	params.Language = "auto"
	res, err := o.Summarize(context.Background(), pdfUpload(), params, "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.Language != "en" {
		t.Errorf("language = %q, want en from the document", res.Language)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("warnings = %v", res.Warnings)
	}
	if !strings.Contains(chat.call(0).system, "in English") {
		t.Errorf("system prompt should target English:\n%s", chat.call(0).system)
	}
}

func TestSummarize_AutoLanguageFallsBackToDefault(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frags: []document.Fragment{
		{Text: "Results", FontSize: 14, Bold: true},
		{Text: "ok win", FontSize: 10},
	}}
	chat := &fakeChat{replies: []string{spanishSummary}}
	o := newTestOrchestrator(cfg, src, chat)

	params := defaultParams()
	params.Language = "auto"
	res, err := o.Summarize(context.Background(), pdfUpload(), params, "")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if res.Language != "es" {
		t.Errorf("language = %q, want the configured default", res.Language)
	}
	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], "defaulting to Spanish") {
		t.Errorf("warnings = %v", res.Warnings)
	}
}

func TestSummarize_BoundsConcurrentInference(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrentInference = 2
	chat := &fakeChat{replies: []string{englishSummary}, delay: 30 * time.Millisecond}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	const requests = 6
	errs := make(chan error, requests)
	for i := 0; i < requests; i++ {
		go func() {
			_, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
			errs <- err
		}()
	}
	for i := 0; i < requests; i++ {
		if err := <-errs; err != nil {
			t.Fatalf("Summarize: %v", err)
		}
	}

	if peak := chat.maxSeen.Load(); peak > 2 {
		t.Errorf("%d chat calls in flight at once, limit is 2", peak)
	}
	if chat.callCount() != requests {
		t.Errorf("chat calls = %d, want %d", chat.callCount(), requests)
	}
}

func TestSummarize_ReleasesSlotAfterFailure(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrentInference = 1
	chat := &fakeChat{err: errors.New("connection refused")}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	if _, err := o.Summarize(context.Background(), pdfUpload(), defaultParams(), ""); err == nil {
		t.Fatal("want backend failure")
	}

	chat.mu.Lock()
	chat.err = nil
	chat.replies = []string{englishSummary}
	chat.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := o.Summarize(ctx, pdfUpload(), defaultParams(), ""); err != nil {
		t.Fatalf("slot was not released after failure: %v", err)
	}
}

func TestSummarize_CanceledWhileWaitingForSlot(t *testing.T) {
	cfg := testConfig(t)
	cfg.MaxConcurrentInference = 1
	chat := &fakeChat{replies: []string{englishSummary}, delay: 300 * time.Millisecond}
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, chat)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = o.Summarize(context.Background(), pdfUpload(), defaultParams(), "")
	}()

	// Wait until the first request holds the only slot.
	for start := time.Now(); chat.inflight.Load() == 0; {
		if time.Since(start) > time.Second {
			t.Fatal("first request never reached the backend")
		}
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := o.Summarize(ctx, pdfUpload(), defaultParams(), "")
	perr := wantKind(t, err, KindInferenceUnavailable)
	if perr.HTTPStatus() != http.StatusGatewayTimeout {
		t.Errorf("status = %d, want 504 for a deadline hit in the queue", perr.HTTPStatus())
	}
	<-done
}

func TestExtractHeaders_ReturnsNamesInOrder(t *testing.T) {
	cfg := testConfig(t)
	o := newTestOrchestrator(cfg, &fakeSource{frags: paperFrags()}, &fakeChat{})

	names, err := o.ExtractHeaders(context.Background(), pdfUpload())
	if err != nil {
		t.Fatalf("ExtractHeaders: %v", err)
	}
	if len(names) != len(paperSectionNames) {
		t.Fatalf("names = %v", names)
	}
	for i, want := range paperSectionNames {
		if names[i] != want {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want)
		}
	}
	assertNoTempFiles(t, cfg.TmpDir)
}

func TestExtractHeaders_PreambleCoversLeadingText(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frags: []document.Fragment{
		{Text: "Text that appears before any recognizable section header.", FontSize: 10},
		{Text: "Introduction", FontSize: 10, Bold: true},
		{Text: "Body of the introduction section.", FontSize: 10},
	}}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	names, err := o.ExtractHeaders(context.Background(), pdfUpload())
	if err != nil {
		t.Fatalf("ExtractHeaders: %v", err)
	}
	want := []string{"Preamble", "Introduction"}
	if len(names) != len(want) || names[0] != want[0] || names[1] != want[1] {
		t.Fatalf("names = %v, want %v", names, want)
	}
}

func TestExtractHeaders_RejectsInvalidUpload(t *testing.T) {
	cfg := testConfig(t)
	src := &fakeSource{frags: paperFrags()}
	o := newTestOrchestrator(cfg, src, &fakeChat{})

	_, err := o.ExtractHeaders(context.Background(), Upload{Filename: "paper.pdf"})
	wantKind(t, err, KindInvalidUpload)
	if src.calls.Load() != 0 {
		t.Error("extraction ran on an invalid upload")
	}
}
