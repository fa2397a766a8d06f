// Package study ingests documents and generates study material from them.
package study

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/fetch"
	"github.com/ppiankov/animequote/internal/llm"
	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/model"
	"github.com/ppiankov/animequote/internal/store"
	"github.com/ppiankov/animequote/internal/util"
	"github.com/ppiankov/animequote/internal/worker"
)

var (
	// ErrNoModel is returned by generating operations when no language model is configured
	ErrNoModel = errors.New("no language model configured (set llm.provider)")

	// ErrDisallowed is returned when robots.txt forbids fetching a URL
	ErrDisallowed = errors.New("fetch disallowed by robots.txt")

	// ErrEmptyDocument is returned when extraction yields no text
	ErrEmptyDocument = errors.New("document contains no extractable text")
)

// Documents is the persistence the service needs. *store.Store satisfies it.
type Documents interface {
	InsertDocument(ctx context.Context, doc model.Document) error
	GetDocument(ctx context.Context, id string) (model.Document, error)
	FindDocumentByHash(ctx context.Context, hash string) (model.Document, error)
	ListDocuments(ctx context.Context) ([]model.Document, error)
}

// Options configures a Service
type Options struct {
	ChunkWords    int
	ChunkOverlap  int
	ContextChunks int // Chunks sent to the model for a question
	MaxTokens     int
}

// Deps are the collaborators of a Service. Provider, Fetcher, Robots and
// Pacer are optional.
type Deps struct {
	Documents Documents
	Provider  llm.Provider
	Fetcher   *fetch.Fetcher
	Robots    *util.RobotsChecker
	Pacer     *worker.Limiter
	Logger    *zap.Logger
}

// Service implements document ingestion and the study operations
type Service struct {
	docs     Documents
	provider llm.Provider
	registry *Registry
	fetcher  *fetch.Fetcher
	robots   *util.RobotsChecker
	pacer    *worker.Limiter
	opts     Options
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a study service
func NewService(deps Deps, opts Options) *Service {
	if opts.ChunkWords <= 0 {
		opts.ChunkWords = 220
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkWords {
		opts.ChunkOverlap = 0
	}
	if opts.ContextChunks <= 0 {
		opts.ContextChunks = 4
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 800
	}

	return &Service{
		docs:     deps.Documents,
		provider: deps.Provider,
		registry: NewRegistry(),
		fetcher:  deps.Fetcher,
		robots:   deps.Robots,
		pacer:    deps.Pacer,
		opts:     opts,
		logger:   logging.Component(deps.Logger, "study"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// HasModel reports whether generating operations are available
func (s *Service) HasModel() bool {
	return s.provider != nil
}

// IngestRequest is raw document input
type IngestRequest struct {
	Name        string // File name or URL, used for type detection and as the source
	ContentType string // Optional MIME type
	Title       string // Optional; overrides the extracted title
	Data        []byte
}

// Ingest extracts and stores a document. Re-ingesting identical bytes returns
// the stored document with created=false.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (doc model.Document, created bool, err error) {
	if len(req.Data) == 0 {
		return model.Document{}, false, ErrEmptyDocument
	}

	sum := sha256.Sum256(req.Data)
	hash := hex.EncodeToString(sum[:])

	existing, err := s.docs.FindDocumentByHash(ctx, hash)
	switch {
	case err == nil:
		s.logger.Debug("document already ingested", zap.String("id", existing.ID))
		return existing, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return model.Document{}, false, err
	}

	extractor := s.registry.Find(req.Name, req.ContentType)
	extracted, err := extractor.Extract(req.Data)
	if err != nil {
		return model.Document{}, false, fmt.Errorf("extract %s: %w", extractor.Name(), err)
	}
	if strings.TrimSpace(extracted.Text) == "" {
		return model.Document{}, false, ErrEmptyDocument
	}

	title := firstNonEmpty(req.Title, extracted.Title, titleFromName(req.Name), "Untitled document")
	doc = model.Document{
		ID:          uuid.NewString(),
		Title:       title,
		Source:      req.Name,
		ContentType: extractor.Name(),
		ContentHash: hash,
		Text:        extracted.Text,
		WordCount:   len(strings.Fields(extracted.Text)),
		CreatedAt:   s.now(),
	}
	if err := s.docs.InsertDocument(ctx, doc); err != nil {
		return model.Document{}, false, err
	}

	s.logger.Info("document ingested",
		zap.String("id", doc.ID),
		zap.String("type", doc.ContentType),
		zap.Int("words", doc.WordCount))
	return doc, true, nil
}

// Fetch downloads a remote document, honouring robots.txt, and ingests it
func (s *Service) Fetch(ctx context.Context, rawURL string) (model.Document, bool, error) {
	if s.fetcher == nil {
		return model.Document{}, false, errors.New("remote ingestion is not configured")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return model.Document{}, false, fmt.Errorf("invalid document URL %q", rawURL)
	}

	var crawlDelay time.Duration
	if s.robots != nil {
		allowed, delay, err := s.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return model.Document{}, false, err
		}
		if !allowed {
			return model.Document{}, false, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		crawlDelay = delay
	}
	if s.pacer != nil {
		if err := s.pacer.WaitWithDelay(ctx, rawURL, crawlDelay); err != nil {
			return model.Document{}, false, err
		}
	}

	header := http.Header{"Accept": []string{"application/pdf,text/html,text/plain;q=0.9,*/*;q=0.5"}}
	resp, err := s.fetcher.GetWithRetry(ctx, rawURL, header)
	if err != nil {
		return model.Document{}, false, fmt.Errorf("fetch document: %w", err)
	}

	return s.Ingest(ctx, IngestRequest{
		Name:        resp.FinalURL,
		ContentType: resp.ContentType,
		Data:        resp.Body,
	})
}

// Documents lists ingested documents without their text
func (s *Service) Documents(ctx context.Context) ([]model.Document, error) {
	return s.docs.ListDocuments(ctx)
}

// Summarize writes a summary of a document
func (s *Service) Summarize(ctx context.Context, docID string) (string, error) {
	doc, err := s.load(ctx, docID)
	if err != nil {
		return "", err
	}
	return s.complete(ctx, BuildSummaryPrompt(doc.Title, s.excerpt(doc)))
}

// Flashcards generates up to n question/answer cards
func (s *Service) Flashcards(ctx context.Context, docID string, n int) ([]model.Flashcard, error) {
	if n <= 0 {
		n = 10
	}
	doc, err := s.load(ctx, docID)
	if err != nil {
		return nil, err
	}

	text, err := s.complete(ctx, BuildFlashcardPrompt(doc.Title, s.excerpt(doc), n))
	if err != nil {
		return nil, err
	}

	var out struct {
		Flashcards []model.Flashcard `json:"flashcards"`
	}
	if err := llm.DecodeJSON(text, &out); err != nil {
		return nil, fmt.Errorf("decode flashcards: %w", err)
	}

	cards := make([]model.Flashcard, 0, len(out.Flashcards))
	for _, c := range out.Flashcards {
		if strings.TrimSpace(c.Question) == "" || strings.TrimSpace(c.Answer) == "" {
			continue
		}
		cards = append(cards, model.Flashcard{Question: strings.TrimSpace(c.Question), Answer: strings.TrimSpace(c.Answer)})
		if len(cards) == n {
			break
		}
	}
	return cards, nil
}

// StudyPlan generates a plan spread over days
func (s *Service) StudyPlan(ctx context.Context, docID string, days int) (model.StudyPlan, error) {
	if days <= 0 {
		days = 7
	}
	doc, err := s.load(ctx, docID)
	if err != nil {
		return model.StudyPlan{}, err
	}

	text, err := s.complete(ctx, BuildStudyPlanPrompt(doc.Title, s.excerpt(doc), days))
	if err != nil {
		return model.StudyPlan{}, err
	}

	plan := model.StudyPlan{DocumentID: doc.ID}
	if err := llm.DecodeJSON(text, &plan); err != nil {
		return model.StudyPlan{}, fmt.Errorf("decode study plan: %w", err)
	}
	plan.DocumentID = doc.ID
	if len(plan.Days) > days {
		plan.Days = plan.Days[:days]
	}
	for i := range plan.Days {
		plan.Days[i].Day = i + 1
	}
	return plan, nil
}

// Ask answers a question grounded on the most relevant chunks of a document
func (s *Service) Ask(ctx context.Context, docID, question string) (model.Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return model.Answer{}, errors.New("question is empty")
	}
	doc, err := s.load(ctx, docID)
	if err != nil {
		return model.Answer{}, err
	}

	chunks := ChunkWords(doc.Text, s.opts.ChunkWords, s.opts.ChunkOverlap)
	ranked := RankChunks(question, chunks, s.opts.ContextChunks)
	excerpts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		excerpts = append(excerpts, r.Text)
	}

	text, err := s.complete(ctx, BuildQuestionPrompt(doc.Title, question, excerpts))
	if err != nil {
		return model.Answer{}, err
	}

	return model.Answer{
		DocumentID: doc.ID,
		Question:   question,
		Text:       text,
		Excerpts:   excerpts,
	}, nil
}

// load checks for a model before touching storage
func (s *Service) load(ctx context.Context, docID string) (model.Document, error) {
	if s.provider == nil {
		return model.Document{}, ErrNoModel
	}
	return s.docs.GetDocument(ctx, docID)
}

func (s *Service) complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		System:    studySystemPrompt,
		Prompt:    prompt,
		MaxTokens: s.opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", s.provider.Name(), err)
	}
	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("%s: empty response", s.provider.Name())
	}
	return text, nil
}

// excerpt returns the leading chunks of a document that fit the prompt budget
func (s *Service) excerpt(doc model.Document) string {
	const maxPromptWords = 3000
	chunks := ChunkWords(doc.Text, s.opts.ChunkWords, 0)
	var b strings.Builder
	words := 0
	for _, c := range chunks {
		n := len(strings.Fields(c))
		if words > 0 && words+n > maxPromptWords {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(c)
		words += n
	}
	return b.String()
}

func titleFromName(name string) string {
	if name == "" {
		return ""
	}
	if u, err := url.Parse(name); err == nil && u.Host != "" {
		name = u.Path
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
