package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/animequote/internal/model"
	"github.com/ppiankov/animequote/internal/quotes"
	"github.com/ppiankov/animequote/internal/study"
)

// Verifier runs a quote verification. *pipeline.Pipeline satisfies it.
type Verifier interface {
	Verify(ctx context.Context, req model.VerifyRequest) *model.Report
}

// QuoteSource looks up quotes. *quotes.Client satisfies it.
type QuoteSource interface {
	ByCharacter(ctx context.Context, name string, opts quotes.LookupOptions) ([]model.QuoteRecord, error)
	ByAnime(ctx context.Context, title string, opts quotes.LookupOptions) ([]model.QuoteRecord, error)
	Random(ctx context.Context, opts quotes.RandomOptions) (model.QuoteRecord, error)
}

// Catalog looks up anime metadata. *catalog.Client satisfies it.
type Catalog interface {
	SearchAnime(ctx context.Context, query string, limit int) ([]model.Anime, error)
	GetAnime(ctx context.Context, id int) (model.Anime, error)
	SearchCharacters(ctx context.Context, query string, limit int) ([]model.Character, error)
	TopAnime(ctx context.Context, limit int) ([]model.Anime, error)
}

// Study is the document study assistant. *study.Service satisfies it.
type Study interface {
	Ingest(ctx context.Context, req study.IngestRequest) (model.Document, bool, error)
	Fetch(ctx context.Context, rawURL string) (model.Document, bool, error)
	Summarize(ctx context.Context, docID string) (string, error)
	Flashcards(ctx context.Context, docID string, n int) ([]model.Flashcard, error)
	StudyPlan(ctx context.Context, docID string, days int) (model.StudyPlan, error)
	Ask(ctx context.Context, docID, question string) (model.Answer, error)
}

// Deps are the services skills call into. Skills whose service is nil are
// not registered.
type Deps struct {
	Verifier Verifier
	Quotes   QuoteSource
	Catalog  Catalog
	Study    Study
}

// NewSkillRegistry registers every skill the given services support
func NewSkillRegistry(deps Deps) (*Registry, error) {
	r := NewRegistry()

	var skills []Skill
	if deps.Verifier != nil {
		skills = append(skills, verifyQuoteSkill(deps.Verifier))
	}
	if deps.Quotes != nil {
		skills = append(skills, quoteSkills(deps.Quotes)...)
	}
	if deps.Catalog != nil {
		skills = append(skills, catalogSkills(deps.Catalog)...)
	}
	if deps.Study != nil {
		skills = append(skills, studySkills(deps.Study)...)
	}

	for _, s := range skills {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func verifyQuoteSkill(v Verifier) Skill {
	return Skill{
		Name:        "verify_quote",
		Description: "Check whether a quote was really said, optionally by a character or in an anime",
		Params:      []string{"quote", "character", "anime"},
		Examples:    []string{`Verify "I'll take a potato chip and eat it!" by Light Yagami from Death Note`},
		Run: func(ctx context.Context, p Params) (*Result, error) {
			req := model.VerifyRequest{
				Quote:     p.String("quote"),
				Character: p.String("character"),
				Anime:     p.String("anime"),
				APIKey:    firstParam(p, "apiKey", "api_key"),
			}
			report := v.Verify(ctx, req)
			return &Result{Text: verdictText(report), Data: report}, nil
		},
	}
}

func quoteSkills(q QuoteSource) []Skill {
	return []Skill{
		{
			Name:        "random_quote",
			Description: "Get a random anime quote, optionally from an anime or by a character",
			Params:      []string{"anime", "character"},
			Examples:    []string{"Give me a random quote from Naruto"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				record, err := q.Random(ctx, quotes.RandomOptions{
					Anime:     p.String("anime"),
					Character: p.String("character"),
					APIKey:    firstParam(p, "apiKey", "api_key"),
				})
				if err != nil {
					return nil, err
				}
				return &Result{Text: quoteLine(record), Data: record}, nil
			},
		},
		{
			Name:        "character_quotes",
			Description: "List quotes attributed to a character",
			Params:      []string{"character", "page"},
			Examples:    []string{"Quotes by Itachi Uchiha"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				return listQuotes(ctx, p, "character", q.ByCharacter)
			},
		},
		{
			Name:        "anime_quotes",
			Description: "List quotes from an anime",
			Params:      []string{"anime", "page"},
			Examples:    []string{"Quotes from Fullmetal Alchemist"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				return listQuotes(ctx, p, "anime", q.ByAnime)
			},
		},
	}
}

type lookupFunc func(ctx context.Context, value string, opts quotes.LookupOptions) ([]model.QuoteRecord, error)

func listQuotes(ctx context.Context, p Params, key string, lookup lookupFunc) (*Result, error) {
	value, err := p.Require(key)
	if err != nil {
		return nil, err
	}
	page, err := p.Int("page", 0)
	if err != nil {
		return nil, err
	}

	records, err := lookup(ctx, value, quotes.LookupOptions{Page: page, APIKey: firstParam(p, "apiKey", "api_key")})
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return &Result{Text: fmt.Sprintf("No quotes found for %s %q.", key, value), Data: []model.QuoteRecord{}}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d quote(s) for %s %q:\n", len(records), key, value)
	for i, r := range records {
		fmt.Fprintf(&b, "%d. %s\n", i+1, quoteLine(r))
	}
	return &Result{Text: strings.TrimRight(b.String(), "\n"), Data: records}, nil
}

func catalogSkills(c Catalog) []Skill {
	return []Skill{
		{
			Name:        "anime_search",
			Description: "Search the anime catalog by title",
			Params:      []string{"query", "limit"},
			Examples:    []string{"Search anime Cowboy Bebop"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				query, err := p.Require("query")
				if err != nil {
					return nil, err
				}
				limit, err := p.Int("limit", 0)
				if err != nil {
					return nil, err
				}
				results, err := c.SearchAnime(ctx, query, limit)
				if err != nil {
					return nil, err
				}
				return &Result{Text: animeList(fmt.Sprintf("Anime matching %q", query), results), Data: results}, nil
			},
		},
		{
			Name:        "anime_details",
			Description: "Show catalog details for one anime by its numeric ID",
			Params:      []string{"id"},
			Examples:    []string{"Anime 1535"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				id, err := p.Int("id", 0)
				if err != nil {
					return nil, err
				}
				if id <= 0 {
					return nil, fmt.Errorf("%w: \"id\" must be a positive number", ErrInvalidParams)
				}
				anime, err := c.GetAnime(ctx, id)
				if err != nil {
					return nil, err
				}
				return &Result{Text: animeDetails(anime), Data: anime}, nil
			},
		},
		{
			Name:        "character_search",
			Description: "Search the catalog for characters by name",
			Params:      []string{"query", "limit"},
			Examples:    []string{"Find character Spike Spiegel"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				query, err := p.Require("query")
				if err != nil {
					return nil, err
				}
				limit, err := p.Int("limit", 0)
				if err != nil {
					return nil, err
				}
				results, err := c.SearchCharacters(ctx, query, limit)
				if err != nil {
					return nil, err
				}
				if len(results) == 0 {
					return &Result{Text: fmt.Sprintf("No characters found for %q.", query), Data: results}, nil
				}
				var b strings.Builder
				fmt.Fprintf(&b, "Characters matching %q:\n", query)
				for i, ch := range results {
					fmt.Fprintf(&b, "%d. %s (id %d)\n", i+1, ch.Name, ch.ID)
				}
				return &Result{Text: strings.TrimRight(b.String(), "\n"), Data: results}, nil
			},
		},
		{
			Name:        "top_anime",
			Description: "List the top-ranked anime",
			Params:      []string{"limit"},
			Examples:    []string{"Top anime"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				limit, err := p.Int("limit", 0)
				if err != nil {
					return nil, err
				}
				results, err := c.TopAnime(ctx, limit)
				if err != nil {
					return nil, err
				}
				return &Result{Text: animeList("Top anime", results), Data: results}, nil
			},
		},
	}
}

func studySkills(s Study) []Skill {
	return []Skill{
		{
			Name:        "study_ingest",
			Description: "Add a study document from a URL or from plain text",
			Params:      []string{"url", "text", "title"},
			Examples:    []string{"Ingest https://example.com/death-note-guide.pdf"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				var (
					doc     model.Document
					created bool
					err     error
				)
				switch {
				case p.String("url") != "":
					doc, created, err = s.Fetch(ctx, p.String("url"))
				case p.String("text") != "":
					doc, created, err = s.Ingest(ctx, study.IngestRequest{
						Name:        firstParam(p, "name"),
						ContentType: firstParam(p, "content_type"),
						Title:       p.String("title"),
						Data:        []byte(p.String("text")),
					})
				default:
					return nil, fmt.Errorf("%w: \"url\" or \"text\" is required", ErrInvalidParams)
				}
				if err != nil {
					return nil, err
				}

				verb := "Ingested"
				if !created {
					verb = "Already ingested"
				}
				doc.Text = ""
				return &Result{
					Text: fmt.Sprintf("%s %q (%d words). Document ID: %s", verb, doc.Title, doc.WordCount, doc.ID),
					Data: doc,
				}, nil
			},
		},
		{
			Name:        "study_summary",
			Description: "Summarize an ingested document",
			Params:      []string{"document_id"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				id, err := documentID(p)
				if err != nil {
					return nil, err
				}
				summary, err := s.Summarize(ctx, id)
				if err != nil {
					return nil, err
				}
				return &Result{Text: summary, Data: map[string]string{"document_id": id, "summary": summary}}, nil
			},
		},
		{
			Name:        "study_flashcards",
			Description: "Generate flashcards from an ingested document",
			Params:      []string{"document_id", "count"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				id, err := documentID(p)
				if err != nil {
					return nil, err
				}
				count, err := p.Int("count", 10)
				if err != nil {
					return nil, err
				}
				cards, err := s.Flashcards(ctx, id, count)
				if err != nil {
					return nil, err
				}
				var b strings.Builder
				for i, c := range cards {
					fmt.Fprintf(&b, "%d. Q: %s\n   A: %s\n", i+1, c.Question, c.Answer)
				}
				return &Result{Text: strings.TrimRight(b.String(), "\n"), Data: cards}, nil
			},
		},
		{
			Name:        "study_plan",
			Description: "Create a day-by-day study plan for an ingested document",
			Params:      []string{"document_id", "days"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				id, err := documentID(p)
				if err != nil {
					return nil, err
				}
				days, err := p.Int("days", 7)
				if err != nil {
					return nil, err
				}
				plan, err := s.StudyPlan(ctx, id, days)
				if err != nil {
					return nil, err
				}
				var b strings.Builder
				for _, d := range plan.Days {
					fmt.Fprintf(&b, "Day %d: %s\n", d.Day, d.Focus)
					for _, a := range d.Activities {
						fmt.Fprintf(&b, "  - %s\n", a)
					}
				}
				return &Result{Text: strings.TrimRight(b.String(), "\n"), Data: plan}, nil
			},
		},
		{
			Name:        "study_ask",
			Description: "Answer a question about an ingested document",
			Params:      []string{"document_id", "question"},
			Run: func(ctx context.Context, p Params) (*Result, error) {
				id, err := documentID(p)
				if err != nil {
					return nil, err
				}
				question, err := p.Require("question")
				if err != nil {
					return nil, err
				}
				answer, err := s.Ask(ctx, id, question)
				if err != nil {
					return nil, err
				}
				return &Result{Text: answer.Text, Data: answer}, nil
			},
		},
	}
}

func documentID(p Params) (string, error) {
	if id := firstParam(p, "document_id", "documentId", "id"); id != "" {
		return id, nil
	}
	return "", fmt.Errorf("%w: \"document_id\" is required", ErrInvalidParams)
}

func firstParam(p Params, keys ...string) string {
	for _, k := range keys {
		if v := p.String(k); v != "" {
			return v
		}
	}
	return ""
}

func verdictText(report *model.Report) string {
	var b strings.Builder
	b.WriteString(report.Verdict.Message)
	for i, m := range report.Verdict.Matches {
		fmt.Fprintf(&b, "\n%d. %s", i+1, quoteLine(m.Record))
		if m.MatchType != "" {
			fmt.Fprintf(&b, " [%s]", m.MatchType)
		}
	}
	if n := report.Narrative; n != nil && n.Text != "" {
		b.WriteString("\n\n")
		b.WriteString(n.Text)
	}
	return b.String()
}

func quoteLine(r model.QuoteRecord) string {
	return fmt.Sprintf("%q - %s (%s)", r.Text, r.Character, r.Anime)
}

func animeList(heading string, results []model.Anime) string {
	if len(results) == 0 {
		return heading + ": none found."
	}
	var b strings.Builder
	b.WriteString(heading + ":\n")
	for i, a := range results {
		fmt.Fprintf(&b, "%d. %s (id %d", i+1, a.DisplayTitle(), a.ID)
		if a.Year > 0 {
			fmt.Fprintf(&b, ", %d", a.Year)
		}
		if a.Score > 0 {
			fmt.Fprintf(&b, ", score %.2f", a.Score)
		}
		b.WriteString(")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func animeDetails(a model.Anime) string {
	var b strings.Builder
	b.WriteString(a.DisplayTitle())
	if a.TitleNative != "" {
		fmt.Fprintf(&b, " (%s)", a.TitleNative)
	}
	b.WriteString("\n")
	if a.Type != "" || a.Episodes > 0 {
		fmt.Fprintf(&b, "%s, %d episodes", orUnknown(a.Type), a.Episodes)
		if a.Status != "" {
			fmt.Fprintf(&b, ", %s", a.Status)
		}
		b.WriteString("\n")
	}
	if a.Score > 0 {
		fmt.Fprintf(&b, "Score %.2f", a.Score)
		if a.Rank > 0 {
			fmt.Fprintf(&b, " (rank #%d)", a.Rank)
		}
		b.WriteString("\n")
	}
	if len(a.Genres) > 0 {
		fmt.Fprintf(&b, "Genres: %s\n", strings.Join(a.Genres, ", "))
	}
	if a.Synopsis != "" {
		b.WriteString("\n" + a.Synopsis + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func orUnknown(s string) string {
	if s == "" {
		return model.UnknownValue
	}
	return s
}
