package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/llm"
	"github.com/ppiankov/animequote/internal/logging"
)

// ErrNoIntent is returned when a request cannot be mapped to any skill
var ErrNoIntent = errors.New("could not work out which skill to run")

// IntentSource records how an intent was resolved
type IntentSource string

const (
	SourceData  IntentSource = "data"  // Structured data part
	SourceModel IntentSource = "model" // Language model extraction
	SourceText  IntentSource = "text"  // Deterministic text parser
)

// Request is one inbound message: free text and an optional structured part
type Request struct {
	Text string
	Data map[string]any
}

// Intent is a resolved skill invocation
type Intent struct {
	Skill  string
	Params Params
	Source IntentSource
}

// Resolver maps requests to intents. The order is: explicit data part,
// then the language model when one is configured, then the text parser.
type Resolver struct {
	registry *Registry
	provider llm.Provider
	logger   *zap.Logger
}

// NewResolver creates a resolver; provider may be nil
func NewResolver(registry *Registry, provider llm.Provider, logger *zap.Logger) *Resolver {
	return &Resolver{
		registry: registry,
		provider: provider,
		logger:   logging.Component(logger, "intent"),
	}
}

// Resolve picks the skill and parameters for a request
func (r *Resolver) Resolve(ctx context.Context, req Request) (Intent, error) {
	if intent, ok, err := r.fromData(req.Data); ok || err != nil {
		return intent, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return Intent{}, ErrNoIntent
	}

	if r.provider != nil {
		intent, err := r.fromModel(ctx, text)
		switch {
		case err != nil:
			r.logger.Warn("intent extraction failed, using text parser", zap.Error(err))
		case intent.Skill != "":
			return intent, nil
		}
	}

	if intent, ok := ParseText(text); ok {
		if _, registered := r.registry.Get(intent.Skill); registered {
			return intent, nil
		}
	}
	return Intent{}, ErrNoIntent
}

// fromData reads {"skill": name, "params": {...}} or a flat object with a
// skill key. A bare {quote, character, anime} object is a verification.
func (r *Resolver) fromData(data map[string]any) (Intent, bool, error) {
	if len(data) == 0 {
		return Intent{}, false, nil
	}

	name, _ := data["skill"].(string)
	name = strings.TrimSpace(name)
	if name == "" {
		for _, key := range []string{"quote", "character", "anime"} {
			if _, ok := data[key]; ok {
				return Intent{Skill: "verify_quote", Params: Params(data), Source: SourceData}, true, nil
			}
		}
		return Intent{}, false, nil
	}

	if _, ok := r.registry.Get(name); !ok {
		return Intent{}, true, fmt.Errorf("%w: %s", ErrUnknownSkill, name)
	}

	params := Params{}
	if nested, ok := data["params"].(map[string]any); ok {
		for k, v := range nested {
			params[k] = v
		}
	} else {
		for k, v := range data {
			if k != "skill" {
				params[k] = v
			}
		}
	}
	return Intent{Skill: name, Params: params, Source: SourceData}, true, nil
}

func (r *Resolver) fromModel(ctx context.Context, text string) (Intent, error) {
	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		System:    llm.IntentSystemPrompt,
		Prompt:    llm.BuildIntentPrompt(text, r.registry.Specs()),
		MaxTokens: 300,
		JSON:      true,
	})
	if err != nil {
		return Intent{}, err
	}

	var out struct {
		Skill  string         `json:"skill"`
		Params map[string]any `json:"params"`
	}
	if err := llm.DecodeJSON(resp.Text, &out); err != nil {
		return Intent{}, err
	}

	name := strings.TrimSpace(out.Skill)
	if name == "" {
		return Intent{}, nil
	}
	if _, ok := r.registry.Get(name); !ok {
		r.logger.Debug("model chose an unknown skill", zap.String(logging.FieldSkill, name))
		return Intent{}, nil
	}
	if out.Params == nil {
		out.Params = map[string]any{}
	}
	return Intent{Skill: name, Params: Params(out.Params), Source: SourceModel}, nil
}

var (
	quotedRe      = regexp.MustCompile(`["“]([^"“”]+)["”]`)
	byRe          = regexp.MustCompile(`(?i)\bby\s+(.+?)(?:\s+(?:from|in)\s+(.+?))?\s*[.?!]*\s*$`)
	fromRe        = regexp.MustCompile(`(?i)\b(?:from|in)\s+(.+?)\s*[.?!]*\s*$`)
	randomRe      = regexp.MustCompile(`(?i)\brandom\s+quote\b(.*)$`)
	topAnimeRe    = regexp.MustCompile(`(?i)^(?:show\s+|list\s+)?(?:the\s+)?top(?:\s+(\d+))?\s+anime\b`)
	quotesByRe    = regexp.MustCompile(`(?i)^(?:show\s+|list\s+)?quotes?\s+by\s+(.+?)\s*[.?!]*$`)
	quotesFromRe  = regexp.MustCompile(`(?i)^(?:show\s+|list\s+)?quotes?\s+(?:from|in)\s+(.+?)\s*[.?!]*$`)
	animeIDRe     = regexp.MustCompile(`(?i)^anime\s+(?:id\s+)?#?(\d+)$`)
	animeSearchRe = regexp.MustCompile(`(?i)^(?:search|find|look\s+up)\s+anime\s+(.+?)\s*[.?!]*$`)
	charSearchRe  = regexp.MustCompile(`(?i)^(?:search|find|look\s+up)\s+characters?\s+(.+?)\s*[.?!]*$`)
	ingestRe      = regexp.MustCompile(`(?i)^(?:ingest|study|add)\s+(https?://\S+)$`)
)

// ParseText recognizes a small set of phrasings without a language model
func ParseText(text string) (Intent, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Intent{}, false
	}

	if m := quotedRe.FindStringSubmatchIndex(text); m != nil {
		params := Params{"quote": strings.TrimSpace(text[m[2]:m[3]])}
		character, anime := attribution(text[m[1]:])
		setIf(params, "character", character)
		setIf(params, "anime", anime)
		return Intent{Skill: "verify_quote", Params: params, Source: SourceText}, true
	}

	if m := randomRe.FindStringSubmatch(text); m != nil {
		params := Params{}
		character, anime := attribution(m[1])
		setIf(params, "character", character)
		setIf(params, "anime", anime)
		return Intent{Skill: "random_quote", Params: params, Source: SourceText}, true
	}

	match := func(re *regexp.Regexp, skill, key string) (Intent, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return Intent{}, false
		}
		return Intent{Skill: skill, Params: Params{key: m[1]}, Source: SourceText}, true
	}

	if m := topAnimeRe.FindStringSubmatch(text); m != nil {
		params := Params{}
		setIf(params, "limit", m[1])
		return Intent{Skill: "top_anime", Params: params, Source: SourceText}, true
	}
	for _, rule := range []struct {
		re         *regexp.Regexp
		skill, key string
	}{
		{quotesByRe, "character_quotes", "character"},
		{quotesFromRe, "anime_quotes", "anime"},
		{animeIDRe, "anime_details", "id"},
		{animeSearchRe, "anime_search", "query"},
		{charSearchRe, "character_search", "query"},
		{ingestRe, "study_ingest", "url"},
	} {
		if intent, ok := match(rule.re, rule.skill, rule.key); ok {
			return intent, true
		}
	}
	return Intent{}, false
}

// attribution reads "by <character> from <anime>" or "from <anime>"
func attribution(rest string) (character, anime string) {
	if m := byRe.FindStringSubmatch(rest); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if m := fromRe.FindStringSubmatch(rest); m != nil {
		return "", strings.TrimSpace(m[1])
	}
	return "", ""
}

func setIf(p Params, key, value string) {
	if value != "" {
		p[key] = value
	}
}
