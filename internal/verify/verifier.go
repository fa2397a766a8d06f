package verify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/model"
	"github.com/ppiankov/animequote/internal/quotes"
)

// Source looks up candidate quotes. *quotes.Client satisfies it.
type Source interface {
	ByCharacter(ctx context.Context, name string, opts quotes.LookupOptions) ([]model.QuoteRecord, error)
	ByAnime(ctx context.Context, title string, opts quotes.LookupOptions) ([]model.QuoteRecord, error)
}

// Outcome is a verdict plus the evidence counts behind it
type Outcome struct {
	Verdict       model.Verdict
	CharacterHits int
	AnimeHits     int
	PoolSize      int
	TotalMatches  int // Before the display cap
}

// Verifier runs the lookup, aggregate, match and compose stages for one request.
// It holds no per-request state and is safe for concurrent use.
type Verifier struct {
	source Source
	logger *zap.Logger
}

// NewVerifier creates a verifier over source
func NewVerifier(source Source, logger *zap.Logger) *Verifier {
	return &Verifier{
		source: source,
		logger: logging.Component(logger, "verify"),
	}
}

// Verify always returns a verdict. Lookup failures for one dimension only
// shrink the evidence; an unrecognized response layout or a panic produces
// an error verdict.
func (v *Verifier) Verify(ctx context.Context, req model.VerifyRequest) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("verification panicked", zap.Any("panic", r))
			out = Outcome{Verdict: ErrorVerdict(fmt.Errorf("%v", r))}
		}
	}()

	if req.IsEmpty() {
		return Outcome{Verdict: EmptyRequest()}
	}

	byCharacter, byAnime, err := v.gather(ctx, req)
	if err != nil {
		return Outcome{Verdict: ErrorVerdict(err)}
	}

	pool := Aggregate(byCharacter, byAnime)
	out = Outcome{
		CharacterHits: len(byCharacter),
		AnimeHits:     len(byAnime),
		PoolSize:      len(pool),
	}

	if strings.TrimSpace(req.Quote) == "" {
		out.Verdict = ComposeCriteria(pool)
		out.TotalMatches = len(pool)
		return out
	}

	matches := DedupeMatches(Match(req.Quote, pool))
	out.Verdict = Compose(matches, len(pool))
	out.TotalMatches = len(matches)
	return out
}

// gather runs the character and anime lookups concurrently into separate buffers
func (v *Verifier) gather(ctx context.Context, req model.VerifyRequest) (byCharacter, byAnime []model.QuoteRecord, err error) {
	opts := quotes.LookupOptions{APIKey: req.APIKey}
	g, gctx := errgroup.WithContext(ctx)

	if name := strings.TrimSpace(req.Character); name != "" {
		g.Go(func() error {
			records, err := v.lookup(gctx, "character", name, func(ctx context.Context) ([]model.QuoteRecord, error) {
				return v.source.ByCharacter(ctx, name, opts)
			})
			byCharacter = records
			return err
		})
	}

	if title := strings.TrimSpace(req.Anime); title != "" {
		g.Go(func() error {
			records, err := v.lookup(gctx, "anime", title, func(ctx context.Context) ([]model.QuoteRecord, error) {
				return v.source.ByAnime(ctx, title, opts)
			})
			byAnime = records
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return byCharacter, byAnime, nil
}

// lookup applies the per-dimension failure policy: soft errors become zero
// records, an unrecognized layout or a panic is returned.
func (v *Verifier) lookup(ctx context.Context, dimension, query string, fn func(context.Context) ([]model.QuoteRecord, error)) (records []model.QuoteRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("lookup panicked",
				zap.String(logging.FieldDimension, dimension),
				zap.String(logging.FieldQuery, query),
				zap.Any("panic", r))
			records, err = nil, fmt.Errorf("%s lookup: %v", dimension, r)
		}
	}()

	records, err = fn(ctx)
	switch {
	case err == nil:
		return records, nil
	case errors.Is(err, quotes.ErrUnexpectedFormat):
		v.logger.Error("quote service returned an unrecognized layout",
			zap.String(logging.FieldDimension, dimension),
			zap.String(logging.FieldQuery, query),
			zap.Error(err))
		return nil, quotes.ErrUnexpectedFormat
	default:
		v.logger.Warn("lookup failed, continuing without it",
			zap.String(logging.FieldDimension, dimension),
			zap.String(logging.FieldQuery, query),
			zap.Error(err))
		return nil, nil
	}
}
