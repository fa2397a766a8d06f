package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/llm"
	"github.com/ppiankov/animequote/internal/logging"
)

// Agent resolves requests and runs the matching skill
type Agent struct {
	registry *Registry
	resolver *Resolver
	logger   *zap.Logger
}

// New creates an agent over a skill registry. provider is optional and only
// used to extract intents from free text.
func New(registry *Registry, provider llm.Provider, logger *zap.Logger) *Agent {
	return &Agent{
		registry: registry,
		resolver: NewResolver(registry, provider, logger),
		logger:   logging.Component(logger, "agent"),
	}
}

// Skills returns the registered skills
func (a *Agent) Skills() []Skill {
	return a.registry.List()
}

// Handle resolves the request and runs the skill. Panics inside a skill are
// returned as errors.
func (a *Agent) Handle(ctx context.Context, req Request) (*Result, error) {
	intent, err := a.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return a.Run(ctx, intent.Skill, intent.Params)
}

// Run invokes a skill by name
func (a *Agent) Run(ctx context.Context, name string, params Params) (result *Result, err error) {
	skill, ok := a.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSkill, name)
	}
	if params == nil {
		params = Params{}
	}

	logger := a.logger.With(zap.String(logging.FieldSkill, name))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("skill panicked", zap.Any("panic", r))
			result, err = nil, fmt.Errorf("skill %s failed: %v", name, r)
		}
	}()

	start := time.Now()
	result, err = skill.Run(ctx, params)
	if err != nil {
		logger.Warn("skill failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return nil, err
	}
	result.Skill = name
	logger.Info("skill completed", zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// Help describes what the agent can do
func (a *Agent) Help() string {
	var b strings.Builder
	b.WriteString("I can help with these requests:\n")
	for _, s := range a.registry.List() {
		fmt.Fprintf(&b, "- %s: %s", s.Name, s.Description)
		if len(s.Examples) > 0 {
			fmt.Fprintf(&b, " (e.g. %s)", s.Examples[0])
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
