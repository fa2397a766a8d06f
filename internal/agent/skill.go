// Package agent routes requests to named skills backed by the quote, catalog
// and study services.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ppiankov/animequote/internal/llm"
)

var (
	// ErrUnknownSkill is returned when no skill is registered under a name
	ErrUnknownSkill = errors.New("unknown skill")

	// ErrInvalidParams is returned when a skill's parameters are missing or malformed
	ErrInvalidParams = errors.New("invalid skill parameters")
)

// Params are the named arguments of one skill invocation
type Params map[string]any

// String returns a trimmed string parameter. Numbers are formatted.
func (p Params) String(key string) string {
	switch v := p[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Int returns an integer parameter, or fallback when it is absent.
// Malformed values are an error.
func (p Params) Int(key string, fallback int) (int, error) {
	raw, ok := p[key]
	if !ok || raw == nil {
		return fallback, nil
	}

	switch v := raw.(type) {
	case int:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidParams, key)
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidParams, key)
		}
		return n, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return fallback, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidParams, key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidParams, key)
	}
}

// Require returns a string parameter that must be present
func (p Params) Require(key string) (string, error) {
	v := p.String(key)
	if v == "" {
		return "", fmt.Errorf("%w: %q is required", ErrInvalidParams, key)
	}
	return v, nil
}

// Result is the output of a skill: prose for people and data for programs
type Result struct {
	Skill string
	Text  string
	Data  any
}

// Skill is one named capability
type Skill struct {
	Name        string
	Description string
	Params      []string // Accepted parameter names, required ones first
	Examples    []string
	Run         func(ctx context.Context, params Params) (*Result, error)
}

// Registry holds skills in registration order
type Registry struct {
	skills []Skill
	byName map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]int)}
}

// Register adds a skill. Names must be unique.
func (r *Registry) Register(skill Skill) error {
	if skill.Name == "" || skill.Run == nil {
		return errors.New("skill needs a name and a run function")
	}
	if _, exists := r.byName[skill.Name]; exists {
		return fmt.Errorf("skill %q already registered", skill.Name)
	}
	r.byName[skill.Name] = len(r.skills)
	r.skills = append(r.skills, skill)
	return nil
}

// Get looks up a skill by name
func (r *Registry) Get(name string) (Skill, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Skill{}, false
	}
	return r.skills[i], true
}

// List returns all skills in registration order
func (r *Registry) List() []Skill {
	out := make([]Skill, len(r.skills))
	copy(out, r.skills)
	return out
}

// Specs describes the skills for intent extraction
func (r *Registry) Specs() []llm.SkillSpec {
	specs := make([]llm.SkillSpec, 0, len(r.skills))
	for _, s := range r.skills {
		specs = append(specs, llm.SkillSpec{Name: s.Name, Description: s.Description, Params: s.Params})
	}
	return specs
}
