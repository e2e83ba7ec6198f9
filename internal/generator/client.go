// Package generator defines the typed request/response boundary to the
// external candidate generator. The core never depends on how the call is
// transported; it only validates what comes back.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// Client is the single collaborator interface for candidate regeneration.
type Client interface {
	// Name returns the provider name.
	Name() string

	// GenerateCandidates produces fresh claim candidates honoring the
	// avoid-list. Responses are validated at the boundary before use.
	GenerateCandidates(ctx context.Context, req CandidateRequest) (*CandidateResponse, error)
}

// AvoidList tells the generator what a regeneration round must not repeat.
type AvoidList struct {
	Tags       []string `json:"tags"`
	StatHashes []string `json:"stat_hashes"`
	Takeaways  []string `json:"takeaways"`
}

// CandidateRequest is the input for one regeneration round.
type CandidateRequest struct {
	Scope         string    `json:"scope"`
	SourceExcerpt string    `json:"source_excerpt"` // grounding text for new claims
	Avoid         AvoidList `json:"avoid"`
	Count         int       `json:"count"`
}

// CandidateResponse is the generator's output for one round.
type CandidateResponse struct {
	Candidates []model.ClaimCandidate `json:"candidates"`
	Model      string                 `json:"model,omitempty"`
	TokensUsed int                    `json:"tokens_used,omitempty"`
}

// Validate rejects structurally invalid responses before the gate sees them.
func (r *CandidateResponse) Validate() error {
	if len(r.Candidates) == 0 {
		return model.NewError(model.KindSchemaViolation, "generator", "empty candidate response")
	}
	for i := range r.Candidates {
		if err := r.Candidates[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// New creates a client from configuration. An empty provider disables
// regeneration and returns nil, which the dedupe gate treats as "go
// straight to the forced fallback".
func New(cfg model.GeneratorConfig) (Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai":
		return NewOpenAIClient(cfg)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown generator provider: %s (supported: openai)", cfg.Provider)
	}
}
