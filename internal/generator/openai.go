package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// OpenAIClient implements Client against the OpenAI chat completions API.
type OpenAIClient struct {
	client  *openai.Client
	cfg     model.GeneratorConfig
	limiter *rate.Limiter
}

// NewOpenAIClient creates an OpenAI-backed generator client.
func NewOpenAIClient(cfg model.GeneratorConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = 1
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}, nil
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return "openai"
}

// GenerateCandidates requests fresh candidates honoring the avoid-list.
func (c *OpenAIClient) GenerateCandidates(ctx context.Context, req CandidateRequest) (*CandidateResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	timeout := time.Duration(c.cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	chatModel := c.cfg.Model
	if chatModel == "" {
		chatModel = openai.GPT4oMini
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     chatModel,
		MaxTokens: c.cfg.MaxTokens,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: candidateSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildCandidatePrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai completion: no choices returned")
	}

	var parsed struct {
		Candidates []model.ClaimCandidate `json:"candidates"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, model.WrapError(model.KindSchemaViolation, "generator", err, "unparseable candidate payload")
	}
	for i := range parsed.Candidates {
		if parsed.Candidates[i].SchemaVersion == 0 {
			parsed.Candidates[i].SchemaVersion = model.SchemaVersion
		}
	}

	out := &CandidateResponse{
		Candidates: parsed.Candidates,
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

const candidateSystemPrompt = `You generate claim candidates for a short-video production pipeline.
Each candidate must be grounded in the provided source excerpt and reference
its paragraph IDs as proof anchors. Respond with a JSON object:
{"candidates":[{"id":"...","text":"...","takeaway":"...","primary_tag":"...",
"core_stat":{"value":0,"unit":"","raw":""},"proof_anchors":["..."]}]}.
Omit core_stat when the claim has no central number.`

func buildCandidatePrompt(req CandidateRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scope: %s\nGenerate %d distinct claim candidates.\n\n", req.Scope, req.Count)

	if len(req.Avoid.Tags) > 0 {
		fmt.Fprintf(&b, "Do NOT use these primary tags: %s\n", strings.Join(req.Avoid.Tags, ", "))
	}
	if len(req.Avoid.Takeaways) > 0 {
		b.WriteString("Do NOT repeat or paraphrase these takeaways:\n")
		for _, t := range req.Avoid.Takeaways {
			fmt.Fprintf(&b, "- %s\n", t)
		}
	}
	if len(req.Avoid.StatHashes) > 0 {
		fmt.Fprintf(&b, "Avoid reusing %d recently used statistics.\n", len(req.Avoid.StatHashes))
	}

	fmt.Fprintf(&b, "\nSource excerpt (cite paragraph IDs as proof anchors):\n%s\n", req.SourceExcerpt)
	return b.String()
}
