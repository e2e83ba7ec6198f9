package generator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

// Embedder produces sentence-level embeddings for takeaway similarity.
// The embedding method is configuration, not an assumption: "local" is a
// deterministic offline embedder, "openai" calls the embeddings API.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
}

// NewEmbedder creates an embedder from configuration.
func NewEmbedder(cfg model.EmbeddingConfig, gen model.GeneratorConfig) (Embedder, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "local":
		return &LocalEmbedder{dims: localDims}, nil
	case "openai":
		if gen.APIKey == "" {
			return nil, fmt.Errorf("openai embedder requires an API key")
		}
		clientConfig := openai.DefaultConfig(gen.APIKey)
		if gen.BaseURL != "" {
			clientConfig.BaseURL = gen.BaseURL
		}
		embModel := cfg.Model
		if embModel == "" {
			embModel = string(openai.SmallEmbedding3)
		}
		return &OpenAIEmbedder{
			client: openai.NewClientWithConfig(clientConfig),
			model:  embModel,
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: local, openai)", cfg.Provider)
	}
}

// OpenAIEmbedder embeds via the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// Name returns the provider name.
func (e *OpenAIEmbedder) Name() string { return "openai" }

// Embed returns the embedding vector for one text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai embeddings: empty response")
	}
	return resp.Data[0].Embedding, nil
}

const localDims = 256

// LocalEmbedder is a deterministic offline embedder: a hashed bag of
// words projected into a fixed-dimension unit vector. It is weaker than a
// learned model but reproducible, dependency-free at run time, and good
// enough to catch near-verbatim takeaway repeats.
type LocalEmbedder struct {
	dims int
}

// Name returns the provider name.
func (e *LocalEmbedder) Name() string { return "local" }

// Embed maps each token to a dimension by hash and L2-normalizes.
func (e *LocalEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, e.dims)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		sum := h.Sum32()
		idx := int(sum % uint32(e.dims))
		// Sign bit from the hash keeps distinct vocabularies from
		// collapsing onto the positive orthant.
		if sum&0x80000000 != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 1 {
			out = append(out, f)
		}
	}
	return out
}
