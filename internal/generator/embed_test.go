package generator

import (
	"context"
	"math"
	"testing"

	"github.com/hsalehi78/arcanomy-motion-sub000/internal/model"
)

func TestLocalEmbedder_Deterministic(t *testing.T) {
	e := &LocalEmbedder{dims: localDims}
	ctx := context.Background()

	a, err := e.Embed(ctx, "Compounding doubles savings in about ten years")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, "Compounding doubles savings in about ten years")
	if err != nil {
		t.Fatal(err)
	}

	if len(a) != localDims {
		t.Fatalf("expected %d dims, got %d", localDims, len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at dim %d", i)
		}
	}
}

func TestLocalEmbedder_UnitNorm(t *testing.T) {
	e := &LocalEmbedder{dims: localDims}
	vec, err := e.Embed(context.Background(), "some meaningful sentence about savings")
	if err != nil {
		t.Fatal(err)
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if math.Abs(norm-1) > 1e-5 {
		t.Errorf("expected unit norm, got %f", math.Sqrt(norm))
	}
}

func TestLocalEmbedder_DistinctTexts(t *testing.T) {
	e := &LocalEmbedder{dims: localDims}
	ctx := context.Background()

	a, _ := e.Embed(ctx, "compound interest grows savings over decades")
	b, _ := e.Embed(ctx, "octopus camouflage relies on specialized skin cells")

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if dot > 0.5 {
		t.Errorf("unrelated texts should not be near-identical, dot=%f", dot)
	}
}

func TestNewEmbedder_Selection(t *testing.T) {
	emb, err := NewEmbedder(model.EmbeddingConfig{Provider: "local"}, model.GeneratorConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if emb.Name() != "local" {
		t.Errorf("expected local embedder, got %s", emb.Name())
	}

	if _, err := NewEmbedder(model.EmbeddingConfig{Provider: "openai"}, model.GeneratorConfig{}); err == nil {
		t.Error("openai embedder without API key must fail")
	}
	if _, err := NewEmbedder(model.EmbeddingConfig{Provider: "bogus"}, model.GeneratorConfig{}); err == nil {
		t.Error("unknown provider must fail")
	}
}

func TestNew_GeneratorSelection(t *testing.T) {
	gen, err := New(model.GeneratorConfig{Provider: ""})
	if err != nil {
		t.Fatal(err)
	}
	if gen != nil {
		t.Error("empty provider must disable regeneration")
	}

	if _, err := New(model.GeneratorConfig{Provider: "openai"}); err == nil {
		t.Error("openai without API key must fail")
	}
	if _, err := New(model.GeneratorConfig{Provider: "bogus"}); err == nil {
		t.Error("unknown provider must fail")
	}
}
