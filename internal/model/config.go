package model

import "time"

// Config is the complete runtime configuration. Defaults come from
// DefaultConfig; overrides flow in from the config file, MOTION_* env
// vars, and CLI flags in that order.
type Config struct {
	Source    SourceConfig    `yaml:"source" mapstructure:"source"`
	Library   LibraryConfig   `yaml:"library" mapstructure:"library"`
	Ledger    LedgerConfig    `yaml:"ledger" mapstructure:"ledger"`
	Dedupe    DedupeConfig    `yaml:"dedupe" mapstructure:"dedupe"`
	Timing    TimingConfig    `yaml:"timing" mapstructure:"timing"`
	Resolve   ResolveConfig   `yaml:"resolve" mapstructure:"resolve"`
	Generator GeneratorConfig `yaml:"generator" mapstructure:"generator"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
}

// SourceConfig locates the source document store.
type SourceConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // directory of .html/.md/.txt documents
}

// LibraryConfig locates the media library catalogs.
type LibraryConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // directory of *.json catalog files
}

// LedgerConfig locates the run history ledger.
type LedgerConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // SQLite database path
}

// DedupeConfig holds the dedupe gate's exclusion windows. The windows and
// the similarity threshold are policy constants with no derivation in the
// product material, so they are configuration rather than code.
type DedupeConfig struct {
	ScopedTagRuns       int     `yaml:"scoped_tag_runs" mapstructure:"scoped_tag_runs"`             // N: tag exclusion, per scope
	GlobalStatRuns      int     `yaml:"global_stat_runs" mapstructure:"global_stat_runs"`           // M: stat-hash exclusion, global
	TakeawayRuns        int     `yaml:"takeaway_runs" mapstructure:"takeaway_runs"`                 // K: takeaways compared for similarity
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`   // cosine, reject above
	MaxRegenAttempts    int     `yaml:"max_regen_attempts" mapstructure:"max_regen_attempts"`       // bounded regeneration rounds
	MinSurvivors        int     `yaml:"min_survivors" mapstructure:"min_survivors"`                 // below this, request regeneration
}

// TimingConfig holds the beat sheet sanity checker's tolerances.
type TimingConfig struct {
	EndTolerance    float64 `yaml:"end_tolerance" mapstructure:"end_tolerance"`         // seconds, final beat vs total duration
	ChartSlotMaxSec float64 `yaml:"chart_slot_max_sec" mapstructure:"chart_slot_max_sec"` // ceiling for chart-type slots
}

// ResolveConfig holds the asset resolver's exclusion and fallback policy.
// NoveltyDays is deliberately wider than the recency windows: recency is a
// hard exclusion, novelty scores how worn an entry is among the eligible.
type ResolveConfig struct {
	ClipRecencyDays  int      `yaml:"clip_recency_days" mapstructure:"clip_recency_days"`
	AudioRecencyDays int      `yaml:"audio_recency_days" mapstructure:"audio_recency_days"`
	NoveltyDays      int      `yaml:"novelty_days" mapstructure:"novelty_days"`   // use-count horizon for novelty scoring
	FallbackTags     []string `yaml:"fallback_tags" mapstructure:"fallback_tags"` // generic/abstract secondary pool
	Workers          int      `yaml:"workers" mapstructure:"workers"`             // concurrent candidate scoring
}

// GeneratorConfig configures the external candidate generator collaborator.
// An empty provider disables regeneration; the dedupe gate then goes
// straight to the micro-claim fallback when survivors run out.
type GeneratorConfig struct {
	Provider   string  `yaml:"provider" mapstructure:"provider"` // "openai" or ""
	Model      string  `yaml:"model" mapstructure:"model"`
	APIKey     string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL    string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSec int     `yaml:"timeout_sec" mapstructure:"timeout_sec"`
	MaxTokens  int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RPS        float64 `yaml:"rps" mapstructure:"rps"` // client-side rate limit
}

// EmbeddingConfig selects the takeaway embedding method. "local" is the
// deterministic offline embedder; "openai" uses the embeddings API.
type EmbeddingConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
}

// CacheConfig configures the embedding/query cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir     string        `yaml:"dir" mapstructure:"dir"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Source:  SourceConfig{Dir: "sources"},
		Library: LibraryConfig{Dir: "library"},
		Ledger:  LedgerConfig{Path: "ledger.db"},
		Dedupe: DedupeConfig{
			ScopedTagRuns:       5,
			GlobalStatRuns:      20,
			TakeawayRuns:        25,
			SimilarityThreshold: 0.85,
			MaxRegenAttempts:    3,
			MinSurvivors:        2,
		},
		Timing: TimingConfig{
			EndTolerance:    0.05,
			ChartSlotMaxSec: 12,
		},
		Resolve: ResolveConfig{
			ClipRecencyDays:  14,
			AudioRecencyDays: 7,
			NoveltyDays:      90,
			FallbackTags:     []string{"abstract", "generic"},
			Workers:          8,
		},
		Generator: GeneratorConfig{
			Provider:   "",
			Model:      "",
			TimeoutSec: 30,
			MaxTokens:  1500,
			RPS:        1,
		},
		Embedding: EmbeddingConfig{
			Provider: "local",
			Model:    "text-embedding-3-small",
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     "",
			TTL:     24 * time.Hour,
		},
		Output: OutputConfig{Verbose: false},
	}
}
