// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/article-engine/internal/artifact"
	"github.com/pdiddy/article-engine/internal/author"
	"github.com/pdiddy/article-engine/internal/ideas"
	"github.com/pdiddy/article-engine/internal/ledger"
	"github.com/pdiddy/article-engine/internal/llm"
	"github.com/pdiddy/article-engine/internal/pipeline"
	"github.com/pdiddy/article-engine/internal/secrets"
	"github.com/pdiddy/article-engine/pkg/types"
)

// errMissingCredential is fatal before any work begins.
var errMissingCredential = errors.New("missing API credential")

// bindFlags binds the running command's flags to viper keys of the same name.
// Binding happens per invocation because commands share key names.
func bindFlags(cmd *cobra.Command, args []string) error {
	return viper.BindPFlags(cmd.Flags())
}

// addGenerationFlags registers the flags shared by commands that talk to the
// generation backend.
func addGenerationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("provider", string(types.ProviderDeepSeek), "generation backend: deepseek or gemini")
	f.String("model", "", "model identifier (default depends on provider)")
	f.String("base-url", "", "chat-completions endpoint root for the deepseek provider")
	f.Int("count", pipeline.DefaultCount, "target number of articles before jitter")
	f.Duration("topic-timeout", ideas.DefaultTimeout, "timeout for the topic-sourcing call")
	f.String("catalog", "", "topic catalogue YAML (default: embedded catalogue)")
	f.Int64("seed", 0, "random seed (0: time-based)")
	f.Bool("no-jitter", false, "use --count as is instead of scaling it by a random factor")
}

// loadGenerationConfig resolves flags, environment, config file, and
// secret files into a run configuration. The count is left unresolved.
func loadGenerationConfig() (types.GenerationConfig, error) {
	provider := types.Provider(viper.GetString("provider"))
	var keyName string
	switch provider {
	case types.ProviderDeepSeek, "":
		provider = types.ProviderDeepSeek
		keyName = secrets.DeepSeekKey
	case types.ProviderGemini:
		keyName = secrets.GeminiKey
	default:
		return types.GenerationConfig{}, fmt.Errorf("unknown provider %q: use deepseek or gemini", provider)
	}

	apiKey := loadedSecrets.Resolve(keyName, viper.GetString(keyName))
	if apiKey == "" {
		return types.GenerationConfig{}, fmt.Errorf("%w: set %s or write .secrets/%s", errMissingCredential, envNameFor(keyName), keyName)
	}

	return types.GenerationConfig{
		AIConfig: types.AIConfig{
			Provider:       provider,
			Model:          viper.GetString("model"),
			BaseURL:        viper.GetString("base-url"),
			APIKey:         apiKey,
			MaxRetries:     viper.GetInt("max-retries"),
			TopicTimeout:   viper.GetDuration("topic-timeout"),
			ArticleTimeout: viper.GetDuration("article-timeout"),
		},
		StoreConfig: types.StoreConfig{
			PostsDir:   viper.GetString("posts-dir"),
			LedgerPath: viper.GetString("ledger"),
		},
		Count:       viper.GetInt("count"),
		MinLength:   viper.GetInt("min-length"),
		Delay:       viper.GetDuration("delay"),
		CatalogPath: viper.GetString("catalog"),
		Seed:        viper.GetInt64("seed"),
	}, nil
}

func envNameFor(keyName string) string {
	switch keyName {
	case secrets.GeminiKey:
		return "GEMINI_API_KEY"
	default:
		return "DEEPSEEK_API_KEY"
	}
}

// newClient builds the generation backend for cfg.
func newClient(ctx context.Context, cfg types.AIConfig) (llm.Client, error) {
	switch cfg.Provider {
	case types.ProviderGemini:
		return llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	default:
		return llm.NewChatClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	}
}

// newRand returns the run's random source.
func newRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// resolveCount applies jitter and bounds to the configured count.
func resolveCount(cfg types.GenerationConfig, rng *rand.Rand) int {
	return pipeline.ResolveCount(cfg.Count, rng, !viper.GetBool("no-jitter"))
}

// newRunner wires the batch pipeline for cfg. The returned ledger store, if
// any, must be closed by the caller.
func newRunner(ctx context.Context, cfg types.GenerationConfig, rng *rand.Rand) (*pipeline.Runner, *ledger.Store, error) {
	client, err := newClient(ctx, cfg.AIConfig)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := ideas.LoadCatalog(cfg.CatalogPath)
	if err != nil {
		return nil, nil, err
	}
	store, err := openCorpus(cfg.PostsDir)
	if err != nil {
		return nil, nil, err
	}

	r := &pipeline.Runner{
		Proposer: &ideas.Proposer{
			Client:  client,
			Catalog: catalog,
			Rand:    rng,
			Timeout: cfg.TopicTimeout,
		},
		Pool: catalog.Pool,
		Author: &author.Author{
			Client:     client,
			Timeout:    cfg.ArticleTimeout,
			MaxRetries: cfg.MaxRetries,
		},
		Builder: artifact.NewBuilder(cfg.MinLength, rng),
		Corpus:  store,
		Delay:   cfg.Delay,
		Seed:    cfg.Seed,
	}

	if cfg.LedgerPath == "" {
		return r, nil, nil
	}
	led, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return nil, nil, err
	}
	r.Ledger = led
	return r, led, nil
}
