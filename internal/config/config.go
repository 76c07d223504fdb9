// Package config loads and validates run configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/jaibojo/txo-crm/internal/model"
)

// Config holds the full application configuration. It is loaded once before
// a run and passed immutably into every component.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
	Pipeline    PipelineConfig    `yaml:"pipeline" mapstructure:"pipeline"`
	Funnel      FunnelConfig      `yaml:"funnel" mapstructure:"funnel"`
	Resolver    ResolverConfig    `yaml:"resolver" mapstructure:"resolver"`
	Scoring     ScoringConfig     `yaml:"scoring" mapstructure:"scoring"`
	Signals     SignalConfig      `yaml:"signals" mapstructure:"signals"`
	Opportunity OpportunityConfig `yaml:"opportunity" mapstructure:"opportunity"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Path        string `yaml:"path" mapstructure:"path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// IngestConfig configures the ingestion adapters.
type IngestConfig struct {
	// OwnDomains are our sending domains, used to split inbound from
	// outbound messages in the email archive.
	OwnDomains []string `yaml:"own_domains" mapstructure:"own_domains"`
}

// PipelineConfig configures batch execution.
type PipelineConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// FunnelConfig holds the recency windows driving structured classification.
type FunnelConfig struct {
	ActiveWindowDays int `yaml:"active_window_days" mapstructure:"active_window_days"`
	DormantMaxDays   int `yaml:"dormant_max_days" mapstructure:"dormant_max_days"`
}

// ResolverConfig configures identity clustering.
type ResolverConfig struct {
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" mapstructure:"fuzzy_threshold"`
}

// Weights are the priority-score component weights. They must sum to 1.0.
type Weights struct {
	Recency     float64 `yaml:"recency" mapstructure:"recency"`
	Depth       float64 `yaml:"relationship_depth" mapstructure:"relationship_depth"`
	Engagement  float64 `yaml:"engagement" mapstructure:"engagement"`
	Seniority   float64 `yaml:"seniority" mapstructure:"seniority"`
	CompanySize float64 `yaml:"company_size" mapstructure:"company_size"`
}

// Sum returns the total of all component weights.
func (w Weights) Sum() float64 {
	return w.Recency + w.Depth + w.Engagement + w.Seniority + w.CompanySize
}

// TitleTier maps title keywords to a seniority sub-score.
type TitleTier struct {
	Keywords []string `yaml:"keywords" mapstructure:"keywords"`
	Score    float64  `yaml:"score" mapstructure:"score"`
}

// ScoringConfig configures the priority scorer.
type ScoringConfig struct {
	Weights           Weights            `yaml:"weights" mapstructure:"weights"`
	RecencyCutoffDays int                `yaml:"recency_cutoff_days" mapstructure:"recency_cutoff_days"`
	SeniorityTiers    []TitleTier        `yaml:"seniority_tiers" mapstructure:"seniority_tiers"`
	CompanySizeTiers  map[string]float64 `yaml:"company_size_tiers" mapstructure:"company_size_tiers"`
}

// Phrase is one trigger phrase with its specificity tier.
type Phrase struct {
	Text string `yaml:"text" mapstructure:"text"`
	Tier string `yaml:"tier" mapstructure:"tier"`
}

// SignalConfig holds the per-kind trigger phrase sets. Phrase order matters:
// the first matching phrase wins for its kind.
type SignalConfig struct {
	// PhraseFile optionally points at a YAML file overriding the phrase sets.
	PhraseFile     string                        `yaml:"phrase_file" mapstructure:"phrase_file"`
	Phrases        map[model.SignalKind][]Phrase `yaml:"phrases" mapstructure:"phrases"`
	TierConfidence map[string]float64            `yaml:"tier_confidence" mapstructure:"tier_confidence"`
}

// OpportunityConfig configures the opportunity deriver.
type OpportunityConfig struct {
	DormantMinScore int `yaml:"dormant_min_score" mapstructure:"dormant_min_score"`
}

// Load reads configuration from file and environment, then fills complex
// defaults (phrase sets, tier tables) that viper defaults cannot express.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TXO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.path", "txo-crm.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("pipeline.workers", 8)
	v.SetDefault("funnel.active_window_days", 180)
	v.SetDefault("funnel.dormant_max_days", 730)
	v.SetDefault("resolver.fuzzy_threshold", 0.82)
	v.SetDefault("scoring.weights.recency", 0.30)
	v.SetDefault("scoring.weights.relationship_depth", 0.25)
	v.SetDefault("scoring.weights.engagement", 0.20)
	v.SetDefault("scoring.weights.seniority", 0.15)
	v.SetDefault("scoring.weights.company_size", 0.10)
	v.SetDefault("scoring.recency_cutoff_days", 1095)
	v.SetDefault("opportunity.dormant_min_score", 60)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	if len(cfg.Scoring.SeniorityTiers) == 0 {
		cfg.Scoring.SeniorityTiers = DefaultSeniorityTiers()
	}
	if len(cfg.Scoring.CompanySizeTiers) == 0 {
		cfg.Scoring.CompanySizeTiers = DefaultCompanySizeTiers()
	}
	if len(cfg.Signals.TierConfidence) == 0 {
		cfg.Signals.TierConfidence = DefaultTierConfidence()
	}
	if len(cfg.Signals.Phrases) == 0 {
		cfg.Signals.Phrases = DefaultPhrases()
	}
	if cfg.Signals.PhraseFile != "" {
		if err := loadPhraseFile(&cfg.Signals); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// loadPhraseFile overrides the phrase sets from a standalone YAML file.
func loadPhraseFile(sc *SignalConfig) error {
	data, err := os.ReadFile(sc.PhraseFile)
	if err != nil {
		return eris.Wrapf(err, "config: read phrase file %s", sc.PhraseFile)
	}

	var override struct {
		Phrases        map[model.SignalKind][]Phrase `yaml:"phrases"`
		TierConfidence map[string]float64            `yaml:"tier_confidence"`
	}
	if err := yaml.Unmarshal(data, &override); err != nil {
		return eris.Wrapf(err, "config: parse phrase file %s", sc.PhraseFile)
	}

	if len(override.Phrases) > 0 {
		sc.Phrases = override.Phrases
	}
	if len(override.TierConfidence) > 0 {
		sc.TierConfidence = override.TierConfidence
	}
	return nil
}

// Validate checks windows, thresholds and phrase tiers. Weight validation
// lives in the scorer package alongside the weighting math.
func (c *Config) Validate() error {
	var errs []string

	if c.Pipeline.Workers <= 0 {
		errs = append(errs, "pipeline.workers must be > 0")
	}
	if c.Funnel.ActiveWindowDays <= 0 {
		errs = append(errs, "funnel.active_window_days must be > 0")
	}
	if c.Funnel.DormantMaxDays <= c.Funnel.ActiveWindowDays {
		errs = append(errs, "funnel.dormant_max_days must be > active_window_days")
	}
	if c.Resolver.FuzzyThreshold <= 0 || c.Resolver.FuzzyThreshold > 1 {
		errs = append(errs, "resolver.fuzzy_threshold must be in (0, 1]")
	}
	if c.Scoring.RecencyCutoffDays <= 0 {
		errs = append(errs, "scoring.recency_cutoff_days must be > 0")
	}
	if c.Opportunity.DormantMinScore < 0 || c.Opportunity.DormantMinScore > 100 {
		errs = append(errs, "opportunity.dormant_min_score must be in [0, 100]")
	}
	for kind, phrases := range c.Signals.Phrases {
		for _, p := range phrases {
			if _, ok := c.Signals.TierConfidence[p.Tier]; !ok {
				errs = append(errs, fmt.Sprintf("signals: phrase %q (%s) uses unknown tier %q", p.Text, kind, p.Tier))
			}
		}
	}
	for tier, conf := range c.Signals.TierConfidence {
		if conf <= 0 || conf > 1 {
			errs = append(errs, fmt.Sprintf("signals.tier_confidence.%s must be in (0, 1]", tier))
		}
	}

	if len(errs) > 0 {
		return eris.Wrapf(model.ErrInvalidConfig, "config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
