// Package config resolves the per-repository review configuration. Missing
// or malformed files fall back to safe defaults; configuration problems never
// stop a run.
package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/de-tools/review-gate/pkg/models/domain"
)

const (
	// EnvReviewConfigPath overrides the review config location.
	EnvReviewConfigPath = "REVIEW_CONFIG_PATH"
	// EnvLabelConfigPath overrides the label styling config location.
	EnvLabelConfigPath = "REVIEW_LABEL_CONFIG_PATH"
)

// Candidate paths tried in each directory while walking upward from the
// working directory. The first regular file wins.
var (
	reviewConfigFiles = []string{
		".github/review-gate.yaml",
		".github/review-gate.yml",
	}
	labelConfigFiles = []string{
		".github/review-gate/labels.yaml",
		".github/review-gate/labels.yml",
	}
)

type Settings struct {
	// Dir is where the upward search starts. Empty means the working
	// directory.
	Dir string
}

type Loader interface {
	Load(ctx context.Context) domain.RepoConfig
}

type DefaultLoader struct {
	dir string
}

func NewLoader(settings Settings) *DefaultLoader {
	return &DefaultLoader{dir: settings.Dir}
}

func (l *DefaultLoader) Load(ctx context.Context) domain.RepoConfig {
	cfg := domain.DefaultRepoConfig()
	l.loadReview(ctx, &cfg)
	l.loadLabels(ctx, &cfg)
	return cfg
}

func (l *DefaultLoader) loadReview(ctx context.Context, cfg *domain.RepoConfig) {
	logger := zerolog.Ctx(ctx)

	path := l.resolve(EnvReviewConfigPath, reviewConfigFiles)
	if path == "" {
		logger.Debug().Msg("no review config found, using defaults")
		return
	}

	v, ok := readYAML(ctx, path)
	if !ok {
		return
	}

	section := v.Sub("auto_merge")
	if section == nil {
		logger.Debug().Str("path", path).Msg("review config has no auto_merge section")
		return
	}

	// Match criteria may sit directly under auto_merge or be grouped under
	// an allow block.
	criteria := section
	if allow := section.Sub("allow"); allow != nil {
		criteria = allow
	}

	cfg.AutoMerge.Enabled = section.GetBool("enabled")
	cfg.AutoMerge.BranchPrefixes = stringList(criteria.Get("branch_prefixes"))
	cfg.AutoMerge.BranchRegexes = stringList(criteria.Get("branch_regexes"))
	cfg.AutoMerge.AuthorLogins = stringList(criteria.Get("author_logins"))

	if raw := strings.ToUpper(strings.TrimSpace(section.GetString("max_risk"))); raw != "" {
		level := domain.RiskLevel(raw)
		if level.Rank() == 0 {
			logger.Warn().Str("max_risk", raw).Msg("unknown max_risk in review config, keeping default")
		} else {
			cfg.AutoMerge.MaxRisk = level
		}
	}

	logger.Info().
		Str("path", path).
		Bool("enabled", cfg.AutoMerge.Enabled).
		Str("max_risk", string(cfg.AutoMerge.MaxRisk)).
		Msg("loaded review config")
}

func (l *DefaultLoader) loadLabels(ctx context.Context, cfg *domain.RepoConfig) {
	logger := zerolog.Ctx(ctx)

	path := l.resolve(EnvLabelConfigPath, labelConfigFiles)
	if path == "" {
		logger.Debug().Msg("no label config found, using defaults")
		return
	}

	v, ok := readYAML(ctx, path)
	if !ok {
		return
	}

	section := v.Sub("labels")
	if section == nil {
		logger.Debug().Str("path", path).Msg("label config has no labels section")
		return
	}

	if color := strings.TrimSpace(section.GetString("default_color")); color != "" {
		cfg.Labels.DefaultColor = color
	}

	// Overrides merge per key onto the built-in palette, so a file may
	// restyle one risk level without respecifying the rest. Viper lowercases
	// keys; risk levels are stored uppercase.
	for key, color := range section.GetStringMapString("risk_colors") {
		if color != "" {
			cfg.Labels.RiskColors[strings.ToUpper(key)] = color
		}
	}
	for key, color := range section.GetStringMapString("change_type_colors") {
		if color != "" {
			cfg.Labels.ChangeTypeColors[strings.ToLower(key)] = color
		}
	}
	for key, color := range section.GetStringMapString("update_colors") {
		if color != "" {
			cfg.Labels.UpdateColors[strings.ToLower(key)] = color
		}
	}
	for key, description := range section.GetStringMapString("descriptions") {
		if description != "" {
			cfg.Labels.Descriptions[strings.ToLower(key)] = description
		}
	}

	logger.Info().Str("path", path).Msg("loaded label config")
}

// resolve picks the config path: the env override when set, otherwise the
// first candidate found walking upward.
func (l *DefaultLoader) resolve(envVar string, candidates []string) string {
	if override := strings.TrimSpace(os.Getenv(envVar)); override != "" {
		return override
	}
	return searchUpwards(l.dir, candidates)
}

func readYAML(ctx context.Context, path string) (*viper.Viper, bool) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", path).Msg("failed to read config, using defaults")
		return nil, false
	}
	return v, true
}

func searchUpwards(start string, candidates []string) string {
	dir := start
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = wd
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		for _, candidate := range candidates {
			path := filepath.Join(dir, candidate)
			if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
				return path
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// stringList accepts a YAML scalar or sequence and returns the trimmed
// non-empty strings. Anything else is treated as absent.
func stringList(value any) []string {
	switch v := value.(type) {
	case string:
		if cleaned := strings.TrimSpace(v); cleaned != "" {
			return []string{cleaned}
		}
	case []any:
		var items []string
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			if cleaned := strings.TrimSpace(s); cleaned != "" {
				items = append(items, cleaned)
			}
		}
		return items
	case []string:
		var items []string
		for _, entry := range v {
			if cleaned := strings.TrimSpace(entry); cleaned != "" {
				items = append(items, cleaned)
			}
		}
		return items
	}
	return nil
}
