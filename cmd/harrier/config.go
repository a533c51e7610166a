package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// applyEnv overlays HARRIER_* environment variables on cfg. Unset
// variables leave the tier defaults untouched.
func applyEnv(cfg *domain.Config) error {
	var errs []string

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %q is not a number", key, v))
			return
		}
		*dst = n
	}
	flag := func(key string, dst *bool) {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %q is not a boolean", key, v))
			return
		}
		*dst = b
	}

	// Server
	str("HARRIER_HOST", &cfg.Server.Host)
	num("HARRIER_PORT", &cfg.Server.Port)

	// Repository
	str("HARRIER_DB_DRIVER", &cfg.Repository.Driver)
	str("HARRIER_SQLITE_PATH", &cfg.Repository.SQLitePath)
	str("HARRIER_POSTGRES_HOST", &cfg.Repository.PostgresHost)
	num("HARRIER_POSTGRES_PORT", &cfg.Repository.PostgresPort)
	str("HARRIER_POSTGRES_USER", &cfg.Repository.PostgresUser)
	str("HARRIER_POSTGRES_PASSWORD", &cfg.Repository.PostgresPassword)
	str("HARRIER_POSTGRES_DB", &cfg.Repository.PostgresDB)
	str("HARRIER_POSTGRES_SSLMODE", &cfg.Repository.PostgresSSLMode)

	// Scenario store
	str("HARRIER_SCENARIO_STORE", &cfg.Scenarios.Type)
	str("HARRIER_SCENARIO_PATH", &cfg.Scenarios.Path)

	// Cache
	str("HARRIER_CACHE", &cfg.Cache.Type)
	str("HARRIER_REDIS_ADDR", &cfg.Cache.RedisAddr)
	str("HARRIER_REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	num("HARRIER_REDIS_DB", &cfg.Cache.RedisDB)

	// Event bus
	str("HARRIER_BUS", &cfg.EventBus.Type)
	str("HARRIER_NATS_URL", &cfg.EventBus.NATSUrl)
	str("HARRIER_NATS_TOKEN", &cfg.EventBus.NATSToken)

	// Scoring collaborators
	str("HARRIER_ENSO", &cfg.Climate.ENSOState)
	str("HARRIER_REASONER", &cfg.Reasoner.Provider)
	str("HARRIER_LLM_ENDPOINT", &cfg.Reasoner.Endpoint)
	str("HARRIER_LLM_MODEL", &cfg.Reasoner.Model)
	str("HARRIER_LLM_API_KEY", &cfg.Reasoner.APIKey)
	num("HARRIER_LLM_TIMEOUT", &cfg.Reasoner.Timeout)
	str("HARRIER_LOCALE_DIR", &cfg.I18n.OverrideDir)
	flag("HARRIER_LOCALE_WATCH", &cfg.I18n.Watch)

	if v := os.Getenv("HARRIER_LANGUAGE"); v != "" {
		cfg.I18n.DefaultLanguage = domain.NormalizeLanguage(strings.ToLower(v))
	}

	// an endpoint alone is enough to opt into the delegate
	if cfg.Reasoner.Endpoint != "" && os.Getenv("HARRIER_REASONER") == "" {
		cfg.Reasoner.Provider = "llm"
	}

	if len(errs) > 0 {
		return fmt.Errorf("environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// loadMitigationRules reads a JSON array of mitigation rules. Rules
// without an explicit enabled field are enabled.
func loadMitigationRules(path string) ([]*domain.MitigationRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw []struct {
		domain.MitigationRule
		Enabled *bool `json:"enabled"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	out := make([]*domain.MitigationRule, 0, len(raw))
	for _, r := range raw {
		rule := r.MitigationRule
		rule.Enabled = r.Enabled == nil || *r.Enabled
		out = append(out, &rule)
	}
	return out, nil
}
