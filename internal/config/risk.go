package config

import (
	"fmt"
	"math"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// RiskConfig holds the live-tunable trading parameters. It is read on every
// engine cycle and may be replaced field by field at any time.
type RiskConfig struct {
	MaxPositions    int     `json:"max_positions" yaml:"max_positions" validate:"gte=1,lte=100"`
	PositionSizePct float64 `json:"position_size_pct" yaml:"position_size_pct" validate:"gt=0,lte=100"`
	// Leverage 0 picks randomly from the leverage menu on every entry.
	Leverage     int     `json:"leverage" yaml:"leverage" validate:"gte=0,lte=125"`
	TPPct        float64 `json:"tp_pct" yaml:"tp_pct" validate:"gt=0"`
	SLPct        float64 `json:"sl_pct" yaml:"sl_pct" validate:"gt=0"`
	MinScore     int     `json:"min_score" yaml:"min_score" validate:"gte=0"`
	MinConf      float64 `json:"min_conf" yaml:"min_conf" validate:"gte=0,lte=100"`
	MaxATRPct    float64 `json:"max_atr_pct" yaml:"max_atr_pct" validate:"gt=0"`
	ScanSize     int     `json:"scan_size" yaml:"scan_size" validate:"gte=1"`
	ScanInterval int     `json:"scan_interval" yaml:"scan_interval" validate:"gte=1"`

	ProfitProtect  bool    `json:"profit_protect" yaml:"profit_protect"`
	MaxPnLDrawdown float64 `json:"max_pnl_drawdown" yaml:"max_pnl_drawdown" validate:"gt=0,lte=1"`
	LossRecovery   bool    `json:"loss_recovery" yaml:"loss_recovery"`
	SmartExitScore int     `json:"smart_exit_score" yaml:"smart_exit_score" validate:"lte=0"`
}

// DefaultRiskConfig returns the out-of-the-box trading parameters.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		MaxPositions:    7,
		PositionSizePct: 9,
		Leverage:        0,
		TPPct:           2.0,
		SLPct:           0.8,
		MinScore:        4,
		MinConf:         50,
		MaxATRPct:       6,
		ScanSize:        20,
		ScanInterval:    2,
		ProfitProtect:   true,
		MaxPnLDrawdown:  0.5,
		LossRecovery:    true,
		SmartExitScore:  -3,
	}
}

// Validate checks field bounds.
func (c RiskConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid risk config: %w", err)
	}
	return nil
}

// LoadRiskProfile reads a YAML file on top of the defaults. Keys missing from
// the file keep their default value.
func LoadRiskProfile(path string) (RiskConfig, error) {
	cfg := DefaultRiskConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read risk profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse risk profile: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return DefaultRiskConfig(), err
	}
	return cfg, nil
}

// RiskStore guards the shared RiskConfig. Readers get a copy.
type RiskStore struct {
	mu  sync.RWMutex
	cfg RiskConfig
}

// NewRiskStore creates a store seeded with cfg.
func NewRiskStore(cfg RiskConfig) *RiskStore {
	return &RiskStore{cfg: cfg}
}

// Get returns a copy of the current configuration.
func (s *RiskStore) Get() RiskConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Set replaces the configuration after validating it.
func (s *RiskStore) Set(cfg RiskConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Apply updates the fields named by their json keys. Each value is coerced to
// the type of the existing field; unknown keys are ignored. Nothing is
// applied if any value cannot be coerced or the result fails validation.
// It returns the keys that were applied.
func (s *RiskStore) Apply(updates map[string]any) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	target := reflect.ValueOf(&next).Elem()
	fields := jsonFieldIndex(target.Type())

	applied := make([]string, 0, len(updates))
	for key, raw := range updates {
		idx, ok := fields[key]
		if !ok {
			continue
		}
		if err := coerceInto(target.Field(idx), raw); err != nil {
			return nil, fmt.Errorf("field %s: %w", key, err)
		}
		applied = append(applied, key)
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	s.cfg = next
	return applied, nil
}

func jsonFieldIndex(t reflect.Type) map[string]int {
	out := make(map[string]int, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name := strings.Split(t.Field(i).Tag.Get("json"), ",")[0]
		if name != "" && name != "-" {
			out[name] = i
		}
	}
	return out
}

func coerceInto(field reflect.Value, raw any) error {
	switch field.Kind() {
	case reflect.Int:
		v, err := toFloat(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(math.Trunc(v)))
	case reflect.Float64:
		v, err := toFloat(raw)
		if err != nil {
			return err
		}
		field.SetFloat(v)
	case reflect.Bool:
		v, err := toBool(raw)
		if err != nil {
			return err
		}
		field.SetBool(v)
	default:
		return fmt.Errorf("unsupported kind %s", field.Kind())
	}
	return nil
}

func toFloat(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("not a number: %v", raw)
	}
}

func toBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("not a bool: %q", v)
		}
		return b, nil
	default:
		return false, fmt.Errorf("not a bool: %v", raw)
	}
}
