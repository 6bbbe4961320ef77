package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"bonussim/internal/domain/bonus"
)

// Scoring is the tunable part of the calculation: category weights, the
// rounding mode and the accepted adjustment factor range.
type Scoring struct {
	Weights struct {
		Numeric    float64 `mapstructure:"numeric"`
		Behavioral float64 `mapstructure:"behavioral"`
		Posture    float64 `mapstructure:"posture"`
	} `mapstructure:"weights"`
	Rounding   string `mapstructure:"rounding"`
	Adjustment struct {
		Min float64 `mapstructure:"min"`
		Max float64 `mapstructure:"max"`
	} `mapstructure:"adjustment"`
}

func (s Scoring) Policy() (bonus.Policy, error) {
	return bonus.NewPolicy(s.Weights.Numeric, s.Weights.Behavioral, s.Weights.Posture, s.Rounding)
}

func (s Scoring) AdjustmentBounds() (decimal.Decimal, decimal.Decimal) {
	return decimal.NewFromFloat(s.Adjustment.Min), decimal.NewFromFloat(s.Adjustment.Max)
}

func validateScoring(s Scoring) error {
	if _, err := s.Policy(); err != nil {
		return err
	}
	if s.Adjustment.Min < 0 {
		return errors.New("scoring.adjustment.min cannot be negative")
	}
	if s.Adjustment.Max < s.Adjustment.Min {
		return errors.New("scoring.adjustment.max must be >= scoring.adjustment.min")
	}
	return nil
}

type ScoringHolder struct {
	current atomic.Value // holds Scoring
	v       *viper.Viper
}

func setScoringDefaults(v *viper.Viper) {
	v.SetDefault("scoring.weights.numeric", 0.6)
	v.SetDefault("scoring.weights.behavioral", 0.25)
	v.SetDefault("scoring.weights.posture", 0.15)
	v.SetDefault("scoring.rounding", bonus.RoundingFloor)
	v.SetDefault("scoring.adjustment.min", 0.5)
	v.SetDefault("scoring.adjustment.max", 1.5)
}

// LoadScoring reads scoring.yml from path, or from the usual search paths
// when path is empty. A missing file falls back to the defaults; BONUS_*
// environment variables override individual keys.
func LoadScoring(path string) (*ScoringHolder, error) {
	v := viper.New()
	setScoringDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("scoring")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/bonussim")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("BONUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read scoring config: %w", err)
		}
	}

	cfg, err := decodeScoring(v)
	if err != nil {
		return nil, err
	}
	holder := &ScoringHolder{v: v}
	holder.current.Store(cfg)
	return holder, nil
}

func decodeScoring(v *viper.Viper) (Scoring, error) {
	var cfg Scoring
	if err := v.UnmarshalKey("scoring", &cfg); err != nil {
		return Scoring{}, fmt.Errorf("decode scoring config: %w", err)
	}
	// UnmarshalKey does not consult AutomaticEnv for nested keys.
	cfg.Weights.Numeric = v.GetFloat64("scoring.weights.numeric")
	cfg.Weights.Behavioral = v.GetFloat64("scoring.weights.behavioral")
	cfg.Weights.Posture = v.GetFloat64("scoring.weights.posture")
	cfg.Rounding = v.GetString("scoring.rounding")
	cfg.Adjustment.Min = v.GetFloat64("scoring.adjustment.min")
	cfg.Adjustment.Max = v.GetFloat64("scoring.adjustment.max")
	if err := validateScoring(cfg); err != nil {
		return Scoring{}, err
	}
	return cfg, nil
}

func (h *ScoringHolder) Get() Scoring {
	return h.current.Load().(Scoring)
}

// Watch reloads the file on change. Invalid edits are logged and ignored so
// the last good configuration stays active.
func (h *ScoringHolder) Watch(log *zap.Logger, onChange func(Scoring)) {
	if h.v.ConfigFileUsed() == "" {
		return
	}
	h.v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeScoring(h.v)
		if err != nil {
			log.Warn("scoring config reload rejected", zap.String("file", e.Name), zap.Error(err))
			return
		}
		h.current.Store(updated)
		log.Info("scoring config reloaded", zap.String("file", e.Name))
		if onChange != nil {
			onChange(updated)
		}
	})
	h.v.WatchConfig()
}
