// Package settings loads the operator-editable settings file (holidays, CORS,
// rate limit) and keeps an atomically swapped snapshot of it up to date.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	_ "time/tzdata" // timezones resolve in minimal containers

	"github.com/benvon/task-analyzer/internal/models"
	"github.com/benvon/task-analyzer/internal/scoring"
	"github.com/benvon/task-analyzer/internal/validation"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultRate is the rate limit applied when the file sets none
	DefaultRate = "30-M"
	// DefaultCORSMaxAge is the preflight cache duration in seconds
	DefaultCORSMaxAge = 86400
)

// ErrUnsupportedFormat is returned for settings files that are neither YAML nor TOML
var ErrUnsupportedFormat = errors.New("unsupported settings format (use .yaml, .yml or .toml)")

// Settings is the on-disk settings document
type Settings struct {
	Timezone  string    `yaml:"timezone,omitempty" toml:"timezone,omitempty" json:"timezone,omitempty" validate:"omitempty,timezone"`
	Holidays  []string  `yaml:"holidays" toml:"holidays" json:"holidays" validate:"omitempty,max=1000,dive,holiday_date"`
	CORS      CORS      `yaml:"cors" toml:"cors" json:"cors"`
	RateLimit RateLimit `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`
}

// CORS configures cross-origin access to the API
type CORS struct {
	AllowedOrigins   []string `yaml:"allowed_origins" toml:"allowed_origins" json:"allowed_origins" validate:"omitempty,dive,required"`
	AllowCredentials bool     `yaml:"allow_credentials" toml:"allow_credentials" json:"allow_credentials"`
	MaxAge           int      `yaml:"max_age" toml:"max_age" json:"max_age" validate:"gte=0"`
}

// RateLimit configures the per-client request rate
type RateLimit struct {
	Rate string `yaml:"rate" toml:"rate" json:"rate" validate:"omitempty,rate_format"`
}

// Default returns settings with the built-in holiday set and default limits.
func Default() Settings {
	holidays := scoring.DefaultHolidays()
	s := Settings{
		Timezone:  "UTC",
		Holidays:  make([]string, 0, len(holidays)),
		CORS:      CORS{MaxAge: DefaultCORSMaxAge},
		RateLimit: RateLimit{Rate: DefaultRate},
	}
	for _, h := range holidays {
		s.Holidays = append(s.Holidays, h.Format(models.DateLayout))
	}
	return s
}

// Validate checks the settings document.
func (s *Settings) Validate() error {
	if err := validation.Validate.Struct(s); err != nil {
		return fmt.Errorf("invalid settings: %s", validation.FirstError(err))
	}
	return nil
}

// Normalize sorts and dedupes holidays and fills defaults for empty fields.
func (s *Settings) Normalize() {
	seen := make(map[string]struct{}, len(s.Holidays))
	holidays := make([]string, 0, len(s.Holidays))
	for _, h := range s.Holidays {
		h = strings.TrimSpace(h)
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		holidays = append(holidays, h)
	}
	sort.Strings(holidays)
	s.Holidays = holidays

	if s.Timezone == "" {
		s.Timezone = "UTC"
	}
	if s.RateLimit.Rate == "" {
		s.RateLimit.Rate = DefaultRate
	}
}

// Calendar builds the working-day calendar from the holiday list. Holidays must
// already be valid.
func (s *Settings) Calendar() (*scoring.Calendar, error) {
	days := make([]time.Time, 0, len(s.Holidays))
	for _, h := range s.Holidays {
		d, err := models.ParseDate(h)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q: %w", h, err)
		}
		days = append(days, d.Time)
	}
	return scoring.NewCalendar(days), nil
}

// Location resolves the configured timezone.
func (s *Settings) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

type format int

const (
	formatYAML format = iota
	formatTOML
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return formatYAML, nil
	case ".toml":
		return formatTOML, nil
	default:
		return 0, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// Load reads, validates and normalizes a settings file.
func Load(path string) (*Settings, error) {
	f, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	s, err := decode(data, f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Normalize()
	return s, nil
}

// LoadOrDefault is Load, except a missing file yields Default.
func LoadOrDefault(path string) (*Settings, error) {
	s, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		d := Default()
		return &d, nil
	}
	return s, err
}

func decode(data []byte, f format) (*Settings, error) {
	s := &Settings{CORS: CORS{MaxAge: DefaultCORSMaxAge}}
	switch f {
	case formatTOML:
		if err := toml.Unmarshal(data, s); err != nil {
			return nil, err
		}
	default:
		if len(bytes.TrimSpace(data)) == 0 {
			return s, nil
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Save validates s and writes it to path in the format implied by the extension.
// The file is replaced atomically.
func Save(path string, s *Settings) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}
	s.Normalize()

	var data []byte
	switch f {
	case formatTOML:
		data, err = toml.Marshal(s)
	default:
		data, err = yaml.Marshal(s)
	}
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
