package settings

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benvon/task-analyzer/internal/scoring"
	"go.uber.org/zap"
)

// Snapshot is an immutable view of the settings plus the values derived from them
type Snapshot struct {
	Settings Settings
	Calendar *scoring.Calendar
	Location *time.Location
	LoadedAt time.Time
}

// Store holds the current settings snapshot. Readers never block; Reload
// swaps in a new snapshot and notifies subscribers in registration order.
type Store struct {
	path   string
	logger *zap.Logger

	current atomic.Pointer[Snapshot]

	mu          sync.Mutex
	subscribers []func(*Snapshot)
}

// NewStore loads path (or the defaults when it does not exist) into a new store.
// An empty path always uses the defaults.
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{path: path, logger: logger}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStaticStore wraps fixed settings. Reload re-applies them.
func NewStaticStore(settings Settings) (*Store, error) {
	s := &Store{logger: zap.NewNop()}
	snap, err := newSnapshot(settings)
	if err != nil {
		return nil, err
	}
	s.current.Store(snap)
	return s, nil
}

// Open returns a store backed by the file at path, or a static store holding
// fallback when path is empty.
func Open(path string, fallback Settings, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return NewStaticStore(fallback)
	}
	return NewStore(path, logger)
}

// Path returns the settings file path, empty for a static store.
func (s *Store) Path() string {
	return s.path
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() *Snapshot {
	return s.current.Load()
}

// Subscribe registers fn to run after every successful reload.
func (s *Store) Subscribe(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

// Reload re-reads the settings file. On error the previous snapshot is kept.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var loaded *Settings
	if s.path == "" {
		if prev := s.current.Load(); prev != nil {
			return nil
		}
		d := Default()
		loaded = &d
	} else {
		var err error
		loaded, err = LoadOrDefault(s.path)
		if err != nil {
			return err
		}
	}

	snap, err := newSnapshot(*loaded)
	if err != nil {
		return err
	}
	s.current.Store(snap)

	s.logger.Info("settings_loaded",
		zap.String("path", s.path),
		zap.Int("holidays", len(snap.Settings.Holidays)),
		zap.Int("cors_origins", len(snap.Settings.CORS.AllowedOrigins)),
		zap.String("rate", snap.Settings.RateLimit.Rate),
	)

	for _, fn := range s.subscribers {
		fn(snap)
	}
	return nil
}

func newSnapshot(settings Settings) (*Snapshot, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("settings snapshot: %w", err)
	}
	settings.Normalize()
	cal, err := settings.Calendar()
	if err != nil {
		return nil, err
	}
	loc, err := settings.Location()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Settings: settings,
		Calendar: cal,
		Location: loc,
		LoadedAt: time.Now(),
	}, nil
}
