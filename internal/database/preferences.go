package database

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/botforge/botforge/internal/models"
)

// Preference keys. Values are stored as strings in the preferences table.
const (
	prefKeyTheme              = "preferred_theme"
	prefKeyDynamicColors      = "use_dynamic_colors"
	prefKeyLastSync           = "last_successful_sync"
	prefKeyEnableUGC          = "enable_user_generated_content"
	prefKeyEnableShakeToClear = "enable_shake_to_clear"
	prefKeyShakeSensitivity   = "shake_to_clear_sensitivity"
)

// PreferenceStore persists process-wide settings as key-value pairs and
// exposes them as a stream of change notifications. Subscribers are detached
// when their context is cancelled.
type PreferenceStore struct {
	db *DB

	mu      sync.Mutex
	subs    map[int]chan models.Preferences
	nextSub int
}

// NewPreferenceStore creates a new preference store
func NewPreferenceStore(db *DB) *PreferenceStore {
	return &PreferenceStore{
		db:   db,
		subs: make(map[int]chan models.Preferences),
	}
}

// Preferences reads the full settings snapshot, filling defaults for keys
// that were never written.
func (s *PreferenceStore) Preferences(ctx context.Context) (models.Preferences, error) {
	prefs := models.DefaultPreferences()

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return prefs, fmt.Errorf("failed to read preferences: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return prefs, fmt.Errorf("failed to scan preference: %w", err)
		}
		switch key {
		case prefKeyTheme:
			prefs.Theme = models.Theme(value)
		case prefKeyDynamicColors:
			prefs.UseDynamicColors = value == "true"
		case prefKeyLastSync:
			if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
				prefs.LastSuccessfulSync = t
			}
		case prefKeyEnableUGC:
			prefs.EnableUserGeneratedContent = value == "true"
		case prefKeyEnableShakeToClear:
			prefs.EnableShakeToClear = value == "true"
		case prefKeyShakeSensitivity:
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				prefs.ShakeToClearSensitivity = f
			}
		}
	}
	if err := rows.Err(); err != nil {
		return prefs, fmt.Errorf("error iterating preferences: %w", err)
	}
	return prefs, nil
}

// LastSuccessfulSync returns the sync watermark, zero if never synced
func (s *PreferenceStore) LastSuccessfulSync(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, prefKeyLastSync).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read sync watermark: %w", err)
	}

	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse sync watermark: %w", err)
	}
	return t, nil
}

// SetLastSuccessfulSync advances the watermark. The watermark only moves
// forward: attempts to move it back are ignored.
func (s *PreferenceStore) SetLastSuccessfulSync(ctx context.Context, t time.Time) error {
	current, err := s.LastSuccessfulSync(ctx)
	if err != nil {
		return err
	}
	if !t.After(current) {
		return nil
	}
	return s.set(ctx, prefKeyLastSync, t.UTC().Format(time.RFC3339Nano))
}

// SetTheme stores the preferred theme
func (s *PreferenceStore) SetTheme(ctx context.Context, theme models.Theme) error {
	return s.set(ctx, prefKeyTheme, string(theme))
}

// SetUseDynamicColors stores the dynamic colors toggle
func (s *PreferenceStore) SetUseDynamicColors(ctx context.Context, enabled bool) error {
	return s.set(ctx, prefKeyDynamicColors, strconv.FormatBool(enabled))
}

// SetEnableUserGeneratedContent stores the community content toggle
func (s *PreferenceStore) SetEnableUserGeneratedContent(ctx context.Context, enabled bool) error {
	return s.set(ctx, prefKeyEnableUGC, strconv.FormatBool(enabled))
}

// SetEnableShakeToClear stores the shake-to-clear toggle
func (s *PreferenceStore) SetEnableShakeToClear(ctx context.Context, enabled bool) error {
	return s.set(ctx, prefKeyEnableShakeToClear, strconv.FormatBool(enabled))
}

// SetShakeToClearSensitivity stores the shake-to-clear sensitivity
func (s *PreferenceStore) SetShakeToClearSensitivity(ctx context.Context, sensitivity float64) error {
	return s.set(ctx, prefKeyShakeSensitivity, strconv.FormatFloat(sensitivity, 'f', -1, 64))
}

// Watch subscribes to preference changes. The returned channel receives a
// full snapshot after each successful write and is closed when ctx is
// cancelled.
func (s *PreferenceStore) Watch(ctx context.Context) <-chan models.Preferences {
	ch := make(chan models.Preferences, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (s *PreferenceStore) set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value)
		VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}

	s.notify(ctx)
	return nil
}

// notify pushes the latest snapshot to every subscriber. A slow subscriber
// keeps only the most recent snapshot: the stale one is dropped.
func (s *PreferenceStore) notify(ctx context.Context) {
	prefs, err := s.Preferences(ctx)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- prefs:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- prefs:
			default:
			}
		}
	}
}
