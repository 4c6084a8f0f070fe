// Package devicestore keeps the small per-device state the studio needs
// between requests: the liked-prompt set, the theme, and revoked sessions.
// Entries are plain keys with no schema versioning.
package devicestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Theme is the light/dark preference.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme validates a theme name.
func ParseTheme(s string) (Theme, bool) {
	switch Theme(s) {
	case ThemeLight, ThemeDark:
		return Theme(s), true
	}
	return "", false
}

// DefaultTheme is reported for devices that never chose one.
const DefaultTheme = ThemeDark

// Store is a badger-backed device store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the store at path. An empty path keeps everything
// in memory, which is what tests and throwaway dev runs use.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("devicestore: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func likedKey(deviceID string) []byte { return []byte("device:" + deviceID + ":liked") }
func themeKey(deviceID string) []byte { return []byte("device:" + deviceID + ":theme") }
func revokedKey(jti string) []byte { return []byte("revoked:" + jti) }

// LikedSet returns the prompt ids the device has liked, sorted.
func (s *Store) LikedSet(deviceID string) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(likedKey(deviceID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &ids)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("devicestore: liked set: %w", err)
	}
	return ids, nil
}

// SaveLikedSet replaces the device's liked set.
func (s *Store) SaveLikedSet(deviceID string, ids []string) error {
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)
	data, err := json.Marshal(sorted)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(likedKey(deviceID), data)
	}); err != nil {
		return fmt.Errorf("devicestore: save liked set: %w", err)
	}
	return nil
}

// Theme returns the device theme or DefaultTheme.
func (s *Store) Theme(deviceID string) (Theme, error) {
	theme := DefaultTheme
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(themeKey(deviceID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if t, ok := ParseTheme(string(val)); ok {
				theme = t
			}
			return nil
		})
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("devicestore: theme: %w", err)
	}
	return theme, nil
}

// SetTheme stores the device theme.
func (s *Store) SetTheme(deviceID string, theme Theme) error {
	if _, ok := ParseTheme(string(theme)); !ok {
		return fmt.Errorf("devicestore: unknown theme %q", theme)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(themeKey(deviceID), []byte(theme))
	})
}

// Revoke marks a session token id as signed out until it would have expired.
func (s *Store) Revoke(jti string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(revokedKey(jti), []byte{1}).WithTTL(ttl))
	})
}

// IsRevoked reports whether jti was signed out.
func (s *Store) IsRevoked(jti string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(revokedKey(jti))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("devicestore: revoked lookup: %w", err)
	}
	return true, nil
}

func stateKey(state string) []byte { return []byte("oauth-state:" + state) }

// SaveState remembers an OAuth state value and the device that started it.
func (s *Store) SaveState(state, deviceID string, ttl time.Duration) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(stateKey(state), []byte(deviceID)).WithTTL(ttl))
	})
}

// ConsumeState deletes state and returns its device id. ok is false for
// unknown or expired states.
func (s *Store) ConsumeState(state string) (deviceID string, ok bool, err error) {
	err = s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey(state))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		deviceID = string(val)
		return txn.Delete(stateKey(state))
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("devicestore: consume state: %w", err)
	}
	return deviceID, true, nil
}
