package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/hailam/aaschess/internal/aas"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyStats       = "stats"
	keyKernel      = "kernel/state"
	prefixSearch   = "search/"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("storage: not found")

// Preferences stores the options a UCI session last set.
type Preferences struct {
	SearchMode string    `json:"search_mode"`
	HashMB     int       `json:"hash_mb"`
	Threads    int       `json:"threads"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DefaultPreferences returns default preferences.
func DefaultPreferences() *Preferences {
	return &Preferences{
		SearchMode: "alphabeta",
		HashMB:     64,
		Threads:    1,
	}
}

// SearchStats aggregates every recorded search.
type SearchStats struct {
	Searches   int            `json:"searches"`
	TotalNodes uint64         `json:"total_nodes"`
	TotalTime  time.Duration  `json:"total_time"`
	ByStrategy map[string]int `json:"by_strategy"`
	DeepestPly int            `json:"deepest_ply"`
	LastSearch time.Time      `json:"last_search"`
}

// NewSearchStats returns empty statistics.
func NewSearchStats() *SearchStats {
	return &SearchStats{ByStrategy: make(map[string]int)}
}

// AverageNodes returns the mean nodes per search.
func (s *SearchStats) AverageNodes() float64 {
	if s.Searches == 0 {
		return 0
	}
	return float64(s.TotalNodes) / float64(s.Searches)
}

// SearchRecord is one finished search.
type SearchRecord struct {
	ID       string        `json:"id"`
	Time     time.Time     `json:"time"`
	FEN      string        `json:"fen"`
	Move     string        `json:"move"`
	Score    int           `json:"score"`
	Depth    int           `json:"depth"`
	Nodes    uint64        `json:"nodes"`
	Elapsed  time.Duration `json:"elapsed"`
	Strategy string        `json:"strategy"`
	Entropy  float64       `json:"entropy"`
	Budget   aas.Budget    `json:"budget"`
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens (or creates) the database under dataDir. An empty dataDir uses
// the platform data directory.
func Open(dataDir string, logger *slog.Logger) (*Storage, error) {
	dbDir, err := GetDatabaseDir(dataDir)
	if err != nil {
		return nil, fmt.Errorf("database dir: %w", err)
	}
	return open(badger.DefaultOptions(dbDir), logger)
}

// OpenInMemory opens a database that lives only in memory.
func OpenInMemory(logger *slog.Logger) (*Storage, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		opts.Logger = nil // Disable logging
	} else {
		opts.Logger = badgerLogger{logger.With("component", "badger")}
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get decodes key into v. A missing key yields ErrNotFound.
func (s *Storage) get(key string, v any) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

// SaveKernel persists the allocator state.
func (s *Storage) SaveKernel(snap aas.Snapshot) error {
	return s.put(keyKernel, snap)
}

// LoadKernel returns the persisted allocator state or ErrNotFound.
func (s *Storage) LoadKernel() (aas.Snapshot, error) {
	var snap aas.Snapshot
	if err := s.get(keyKernel, &snap); err != nil {
		return aas.Snapshot{}, err
	}
	return snap, nil
}

// SavePreferences saves the session options.
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.UpdatedAt = time.Now()
	return s.put(keyPreferences, prefs)
}

// LoadPreferences loads the session options, returns defaults if not found
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	if err := s.get(keyPreferences, prefs); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return prefs, nil
}

// LoadStats loads search statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*SearchStats, error) {
	stats := NewSearchStats()
	if err := s.get(keyStats, stats); err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if stats.ByStrategy == nil {
		stats.ByStrategy = make(map[string]int)
	}
	return stats, nil
}

// RecordSearch appends rec to the search log and folds it into the
// statistics in one transaction. Missing ID and Time are filled in.
func (s *Storage) RecordSearch(rec SearchRecord) (SearchRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Time.IsZero() {
		rec.Time = time.Now()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("encode search: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		stats := NewSearchStats()
		item, err := txn.Get([]byte(keyStats))
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, stats) }); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if stats.ByStrategy == nil {
			stats.ByStrategy = make(map[string]int)
		}

		stats.Searches++
		stats.TotalNodes += rec.Nodes
		stats.TotalTime += rec.Elapsed
		stats.ByStrategy[rec.Strategy]++
		stats.DeepestPly = max(stats.DeepestPly, rec.Depth)
		stats.LastSearch = rec.Time

		statsData, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		if err := txn.Set([]byte(keyStats), statsData); err != nil {
			return err
		}
		return txn.Set(searchKey(rec), data)
	})
	return rec, err
}

// searchKey orders records by time; the zero-padded timestamp keeps byte
// order equal to time order.
func searchKey(rec SearchRecord) []byte {
	return fmt.Appendf(nil, "%s%020d/%s", prefixSearch, rec.Time.UnixNano(), rec.ID)
}

// RecentSearches returns up to n records, newest first.
func (s *Storage) RecentSearches(n int) ([]SearchRecord, error) {
	var out []SearchRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(prefixSearch)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key not above the seek key.
		for it.Seek([]byte(prefixSearch + "\xff")); it.Valid() && len(out) < n; it.Next() {
			var rec SearchRecord
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}

// badgerLogger routes badger's logging through slog. Badger is chatty at
// info level, so info is demoted to debug.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(f string, args ...any)   { b.l.Error(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Warningf(f string, args ...any) { b.l.Warn(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Infof(f string, args ...any)    { b.l.Debug(fmt.Sprintf(f, args...)) }
func (b badgerLogger) Debugf(f string, args ...any)   { b.l.Debug(fmt.Sprintf(f, args...)) }
