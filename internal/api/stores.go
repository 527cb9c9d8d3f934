package api

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/diamant-gtfs/internal/common/db"
	"github.com/diamant-gtfs/internal/common/logger"
	"github.com/diamant-gtfs/internal/store"
)

// DatabaseFile is the file name of a feed database inside its key directory.
const DatabaseFile = "gtfs.db"

var ErrUnknownKey = errors.New("unknown feed key")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

// stores opens one store per feed key on first use and keeps it open.
type stores struct {
	dataDir string
	logger  logger.Logger

	mu   sync.Mutex
	open map[string]*store.Store
}

func newStores(dataDir string, logger logger.Logger) *stores {
	return &stores{
		dataDir: dataDir,
		logger:  logger,
		open:    make(map[string]*store.Store),
	}
}

// Path returns the database path of key.
func (s *stores) Path(key string) string {
	return filepath.Join(s.dataDir, key, DatabaseFile)
}

func (s *stores) Get(key string) (*store.Store, error) {
	if !keyPattern.MatchString(key) {
		return nil, fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.open[key]; ok {
		return st, nil
	}

	path := s.Path(key)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%q: %w", key, ErrUnknownKey)
	}

	database, err := db.OpenSQLite(path, s.logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	st := store.New(database)
	s.open[key] = st
	return st, nil
}

// Keys lists the feed keys present under the data directory.
func (s *stores) Keys() []string {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return []string{}
	}
	keys := []string{}
	for _, e := range entries {
		if !e.IsDir() || !keyPattern.MatchString(e.Name()) {
			continue
		}
		if _, err := os.Stat(s.Path(e.Name())); err == nil {
			keys = append(keys, e.Name())
		}
	}
	sort.Strings(keys)
	return keys
}

func (s *stores) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, st := range s.open {
		if err := st.DB().Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", key, err))
		}
		delete(s.open, key)
	}
	return errors.Join(errs...)
}
