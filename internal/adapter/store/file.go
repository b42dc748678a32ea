package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/apperr"
	"github.com/pancudaniel7/bridge-relay-ethereum-service/internal/pkg/applog"
)

// fileSnapshot is the durable schema. Order-insensitive; duplicates on load
// collapse into the set.
type fileSnapshot struct {
	ProcessedTxs []string `json:"processed_txs"`
}

// FileStore is a JSON-file DedupStore. The in-memory set is authoritative
// for the process lifetime; flushes replace the file atomically (write to a
// temp file in the same directory, then rename) so a crash never leaves a
// partially written snapshot.
//
// An absent file on init means an empty store. An unparsable file is logged
// at error level and treated as empty: availability over strict consistency.
type FileStore struct {
	log  applog.AppLogger
	path string

	mu        sync.Mutex
	processed map[string]struct{}
}

// NewFileStore validates the configuration and loads the snapshot at
// cfg.Path, if any.
func NewFileStore(log applog.AppLogger, cfg FileConfig, v *validator.Validate) (*FileStore, error) {
	if err := v.Struct(cfg); err != nil {
		log.Error("invalid file store config", "err", err)
		return nil, apperr.NewInvalidArgErr("invalid file store config", err)
	}

	fs := &FileStore{
		log:       log,
		path:      cfg.Path,
		processed: make(map[string]struct{}),
	}
	fs.load()
	log.Info("Dedup store initialized", "path", cfg.Path, "processed", len(fs.processed))
	return fs, nil
}

func (fs *FileStore) load() {
	raw, err := os.ReadFile(fs.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			fs.log.Error("Failed to read dedup store file; starting empty", "path", fs.path, "err", err)
		}
		return
	}

	var snap fileSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		fs.log.Error("Corrupt dedup store file; starting empty", "path", fs.path, "err", err)
		return
	}
	for _, id := range snap.ProcessedTxs {
		fs.processed[id] = struct{}{}
	}
}

// IsProcessed reports whether id has already been acted upon.
func (fs *FileStore) IsProcessed(id string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	_, ok := fs.processed[id]
	return ok
}

// MarkProcessed records id in memory, then flushes the full set durably.
// A flush failure is returned as a PersistenceErr; the in-memory record
// stands either way, so a second call within this process never double-acts.
func (fs *FileStore) MarkProcessed(id string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.processed[id] = struct{}{}
	if err := fs.flushLocked(); err != nil {
		return apperr.NewPersistenceErr("failed to flush dedup store", err)
	}
	return nil
}

func (fs *FileStore) flushLocked() error {
	snap := fileSnapshot{ProcessedTxs: make([]string, 0, len(fs.processed))}
	for id := range fs.processed {
		snap.ProcessedTxs = append(snap.ProcessedTxs, id)
	}
	payload, err := json.Marshal(&snap)
	if err != nil {
		return err
	}

	dir := filepath.Dir(fs.path)
	tmp, err := os.CreateTemp(dir, ".dedup-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, fs.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
