package history

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/spectra-sender/sender/models"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "history").Logger()
}

// SetLogger replaces the package logger.
func SetLogger(l zerolog.Logger) {
	log = l.With().Str("component", "history").Logger()
}

var (
	ErrNotFound      = errors.New("transfer not found")
	ErrDuplicate     = errors.New("transfer already recorded")
	ErrLineageCycle  = errors.New("replacement lineage forms a cycle")
	ErrEmptyHash     = errors.New("transfer hash is empty")
	ErrSelfReplacing = errors.New("transfer cannot replace itself")
)

// MemoryStore keeps transfer records in memory. It is safe for concurrent use
// and every read returns a copy.
//
// DestTxHash and ReplacedFrom are write once: an update that tries to set
// either while it is already set is rejected as a whole, so duplicate or late
// events never change a record.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.TransferRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]*models.TransferRecord),
	}
}

func key(hash string) string {
	return strings.ToLower(hash)
}

// AddTransaction records a new transfer.
func (m *MemoryStore) AddTransaction(record models.TransferRecord) error {
	if record.Hash == "" {
		return ErrEmptyHash
	}
	k := key(record.Hash)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[k]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, record.Hash)
	}
	if record.ReplacedFrom != "" {
		if err := m.checkLineage(k, key(record.ReplacedFrom)); err != nil {
			return err
		}
	}

	r := record
	m.records[k] = &r
	log.Debug().
		Str("tx", record.Hash).
		Str("replacedFrom", record.ReplacedFrom).
		Int("size", len(m.records)).
		Msg("Transfer added")
	return nil
}

// checkLineage walks the replacedFrom chain starting at parent and fails if it
// reaches hash. Must be called with the lock held.
func (m *MemoryStore) checkLineage(hash, parent string) error {
	if parent == hash {
		return fmt.Errorf("%w: %s", ErrSelfReplacing, hash)
	}
	seen := map[string]bool{hash: true}
	for cur := parent; cur != ""; {
		if seen[cur] {
			return fmt.Errorf("%w: %s", ErrLineageCycle, hash)
		}
		seen[cur] = true
		r, ok := m.records[cur]
		if !ok {
			return nil
		}
		cur = key(r.ReplacedFrom)
	}
	return nil
}

// UpdateTransaction applies update to the record with hash. The returned bool
// is false when a write-once field was already set; the record is then left
// untouched and returned as stored.
func (m *MemoryStore) UpdateTransaction(hash string, update models.TransferUpdate) (models.TransferRecord, bool, error) {
	k := key(hash)

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.records[k]
	if !ok {
		return models.TransferRecord{}, false, fmt.Errorf("%w: %s", ErrNotFound, hash)
	}

	if update.DestTxHash != nil && r.DestTxHash != "" {
		return *r, false, nil
	}
	if update.ReplacedFrom != nil {
		if r.ReplacedFrom != "" {
			return *r, false, nil
		}
		if err := m.checkLineage(k, key(*update.ReplacedFrom)); err != nil {
			return *r, false, err
		}
	}

	next := *r
	if update.Pending != nil {
		next.Pending = *update.Pending
	}
	if update.DestTxHash != nil {
		next.DestTxHash = *update.DestTxHash
	}
	if update.PendingDestinationConfirmation != nil {
		next.PendingDestinationConfirmation = *update.PendingDestinationConfirmation
	}
	if update.ReplacedFrom != nil {
		next.ReplacedFrom = *update.ReplacedFrom
	}
	*r = next
	return next, true, nil
}

// Get returns the record with hash.
func (m *MemoryStore) Get(hash string) (models.TransferRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.records[key(hash)]
	if !ok {
		return models.TransferRecord{}, false
	}
	return *r, true
}

// List returns records newest first. A limit <= 0 returns everything.
func (m *MemoryStore) List(limit int) []models.TransferRecord {
	m.mu.RLock()
	out := make([]models.TransferRecord, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, *r)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Hash < out[j].Hash
		}
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Clear removes every record.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.records)
	m.records = make(map[string]*models.TransferRecord)
	log.Info().Int("removed", n).Msg("Transfer history cleared")
	return nil
}
