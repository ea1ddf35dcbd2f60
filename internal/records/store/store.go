// Package store persists the expenditure ledger. The ledger is written and
// read as one whole CSV object at a named location; backends differ only in
// where that object lives (memory, filesystem, Redis, S3) or, for Postgres,
// in keeping rows in a table instead of an object.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"pacwatch/internal/records"
)

// ErrNotExist is returned by Load when no ledger has ever been written at
// the configured location. Callers treat it as an empty initial ledger;
// every other load error is a real failure.
var ErrNotExist = errors.New("ledger does not exist")

// Store loads and saves the expenditure ledger.
type Store interface {
	Load(ctx context.Context) ([]records.Expenditure, error)
	Save(ctx context.Context, ledger []records.Expenditure) error
}

// ObjectStore reads and writes one whole object at a fixed location.
// Get returns ErrNotExist when the object is absent. Put replaces the
// object atomically; readers never observe a partial write.
type ObjectStore interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, body []byte) error
}

// CSVStore keeps the ledger as a single CSV object.
type CSVStore struct {
	objects ObjectStore
}

var _ Store = (*CSVStore)(nil)

// NewCSVStore wraps an object backend with the ledger CSV codec.
func NewCSVStore(objects ObjectStore) *CSVStore {
	return &CSVStore{objects: objects}
}

// Load fetches and decodes the ledger object. ErrNotExist passes through
// untouched so callers can tell a missing ledger from a broken one.
func (s *CSVStore) Load(ctx context.Context) ([]records.Expenditure, error) {
	body, err := s.objects.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	ledger, err := records.ReadCSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode ledger: %w", err)
	}
	return ledger, nil
}

// Save encodes the ledger and replaces the object.
func (s *CSVStore) Save(ctx context.Context, ledger []records.Expenditure) error {
	var buf bytes.Buffer
	if err := records.WriteCSV(&buf, ledger); err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}
	if err := s.objects.Put(ctx, buf.Bytes()); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}
