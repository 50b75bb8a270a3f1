// Package accounts provides the file-backed account record store. It is the
// default implementation of the record collaborator the supervisor mutates
// through its update contract; deployments with a real database supply their
// own implementation of the same interface.
package accounts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/DFN-master/izing-main/pkg/types"
)

// ErrNotFound signals a lookup for an account with no record.
var ErrNotFound = errors.New("account not found")

// Store keeps one JSON file per account under <basePath>/accounts.
type Store struct {
	basePath string
	mu       sync.Mutex
}

// New creates a store rooted at basePath.
func New(basePath string) *Store {
	return &Store{basePath: basePath}
}

func (s *Store) dir() string {
	return filepath.Join(s.basePath, "accounts")
}

func (s *Store) path(id int) string {
	return filepath.Join(s.dir(), fmt.Sprintf("%d.json", id))
}

// Get retrieves an account record by identifier.
func (s *Store) Get(ctx context.Context, id int) (*types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

func (s *Store) read(id int) (*types.Account, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read account %d: %w", id, err)
	}

	var acc types.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("unmarshal account %d: %w", id, err)
	}
	return &acc, nil
}

// Put persists an account record, creating or replacing it.
func (s *Store) Put(ctx context.Context, acc *types.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(acc)
}

func (s *Store) write(acc *types.Account) error {
	if err := os.MkdirAll(s.dir(), 0o755); err != nil {
		return fmt.Errorf("create accounts directory: %w", err)
	}

	data, err := json.MarshalIndent(acc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal account %d: %w", acc.ID, err)
	}

	// Write-then-rename so a crash never leaves a torn record.
	tmp := s.path(acc.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write account %d: %w", acc.ID, err)
	}
	if err := os.Rename(tmp, s.path(acc.ID)); err != nil {
		return fmt.Errorf("rename account %d: %w", acc.ID, err)
	}
	return nil
}

// Update applies a partial update to the record, persists it, and refreshes
// acc in place. The caller observes the persisted state once Update returns,
// which is what lets the supervisor publish events strictly after the record
// is durable.
func (s *Store) Update(ctx context.Context, acc *types.Account, fields types.AccountUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	fields.Apply(acc)
	return s.write(acc)
}

// Delete removes an account record. Deleting a missing record is a no-op.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	return nil
}

// List returns all account records ordered by identifier.
func (s *Store) List(ctx context.Context) ([]*types.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	var out []*types.Account
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSuffix(name, ".json"))
		if err != nil {
			continue
		}
		acc, err := s.read(id)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
