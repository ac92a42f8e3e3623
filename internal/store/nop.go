package store

import (
	"time"

	"github.com/amishk599/leadmail/internal/model"
)

// NopStore is a no-op store used in dry-run mode. It never remembers results,
// so every lead is classified on each run.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) GetResult(key string) (*model.LeadResult, error)         { return nil, nil }
func (s *NopStore) SaveResult(key string, r model.LeadResult) error         { return nil }
func (s *NopStore) AddRunLead(runID string, position int, key string) error { return nil }
func (s *NopStore) ListResults(runID string) ([]model.LeadResult, error)    { return nil, nil }
func (s *NopStore) Cleanup(olderThan time.Duration) error                   { return nil }
func (s *NopStore) IsEmpty() (bool, error)                                  { return true, nil }
