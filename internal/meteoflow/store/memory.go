package store

import (
	"context"
	"sync"
	"time"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
)

// memoryStore is an in-memory IStore for tests and EnableMemoryStore runs.
type memoryStore struct {
	mu       sync.RWMutex
	runs     map[string]*model.PipelineRunM
	receipts map[string]*model.LoadReceiptM
	nextID   int64
}

var _ IStore = (*memoryStore)(nil)

// NewMemory creates an empty in-memory store.
func NewMemory() IStore {
	return &memoryStore{
		runs:     make(map[string]*model.PipelineRunM),
		receipts: make(map[string]*model.LoadReceiptM),
	}
}

func (m *memoryStore) Run() RunStore         { return &memoryRunStore{m: m} }
func (m *memoryStore) Receipt() ReceiptStore { return &memoryReceiptStore{m: m} }

type memoryRunStore struct {
	m *memoryStore
}

func (s *memoryRunStore) Create(ctx context.Context, run *model.PipelineRunM) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.runs[run.RunID]; ok {
		return ErrDuplicateKey
	}
	s.m.nextID++
	run.ID = s.m.nextID
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	cp := *run
	s.m.runs[run.RunID] = &cp
	return nil
}

func (s *memoryRunStore) Update(ctx context.Context, run *model.PipelineRunM) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	run.UpdatedAt = time.Now()
	cp := *run
	s.m.runs[run.RunID] = &cp
	return nil
}

func (s *memoryRunStore) Get(ctx context.Context, runID string) (*model.PipelineRunM, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	run, ok := s.m.runs[runID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *memoryRunStore) List(ctx context.Context, limit int) ([]*model.PipelineRunM, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	runs := make([]*model.PipelineRunM, 0, len(s.m.runs))
	for _, run := range s.m.runs {
		cp := *run
		runs = append(runs, &cp)
	}
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

type memoryReceiptStore struct {
	m *memoryStore
}

func (s *memoryReceiptStore) Create(ctx context.Context, receipt *model.LoadReceiptM) error {
	s.m.mu.Lock()
	defer s.m.mu.Unlock()
	if _, ok := s.m.receipts[receipt.ArtifactKey]; ok {
		return ErrDuplicateKey
	}
	s.m.nextID++
	receipt.ID = s.m.nextID
	cp := *receipt
	s.m.receipts[receipt.ArtifactKey] = &cp
	return nil
}

func (s *memoryReceiptStore) Get(ctx context.Context, artifactKey string) (*model.LoadReceiptM, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	receipt, ok := s.m.receipts[artifactKey]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *receipt
	return &cp, nil
}

func (s *memoryReceiptStore) List(ctx context.Context, runID string) ([]*model.LoadReceiptM, error) {
	s.m.mu.RLock()
	defer s.m.mu.RUnlock()
	receipts := make([]*model.LoadReceiptM, 0, len(s.m.receipts))
	for _, receipt := range s.m.receipts {
		if runID != "" && receipt.RunID != runID {
			continue
		}
		cp := *receipt
		receipts = append(receipts, &cp)
	}
	return receipts, nil
}
