// Package store provides persistence for pipeline runs and load receipts.
package store

import (
	"context"

	"github.com/google/wire"
	"gorm.io/gorm"

	"github.com/avolkhov/meteoflow/internal/meteoflow/model"
)

// ErrRecordNotFound is returned by Get operations on a miss, regardless of
// the backing implementation.
var ErrRecordNotFound = gorm.ErrRecordNotFound

// ErrDuplicateKey is returned when a Create collides with an existing key.
var ErrDuplicateKey = gorm.ErrDuplicatedKey

// ProviderSet declares the wire providers for the store layer.
var ProviderSet = wire.NewSet(NewStore, wire.Bind(new(IStore), new(*datastore)))

// RunStore manages pipeline run records.
type RunStore interface {
	Create(ctx context.Context, run *model.PipelineRunM) error
	Update(ctx context.Context, run *model.PipelineRunM) error
	Get(ctx context.Context, runID string) (*model.PipelineRunM, error)
	List(ctx context.Context, limit int) ([]*model.PipelineRunM, error)
}

// ReceiptStore manages load receipts.
type ReceiptStore interface {
	Create(ctx context.Context, receipt *model.LoadReceiptM) error
	Get(ctx context.Context, artifactKey string) (*model.LoadReceiptM, error)
	List(ctx context.Context, runID string) ([]*model.LoadReceiptM, error)
}

// IStore is the aggregated persistence interface.
type IStore interface {
	Run() RunStore
	Receipt() ReceiptStore
}

type datastore struct {
	db *gorm.DB
}

var _ IStore = (*datastore)(nil)

// NewStore creates an IStore backed by the given gorm database.
func NewStore(db *gorm.DB) *datastore {
	return &datastore{db: db}
}

func (ds *datastore) Run() RunStore {
	return &runStore{db: ds.db}
}

func (ds *datastore) Receipt() ReceiptStore {
	return &receiptStore{db: ds.db}
}

type runStore struct {
	db *gorm.DB
}

func (s *runStore) Create(ctx context.Context, run *model.PipelineRunM) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *runStore) Update(ctx context.Context, run *model.PipelineRunM) error {
	return s.db.WithContext(ctx).Save(run).Error
}

func (s *runStore) Get(ctx context.Context, runID string) (*model.PipelineRunM, error) {
	var run model.PipelineRunM
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (s *runStore) List(ctx context.Context, limit int) ([]*model.PipelineRunM, error) {
	var runs []*model.PipelineRunM
	tx := s.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}
	if err := tx.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

type receiptStore struct {
	db *gorm.DB
}

func (s *receiptStore) Create(ctx context.Context, receipt *model.LoadReceiptM) error {
	return s.db.WithContext(ctx).Create(receipt).Error
}

func (s *receiptStore) Get(ctx context.Context, artifactKey string) (*model.LoadReceiptM, error) {
	var receipt model.LoadReceiptM
	if err := s.db.WithContext(ctx).Where("artifact_key = ?", artifactKey).First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (s *receiptStore) List(ctx context.Context, runID string) ([]*model.LoadReceiptM, error) {
	var receipts []*model.LoadReceiptM
	tx := s.db.WithContext(ctx)
	if runID != "" {
		tx = tx.Where("run_id = ?", runID)
	}
	if err := tx.Order("committed_at").Find(&receipts).Error; err != nil {
		return nil, err
	}
	return receipts, nil
}
