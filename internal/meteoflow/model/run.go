package model

import (
	"time"
)

// PipelineRunM is the persisted pipeline run: one row per execution, mutated
// as stages complete and closed with a terminal status.
type PipelineRunM struct {
	ID        int64     `gorm:"primaryKey;column:id" json:"id"`
	RunID     string    `gorm:"column:run_id;uniqueIndex;size:64" json:"run_id"`
	Pipeline  string    `gorm:"column:pipeline;size:64;index" json:"pipeline"`
	Status    string    `gorm:"column:status;size:32" json:"status"`
	Message   string    `gorm:"column:message;size:1024" json:"message,omitempty"`
	StartedAt time.Time `gorm:"column:started_at" json:"started_at"`
	EndedAt   time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`

	ValidRecords     int64 `gorm:"column:valid_records" json:"valid_records"`
	RejectedRecords  int64 `gorm:"column:rejected_records" json:"rejected_records"`
	CommittedBatches int64 `gorm:"column:committed_batches" json:"committed_batches"`
	FailedBatches    int64 `gorm:"column:failed_batches" json:"failed_batches"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName maps PipelineRunM to the mf_pipeline_run table.
func (PipelineRunM) TableName() string {
	return "mf_pipeline_run"
}

// LoadReceiptM records that an artifact key has been committed into the
// analytical store. The unique index on artifact_key backs the at-most-one
// successful commit invariant.
type LoadReceiptM struct {
	ID          int64     `gorm:"primaryKey;column:id" json:"id"`
	ArtifactKey string    `gorm:"column:artifact_key;uniqueIndex;size:256" json:"artifact_key"`
	RunID       string    `gorm:"column:run_id;size:64;index" json:"run_id"`
	Pipeline    string    `gorm:"column:pipeline;size:64" json:"pipeline"`
	Kind        string    `gorm:"column:kind;size:16" json:"kind"`
	BatchIndex  int       `gorm:"column:batch_index" json:"batch_index"`
	RecordCount int64     `gorm:"column:record_count" json:"record_count"`
	CommittedAt time.Time `gorm:"column:committed_at" json:"committed_at"`
}

// TableName maps LoadReceiptM to the mf_load_receipt table.
func (LoadReceiptM) TableName() string {
	return "mf_load_receipt"
}
