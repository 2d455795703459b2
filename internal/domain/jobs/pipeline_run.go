package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
	RunStatusSkipped   = "skipped"
)

// PipelineRun audits one invocation of a village pipeline.
type PipelineRun struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Pipeline    string         `gorm:"column:pipeline;not null;index" json:"pipeline"`
	TriggeredBy string         `gorm:"column:triggered_by;not null" json:"triggered_by"`
	Status      string         `gorm:"column:status;not null;index" json:"status"`
	Stage       string         `gorm:"column:stage;not null;default:''" json:"stage"`
	Error       string         `gorm:"column:error" json:"error,omitempty"`
	Result      datatypes.JSON `gorm:"column:result" json:"result,omitempty"`
	StartedAt   time.Time      `gorm:"column:started_at;not null;index" json:"started_at"`
	FinishedAt  *time.Time     `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (PipelineRun) TableName() string { return "pipeline_run" }

func (p *PipelineRun) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
