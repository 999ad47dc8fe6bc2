package contracts

import (
	"context"
	"time"
)

// BuildMode selects which dates a signal builder processes
type BuildMode string

const (
	ModeIncremental BuildMode = "incremental"
	ModeBackfill    BuildMode = "backfill"
)

// BuildRequest parameterizes one builder run
type BuildRequest struct {
	Mode         BuildMode
	BackfillDays int       // calendar days, backfill mode only
	AsOf         time.Time // zero = latest trading date in the store
}

// BuildReport summarizes one builder run
type BuildReport struct {
	Builder   string        `json:"builder"`
	Dates     []time.Time   `json:"dates"`
	Processed int           `json:"processed"`
	Written   int           `json:"written"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Warnings  int           `json:"warnings"`
	Duration  time.Duration `json:"duration"`
}

// Merge folds another report into r
func (r *BuildReport) Merge(o *BuildReport) {
	r.Dates = append(r.Dates, o.Dates...)
	r.Processed += o.Processed
	r.Written += o.Written
	r.Skipped += o.Skipped
	r.Failed += o.Failed
	r.Warnings += o.Warnings
}

// SignalBuilder computes one derived signal table (S2)
// ⭐ SSOT: S2 시그널 생성 인터페이스
type SignalBuilder interface {
	Name() string
	Build(ctx context.Context, req BuildRequest) (*BuildReport, error)
}

// UniverseBuilder refreshes the symbol universe (S1)
// ⭐ SSOT: S1 유니버스 생성 인터페이스
type UniverseBuilder interface {
	Refresh(ctx context.Context) (*Universe, error)
}
