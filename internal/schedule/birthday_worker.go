package schedule

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/clubpulse/backend/internal/loyalty"
)

type BirthdaySweepArgs struct {
	// AsOf defaults to the time the job runs. Settable for backfills.
	AsOf time.Time `json:"as_of,omitzero"`
}

func (BirthdaySweepArgs) Kind() string { return "birthday_sweep" }

// Sweeper is the slice of the loyalty engine the worker needs.
type Sweeper interface {
	RunBirthdaySweep(ctx context.Context, asOf time.Time) (*loyalty.SweepResult, error)
}

type BirthdaySweepWorker struct {
	river.WorkerDefaults[BirthdaySweepArgs]
	sweeper Sweeper
	log     *slog.Logger
}

func NewBirthdaySweepWorker(sweeper Sweeper, log *slog.Logger) *BirthdaySweepWorker {
	if log == nil {
		log = slog.Default()
	}
	return &BirthdaySweepWorker{sweeper: sweeper, log: log}
}

func (w *BirthdaySweepWorker) Work(ctx context.Context, job *river.Job[BirthdaySweepArgs]) error {
	asOf := job.Args.AsOf
	if asOf.IsZero() {
		asOf = time.Now()
	}
	res, err := w.sweeper.RunBirthdaySweep(ctx, asOf)
	if err != nil {
		return err
	}
	// Per-member failures are isolated inside the sweep; log them without
	// failing the job, or every retry would re-process the whole batch.
	for _, f := range res.Failed {
		w.log.Error("birthday award failed", "member_id", f.MemberID, "error", f.Err)
	}
	w.log.Info("birthday sweep finished",
		"as_of", asOf.Format("2006-01-02"),
		"processed", res.Processed,
		"awarded", len(res.Awarded),
		"already_rewarded", len(res.AlreadyRewarded),
		"failed", len(res.Failed))
	return nil
}

// BirthdaySweepPeriodicJob schedules the sweep once a day. The HTTP endpoint
// stays available for an external scheduler or manual backfills.
func BirthdaySweepPeriodicJob() *river.PeriodicJob {
	return river.NewPeriodicJob(
		river.PeriodicInterval(24*time.Hour),
		func() (river.JobArgs, *river.InsertOpts) {
			return BirthdaySweepArgs{}, nil
		},
		&river.PeriodicJobOpts{RunOnStart: true},
	)
}
