package usecase

import (
	"context"
	"fmt"
	"time"

	"linkbio-billing/internal/domain/model"
	"linkbio-billing/internal/domain/ports/adapter"
	"linkbio-billing/internal/domain/ports/repository"
	"linkbio-billing/internal/infra/metrics"
	"linkbio-billing/internal/infra/worker"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ BroadcastUseCase = (*broadcastUC)(nil)

type BroadcastInput struct {
	Subject   string
	HTML      string
	Audience  model.Audience
	CreatedBy string
}

type BroadcastUseCase interface {
	// Start persists a queued job and hands it to the worker pool.
	Start(ctx context.Context, in BroadcastInput) (*model.BroadcastJob, error)
	Get(ctx context.Context, id string) (*model.BroadcastJob, error)
}

// Submitter queues background work; *worker.Pool satisfies it.
type Submitter interface {
	SubmitJob(job worker.Job) error
}

const finishTimeout = 10 * time.Second

type BroadcastOptions struct {
	BatchSize  int
	BatchPause time.Duration
}

type broadcastUC struct {
	users  repository.UserRepository
	jobs   repository.BroadcastRepository
	mailer adapter.Mailer
	pool   Submitter
	opts   BroadcastOptions
	log    *zerolog.Logger
}

func NewBroadcastUseCase(
	users repository.UserRepository,
	jobs repository.BroadcastRepository,
	mailer adapter.Mailer,
	pool Submitter,
	opts BroadcastOptions,
	logger *zerolog.Logger,
) *broadcastUC {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	l := logger.With().Str("component", "BroadcastUC").Logger()
	return &broadcastUC{users: users, jobs: jobs, mailer: mailer, pool: pool, opts: opts, log: &l}
}

func (uc *broadcastUC) Start(ctx context.Context, in BroadcastInput) (*model.BroadcastJob, error) {
	job, err := model.NewBroadcastJob(in.Subject, in.HTML, in.Audience, in.CreatedBy)
	if err != nil {
		return nil, err
	}
	if err := uc.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	if err := uc.pool.SubmitJob(&broadcastRun{uc: uc, job: *job}); err != nil {
		uc.finish(ctx, job, fmt.Errorf("queue broadcast: %w", err))
		return job, fmt.Errorf("queue broadcast: %w", err)
	}
	uc.log.Info().Str("job_id", job.ID).Str("audience", string(job.Audience)).Msg("broadcast queued")
	return job, nil
}

func (uc *broadcastUC) Get(ctx context.Context, id string) (*model.BroadcastJob, error) {
	return uc.jobs.FindByID(ctx, id)
}

// broadcastRun is the pool job for one broadcast.
type broadcastRun struct {
	uc  *broadcastUC
	job model.BroadcastJob
}

func (r *broadcastRun) Run(ctx context.Context) error { return r.uc.run(ctx, &r.job) }

// Discard fails a job the pool dropped before it started.
func (r *broadcastRun) Discard(err error) {
	r.uc.log.Warn().Err(err).Str("job_id", r.job.ID).Msg("broadcast dropped before it started")
	r.uc.finish(context.Background(), &r.job, fmt.Errorf("not started: %w", err))
}

// run sends the job in batches, persisting progress after each batch.
func (uc *broadcastUC) run(ctx context.Context, job *model.BroadcastJob) error {
	log := uc.log.With().Str("job_id", job.ID).Logger()

	total, err := uc.users.CountByAudience(ctx, job.Audience)
	if err != nil {
		uc.finish(ctx, job, err)
		return err
	}
	now := time.Now().UTC()
	job.Status, job.Total, job.StartedAt = model.BroadcastRunning, int(total), &now
	if err := uc.jobs.Update(ctx, job); err != nil {
		log.Warn().Err(err).Msg("broadcast progress not saved")
	}

	afterID := ""
	for {
		batch, err := uc.users.ListByAudience(ctx, job.Audience, afterID, uc.opts.BatchSize)
		if err != nil {
			uc.finish(ctx, job, err)
			return err
		}
		if len(batch) == 0 {
			break
		}
		for _, u := range batch {
			err := uc.mailer.Send(ctx, adapter.Email{To: u.Email, ToName: u.Username, Subject: job.Subject, HTML: job.HTML})
			metrics.IncEmail("broadcast", err)
			if err != nil {
				job.Failed++
				job.LastError = err.Error()
				log.Warn().Err(err).Str("user_id", u.ID).Msg("broadcast email failed")
				continue
			}
			job.Sent++
		}
		afterID = batch[len(batch)-1].ID
		if err := uc.jobs.Update(ctx, job); err != nil {
			log.Warn().Err(err).Msg("broadcast progress not saved")
		}
		if len(batch) < uc.opts.BatchSize {
			break
		}
		if uc.opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				uc.finish(ctx, job, ctx.Err())
				return ctx.Err()
			case <-time.After(uc.opts.BatchPause):
			}
		}
	}

	uc.finish(ctx, job, nil)
	log.Info().Int("sent", job.Sent).Int("failed", job.Failed).Msg("broadcast finished")
	return nil
}

// finish records the final state even when ctx is already cancelled.
func (uc *broadcastUC) finish(ctx context.Context, job *model.BroadcastJob, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finishTimeout)
	defer cancel()
	now := time.Now().UTC()
	job.FinishedAt = &now
	job.Status = model.BroadcastCompleted
	if cause != nil {
		job.Status = model.BroadcastFailed
		job.LastError = cause.Error()
	}
	metrics.IncBroadcastJob(string(job.Status))
	if err := uc.jobs.Update(ctx, job); err != nil {
		uc.log.Error().Err(err).Str("job_id", job.ID).Msg("broadcast final state not saved")
	}
}
