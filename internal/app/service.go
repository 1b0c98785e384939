// Package service runs team allocations for registered universities and
// exposes the operations behind the HTTP API and the scheduler.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/okian/teamalloc/internal/adapters/mq/queue"
	"github.com/okian/teamalloc/internal/adapters/mq/worker"
	"github.com/okian/teamalloc/internal/adapters/repository"
	"github.com/okian/teamalloc/internal/domain/allocator"
	"github.com/okian/teamalloc/internal/domain/dedupe"
	"github.com/okian/teamalloc/internal/domain/model"
	"github.com/okian/teamalloc/internal/domain/preference"
	"github.com/okian/teamalloc/internal/domain/scoring"
	"github.com/okian/teamalloc/pkg/logger"
	"github.com/okian/teamalloc/pkg/metrics"
)

const (
	defaultQueueSize      = 1024
	defaultDedupeSize     = 10000
	defaultRunConcurrency = 4
	defaultRunHistory     = 200
	tracerName            = "github.com/okian/teamalloc/internal/app"
)

// Publisher announces stored teams.
type Publisher interface {
	PublishTeams(ctx context.Context, teams []model.StoredTeam) error
}

// Notifier reports flagged teams to a human.
type Notifier interface {
	NotifyFlagged(ctx context.Context, uni model.University, teams []model.StoredTeam) error
}

// ContestReport describes what a contest-wide trigger or run did.
type ContestReport struct {
	ContestID  string             `json:"contest_id"`
	Stage      model.Stage        `json:"stage"`
	Enqueued   []string           `json:"enqueued,omitempty"`
	Duplicates []string           `json:"duplicates,omitempty"`
	Runs       []model.RunSummary `json:"runs,omitempty"`
}

// Service wires the allocation pipeline to storage, queueing and outbound
// adapters.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	scorer    scoring.Scorer
	allocator *allocator.Allocator
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool
	publisher Publisher
	notifier  Notifier

	workerCount    int
	queueSize      int
	dedupeSize     int
	dedupeWindow   time.Duration
	runConcurrency int
	runHistory     int

	// One allocation per university at a time.
	uniLocks sync.Map

	runsMu sync.Mutex
	runs   []model.RunSummary
	totals struct {
		runs, failed, teams, flagged, leftovers int
	}

	started bool
	cancel  context.CancelFunc

	logger logger.Logger
	tracer trace.Tracer
	now    func() time.Time
}

var _ worker.Runner = (*Service)(nil)

// New constructs a Service. Call Start to begin draining triggered jobs.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    runtime.NumCPU(),
		queueSize:      defaultQueueSize,
		dedupeSize:     defaultDedupeSize,
		runConcurrency: defaultRunConcurrency,
		runHistory:     defaultRunHistory,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	if s.scorer == nil {
		s.scorer = scoring.NewCalculator()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	s.allocator = allocator.New()
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithWindow(s.dedupeWindow),
		dedupe.WithClock(s.now),
	)
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s)
	return s
}

// Start launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	if s.queue.IsClosed() {
		return fmt.Errorf("start: %w", queue.ErrQueueClosed)
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.pool.Start(runCtx)
	s.started = true
	s.logger.Info(ctx, "allocation service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop drains queued jobs and stops the workers. A stopped service cannot
// be restarted.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	err := s.pool.Shutdown(ctx)
	s.cancel()
	s.started = false
	s.logger.Info(ctx, "allocation service stopped")
	return err
}

// ImportRoster registers universities and their students for a contest.
func (s *Service) ImportRoster(ctx context.Context, contestID string, unis []model.University, students []model.StudentRecord) error {
	for _, u := range unis {
		if err := s.store.UpsertUniversity(ctx, contestID, u); err != nil {
			return fmt.Errorf("import roster: %w", err)
		}
	}
	records := make([]model.StudentRecord, len(students))
	for i, st := range students {
		if st.ContestID == "" {
			st.ContestID = contestID
		}
		records[i] = st
	}
	if err := s.store.AddStudents(ctx, records); err != nil {
		return fmt.Errorf("import roster: %w", err)
	}
	s.logger.Info(ctx, "roster imported",
		logger.String("contest_id", contestID),
		logger.Int("universities", len(unis)),
		logger.Int("students", len(students)),
	)
	return nil
}

// TriggerContest enqueues one job per registered university. Early-bird and
// final triggers are deduplicated per university; manual triggers always
// enqueue. When the queue fills up the remaining universities are not
// enqueued, their keys are released and ErrBackpressure is returned with
// the partial report.
func (s *Service) TriggerContest(ctx context.Context, contestID string, stage model.Stage) (ContestReport, error) {
	rep := ContestReport{ContestID: contestID, Stage: stage}
	if !stage.Valid() {
		return rep, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return rep, ErrNotStarted
	}
	unis, err := s.store.Universities(ctx, contestID)
	if err != nil {
		return rep, fmt.Errorf("trigger %s: %w", contestID, err)
	}

	for _, u := range unis {
		key := dedupe.Key(contestID, string(stage), u.ID)
		if s.claim(ctx, stage, key) {
			rep.Duplicates = append(rep.Duplicates, u.ID)
			continue
		}
		job := model.AllocationJob{
			JobID:        uuid.NewString(),
			ContestID:    contestID,
			UniversityID: u.ID,
			Stage:        stage,
			EnqueuedAt:   s.now(),
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.release(ctx, stage, key)
			if errors.Is(err, queue.ErrQueueFull) {
				err = fmt.Errorf("%w: %v", ErrBackpressure, err)
			}
			s.logger.Warn(ctx, "allocation trigger refused",
				logger.String("contest_id", contestID),
				logger.String("university_id", u.ID),
				logger.Error(err),
			)
			return rep, err
		}
		rep.Enqueued = append(rep.Enqueued, u.ID)
	}

	s.logger.Info(ctx, "allocation triggered",
		logger.String("contest_id", contestID),
		logger.String("stage", string(stage)),
		logger.Int("enqueued", len(rep.Enqueued)),
		logger.Int("duplicates", len(rep.Duplicates)),
	)
	return rep, nil
}

// RunContest allocates every university of a contest synchronously, a
// bounded number at a time. A failing university does not stop the others;
// its summary carries the error and the joined failures are returned.
func (s *Service) RunContest(ctx context.Context, contestID string, stage model.Stage) (ContestReport, error) {
	rep := ContestReport{ContestID: contestID, Stage: stage}
	if !stage.Valid() {
		return rep, fmt.Errorf("%w: %q", ErrInvalidStage, stage)
	}
	unis, err := s.store.Universities(ctx, contestID)
	if err != nil {
		return rep, fmt.Errorf("run %s: %w", contestID, err)
	}

	var jobs []model.AllocationJob
	for _, u := range unis {
		if s.claim(ctx, stage, dedupe.Key(contestID, string(stage), u.ID)) {
			rep.Duplicates = append(rep.Duplicates, u.ID)
			continue
		}
		jobs = append(jobs, model.AllocationJob{
			JobID:        uuid.NewString(),
			ContestID:    contestID,
			UniversityID: u.ID,
			Stage:        stage,
			EnqueuedAt:   s.now(),
		})
	}

	summaries := make([]model.RunSummary, len(jobs))
	errs := make([]error, len(jobs))
	var g errgroup.Group
	g.SetLimit(s.runConcurrency)
	for i := range jobs {
		g.Go(func() error {
			summaries[i], errs[i] = s.RunJob(ctx, jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	rep.Runs = summaries
	return rep, errors.Join(errs...)
}

// claim records a trigger key and reports whether it was already taken.
func (s *Service) claim(ctx context.Context, stage model.Stage, key string) bool {
	if stage == model.StageManual {
		return false
	}
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordTriggerDuplicate()
		return true
	}
	return false
}

func (s *Service) release(ctx context.Context, stage model.Stage, key string) {
	if stage != model.StageManual {
		s.deduper.Unrecord(ctx, key)
	}
}

// RunJob performs one university allocation end to end. When it fails the
// trigger key is released so the stage can be triggered again.
func (s *Service) RunJob(ctx context.Context, job model.AllocationJob) (model.RunSummary, error) {
	start := s.now()
	ctx, span := s.tracer.Start(ctx, "allocation.run", trace.WithAttributes(
		attribute.String("contest_id", job.ContestID),
		attribute.String("university_id", job.UniversityID),
		attribute.String("stage", string(job.Stage)),
	))
	defer span.End()

	lock := s.universityLock(job.ContestID, job.UniversityID)
	lock.Lock()
	defer lock.Unlock()

	sum := model.RunSummary{
		JobID:        job.JobID,
		ContestID:    job.ContestID,
		UniversityID: job.UniversityID,
		Stage:        job.Stage,
	}
	err := s.allocate(ctx, job, &sum)
	sum.FinishedAt = s.now()
	sum.Duration = sum.FinishedAt.Sub(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		sum.Error = err.Error()
		// A failed run must not block the next trigger for the same stage.
		s.release(ctx, job.Stage, dedupe.Key(job.ContestID, string(job.Stage), job.UniversityID))
		span.RecordError(err)
		span.SetStatus(codes.Error, "allocation failed")
	} else {
		metrics.RecordTeams(sum.Teams, sum.Flagged, sum.Leftovers)
		span.SetAttributes(
			attribute.Int("teams", sum.Teams),
			attribute.Int("flagged", sum.Flagged),
			attribute.Int("leftovers", sum.Leftovers),
		)
	}
	metrics.RecordAllocationRun(string(job.Stage), outcome, sum.Duration)
	s.recordRun(sum)
	return sum, err
}

func (s *Service) allocate(ctx context.Context, job model.AllocationJob, sum *model.RunSummary) error {
	log := s.logger.With(
		logger.String("contest_id", job.ContestID),
		logger.String("university_id", job.UniversityID),
		logger.String("job_id", job.JobID),
	)

	uni, err := s.store.University(ctx, job.ContestID, job.UniversityID)
	if err != nil {
		return fmt.Errorf("load university: %w", err)
	}
	roster, err := s.store.Roster(ctx, job.ContestID, job.UniversityID)
	if err != nil {
		return fmt.Errorf("load roster: %w", err)
	}
	sum.Students = len(roster)

	resolver := preference.New(
		preference.WithScorer(s.scorer),
		preference.WithObserver(func(d preference.Degradation) {
			metrics.RecordDegradation(string(d.Reason))
			log.Debug(ctx, "teammate request dropped",
				logger.String("student_id", d.StudentID),
				logger.String("reference", d.Reference),
				logger.String("reason", string(d.Reason)),
			)
		}),
	)
	units := resolver.Resolve(roster)

	res, err := s.allocator.Allocate(units)
	if err != nil {
		return fmt.Errorf("allocate: %w", err)
	}
	sum.Leftovers = res.LeftoverStudents()
	if len(res.Teams) == 0 {
		log.Info(ctx, "no teams formed", logger.Int("students", sum.Students))
		return nil
	}

	existing, err := s.store.CountTeams(ctx, job.ContestID, job.UniversityID)
	if err != nil {
		return fmt.Errorf("count teams: %w", err)
	}
	stored, err := s.store.SaveTeams(ctx, job.ContestID, job.UniversityID, Label(uni, existing, res.Teams))
	if err != nil {
		return fmt.Errorf("save teams: %w", err)
	}
	sum.Teams = len(stored)
	sum.Flagged = res.FlaggedTeams()

	// Teams are stored; outbound failures are reported but do not fail the run.
	if s.publisher != nil {
		if err := s.publisher.PublishTeams(ctx, stored); err != nil {
			log.Error(ctx, "publishing teams failed", logger.Error(err))
		}
	}
	if s.notifier != nil && sum.Flagged > 0 {
		if err := s.notifier.NotifyFlagged(ctx, uni, stored); err != nil {
			log.Error(ctx, "flagged team report failed", logger.Error(err))
		}
	}

	log.Info(ctx, "teams formed",
		logger.Int("students", sum.Students),
		logger.Int("teams", sum.Teams),
		logger.Int("flagged", sum.Flagged),
		logger.Int("leftovers", sum.Leftovers),
	)
	return nil
}

func (s *Service) universityLock(contestID, universityID string) *sync.Mutex {
	l, _ := s.uniLocks.LoadOrStore(contestID+"/"+universityID, &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Label names teams "<University> Team <n>", numbering after the
// university's existing teams.
func Label(uni model.University, existing int, teams []model.Team) []model.NamedTeam {
	name := uni.Name
	if name == "" {
		name = uni.ID
	}
	out := make([]model.NamedTeam, len(teams))
	for i := range teams {
		out[i] = model.NamedTeam{
			Team: teams[i],
			Name: fmt.Sprintf("%s Team %d", name, existing+i+1),
		}
	}
	return out
}

func (s *Service) recordRun(sum model.RunSummary) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	s.runs = append(s.runs, sum)
	if over := len(s.runs) - s.runHistory; over > 0 {
		s.runs = append(s.runs[:0], s.runs[over:]...)
	}
	s.totals.runs++
	if sum.Error != "" {
		s.totals.failed++
		return
	}
	s.totals.teams += sum.Teams
	s.totals.flagged += sum.Flagged
	s.totals.leftovers += sum.Leftovers
}

// Runs returns up to limit recent run summaries, newest first. A
// non-positive limit returns all retained summaries.
func (s *Service) Runs(limit int) []model.RunSummary {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	n := len(s.runs)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]model.RunSummary, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.runs[i])
	}
	return out
}

// Teams lists stored teams of a contest, optionally for one university.
func (s *Service) Teams(ctx context.Context, contestID, universityID string) ([]model.StoredTeam, error) {
	teams, err := s.store.Teams(ctx, contestID, universityID)
	if err != nil {
		return nil, fmt.Errorf("teams %s: %w", contestID, err)
	}
	return teams, nil
}

// Universities lists a contest's registered universities.
func (s *Service) Universities(ctx context.Context, contestID string) ([]model.University, error) {
	unis, err := s.store.Universities(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("universities %s: %w", contestID, err)
	}
	return unis, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	s.runsMu.Lock()
	totals := s.totals
	s.runsMu.Unlock()

	return map[string]any{
		"started":           started,
		"workers":           s.pool.Size(),
		"queue_capacity":    s.queue.Capacity(),
		"queue_length":      s.queue.Len(context.Background()),
		"dedupe_keys":       s.deduper.Size(),
		"runs":              totals.runs,
		"runs_failed":       totals.failed,
		"teams_formed":      totals.teams,
		"teams_flagged":     totals.flagged,
		"students_unplaced": totals.leftovers,
	}
}
