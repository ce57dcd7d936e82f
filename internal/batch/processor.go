package batch

import (
	"context"
	"io"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/retenio/churnguard-go/internal/config"
	"github.com/retenio/churnguard-go/internal/explain"
	"github.com/retenio/churnguard-go/internal/features"
	"github.com/retenio/churnguard-go/internal/ml"
	"github.com/retenio/churnguard-go/internal/models"
	"github.com/retenio/churnguard-go/internal/monitor"
	"github.com/retenio/churnguard-go/internal/utils"
)

// JobStatus is the lifecycle state of an asynchronous batch job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobCanceled  JobStatus = "canceled"
)

// BatchResult is the outcome of scoring one batch: per-record outcomes in row
// order plus per-segment aggregates. One bad row never aborts the batch.
type BatchResult struct {
	JobID      string                `json:"job_id"`
	Total      int                   `json:"total"`
	Succeeded  int                   `json:"succeeded"`
	Failed     int                   `json:"failed"`
	Canceled   bool                  `json:"canceled"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Outcomes   []models.BatchOutcome `json:"outcomes"`
	Segments   []SegmentSummary      `json:"segments"`
}

// Job is the observable handle for an in-flight batch. Progress counters are
// atomic so polling never contends with the workers.
type Job struct {
	ID        string
	StartedAt time.Time

	total     int64
	processed atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64

	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.RWMutex
	result *BatchResult
}

// Progress reports how many rows have been processed and the completion
// percentage.
func (j *Job) Progress() (processed, total int64, percent float64) {
	processed = j.processed.Load()
	total = j.total
	if total > 0 {
		percent = float64(processed) / float64(total) * 100
	}
	return processed, total, percent
}

// Status reports the job's lifecycle state.
func (j *Job) Status() JobStatus {
	select {
	case <-j.done:
	default:
		return JobRunning
	}
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.result != nil && j.result.Canceled {
		return JobCanceled
	}
	return JobCompleted
}

// Result returns the finished batch result, or nil while the job is running.
func (j *Job) Result() *BatchResult {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.result
}

// Cancel stops the job from launching new rows; in-flight rows complete and
// the partial result becomes available.
func (j *Job) Cancel() {
	j.cancel()
}

// Done exposes completion for callers that want to wait.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Processor scores batches of customer records through the full pipeline
// (validate, encode, predict, explain) on a bounded worker pool.
type Processor struct {
	cfg       config.BatchConfig
	validator interface {
		Validate(models.CustomerRecord) models.ValidationResult
	}
	encoder   *features.Encoder
	predictor *ml.Predictor
	explainer *explain.Explainer
	monitor   *monitor.Monitor
	logger    *logrus.Logger
	workers   int

	mu   sync.RWMutex
	jobs map[string]*Job
}

// NewProcessor wires the batch pipeline. The explainer and monitor are
// optional: a nil explainer yields prediction-only outcomes, a nil monitor
// skips activity recording.
func NewProcessor(
	cfg config.BatchConfig,
	validator interface {
		Validate(models.CustomerRecord) models.ValidationResult
	},
	encoder *features.Encoder,
	predictor *ml.Predictor,
	explainer *explain.Explainer,
	mon *monitor.Monitor,
	logger *logrus.Logger,
) *Processor {
	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return &Processor{
		cfg:       cfg,
		validator: validator,
		encoder:   encoder,
		predictor: predictor,
		explainer: explainer,
		monitor:   mon,
		logger:    logger,
		workers:   workers,
		jobs:      make(map[string]*Job),
	}
}

// Submit starts an asynchronous batch job and returns its handle immediately.
// The job outlives the submitting request: only its own Cancel stops it.
func (p *Processor) Submit(ctx context.Context, rows []Row) *Job {
	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &Job{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		total:     int64(len(rows)),
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	p.mu.Lock()
	p.jobs[job.ID] = job
	p.mu.Unlock()

	go func() {
		defer cancel()
		result := p.run(jobCtx, job, rows)

		job.mu.Lock()
		job.result = result
		job.mu.Unlock()
		close(job.done)

		p.logger.WithFields(logrus.Fields{
			"job_id":    result.JobID,
			"total":     result.Total,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
			"canceled":  result.Canceled,
		}).Info("Batch job finished")
	}()
	return job
}

// Job looks up a submitted job by ID.
func (p *Processor) Job(id string) (*Job, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	job, ok := p.jobs[id]
	return job, ok
}

// Process scores a batch synchronously.
func (p *Processor) Process(ctx context.Context, rows []Row) *BatchResult {
	job := &Job{
		ID:        uuid.New().String(),
		StartedAt: time.Now().UTC(),
		total:     int64(len(rows)),
		cancel:    func() {},
		done:      make(chan struct{}),
	}
	result := p.run(ctx, job, rows)
	job.mu.Lock()
	job.result = result
	job.mu.Unlock()
	close(job.done)
	return result
}

// ProcessCSV parses a semicolon-separated upload and scores it synchronously.
func (p *Processor) ProcessCSV(ctx context.Context, r io.Reader) (*BatchResult, error) {
	rows, err := ParseCSV(r, p.cfg.MaxRows)
	if err != nil {
		return nil, err
	}
	return p.Process(ctx, rows), nil
}

func (p *Processor) run(ctx context.Context, job *Job, rows []Row) *BatchResult {
	work := make(chan Row)
	outcomes := make(chan models.BatchOutcome, p.workers)
	segments := make(map[string]segmentPartial)
	var segmentMu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make(map[string]segmentPartial)
			for item := range work {
				var outcome models.BatchOutcome
				if item.Err != nil {
					outcome = models.BatchOutcome{Row: item.Number, Error: item.Err.Error()}
				} else {
					outcome = p.processRow(item.Number, item.Record, local)
				}
				job.processed.Add(1)
				if outcome.Failed() {
					job.failed.Add(1)
				} else {
					job.succeeded.Add(1)
				}
				outcomes <- outcome
			}
			segmentMu.Lock()
			mergeSegments(segments, local)
			segmentMu.Unlock()
		}()
	}
	go func() {
		wg.Wait()
		close(outcomes)
	}()

	canceled := false
	go func() {
		defer close(work)
		for _, item := range rows {
			select {
			case <-ctx.Done():
				canceled = true
				return
			case work <- item:
			}
		}
	}()

	collected := make([]models.BatchOutcome, 0, len(rows))
	for outcome := range outcomes {
		collected = append(collected, outcome)
	}
	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Row < collected[j].Row
	})

	result := &BatchResult{
		JobID:      job.ID,
		Total:      len(rows),
		Succeeded:  int(job.succeeded.Load()),
		Failed:     int(job.failed.Load()),
		Canceled:   canceled,
		StartedAt:  job.StartedAt,
		FinishedAt: time.Now().UTC(),
		Outcomes:   collected,
		Segments:   finalizeSegments(segments),
	}
	return result
}

// processRow runs one record through the pipeline. Failures become data in
// the outcome rather than aborting the batch.
func (p *Processor) processRow(number int, record models.CustomerRecord, segments map[string]segmentPartial) models.BatchOutcome {
	outcome := models.BatchOutcome{Row: number}

	validated := p.validator.Validate(record)
	if !validated.Valid {
		messages := make([]string, 0, len(validated.Errors))
		for _, issue := range validated.Errors {
			messages = append(messages, issue.Field+": "+issue.Message)
		}
		outcome.Error = utils.NewBatchRowError(number, &utils.ValidationError{
			Field:   strings.Join(validated.ErrorFields(), ","),
			Message: strings.Join(messages, "; "),
		}).Error()
		return outcome
	}

	stamped := models.NewCustomerRecord(record)
	outcome.Record = &stamped

	vector, err := p.encoder.Encode(stamped)
	if err != nil {
		outcome.Error = utils.NewBatchRowError(number, err).Error()
		return outcome
	}

	prediction, err := p.predictor.Predict(stamped.ID, vector)
	if err != nil {
		outcome.Error = utils.NewBatchRowError(number, err).Error()
		return outcome
	}
	outcome.Prediction = prediction

	if p.explainer != nil {
		explanation, err := p.explainer.Explain(stamped.ID, vector)
		if err != nil {
			p.logger.WithError(err).WithField("record_id", stamped.ID).
				Warn("Explanation failed, returning prediction only")
		} else {
			outcome.Explanation = explanation
		}
	}
	if p.monitor != nil {
		p.monitor.Record(prediction)
	}

	key := segmentKey(&stamped, p.cfg.SegmentKeys)
	partial := segments[key]
	partial.count++
	if prediction.WillChurn {
		partial.churnCount++
	}
	partial.probabilitySum += prediction.Probability
	partial.balanceSum = partial.balanceSum.Add(stamped.Balance)
	segments[key] = partial

	return outcome
}
