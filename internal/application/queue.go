package application

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/craftfolio/mailroom/internal/domain/entity"
)

// JobQueue holds pending and processing email jobs in memory. Enqueue is
// the only mutation callers outside the dispatcher may perform; all status
// transitions go through Update so the single-writer discipline is kept
// behind one mutex.
//
// Every enqueue is mirrored to a Redis list as a write-ahead copy for
// crash recovery. The write is best-effort and replay on startup is not
// implemented here; see DESIGN.md.
type JobQueue struct {
	mu   sync.Mutex
	jobs []*entity.EmailJob
	byID map[string]*entity.EmailJob

	rdb    *redis.Client
	walKey string
	logger *logrus.Logger
}

func NewJobQueue(rdb *redis.Client, walKey string, logger *logrus.Logger) *JobQueue {
	return &JobQueue{
		byID:   make(map[string]*entity.EmailJob),
		rdb:    rdb,
		walKey: walKey,
		logger: logger,
	}
}

// Enqueue appends the job and mirrors it to the WAL. Callers hand over
// ownership; the job must not be mutated after this call.
func (q *JobQueue) Enqueue(ctx context.Context, job *entity.EmailJob) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.byID[job.ID] = job
	q.mu.Unlock()

	q.persistCopy(ctx, job)
}

func (q *JobQueue) persistCopy(ctx context.Context, job *entity.EmailJob) {
	if q.rdb == nil || q.walKey == "" {
		return
	}
	b, err := json.Marshal(job)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := q.rdb.LPush(ctx, q.walKey, b).Err(); err != nil && q.logger != nil {
		q.logger.WithError(err).WithField("job_id", job.ID).Warn("queue WAL write failed")
	}
}

// Due returns copies of all pending jobs whose schedule has arrived,
// sorted by priority so urgent mail is not starved behind a marketing
// backlog. Copies keep readers off the shared pointers.
func (q *JobQueue) Due(now time.Time) []entity.EmailJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]entity.EmailJob, 0, len(q.jobs))
	for _, j := range q.jobs {
		if j.Due(now) {
			out = append(out, *j)
		}
	}
	sort.SliceStable(out, func(i, k int) bool {
		return out[i].Priority.Rank() > out[k].Priority.Rank()
	})
	return out
}

// Get returns a copy of the job, if it is still in the live queue.
func (q *JobQueue) Get(id string) (entity.EmailJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.byID[id]
	if !ok {
		return entity.EmailJob{}, false
	}
	return *j, true
}

// Update applies fn to the job under the queue lock and reports whether
// the job was found.
func (q *JobQueue) Update(id string, fn func(*entity.EmailJob)) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	j, ok := q.byID[id]
	if !ok {
		return false
	}
	fn(j)
	return true
}

// Compact drops terminal jobs from the live structure and returns how many
// were removed. Their durable records live in the delivery log.
func (q *JobQueue) Compact() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.jobs[:0]
	removed := 0
	for _, j := range q.jobs {
		if j.Terminal() {
			delete(q.byID, j.ID)
			removed++
			continue
		}
		kept = append(kept, j)
	}
	q.jobs = kept
	return removed
}

func (q *JobQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
