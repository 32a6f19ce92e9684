package manager

import (
	"cmp"
	"slices"
	"sync"
	"time"

	"github.com/emirpasic/gods/v2/queues/priorityqueue"
	lru "github.com/hashicorp/golang-lru"

	"vramd/internal/registry"
	"vramd/pkg/types"
)

// Operator actions run ahead of every load request.
const operatorPriority = registry.MaxPriority + 1

// task is one queued coordinator operation.
type task struct {
	id        string
	kind      TaskKind
	key       types.ModelKey
	priority  int
	session   string
	submitted time.Time
	seq       uint64
	force     bool
	reason    UnloadReason

	once    sync.Once
	done    chan struct{}
	outcome Outcome
}

func newTask(id string, kind TaskKind, key types.ModelKey, priority int, now time.Time) *task {
	return &task{id: id, kind: kind, key: key, priority: priority, submitted: now, done: make(chan struct{})}
}

func (t *task) item() types.QueueItem {
	it := types.QueueItem{
		RequestID:   t.id,
		Kind:        string(t.kind),
		Priority:    t.priority,
		SessionID:   t.session,
		SubmittedAt: t.submitted.Unix(),
	}
	if t.key != (types.ModelKey{}) {
		it.ModelKey = t.key.String()
	}
	return it
}

// compareTasks orders by priority desc, then submission time, then arrival.
func compareTasks(a, b *task) int {
	if a.priority != b.priority {
		return cmp.Compare(b.priority, a.priority)
	}
	if c := a.submitted.Compare(b.submitted); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// opQueue holds pending operations, the one being processed, and the history
// of completed outcomes. One mutex covers every transition so a request id is
// always visible in exactly one place.
type opQueue struct {
	mu         sync.Mutex
	heap       *priorityqueue.Queue[*task]
	pending    map[string]*task
	processing *task
	history    *lru.Cache
	seq        uint64
	maxDepth   int
	// id of the queued idle sweep, if any
	sweepID string
	closed  bool

	wake chan struct{}
}

func newOpQueue(maxDepth, historySize int) *opQueue {
	h, err := lru.New(historySize)
	if err != nil {
		// only fails for a non-positive size, which NewWithConfig rules out
		panic(err)
	}
	return &opQueue{
		heap:     priorityqueue.NewWith[*task](compareTasks),
		pending:  make(map[string]*task),
		history:  h,
		maxDepth: maxDepth,
		wake:     make(chan struct{}, 1),
	}
}

func (q *opQueue) push(t *task) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrNotRunning
	}
	if t.kind == TaskLoad && len(q.pending) >= q.maxDepth {
		n := len(q.pending)
		q.mu.Unlock()
		return tooBusyError{depth: n}
	}
	q.seq++
	t.seq = q.seq
	q.heap.Enqueue(t)
	q.pending[t.id] = t
	q.mu.Unlock()
	q.signal()
	return nil
}

// pushSweep enqueues an idle sweep unless one is already waiting.
func (q *opQueue) pushSweep(t *task) bool {
	q.mu.Lock()
	if q.sweepID != "" {
		if _, ok := q.pending[q.sweepID]; ok {
			q.mu.Unlock()
			return false
		}
	}
	q.sweepID = t.id
	q.mu.Unlock()
	return q.push(t) == nil
}

func (q *opQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// pop dequeues the next live task and marks it processing.
func (q *opQueue) pop() (*task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		t, ok := q.heap.Dequeue()
		if !ok {
			return nil, false
		}
		if _, live := q.pending[t.id]; !live {
			// withdrawn while queued
			continue
		}
		delete(q.pending, t.id)
		q.processing = t
		return t, true
	}
}

// complete records the terminal outcome of t. Safe to call once per task.
func (q *opQueue) complete(t *task, o Outcome) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.resolveLocked(t, o)
	if q.processing == t {
		q.processing = nil
	}
}

func (q *opQueue) resolveLocked(t *task, o Outcome) {
	t.once.Do(func() {
		o.RequestID = t.id
		o.Kind = t.kind
		o.Key = t.key
		o.SubmittedAt = t.submitted
		t.outcome = o
		close(t.done)
		q.history.Add(t.id, t)
	})
}

// cancel withdraws a queued task.
func (q *opQueue) cancel(id string, now time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.pending[id]; ok {
		delete(q.pending, id)
		q.resolveLocked(t, Outcome{Status: StatusCancelled, Err: ErrRequestCancelled, CompletedAt: now})
		return nil
	}
	if q.processing != nil && q.processing.id == id {
		return requestInProgressError{id: id}
	}
	if _, ok := q.history.Get(id); ok {
		return requestInProgressError{id: id, completed: true}
	}
	return requestNotFoundError{id: id}
}

// close rejects further pushes and cancels everything still queued.
func (q *opQueue) close(now time.Time) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	n := 0
	for id, t := range q.pending {
		delete(q.pending, id)
		q.resolveLocked(t, Outcome{Status: StatusCancelled, Err: ErrNotRunning, CompletedAt: now})
		n++
	}
	q.heap.Clear()
	return n
}

// lookup finds a task by id along with its current status.
func (q *opQueue) lookup(id string) (*task, OutcomeStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.pending[id]; ok {
		return t, StatusPending, true
	}
	if q.processing != nil && q.processing.id == id {
		return q.processing, StatusProcessing, true
	}
	if v, ok := q.history.Get(id); ok {
		t := v.(*task)
		return t, t.outcome.Status, true
	}
	return nil, "", false
}

func (q *opQueue) snapshot() types.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()
	live := make([]*task, 0, len(q.pending))
	for _, t := range q.pending {
		live = append(live, t)
	}
	slices.SortFunc(live, compareTasks)
	qs := types.QueueStatus{
		PendingCount:  len(live),
		MaxQueueDepth: q.maxDepth,
		Pending:       make([]types.QueueItem, 0, len(live)),
	}
	for _, t := range live {
		qs.Pending = append(qs.Pending, t.item())
	}
	if q.processing != nil {
		it := q.processing.item()
		qs.Processing = &it
		qs.ProcessingCount = 1
	}
	return qs
}
