package route

import (
	"container/heap"
	"math"
	"time"

	"github.com/dispatchops/dispatchops/observe"
)

// StrategyPriorityQueue names the priority-queue balancer.
const StrategyPriorityQueue = "priority-queue"

// PriorityQueueConfig configures a PriorityQueue balancer.
type PriorityQueueConfig struct {
	// AgingBoost adds this much effective priority per minute a task has
	// waited. Zero disables aging.
	AgingBoost float64

	// MaxWait forces a task's effective priority to +Inf once exceeded, so
	// sustained high-priority load cannot starve low-priority tasks
	// indefinitely. Zero disables the guard.
	MaxWait time.Duration

	// Collector, when set, counts routing outcomes.
	Collector *observe.Collector

	// Clock supplies the current time. Default: time.Now.
	Clock func() time.Time
}

// PriorityQueue holds tasks ordered by effective priority and assigns the
// most urgent one to the first routable agent. It does no skill matching
// itself; compose it with a capability router when that matters.
type PriorityQueue struct {
	roster
	config PriorityQueueConfig
	items  taskHeap
	seq    int64
}

// NewPriorityQueue creates a priority-queue balancer.
func NewPriorityQueue(config PriorityQueueConfig) *PriorityQueue {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	return &PriorityQueue{config: config}
}

// Enqueue validates and queues a task, stamping EnqueuedAt when unset.
func (b *PriorityQueue) Enqueue(task TaskRequest) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = b.config.Clock()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	heap.Push(&b.items, &queuedTask{task: task, seq: b.seq})
	return nil
}

// Len returns the number of queued tasks.
func (b *PriorityQueue) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.items.Len()
}

// RouteNext dequeues the highest effective-priority task (FIFO among ties)
// and assigns it to the first routable agent. When no agent qualifies the
// task goes back on the queue with its original timestamp, so callers can
// retry without losing it.
func (b *PriorityQueue) RouteNext() RouteResult {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := RouteResult{
		Strategy:  StrategyPriorityQueue,
		Timestamp: time.Now(),
	}

	if b.items.Len() == 0 {
		result.Reason = ReasonQueueEmpty
		b.config.Collector.RecordRoute(StrategyPriorityQueue, false)
		return result
	}

	// Reorder under current effective priorities before popping: aging
	// shifts relative order as tasks wait.
	now := b.config.Clock()
	for _, item := range b.items {
		item.effective = b.effectivePriority(item.task, now)
	}
	heap.Init(&b.items)

	item := heap.Pop(&b.items).(*queuedTask)
	result.Task = item.task

	for _, agent := range b.agents {
		if !agent.Status.Routable() {
			continue
		}
		picked := agent
		result.Agent = &picked
		b.config.Collector.RecordRoute(StrategyPriorityQueue, true)
		return result
	}

	// No agent: requeue rather than drop.
	heap.Push(&b.items, item)
	result.Reason = ReasonNoAvailableAgents
	b.config.Collector.RecordRoute(StrategyPriorityQueue, false)
	return result
}

// Route enqueues the task and immediately routes the most urgent queued
// task, which is not necessarily the one just enqueued.
func (b *PriorityQueue) Route(task TaskRequest) RouteResult {
	if err := b.Enqueue(task); err != nil {
		b.config.Collector.RecordRoute(StrategyPriorityQueue, false)
		return RouteResult{
			Task:      task,
			Strategy:  StrategyPriorityQueue,
			Timestamp: time.Now(),
			Reason:    ReasonInvalidPriority,
		}
	}
	return b.RouteNext()
}

func (b *PriorityQueue) effectivePriority(task TaskRequest, now time.Time) float64 {
	wait := now.Sub(task.EnqueuedAt)
	if b.config.MaxWait > 0 && wait > b.config.MaxWait {
		return math.Inf(1)
	}
	effective := float64(task.Priority)
	if b.config.AgingBoost > 0 && wait > 0 {
		effective += b.config.AgingBoost * wait.Minutes()
	}
	return effective
}

type queuedTask struct {
	task      TaskRequest
	effective float64
	seq       int64
}

// taskHeap is a max-heap on effective priority with FIFO tie-breaking.
type taskHeap []*queuedTask

func (h taskHeap) Len() int { return len(h) }

func (h taskHeap) Less(i, j int) bool {
	if h[i].effective != h[j].effective {
		return h[i].effective > h[j].effective
	}
	return h[i].seq < h[j].seq
}

func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *taskHeap) Push(x any) {
	*h = append(*h, x.(*queuedTask))
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
