package dispatcher

import (
	"fmt"
	"sync"

	"github.com/pkg/errors"
)

const (
	TaskFailed = iota
	TaskDone
	TaskActive
	TaskPending
	TaskDropped
)

var ErrInvalidPayload = errors.New("invalid payload")

type Task struct {
	Payload interface{}
	result  *Result
}

type Result struct {
	mu     sync.Mutex
	Status int
	Error  error
	value  interface{}
}

// Workload is what workers execute, one task at a time.
type Workload interface {
	Do(Task) error
}

func (t Task) SetResult(v interface{}) {
	t.result.mu.Lock()
	t.result.value = v
	t.result.mu.Unlock()
}

func (r *Result) setStatus(s int) {
	r.mu.Lock()
	r.Status = s
	r.mu.Unlock()
}

func (r *Result) status() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Status
}

func (r *Result) Failed() bool {
	return r.status() == TaskFailed
}

func (r *Result) Done() bool {
	return r.status() == TaskDone
}

func (r *Result) Value() interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

type worker struct {
	id    string
	wl    Workload
	tasks chan Task
	stop  chan struct{}
	gwait *sync.WaitGroup
}

func (w *worker) start() {
	logger.Infof("spawned dispatch worker %v", w.id)
	w.gwait.Add(1)
	go func() {
		defer w.gwait.Done()
		for {
			select {
			case t := <-w.tasks:
				DispatcherQueueLength.Dec()
				t.result.setStatus(TaskActive)
				ll := logger.With("wid", w.id)
				ll.Debugw("worker got a task", "task", fmt.Sprintf("%+v", t.Payload))
				DispatcherTasksActive.Inc()
				err := w.wl.Do(t)
				DispatcherTasksActive.Dec()
				if err != nil {
					t.result.mu.Lock()
					t.result.Error = err
					t.result.Status = TaskFailed
					t.result.mu.Unlock()
					DispatcherTasksFailed.WithLabelValues(w.id).Inc()
					ll.Errorw("workload failed", "err", err)
					continue
				}
				t.result.setStatus(TaskDone)
				DispatcherTasksDone.WithLabelValues(w.id).Inc()
				ll.Debugw("worker done a task")
			case <-w.stop:
				logger.Infof("stopped dispatch worker %v", w.id)
				return
			}
		}
	}()
}

type Dispatcher struct {
	tasks   chan Task
	workers []*worker
	stop    chan struct{}
	gwait   *sync.WaitGroup
}

// Start spawns the requested number of workers feeding off a shared queue of
// queueSize capacity (0 makes Dispatch block until a worker is free).
func Start(workers int, wl Workload, queueSize int) Dispatcher {
	d := Dispatcher{
		tasks: make(chan Task, queueSize),
		stop:  make(chan struct{}),
		gwait: &sync.WaitGroup{},
	}

	for i := 0; i < workers; i++ {
		w := &worker{
			id:    fmt.Sprintf("%T#%v", wl, i),
			wl:    wl,
			tasks: d.tasks,
			stop:  d.stop,
			gwait: d.gwait,
		}
		d.workers = append(d.workers, w)
		w.start()
	}

	return d
}

// Dispatch queues a task, blocking when the queue is full.
func (d *Dispatcher) Dispatch(payload interface{}) *Result {
	r := &Result{Status: TaskPending}
	d.tasks <- Task{Payload: payload, result: r}
	DispatcherQueueLength.Inc()
	DispatcherTasksQueued.Inc()
	return r
}

// TryDispatch queues a task, marking the result dropped when the queue is
// full.
func (d *Dispatcher) TryDispatch(payload interface{}) *Result {
	r := &Result{Status: TaskPending}
	select {
	case d.tasks <- Task{Payload: payload, result: r}:
		DispatcherQueueLength.Inc()
		DispatcherTasksQueued.Inc()
	default:
		DispatcherTasksDropped.Inc()
		r.Status = TaskDropped
	}
	return r
}

// Stop signals all workers to quit after their current task and waits for
// them.
func (d Dispatcher) Stop() {
	close(d.stop)
	d.gwait.Wait()
	logger.Infof("all %v workers are stopped", len(d.workers))
}
