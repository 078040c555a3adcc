// Package tasks holds the observable in-memory task list and orchestrates
// store calls for the task screen and the CLI.
//
// The controller owns a snapshot of "all tasks as of the last load". Load
// replaces it wholesale; Create inserts and then reloads from the store, so the
// snapshot always equals what the store returned. Observers read copies via
// Tasks or receive them through Subscribe.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"todolist/internal/logging"
	"todolist/internal/store"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Task is the persisted entity as seen by observers.
type Task = store.Task

// Store is the persistence the controller needs.
type Store interface {
	Insert(ctx context.Context, title, description string) (int64, error)
	ListAll(ctx context.Context) ([]store.Task, error)
}

var (
	// ErrClosed is returned by operations on a closed controller.
	ErrClosed = errors.New("task controller is closed")

	// ErrNotReloaded is returned by Create when the insert succeeded but the
	// reload that follows it failed. The task is stored; the snapshot is stale.
	ErrNotReloaded = errors.New("task added but list not reloaded")
)

// slowCreate is the insert+reload duration above which Create logs a warning.
const slowCreate = 500 * time.Millisecond

// Controller mediates between a Store and its observers.
type Controller struct {
	store  Store
	scope  context.Context
	cancel context.CancelFunc

	// ops serializes Load and Create so an insert+reload never interleaves
	// with another reload.
	ops *semaphore.Weighted

	mu      sync.RWMutex
	tasks   []Task
	version uint64
	subs    map[int]chan []Task
	nextSub int
	closed  bool
}

// Option configures a Controller.
type Option func(*controllerOptions)

type controllerOptions struct {
	parent context.Context
}

// WithParent ties the controller's lifetime scope to ctx in addition to Close.
func WithParent(ctx context.Context) Option {
	return func(o *controllerOptions) { o.parent = ctx }
}

// New creates a controller with an empty snapshot.
func New(st Store, opts ...Option) *Controller {
	o := controllerOptions{parent: context.Background()}
	for _, opt := range opts {
		opt(&o)
	}

	scope, cancel := context.WithCancel(o.parent)
	return &Controller{
		store:  st,
		scope:  scope,
		cancel: cancel,
		ops:    semaphore.NewWeighted(1),
		tasks:  make([]Task, 0),
		subs:   make(map[int]chan []Task),
	}
}

// Load fetches all tasks and replaces the snapshot with the result.
// On failure the snapshot is left as it was.
func (c *Controller) Load(ctx context.Context) error {
	ctx, done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	rl := logging.WithRequestID(logging.CategoryTasks, uuid.NewString())
	return c.load(ctx, rl)
}

// Create inserts a task and then reloads the snapshot from the store.
// The insert completes before the reload starts.
func (c *Controller) Create(ctx context.Context, title, description string) error {
	ctx, done, err := c.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	rl := logging.WithRequestID(logging.CategoryTasks, uuid.NewString())
	timer := logging.StartTimer(logging.CategoryTasks, "tasks.Create")
	defer timer.StopWithThreshold(slowCreate)

	id, err := c.store.Insert(ctx, title, description)
	if err != nil {
		rl.Warn("create failed: %v", err)
		return c.scopeErr(err)
	}
	rl.Info("created task id=%d", id)

	if err := c.load(ctx, rl); err != nil {
		if errors.Is(err, ErrClosed) {
			return err
		}
		logging.TasksWarn("[req:%s] task id=%d stored but reload failed: %v", rl.RequestID(), id, err)
		return fmt.Errorf("%w: %w", ErrNotReloaded, err)
	}
	return nil
}

func (c *Controller) load(ctx context.Context, rl *logging.RequestLogger) error {
	tasks, err := c.store.ListAll(ctx)
	if err != nil {
		rl.Warn("load failed: %v", err)
		return c.scopeErr(err)
	}
	if err := c.replace(ctx, tasks); err != nil {
		return err
	}
	rl.Debug("loaded %d tasks", len(tasks))
	return nil
}

// begin merges ctx with the controller scope and waits for the operation slot.
func (c *Controller) begin(ctx context.Context) (context.Context, func(), error) {
	c.mu.RLock()
	closed := c.closed
	c.mu.RUnlock()
	if closed {
		return nil, nil, ErrClosed
	}

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(c.scope, cancel)

	if err := c.ops.Acquire(opCtx, 1); err != nil {
		stop()
		cancel()
		return nil, nil, c.scopeErr(err)
	}

	done := func() {
		c.ops.Release(1)
		stop()
		cancel()
	}
	return opCtx, done, nil
}

// scopeErr reports ErrClosed when the controller scope ended the operation.
func (c *Controller) scopeErr(err error) error {
	if c.scope.Err() != nil {
		return ErrClosed
	}
	return err
}

// replace swaps in a new snapshot unless the operation was cancelled.
func (c *Controller) replace(ctx context.Context, tasks []Task) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return c.scopeErr(err)
	}

	c.tasks = slices.Clone(tasks)
	if c.tasks == nil {
		c.tasks = make([]Task, 0)
	}
	c.version++

	for _, ch := range c.subs {
		publish(ch, slices.Clone(c.tasks))
	}
	return nil
}

// publish delivers snap without blocking, replacing any undelivered snapshot.
func publish(ch chan []Task, snap []Task) {
	select {
	case ch <- snap:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- snap:
	default:
	}
}

// Tasks returns a copy of the current snapshot.
func (c *Controller) Tasks() []Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.tasks)
}

// Version counts snapshot replacements.
func (c *Controller) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Subscribe returns a channel that receives the latest snapshot after every
// replacement, and a function that ends the subscription. Slow readers only
// ever see the newest snapshot. The channel is closed on unsubscribe or Close.
func (c *Controller) Subscribe() (<-chan []Task, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan []Task, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close cancels in-flight operations and ends all subscriptions. In-flight
// operations do not touch the snapshot after Close.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	logging.Tasks("controller closed")
}
