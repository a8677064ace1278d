package cloudsync

import (
	"context"
	"errors"
	"sort"
	"sync"

	"prodline/internal/docstore"
	"prodline/internal/production"
)

// fakeStore 内存版远端文档，记录写操作顺序
type fakeStore struct {
	mu       sync.Mutex
	runs     map[string]production.Run
	partials map[string][]production.Partial
	pointer  string
	ops      []string
	fail     map[string]error
	watchers map[*watcher]struct{}

	wg     sync.WaitGroup
	closed bool
}

type watcher struct {
	kind  string
	runID string
	kick  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		runs:     map[string]production.Run{},
		partials: map[string][]production.Partial{},
		fail:     map[string]error{},
		watchers: map[*watcher]struct{}{},
	}
}

var errInjected = errors.New("注入的远端错误")

func (f *fakeStore) record(op string, kind, runID string) error {
	f.ops = append(f.ops, op)
	if err := f.fail[op]; err != nil {
		return err
	}
	for w := range f.watchers {
		if w.kind == kind && (kind == docstore.KindPointer || w.runID == runID) {
			select {
			case w.kick <- struct{}{}:
			default:
			}
		}
	}
	return nil
}

func (f *fakeStore) opLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ops...)
}

func (f *fakeStore) UpsertRun(_ context.Context, run production.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["upsert "+run.ID]; err != nil {
		f.ops = append(f.ops, "upsert "+run.ID)
		return err
	}
	if old, ok := f.runs[run.ID]; ok {
		run.CreatedAt = old.CreatedAt
	}
	f.runs[run.ID] = run
	return f.record("upsert "+run.ID, docstore.KindRun, run.ID)
}

func (f *fakeStore) DeleteRun(_ context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.runs, runID)
	return f.record("delete_run "+runID, docstore.KindRun, runID)
}

func (f *fakeStore) SetPointer(_ context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pointer = runID
	return f.record("pointer "+runID, docstore.KindPointer, runID)
}

func (f *fakeStore) AddPartial(_ context.Context, runID string, p production.Partial) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail["add "+p.ID]; err != nil {
		f.ops = append(f.ops, "add "+p.ID)
		return err
	}
	f.partials[runID] = append(f.partials[runID], p)
	return f.record("add "+p.ID, docstore.KindPartials, runID)
}

func (f *fakeStore) DeletePartial(_ context.Context, runID, partialID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	list := f.partials[runID]
	for i := range list {
		if list[i].ID == partialID {
			f.partials[runID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	return f.record("delete "+partialID, docstore.KindPartials, runID)
}

func (f *fakeStore) DeletePartials(_ context.Context, runID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.partials, runID)
	return f.record("delete_partials "+runID, docstore.KindPartials, runID)
}

func (f *fakeStore) watch(ctx context.Context, kind, runID string, deliver func()) {
	w := &watcher{kind: kind, runID: runID, kick: make(chan struct{}, 1)}
	f.mu.Lock()
	f.watchers[w] = struct{}{}
	f.mu.Unlock()

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		defer func() {
			f.mu.Lock()
			delete(f.watchers, w)
			f.mu.Unlock()
		}()

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.kick:
				if ctx.Err() != nil {
					return
				}
				deliver()
			}
		}
	}()
}

func (f *fakeStore) WatchPointer(ctx context.Context, fn func(runID string)) {
	f.watch(ctx, docstore.KindPointer, "", func() {
		f.mu.Lock()
		id := f.pointer
		f.mu.Unlock()
		fn(id)
	})
}

func (f *fakeStore) WatchRun(ctx context.Context, runID string, fn func(run *production.Run)) {
	f.watch(ctx, docstore.KindRun, runID, func() {
		f.mu.Lock()
		r, ok := f.runs[runID]
		f.mu.Unlock()
		if !ok {
			fn(nil)
			return
		}
		fn(&r)
	})
}

func (f *fakeStore) WatchPartials(ctx context.Context, runID string, fn func(partials []production.Partial)) {
	f.watch(ctx, docstore.KindPartials, runID, func() {
		f.mu.Lock()
		list := append([]production.Partial(nil), f.partials[runID]...)
		f.mu.Unlock()
		sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp.Before(list[j].Timestamp) })
		fn(list)
	})
}

func (f *fakeStore) Close() error {
	f.wg.Wait()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

// recordingSink 记录收到的远端变更
type recordingSink struct {
	pointers chan string
	runs     chan runEvent
	partials chan partialsEvent
}

type runEvent struct {
	runID string
	run   *production.Run
}

type partialsEvent struct {
	runID    string
	partials []production.Partial
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		pointers: make(chan string, 32),
		runs:     make(chan runEvent, 32),
		partials: make(chan partialsEvent, 32),
	}
}

func (s *recordingSink) OnPointer(runID string) { s.pointers <- runID }
func (s *recordingSink) OnRun(runID string, run *production.Run) {
	s.runs <- runEvent{runID: runID, run: run}
}
func (s *recordingSink) OnPartials(runID string, partials []production.Partial) {
	s.partials <- partialsEvent{runID: runID, partials: partials}
}
