package wbot

import (
	"context"
	"sync"

	"github.com/DFN-master/izing-main/pkg/types"
)

// fakeClient is a controllable Client for tests. Lifecycle events are fed
// through emit; probe behavior is driven by state/stateErr.
type fakeClient struct {
	events chan Event

	mu         sync.Mutex
	state      State
	stateErr   error
	stateCalls int
	info       ClientInfo
	initErr    error
	destroyErr error
	destroyed  int
	presence   int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		events: make(chan Event, 8),
		state:  StateConnected,
	}
}

func (c *fakeClient) emit(ev Event) {
	c.events <- ev
}

func (c *fakeClient) setStateErr(err error) {
	c.mu.Lock()
	c.stateErr = err
	c.mu.Unlock()
}

func (c *fakeClient) getStateCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateCalls
}

func (c *fakeClient) destroyCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}

func (c *fakeClient) Initialize() error {
	return c.initErr
}

func (c *fakeClient) Events() <-chan Event {
	return c.events
}

func (c *fakeClient) GetState(ctx context.Context) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stateCalls++
	if c.stateErr != nil {
		return "", c.stateErr
	}
	return c.state, nil
}

func (c *fakeClient) SendPresenceAvailable() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.presence++
	return nil
}

func (c *fakeClient) Info() ClientInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *fakeClient) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.destroyed++
	return c.destroyErr
}

// fakeFactory hands out a prepared client and records the options used.
type fakeFactory struct {
	client Client
	err    error

	mu   sync.Mutex
	opts Options
}

func (f *fakeFactory) New(opts Options) (Client, error) {
	f.mu.Lock()
	f.opts = opts
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

// fakeUpdater applies partial updates in place and records each one.
type fakeUpdater struct {
	mu      sync.Mutex
	updates []types.AccountUpdate
	err     error
}

func (u *fakeUpdater) Update(ctx context.Context, acc *types.Account, fields types.AccountUpdate) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.err != nil {
		return u.err
	}
	u.updates = append(u.updates, fields)
	fields.Apply(acc)
	return nil
}

func (u *fakeUpdater) count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.updates)
}

// fakeDispatcher records enqueued jobs.
type fakeDispatcher struct {
	mu    sync.Mutex
	names []string
	jobs  []any
}

func (d *fakeDispatcher) Add(name string, payload any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	d.jobs = append(d.jobs, payload)
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.jobs)
}

func (d *fakeDispatcher) first() (string, any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.jobs) == 0 {
		return "", nil
	}
	return d.names[0], d.jobs[0]
}
