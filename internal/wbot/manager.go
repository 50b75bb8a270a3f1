package wbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/DFN-master/izing-main/internal/event"
	"github.com/DFN-master/izing-main/internal/logging"
	"github.com/DFN-master/izing-main/pkg/types"
)

// ErrAuthFailure signals session creation ended in authentication failure.
// The account's retry counter has already been persisted; whether to attempt
// again is an administrative decision outside the supervisor.
var ErrAuthFailure = errors.New("error starting whatsapp session")

// AccountUpdater persists partial changes to an account record and refreshes
// the record in place. The record is the durable source of truth; the Store
// is only a cache of live handles over it.
type AccountUpdater interface {
	Update(ctx context.Context, acc *types.Account, fields types.AccountUpdate) error
}

// UnreadSyncer triggers an unread-message synchronization pass once a
// session is ready. Fire and forget.
type UnreadSyncer interface {
	SyncUnread(c Client, tenantID int)
}

// ManagerOptions tune a Manager.
type ManagerOptions struct {
	// CheckInterval is the liveness probe period. Defaults to 5s.
	CheckInterval time.Duration
	// ExecutablePath is handed to the client factory for browser launch.
	ExecutablePath string
	// Syncer, when set, is invoked after every ready transition.
	Syncer UnreadSyncer
}

// Manager drives session lifecycles. It builds clients through the injected
// Factory and runs one event loop per session; that loop is the only writer
// of the session's account record, so every transition is handled with
// mutual exclusion relative to the session's other events.
type Manager struct {
	store    *Store
	bus      *event.Bus
	queue    Dispatcher
	accounts AccountUpdater
	factory  Factory

	checkInterval time.Duration
	execPath      string
	syncer        UnreadSyncer
	log           zerolog.Logger
}

// NewManager wires a lifecycle controller.
func NewManager(store *Store, bus *event.Bus, queue Dispatcher, accounts AccountUpdater, factory Factory, opts ManagerOptions) *Manager {
	interval := opts.CheckInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Manager{
		store:         store,
		bus:           bus,
		queue:         queue,
		accounts:      accounts,
		factory:       factory,
		checkInterval: interval,
		execPath:      opts.ExecutablePath,
		syncer:        opts.Syncer,
		log:           logging.ForComponent("wbot.manager"),
	}
}

// Store returns the session registry this manager populates.
func (m *Manager) Store() *Store {
	return m.store
}

type startResult struct {
	sess *Session
	err  error
}

// StartSession constructs the client for an account, begins initialization
// and waits for the first terminal lifecycle event. It completes exactly
// once: with a ready handle, or with ErrAuthFailure when authentication is
// refused. The caller's context bounds the wait (the underlying client has
// no deadline of its own); the session's event loop keeps running in the
// background regardless of how the wait ends.
func (m *Manager) StartSession(ctx context.Context, acc *types.Account) (*Session, error) {
	client, err := m.factory.New(Options{
		ClientID:       ClientID(acc.ID),
		ExecutablePath: m.execPath,
		Args:           DefaultBrowserArgs,
	})
	if err != nil {
		return nil, fmt.Errorf("create client for account %d: %w", acc.ID, err)
	}

	sess := &Session{ID: acc.ID, TenantID: acc.TenantID, Client: client}
	sess.setStatus(acc.Status)

	done := make(chan startResult, 1)
	a := &actor{m: m, sess: sess, acc: acc, done: done}
	go a.run()

	if err := client.Initialize(); err != nil {
		// Not terminal: the event loop decides the outcome. An
		// initialization that never produces a terminal event is bounded
		// by the caller's context.
		m.log.Error().Err(err).Int("sessionId", acc.ID).Msg("client initialization error")
	}

	select {
	case r := <-done:
		return r.sess, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// startMonitor attaches and starts the liveness monitor for a session,
// keeping the one-monitor-per-session invariant when ready fires twice.
func (m *Manager) startMonitor(sess *Session) {
	mon := newMonitor(sess, m.store, m.queue, m.checkInterval)
	if sess.attachMonitor(mon) {
		mon.start()
	}
}

// actor owns one session's lifecycle. All client events for the session are
// handled sequentially here, so the account record has a single writer.
type actor struct {
	m        *Manager
	sess     *Session
	acc      *types.Account
	done     chan<- startResult
	resolved bool
}

func (a *actor) run() {
	// Nothing may propagate out of event handling into the client's
	// dispatch machinery.
	defer func() {
		if r := recover(); r != nil {
			a.m.log.Error().
				Interface("panic", r).
				Int("sessionId", a.sess.ID).
				Msg("session event loop panicked")
		}
	}()

	for ev := range a.sess.Client.Events() {
		a.handle(ev)
	}
}

func (a *actor) handle(ev Event) {
	ctx := context.Background()
	switch ev.Kind {
	case EventQR:
		a.onQR(ctx, ev.QR)
	case EventAuthenticated:
		a.m.log.Info().Str("session", a.acc.Name).Msg("session authenticated")
	case EventAuthFailure:
		a.onAuthFailure(ctx, ev.Detail)
	case EventReady:
		a.onReady(ctx)
	}
}

// resolve completes the pending StartSession exactly once.
func (a *actor) resolve(sess *Session, err error) {
	if a.resolved {
		return
	}
	a.resolved = true
	a.done <- startResult{sess: sess, err: err}
}

func (a *actor) onQR(ctx context.Context, qr string) {
	// A QR event can race a reconnect; once the record says connected the
	// pairing payload is stale.
	if a.acc.Status == types.StatusConnected {
		return
	}

	a.m.log.Info().
		Str("session", a.acc.Name).
		Int("sessionId", a.acc.ID).
		Str("status", a.acc.Status).
		Msg("session qr code generated")

	err := a.m.accounts.Update(ctx, a.acc, types.AccountUpdate{
		QRCode:  types.Ptr(qr),
		Status:  types.Ptr(types.StatusQRCode),
		Retries: types.Ptr(0),
	})
	if err != nil {
		a.m.log.Error().Err(err).Int("sessionId", a.acc.ID).Msg("persist qr state failed")
		return
	}
	a.sess.setStatus(types.StatusQRCode)

	// Register ahead of readiness so lookups already resolve while the
	// operator is scanning the code. Session.Status tells callers apart.
	a.m.store.Register(a.sess)

	a.m.bus.Emit(a.acc.TenantID, types.ActionUpdate, a.acc)
}

func (a *actor) onAuthFailure(ctx context.Context, detail string) {
	a.m.log.Error().
		Str("session", a.acc.Name).
		Str("detail", detail).
		Msg("session authentication failure")

	// After repeated failures the cached pairing state is presumed stale:
	// discard it and reset the counter before counting this failure.
	if a.acc.Retries > 1 {
		err := a.m.accounts.Update(ctx, a.acc, types.AccountUpdate{
			Retries: types.Ptr(0),
			Session: types.Ptr(""),
		})
		if err != nil {
			a.m.log.Error().Err(err).Int("sessionId", a.acc.ID).Msg("clear pairing state failed")
			return
		}
	}

	retry := a.acc.Retries
	err := a.m.accounts.Update(ctx, a.acc, types.AccountUpdate{
		Status:  types.Ptr(types.StatusDisconnected),
		Retries: types.Ptr(retry + 1),
	})
	if err != nil {
		a.m.log.Error().Err(err).Int("sessionId", a.acc.ID).Msg("persist auth failure failed")
		return
	}
	a.sess.setStatus(types.StatusDisconnected)

	a.m.bus.Emit(a.acc.TenantID, types.ActionUpdate, a.acc)
	a.resolve(nil, ErrAuthFailure)
}

func (a *actor) onReady(ctx context.Context) {
	a.m.log.Info().
		Str("session", a.acc.Name).
		Int("sessionId", a.acc.ID).
		Msg("session ready")

	info := a.sess.Client.Info()
	phone := info.Phone
	if phone == nil {
		phone = map[string]any{}
	}

	err := a.m.accounts.Update(ctx, a.acc, types.AccountUpdate{
		Status:  types.Ptr(types.StatusConnected),
		QRCode:  types.Ptr(""),
		Retries: types.Ptr(0),
		Number:  types.Ptr(info.Number),
		Phone:   phone,
	})
	if err != nil {
		a.m.log.Error().Err(err).Int("sessionId", a.acc.ID).Msg("persist ready state failed")
		return
	}
	a.sess.setStatus(types.StatusConnected)

	a.m.bus.Emit(a.acc.TenantID, types.ActionUpdate, a.acc)
	a.m.bus.Emit(a.acc.TenantID, types.ActionReadySession, a.acc)

	a.m.store.Register(a.sess)

	if err := a.sess.Client.SendPresenceAvailable(); err != nil {
		a.m.log.Warn().Err(err).Int("sessionId", a.acc.ID).Msg("presence broadcast failed")
	}

	if a.m.syncer != nil {
		go a.m.syncer.SyncUnread(a.sess.Client, a.acc.TenantID)
	}

	a.m.startMonitor(a.sess)
	a.resolve(a.sess, nil)
}
