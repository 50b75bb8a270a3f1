package wbot

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/DFN-master/izing-main/internal/logging"
	"github.com/DFN-master/izing-main/pkg/types"
)

// Dispatcher enqueues background jobs. Satisfied by the queue package.
type Dispatcher interface {
	Add(name string, payload any)
}

// Monitor runs the recurring liveness probe for one session. Exactly one
// monitor exists per live session; it stops itself when it detects the
// underlying connection is gone.
type Monitor struct {
	session  *Session
	store    *Store
	queue    Dispatcher
	interval time.Duration
	log      zerolog.Logger

	stop chan struct{}
	once sync.Once
}

func newMonitor(sess *Session, store *Store, queue Dispatcher, interval time.Duration) *Monitor {
	return &Monitor{
		session:  sess,
		store:    store,
		queue:    queue,
		interval: interval,
		log: logging.ForComponent("wbot.monitor").With().
			Int("sessionId", sess.ID).
			Int("tenantId", sess.TenantID).
			Logger(),
		stop: make(chan struct{}),
	}
}

func (m *Monitor) start() {
	go m.run()
}

func (m *Monitor) run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if !m.tick() {
				return
			}
		}
	}
}

// tick probes the session once. The return value is false when the session
// died and the loop must not run again.
func (m *Monitor) tick() bool {
	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	state, err := m.session.Client.GetState(ctx)
	cancel()

	if err != nil {
		if IsSessionClosed(err) {
			m.log.Error().Err(err).Msg("whatsapp session closed, removing bot")
			m.Stop()
			m.store.Remove(m.session.ID)
			return false
		}
		// Transient: tolerate and keep probing.
		m.log.Error().Err(err).Msg("liveness probe failed")
		return true
	}

	if state == StateConnected {
		m.log.Debug().Msg("session connected, dispatching outbound drain")
		m.queue.Add(types.JobSendMessages, types.SendMessagesPayload{
			SessionID: m.session.ID,
			TenantID:  m.session.TenantID,
		})
	}
	return true
}

// Stop cancels the probe loop. Safe to call any number of times, from the
// monitor's own tick or from an administrative teardown.
func (m *Monitor) Stop() {
	m.once.Do(func() {
		close(m.stop)
	})
}

// Stopped reports whether the probe loop has been cancelled.
func (m *Monitor) Stopped() bool {
	select {
	case <-m.stop:
		return true
	default:
		return false
	}
}
