package wbot

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// State is a client connection state as reported by the liveness probe.
// Only StateConnected matters to the supervisor; everything else is
// treated as not-yet-usable.
type State string

// Connection states surfaced by whatsapp-web.js-compatible clients.
const (
	StateConnected State = "CONNECTED"
	StateOpening   State = "OPENING"
	StatePairing   State = "PAIRING"
	StateUnpaired  State = "UNPAIRED"
	StateTimeout   State = "TIMEOUT"
	StateConflict  State = "CONFLICT"
)

// EventKind enumerates client lifecycle events.
type EventKind int

const (
	// EventQR carries a fresh pairing payload.
	EventQR EventKind = iota
	// EventAuthenticated reports the cached credentials were accepted.
	EventAuthenticated
	// EventAuthFailure reports pairing or re-authentication was refused.
	EventAuthFailure
	// EventReady reports the session is fully usable.
	EventReady
)

// Event is one lifecycle notification from the underlying client.
type Event struct {
	Kind EventKind
	// QR is the pairing payload, set for EventQR.
	QR string
	// Detail is the failure description, set for EventAuthFailure.
	Detail string
}

// ClientInfo is the identity a client reports once paired.
type ClientInfo struct {
	Number string
	Phone  map[string]any
}

// Client is the boundary to the underlying WhatsApp connection.
// Implementations run their own transport and automation internals; the
// supervisor only drives lifecycle and probes state.
type Client interface {
	// Initialize begins connecting. It returns promptly; progress arrives
	// as Events.
	Initialize() error
	// Events delivers lifecycle events in order. The channel is closed when
	// the client shuts down for good.
	Events() <-chan Event
	// GetState probes the live connection state.
	GetState(ctx context.Context) (State, error)
	// SendPresenceAvailable broadcasts presence on the open connection.
	SendPresenceAvailable() error
	// Info reports the paired identity. Zero value until ready.
	Info() ClientInfo
	// Destroy terminates the connection and releases its resources.
	Destroy() error
}

// Options configures construction of an underlying client.
type Options struct {
	// ClientID names the auth-cache directory suffix, "wbot-<accountID>".
	ClientID string
	// ExecutablePath points at the automation browser binary. Empty means
	// the client library's bundled browser.
	ExecutablePath string
	// Args are extra browser launch flags.
	Args []string
}

// Factory builds clients. Injected so the protocol implementation stays
// outside this module.
type Factory interface {
	New(opts Options) (Client, error)
}

// ClientID returns the auth-cache suffix for an account.
func ClientID(accountID int) string {
	return fmt.Sprintf("wbot-%d", accountID)
}

var (
	factoryMu     sync.RWMutex
	globalFactory Factory
)

// ErrNoFactory is returned when no client driver has been registered.
var ErrNoFactory = errors.New("no whatsapp client driver registered")

// RegisterFactory installs the protocol client driver, in the manner of
// database/sql drivers: the concrete client package calls this from init.
// The last registration wins.
func RegisterFactory(f Factory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	globalFactory = f
}

// DefaultFactory returns the registered driver, or ErrNoFactory.
func DefaultFactory() (Factory, error) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	if globalFactory == nil {
		return nil, ErrNoFactory
	}
	return globalFactory, nil
}

// DefaultBrowserArgs are the launch flags passed to the automation browser.
// They disable everything a headless messaging bridge does not need.
var DefaultBrowserArgs = []string{
	"--autoplay-policy=user-gesture-required",
	"--disable-background-networking",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-breakpad",
	"--disable-client-side-phishing-detection",
	"--disable-component-update",
	"--disable-default-apps",
	"--disable-dev-shm-usage",
	"--disable-domain-reliability",
	"--disable-extensions",
	"--disable-features=AudioServiceOutOfProcess",
	"--disable-gpu",
	"--disable-hang-monitor",
	"--disable-ipc-flooding-protection",
	"--disable-notifications",
	"--disable-offer-store-unmasked-wallet-cards",
	"--disable-popup-blocking",
	"--disable-print-preview",
	"--disable-prompt-on-repost",
	"--disable-renderer-backgrounding",
	"--disable-setuid-sandbox",
	"--disable-speech-api",
	"--disable-sync",
	"--hide-scrollbars",
	"--ignore-gpu-blacklist",
	"--metrics-recording-only",
	"--mute-audio",
	"--no-default-browser-check",
	"--no-first-run",
	"--no-pings",
	"--no-sandbox",
	"--no-zygote",
	"--password-store=basic",
	"--use-gl=swiftshader",
	"--use-mock-keychain",
}
