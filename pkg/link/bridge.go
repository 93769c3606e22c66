// Package link implements the session and transport layer for the supported
// hardware wallet family: enumeration and classification of USB devices,
// path-addressed connect/claim lifecycle, and framed 64-byte exchanges with
// bounded retry.
package link

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/sergeyboyko0791/hardware-wallet-api/internal/config"
	"github.com/sergeyboyko0791/hardware-wallet-api/pkg/usb"
)

// Environment keys consumed when the corresponding Config field is zero.
const (
	EnvConnectAttempts = "HW_CONNECT_ATTEMPTS"
	EnvConnectBackoff  = "HW_CONNECT_BACKOFF"
	EnvEmptyReadLimit  = "HW_EMPTY_READ_LIMIT"
)

const (
	defaultConnectAttempts = 5
	defaultBackoffStep     = 200 * time.Millisecond
	// The wire protocol answers polls with zero-length frames until data is
	// ready. The original client retried those forever; the cap keeps a
	// wedged device from hanging the caller.
	defaultEmptyReadLimit = 512
)

// PresenceNotifier is told when the set of connected legacy-HID devices goes
// from empty to non-empty or back, so an outer layer can surface a "device
// needs a different driver" hint. Calls are fire-and-forget: delivery happens
// on a separate goroutine and can never fail or delay a scan.
type PresenceNotifier interface {
	HidPresenceChanged(present bool)
}

type logNotifier struct{}

func (logNotifier) HidPresenceChanged(present bool) {
	log.Info().Bool("present", present).Msg("hwwallet: legacy hid presence changed")
}

// Config controls Bridge behavior. Zero fields fall back to environment
// variables and the documented defaults.
type Config struct {
	// ConnectAttempts bounds the connect retry loop (default 5).
	ConnectAttempts int
	// BackoffStep is multiplied by the previous attempt count to pace
	// retries: 0, step, 2*step, ... (default 200ms).
	BackoffStep time.Duration
	// EmptyReadLimit caps consecutive zero-length reads in Receive
	// (default 512).
	EmptyReadLimit int
	// Clock drives backoff delays and Watch polling. Tests inject a mock.
	Clock clock.Clock
	// Notifier receives HID presence transitions.
	Notifier PresenceNotifier
}

// Bridge is the device session and transport layer. Devices are addressed by
// the stable path reported by Enumerate. Callers must serialize operations
// against the same path; overlapping calls on one path are undefined.
type Bridge struct {
	bus      usb.Bus
	registry *registry
	clock    clock.Clock
	notifier PresenceNotifier

	connectAttempts int
	backoffStep     time.Duration
	emptyReadLimit  int

	hidMu      sync.Mutex
	hidPresent bool
}

// New builds a Bridge over the given bus.
func New(bus usb.Bus, cfg Config) *Bridge {
	if cfg.ConnectAttempts <= 0 {
		cfg.ConnectAttempts = config.Int(EnvConnectAttempts, defaultConnectAttempts)
	}
	if cfg.BackoffStep <= 0 {
		cfg.BackoffStep = config.Duration(EnvConnectBackoff, defaultBackoffStep)
	}
	if cfg.EmptyReadLimit <= 0 {
		cfg.EmptyReadLimit = config.Int(EnvEmptyReadLimit, defaultEmptyReadLimit)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = logNotifier{}
	}
	return &Bridge{
		bus:             bus,
		registry:        newRegistry(),
		clock:           cfg.Clock,
		notifier:        cfg.Notifier,
		connectAttempts: cfg.ConnectAttempts,
		backoffStep:     cfg.BackoffStep,
		emptyReadLimit:  cfg.EmptyReadLimit,
	}
}

// RequestPermission triggers the host permission flow restricted to the
// supported vendor/product pairs. The granted handle is discarded; the device
// becomes addressable through the next Enumerate instead.
func (b *Bridge) RequestPermission(ctx context.Context) error {
	_, err := b.bus.RequestDevice(ctx, SupportedFilters())
	return errors.Wrap(err, "request device permission")
}

// sleep waits for d on the bridge clock, honoring ctx cancellation.
func (b *Bridge) sleep(ctx context.Context, d time.Duration) error {
	timer := b.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
