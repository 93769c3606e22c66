package link

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Connect opens the device behind path and claims its interface. first marks
// the initial claim since the device was last fully closed: it additionally
// selects the fixed configuration and attempts a device reset.
//
// The inner attempt is retried up to the configured attempt count, pacing
// retry n by (n-1)*BackoffStep. Only the final attempt's error survives.
func (b *Bridge) Connect(ctx context.Context, path string, first bool) error {
	rec, err := b.registry.resolve(path)
	if err != nil {
		return err
	}
	return b.connectDevice(ctx, rec, first)
}

func (b *Bridge) connectDevice(ctx context.Context, rec *record, first bool) error {
	var lastErr error
	for attempt := 1; attempt <= b.connectAttempts; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * b.backoffStep
			if err := b.sleep(ctx, delay); err != nil {
				return err
			}
		}
		lastErr = b.claimDevice(ctx, rec, first)
		if lastErr == nil {
			log.Debug().Str("path", rec.path).Int("attempt", attempt).Bool("first", first).
				Msg("hwwallet: device connected")
			return nil
		}
		log.Debug().Err(lastErr).Str("path", rec.path).Int("attempt", attempt).
			Msg("hwwallet: connect attempt failed")
	}
	return &ConnectError{Path: rec.path, Attempts: b.connectAttempts, Last: lastErr}
}

func (b *Bridge) claimDevice(ctx context.Context, rec *record, first bool) error {
	if err := rec.dev.Open(ctx); err != nil {
		return errors.Wrap(err, "open device")
	}
	if first {
		if err := rec.dev.SelectConfiguration(ctx, ConfigurationValue); err != nil {
			return errors.Wrapf(err, "select configuration %d", ConfigurationValue)
		}
		// Reset is not implemented on every platform. A failure here is
		// deliberately ignored; it must not abort the connect.
		if err := rec.dev.Reset(ctx); err != nil {
			log.Debug().Err(err).Str("path", rec.path).Msg("hwwallet: device reset unsupported")
		}
	}
	iface := interfaceFor(rec.debug)
	if err := rec.dev.ClaimInterface(ctx, iface); err != nil {
		return errors.Wrapf(err, "claim interface %d", iface)
	}
	return nil
}

// Disconnect releases the claimed interface for path and, when last, closes
// the device entirely. Release and close failures are surfaced, not
// swallowed.
func (b *Bridge) Disconnect(ctx context.Context, path string, last bool) error {
	rec, err := b.registry.resolve(path)
	if err != nil {
		return err
	}
	iface := interfaceFor(rec.debug)
	if err := rec.dev.ReleaseInterface(ctx, iface); err != nil {
		return errors.Wrapf(err, "release interface %d", iface)
	}
	if !last {
		return nil
	}
	if err := rec.dev.Close(ctx); err != nil {
		return errors.Wrap(err, "close device")
	}
	log.Debug().Str("path", rec.path).Msg("hwwallet: device closed")
	return nil
}

// interfaceFor and endpointFor are pure functions of the debug flag captured
// at enumeration time.
func interfaceFor(debug bool) int {
	if debug {
		return DebugInterface
	}
	return NormalInterface
}

func endpointFor(debug bool) int {
	if debug {
		return DebugEndpoint
	}
	return NormalEndpoint
}
