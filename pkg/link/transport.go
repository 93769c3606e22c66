package link

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sergeyboyko0791/hardware-wallet-api/pkg/usb"
)

// Send writes one outbound frame to the device behind path, reconnecting
// lazily if the device is not currently open. The payload must fit in a
// single frame; there is no chunking and no retry at this layer.
func (b *Bridge) Send(ctx context.Context, path string, data []byte) error {
	if len(data) > FrameSize {
		return errors.Errorf("payload of %d bytes exceeds the %d-byte frame", len(data), FrameSize)
	}
	rec, err := b.registry.resolve(path)
	if err != nil {
		return err
	}
	if err := b.ensureOpen(ctx, rec); err != nil {
		return err
	}
	return errors.Wrap(rec.dev.TransferOut(ctx, endpointFor(rec.debug), data), "transfer out")
}

// Receive reads one inbound frame from the device behind path, reconnecting
// lazily like Send. Zero-length reads are a transient wire condition and are
// retried up to the configured cap; a device that disappears mid-transfer
// surfaces as ErrInterrupted.
func (b *Bridge) Receive(ctx context.Context, path string) ([]byte, error) {
	rec, err := b.registry.resolve(path)
	if err != nil {
		return nil, err
	}
	if err := b.ensureOpen(ctx, rec); err != nil {
		return nil, err
	}
	endpoint := endpointFor(rec.debug)
	for attempt := 0; attempt < b.emptyReadLimit; attempt++ {
		data, err := rec.dev.TransferIn(ctx, endpoint, FrameSize)
		if err != nil {
			if errors.Is(err, usb.ErrDeviceUnavailable) {
				return nil, errors.Wrapf(ErrInterrupted, "read from %s: %v", rec.path, err)
			}
			return nil, err
		}
		if len(data) == 0 {
			continue
		}
		return data, nil
	}
	return nil, errors.Wrapf(ErrEmptyReadLimit, "read from %s", rec.path)
}

// ensureOpen performs the single implicit non-first connect callers rely on:
// explicit Connect is never required before Send/Receive.
func (b *Bridge) ensureOpen(ctx context.Context, rec *record) error {
	if rec.dev.Opened() {
		return nil
	}
	return b.connectDevice(ctx, rec, false)
}
