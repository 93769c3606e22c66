package link

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/sergeyboyko0791/hardware-wallet-api/pkg/usb"
)

// Enumerate performs a full scan: it asks the bus for the devices the host
// has already permitted, classifies them, rebuilds the registry from scratch
// and returns the {path, debug} projection in discovery order.
//
// Legacy-HID devices are counted for the presence flag but never enter the
// registry, so they can never be addressed by path.
func (b *Bridge) Enumerate(ctx context.Context) ([]DeviceInfo, error) {
	devices, err := b.bus.Devices(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list permitted devices")
	}

	var hid, candidates, stale []usb.Device
	for _, dev := range devices {
		desc := dev.Descriptor()
		if !IsSupported(desc) {
			stale = append(stale, dev)
			continue
		}
		if IsLegacyHID(desc) {
			hid = append(hid, dev)
			continue
		}
		candidates = append(candidates, dev)
	}
	b.updateHidPresence(len(hid) > 0)

	records := make([]*record, 0, len(candidates))
	bootloaders := 0
	for _, dev := range candidates {
		desc := dev.Descriptor()
		path := desc.SerialNumber
		if path == "" {
			// Unserialized bootloader-mode devices get a synthetic,
			// scan-local path: bootloader1, bootloader2, ...
			bootloaders++
			path = fmt.Sprintf("%s%d", bootloaderPathPrefix, bootloaders)
		}
		records = append(records, &record{
			path:  path,
			debug: HasDebugLink(desc),
			dev:   dev,
		})
	}
	snap, displaced := b.registry.replace(records)

	// HID devices are tracked for presence only and never enter the
	// registry, so their handles are released right away — as are handles
	// this scan superseded. The platform opens a fresh handle per scan;
	// dropping the old ones silently would leak them and leave their
	// claimed interfaces busy.
	stale = append(stale, hid...)
	for _, rec := range displaced {
		stale = append(stale, rec.dev)
	}
	b.closeStale(ctx, stale)

	infos := make([]DeviceInfo, 0, len(snap.records))
	for _, rec := range snap.records {
		infos = append(infos, DeviceInfo{Path: rec.path, Debug: rec.debug})
	}
	log.Debug().Int("devices", len(infos)).Int("hid", len(hid)).
		Uint64("registry_version", snap.version).Msg("hwwallet: enumeration finished")
	return infos, nil
}

func (b *Bridge) closeStale(ctx context.Context, devices []usb.Device) {
	for _, dev := range devices {
		if err := dev.Close(ctx); err != nil {
			log.Debug().Err(err).Msg("hwwallet: close stale device handle failed")
		}
	}
}

// updateHidPresence records whether any legacy-HID device is present and, on
// a transition, notifies the collaborator asynchronously. A broken notifier
// can never fail or delay the scan.
func (b *Bridge) updateHidPresence(present bool) {
	b.hidMu.Lock()
	changed := b.hidPresent != present
	b.hidPresent = present
	b.hidMu.Unlock()
	if !changed {
		return
	}
	notifier := b.notifier
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Msg("hwwallet: presence notifier panicked")
			}
		}()
		notifier.HidPresenceChanged(present)
	}()
}

// Watch re-enumerates on the given interval and emits the device list every
// time its projection changes, starting with the current state. The channel
// closes when ctx is done. Enumeration failures are logged and the previous
// state is kept.
func (b *Bridge) Watch(ctx context.Context, interval time.Duration) <-chan []DeviceInfo {
	ch := make(chan []DeviceInfo, 1)
	go func() {
		defer close(ch)
		ticker := b.clock.Ticker(interval)
		defer ticker.Stop()
		var last []DeviceInfo
		first := true
		for {
			infos, err := b.Enumerate(ctx)
			switch {
			case err != nil:
				log.Warn().Err(err).Msg("hwwallet: enumerate during watch failed")
			case first || !sameDevices(last, infos):
				last = infos
				first = false
				select {
				case ch <- infos:
				case <-ctx.Done():
					return
				}
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch
}

func sameDevices(a, b []DeviceInfo) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
