package link

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/sergeyboyko0791/hardware-wallet-api/pkg/usb"
)

type readResult struct {
	data []byte
	err  error
}

// fakeDevice is a scripted usb.Device. Zero value behaves as a healthy
// closed device.
type fakeDevice struct {
	desc usb.Descriptor

	mu              sync.Mutex
	opened          bool
	openCalls       int
	openErrs        []error
	selectedConfigs []int
	selectErr       error
	resetCalls      int
	resetErr        error
	claimed         []int
	claimErr        error
	released        []int
	releaseErr      error
	closeCalls      int
	closeErr        error
	writes          [][]byte
	writeEndpoints  []int
	writeErr        error
	reads           []readResult
	readCalls       int
	readEndpoints   []int
}

func (d *fakeDevice) Descriptor() usb.Descriptor { return d.desc }

func (d *fakeDevice) Opened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

func (d *fakeDevice) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.openCalls++
	if len(d.openErrs) > 0 {
		err := d.openErrs[0]
		d.openErrs = d.openErrs[1:]
		if err != nil {
			return err
		}
	}
	d.opened = true
	return nil
}

func (d *fakeDevice) SelectConfiguration(ctx context.Context, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.selectedConfigs = append(d.selectedConfigs, value)
	return d.selectErr
}

func (d *fakeDevice) Reset(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetCalls++
	return d.resetErr
}

func (d *fakeDevice) ClaimInterface(ctx context.Context, number int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.claimErr != nil {
		return d.claimErr
	}
	d.claimed = append(d.claimed, number)
	return nil
}

func (d *fakeDevice) ReleaseInterface(ctx context.Context, number int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.releaseErr != nil {
		return d.releaseErr
	}
	d.released = append(d.released, number)
	return nil
}

func (d *fakeDevice) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closeCalls++
	if d.closeErr != nil {
		return d.closeErr
	}
	d.opened = false
	return nil
}

func (d *fakeDevice) TransferOut(ctx context.Context, endpoint int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.writeErr != nil {
		return d.writeErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	d.writes = append(d.writes, buf)
	d.writeEndpoints = append(d.writeEndpoints, endpoint)
	return nil
}

func (d *fakeDevice) TransferIn(ctx context.Context, endpoint int, length int) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readEndpoints = append(d.readEndpoints, endpoint)
	if d.readCalls < len(d.reads) {
		res := d.reads[d.readCalls]
		d.readCalls++
		return res.data, res.err
	}
	d.readCalls++
	return make([]byte, length), nil
}

type fakeBus struct {
	mu         sync.Mutex
	devices    []usb.Device
	err        error
	requested  [][]usb.Filter
	requestErr error
}

func (b *fakeBus) Devices(ctx context.Context) ([]usb.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, b.err
	}
	out := make([]usb.Device, len(b.devices))
	copy(out, b.devices)
	return out, nil
}

func (b *fakeBus) RequestDevice(ctx context.Context, filters []usb.Filter) (usb.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.requested = append(b.requested, filters)
	if b.requestErr != nil {
		return nil, b.requestErr
	}
	if len(b.devices) > 0 {
		return b.devices[0], nil
	}
	return nil, nil
}

func (b *fakeBus) setDevices(devices ...usb.Device) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = devices
}

// recordingClock captures every Timer delay requested through it.
type recordingClock struct {
	*clock.Mock
	mu     sync.Mutex
	delays []time.Duration
}

func (c *recordingClock) Timer(d time.Duration) *clock.Timer {
	c.mu.Lock()
	c.delays = append(c.delays, d)
	c.mu.Unlock()
	return c.Mock.Timer(d)
}

func (c *recordingClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.delays))
	copy(out, c.delays)
	return out
}

// advanceUntil keeps moving the mock clock forward until done closes.
func advanceUntil(t *testing.T, mock *clock.Mock, done <-chan struct{}) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("timed out advancing mock clock")
		default:
			time.Sleep(time.Millisecond)
			mock.Add(100 * time.Millisecond)
		}
	}
}

func webusbDescriptor(serial string, debug bool) usb.Descriptor {
	ifaces := []usb.InterfaceDescriptor{
		{
			Number: 0,
			Alternates: []usb.AlternateDescriptor{{
				Class: 0xff,
				Endpoints: []usb.EndpointDescriptor{
					{Number: 1, Direction: usb.DirectionIn},
					{Number: 1, Direction: usb.DirectionOut},
				},
			}},
		},
	}
	if debug {
		ifaces = append(ifaces, usb.InterfaceDescriptor{
			Number: 1,
			Alternates: []usb.AlternateDescriptor{{
				Class: 0xff,
				Endpoints: []usb.EndpointDescriptor{
					{Number: 2, Direction: usb.DirectionIn},
					{Number: 2, Direction: usb.DirectionOut},
				},
			}},
		})
	}
	return usb.Descriptor{
		VendorID:     0x1209,
		ProductID:    0x53c1,
		SerialNumber: serial,
		Configurations: []usb.ConfigDescriptor{
			{Value: 1, Interfaces: ifaces},
		},
	}
}

func bootloaderDescriptor() usb.Descriptor {
	desc := webusbDescriptor("", false)
	desc.ProductID = 0x53c0
	return desc
}

func hidDescriptor(serial string) usb.Descriptor {
	return usb.Descriptor{VendorID: 0x534c, ProductID: 0x0001, SerialNumber: serial}
}
