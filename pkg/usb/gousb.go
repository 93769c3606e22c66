package usb

import (
	"context"
	"sort"
	"sync"

	"github.com/google/gousb"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// GousbBus implements Bus on top of libusb via gousb. There is no OS-level
// permission broker on desktop platforms, so every matching device counts as
// permitted and RequestDevice degrades to a filtered scan.
type GousbBus struct {
	ctx     *gousb.Context
	filters []Filter
}

// NewGousbBus opens a libusb context restricted to the given filters. An
// empty filter set matches every device on the bus.
func NewGousbBus(filters []Filter) *GousbBus {
	return &GousbBus{ctx: gousb.NewContext(), filters: filters}
}

// Devices opens every matching device and wraps it behind the Device
// interface. Handles stay with the returned devices; callers close them
// through Device.Close.
func (b *GousbBus) Devices(ctx context.Context) ([]Device, error) {
	raw, err := b.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return b.matches(desc)
	})
	if err != nil {
		// OpenDevices returns the devices it did open alongside the error;
		// close them so a partially failed scan does not leak handles.
		for _, dev := range raw {
			_ = dev.Close()
		}
		return nil, errors.Wrap(err, "open matching usb devices")
	}
	devices := make([]Device, 0, len(raw))
	for _, dev := range raw {
		devices = append(devices, newGousbDevice(dev))
	}
	return devices, nil
}

// RequestDevice performs a filtered scan and returns the first match.
func (b *GousbBus) RequestDevice(ctx context.Context, filters []Filter) (Device, error) {
	scan := &GousbBus{ctx: b.ctx, filters: filters}
	devices, err := scan.Devices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, errors.New("no matching device present")
	}
	for _, extra := range devices[1:] {
		_ = extra.Close(ctx)
	}
	return devices[0], nil
}

// Close releases the underlying libusb context.
func (b *GousbBus) Close() error {
	return b.ctx.Close()
}

func (b *GousbBus) matches(desc *gousb.DeviceDesc) bool {
	if len(b.filters) == 0 {
		return true
	}
	for _, f := range b.filters {
		if uint16(desc.Vendor) == f.VendorID && uint16(desc.Product) == f.ProductID {
			return true
		}
	}
	return false
}

type gousbDevice struct {
	dev  *gousb.Device
	desc Descriptor

	mu     sync.Mutex
	opened bool
	cfg    *gousb.Config
	iface  *gousb.Interface
}

func newGousbDevice(dev *gousb.Device) *gousbDevice {
	serial, err := dev.SerialNumber()
	if err != nil {
		// Bootloader-mode devices legitimately carry no serial string.
		log.Debug().Err(err).Msg("usb: device serial unavailable")
		serial = ""
	}
	return &gousbDevice{dev: dev, desc: descriptorFromDesc(dev.Desc, serial)}
}

func (d *gousbDevice) Descriptor() Descriptor { return d.desc }

func (d *gousbDevice) Opened() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opened
}

// Open marks the session open. gousb hands out live handles at enumeration
// time, so the only work left is detaching any kernel driver that currently
// owns the interfaces.
func (d *gousbDevice) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.opened {
		return nil
	}
	if err := d.dev.SetAutoDetach(true); err != nil {
		log.Debug().Err(err).Msg("usb: auto-detach not supported")
	}
	d.opened = true
	return nil
}

func (d *gousbDevice) SelectConfiguration(ctx context.Context, value int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	cfg, err := d.dev.Config(value)
	if err != nil {
		return mapGousbError(errors.Wrapf(err, "select configuration %d", value))
	}
	if d.cfg != nil {
		_ = d.cfg.Close()
	}
	d.cfg = cfg
	return nil
}

func (d *gousbDevice) Reset(ctx context.Context) error {
	return mapGousbError(d.dev.Reset())
}

func (d *gousbDevice) ClaimInterface(ctx context.Context, number int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cfg == nil {
		value, err := d.dev.ActiveConfigNum()
		if err != nil {
			return mapGousbError(errors.Wrap(err, "query active configuration"))
		}
		cfg, err := d.dev.Config(value)
		if err != nil {
			return mapGousbError(errors.Wrapf(err, "open active configuration %d", value))
		}
		d.cfg = cfg
	}
	iface, err := d.cfg.Interface(number, 0)
	if err != nil {
		return mapGousbError(errors.Wrapf(err, "claim interface %d", number))
	}
	d.iface = iface
	return nil
}

func (d *gousbDevice) ReleaseInterface(ctx context.Context, number int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.iface == nil {
		return errors.Errorf("interface %d is not claimed", number)
	}
	d.iface.Close()
	d.iface = nil
	return nil
}

func (d *gousbDevice) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.iface != nil {
		d.iface.Close()
		d.iface = nil
	}
	if d.cfg != nil {
		if err := d.cfg.Close(); err != nil {
			log.Debug().Err(err).Msg("usb: close configuration failed")
		}
		d.cfg = nil
	}
	d.opened = false
	return mapGousbError(d.dev.Close())
}

func (d *gousbDevice) TransferOut(ctx context.Context, endpoint int, data []byte) error {
	iface, err := d.claimedInterface()
	if err != nil {
		return err
	}
	ep, err := iface.OutEndpoint(endpoint)
	if err != nil {
		return mapGousbError(errors.Wrapf(err, "resolve out endpoint %d", endpoint))
	}
	_, err = ep.WriteContext(ctx, data)
	return mapGousbError(err)
}

func (d *gousbDevice) TransferIn(ctx context.Context, endpoint int, length int) ([]byte, error) {
	iface, err := d.claimedInterface()
	if err != nil {
		return nil, err
	}
	ep, err := iface.InEndpoint(endpoint)
	if err != nil {
		return nil, mapGousbError(errors.Wrapf(err, "resolve in endpoint %d", endpoint))
	}
	buf := make([]byte, length)
	n, err := ep.ReadContext(ctx, buf)
	if err != nil {
		return nil, mapGousbError(err)
	}
	return buf[:n], nil
}

func (d *gousbDevice) claimedInterface() (*gousb.Interface, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.iface == nil {
		return nil, errors.New("no interface claimed")
	}
	return d.iface, nil
}

func mapGousbError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gousb.ErrorNoDevice) {
		return errors.Wrap(ErrDeviceUnavailable, err.Error())
	}
	return err
}

// descriptorFromDesc flattens gousb's map-based descriptor tree into the
// ordered Descriptor model.
func descriptorFromDesc(dd *gousb.DeviceDesc, serial string) Descriptor {
	desc := Descriptor{
		VendorID:     uint16(dd.Vendor),
		ProductID:    uint16(dd.Product),
		SerialNumber: serial,
	}
	cfgNums := make([]int, 0, len(dd.Configs))
	for num := range dd.Configs {
		cfgNums = append(cfgNums, num)
	}
	sort.Ints(cfgNums)
	for _, num := range cfgNums {
		cd := dd.Configs[num]
		cfg := ConfigDescriptor{Value: cd.Number}
		for _, id := range cd.Interfaces {
			iface := InterfaceDescriptor{Number: id.Number}
			for _, alt := range id.AltSettings {
				iface.Alternates = append(iface.Alternates, alternateFromSetting(alt))
			}
			cfg.Interfaces = append(cfg.Interfaces, iface)
		}
		desc.Configurations = append(desc.Configurations, cfg)
	}
	return desc
}

func alternateFromSetting(alt gousb.InterfaceSetting) AlternateDescriptor {
	out := AlternateDescriptor{Class: uint8(alt.Class)}
	eps := make([]gousb.EndpointDesc, 0, len(alt.Endpoints))
	for _, ep := range alt.Endpoints {
		eps = append(eps, ep)
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Number < eps[j].Number })
	for _, ep := range eps {
		dir := DirectionOut
		if ep.Direction == gousb.EndpointDirectionIn {
			dir = DirectionIn
		}
		out.Endpoints = append(out.Endpoints, EndpointDescriptor{Number: ep.Number, Direction: dir})
	}
	return out
}
