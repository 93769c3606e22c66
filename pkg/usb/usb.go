// Package usb defines the host capability surface the wallet link layer is
// built on: a descriptor model plus Bus/Device interfaces covering
// enumeration, permission prompts, interface claiming and bulk transfers.
// The gousb-backed implementation in this package talks to real hardware;
// tests substitute scripted fakes.
package usb

import (
	"context"

	"github.com/pkg/errors"
)

// ErrDeviceUnavailable reports that the device dropped off the bus (or was
// grabbed by another process) in the middle of an operation. Callers treat it
// as a transient condition distinct from a protocol failure.
var ErrDeviceUnavailable = errors.New("device unavailable")

// Direction of an endpoint, from the host's point of view.
type Direction string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"
)

// EndpointDescriptor describes one endpoint of an alternate setting.
type EndpointDescriptor struct {
	Number    int
	Direction Direction
}

// AlternateDescriptor is one alternate setting of an interface.
type AlternateDescriptor struct {
	Class     uint8
	Endpoints []EndpointDescriptor
}

// InterfaceDescriptor describes a single interface and its alternates.
type InterfaceDescriptor struct {
	Number     int
	Alternates []AlternateDescriptor
}

// ConfigDescriptor describes one configuration of a device.
type ConfigDescriptor struct {
	Value      int
	Interfaces []InterfaceDescriptor
}

// Descriptor is the read-only identity and topology of a device as reported
// by the host. The link layer never mutates it.
type Descriptor struct {
	VendorID       uint16
	ProductID      uint16
	SerialNumber   string
	Configurations []ConfigDescriptor
}

// Filter selects devices by vendor/product pair for permission prompts.
type Filter struct {
	VendorID  uint16
	ProductID uint16
}

// Matches reports whether the descriptor carries the filter's identity.
func (f Filter) Matches(desc Descriptor) bool {
	return desc.VendorID == f.VendorID && desc.ProductID == f.ProductID
}

// Device is a single device the host has granted access to. All blocking
// calls take a context; implementations must honor cancellation where the
// underlying stack allows it.
type Device interface {
	// Descriptor returns the identity captured at enumeration time.
	Descriptor() Descriptor
	// Opened reports whether the device currently holds an open host handle.
	Opened() bool

	Open(ctx context.Context) error
	SelectConfiguration(ctx context.Context, value int) error
	// Reset requests a device reset. Not every platform implements this;
	// callers decide whether a failure matters.
	Reset(ctx context.Context) error
	ClaimInterface(ctx context.Context, number int) error
	ReleaseInterface(ctx context.Context, number int) error
	Close(ctx context.Context) error

	// TransferOut writes data to the OUT endpoint with the given number.
	TransferOut(ctx context.Context, endpoint int, data []byte) error
	// TransferIn reads up to length bytes from the IN endpoint with the
	// given number. A zero-length result is a valid outcome, not an error.
	TransferIn(ctx context.Context, endpoint int, length int) ([]byte, error)
}

// Bus enumerates devices the host has already granted access to and can
// prompt for access to new ones.
type Bus interface {
	// Devices lists permitted devices without prompting the user.
	Devices(ctx context.Context) ([]Device, error)
	// RequestDevice triggers the host permission flow restricted to the
	// given filters and returns the granted device, if any.
	RequestDevice(ctx context.Context, filters []Filter) (Device, error)
}
