package link

import (
	"github.com/sergeyboyko0791/hardware-wallet-api/pkg/usb"
)

// Known device identities (vendor, product).
const (
	legacyHidVendorID  uint16 = 0x534c
	legacyHidProductID uint16 = 0x0001

	webUSBVendorID      uint16 = 0x1209
	bootloaderProductID uint16 = 0x53c0
	firmwareProductID   uint16 = 0x53c1
)

// Fixed topology shared by every supported WebUSB-class device. Indices are
// compile-time configuration; they are never re-derived from live device
// state.
const (
	// ConfigurationValue is the configuration selected on first claim.
	ConfigurationValue = 1
	// NormalInterface and NormalEndpoint carry regular traffic.
	NormalInterface = 0
	NormalEndpoint  = 1
	// DebugInterface and DebugEndpoint carry the optional debug link.
	DebugInterface = 1
	DebugEndpoint  = 2
	// FrameSize is the fixed transfer unit of the wire protocol.
	FrameSize = 64
)

const (
	bootloaderPathPrefix = "bootloader"
	debugInterfaceClass  = 0xff
)

// SupportedFilters returns the three known vendor/product pairs, suitable for
// permission prompts.
func SupportedFilters() []usb.Filter {
	return []usb.Filter{
		{VendorID: legacyHidVendorID, ProductID: legacyHidProductID},
		{VendorID: webUSBVendorID, ProductID: bootloaderProductID},
		{VendorID: webUSBVendorID, ProductID: firmwareProductID},
	}
}

// IsSupported reports whether the descriptor carries one of the known
// vendor/product pairs. Unknown pairs are simply excluded.
func IsSupported(desc usb.Descriptor) bool {
	for _, f := range SupportedFilters() {
		if f.Matches(desc) {
			return true
		}
	}
	return false
}

// IsLegacyHID reports whether the device is the HID-class variant. Those
// cannot be driven over this layer and need a different driver, so they are
// tracked for presence only.
func IsLegacyHID(desc usb.Descriptor) bool {
	return desc.VendorID == legacyHidVendorID
}

// HasDebugLink inspects the first alternate of the interface at the fixed
// debug index: vendor-specific class and a first endpoint matching the debug
// endpoint number. Structural absence of any of these means "no debug link";
// a legitimately non-debug device must never produce an error here.
func HasDebugLink(desc usb.Descriptor) bool {
	if len(desc.Configurations) == 0 {
		return false
	}
	ifaces := desc.Configurations[0].Interfaces
	if DebugInterface >= len(ifaces) {
		return false
	}
	alts := ifaces[DebugInterface].Alternates
	if len(alts) == 0 {
		return false
	}
	alt := alts[0]
	if alt.Class != debugInterfaceClass || len(alt.Endpoints) == 0 {
		return false
	}
	return alt.Endpoints[0].Number == DebugEndpoint
}
