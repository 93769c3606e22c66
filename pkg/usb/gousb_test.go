package usb

import (
	"testing"

	"github.com/google/gousb"
	"github.com/stretchr/testify/require"
)

func TestDescriptorFromDescOrdersConfigsAndEndpoints(t *testing.T) {
	dd := &gousb.DeviceDesc{
		Vendor:  gousb.ID(0x1209),
		Product: gousb.ID(0x53c1),
		Configs: map[int]gousb.ConfigDesc{
			2: {Number: 2},
			1: {
				Number: 1,
				Interfaces: []gousb.InterfaceDesc{
					{
						Number: 0,
						AltSettings: []gousb.InterfaceSetting{
							{
								Number: 0,
								Class:  gousb.ClassVendorSpec,
								Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
									0x81: {Number: 1, Direction: gousb.EndpointDirectionIn},
									0x01: {Number: 1, Direction: gousb.EndpointDirectionOut},
								},
							},
						},
					},
					{
						Number: 1,
						AltSettings: []gousb.InterfaceSetting{
							{
								Number: 0,
								Class:  gousb.ClassVendorSpec,
								Endpoints: map[gousb.EndpointAddress]gousb.EndpointDesc{
									0x82: {Number: 2, Direction: gousb.EndpointDirectionIn},
								},
							},
						},
					},
				},
			},
		},
	}

	desc := descriptorFromDesc(dd, "serial-1")

	require.Equal(t, uint16(0x1209), desc.VendorID)
	require.Equal(t, uint16(0x53c1), desc.ProductID)
	require.Equal(t, "serial-1", desc.SerialNumber)
	require.Len(t, desc.Configurations, 2)
	require.Equal(t, 1, desc.Configurations[0].Value)
	require.Equal(t, 2, desc.Configurations[1].Value)

	ifaces := desc.Configurations[0].Interfaces
	require.Len(t, ifaces, 2)
	require.Equal(t, uint8(0xff), ifaces[1].Alternates[0].Class)
	require.Equal(t, 2, ifaces[1].Alternates[0].Endpoints[0].Number)
	require.Equal(t, DirectionIn, ifaces[1].Alternates[0].Endpoints[0].Direction)
}

func TestFilterMatches(t *testing.T) {
	f := Filter{VendorID: 0x534c, ProductID: 0x0001}
	require.True(t, f.Matches(Descriptor{VendorID: 0x534c, ProductID: 0x0001}))
	require.False(t, f.Matches(Descriptor{VendorID: 0x534c, ProductID: 0x0002}))
	require.False(t, f.Matches(Descriptor{VendorID: 0x1209, ProductID: 0x0001}))
}
