// Package wire implements the 1905.1 TLV and CMDU binary codec: the wire
// format described in IEEE Std 1905.1-2013 Section 6, plus the fragmentation
// and reassembly discipline layered on top of it.
package wire

import "fmt"

// MAC is a 48-bit hardware address, used for AL MAC addresses and interface
// MAC addresses alike.
type MAC [6]byte

func (m MAC) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// IsZero reports whether m is the all-zeroes address, used as a sentinel for
// "AL MAC not yet known".
func (m MAC) IsZero() bool {
	return m == MAC{}
}

// Multicast addresses used on the 1905 wire, per IEEE Std 1905.1-2013 and
// IEEE Std 802.1AB (LLDP).
var (
	Multicast1905     = MAC{0x01, 0x80, 0xC2, 0x00, 0x00, 0x13}
	MulticastLLDPNearestBridge = MAC{0x01, 0x80, 0xC2, 0x00, 0x00, 0x0E}
)

// EtherType values carried by the two protocols the core cares about.
const (
	EtherType1905 uint16 = 0x893A
	EtherTypeLLDP uint16 = 0x88CC
)

// MessageVersion is the single profile byte this implementation speaks.
const MessageVersion1905_1_2013 uint8 = 0x00

// CMDU message types, IEEE Std 1905.1-2013 Table 6-4 (extended by Multi-AP
// CMDU types which reuse the AP_AUTOCONFIGURATION_WSC machinery and add no
// new CMDU type of their own at this layer).
const (
	CMDUTypeTopologyDiscovery           uint16 = 0x0000
	CMDUTypeTopologyNotification        uint16 = 0x0001
	CMDUTypeTopologyQuery                uint16 = 0x0002
	CMDUTypeTopologyResponse             uint16 = 0x0003
	CMDUTypeVendorSpecific               uint16 = 0x0004
	CMDUTypeLinkMetricQuery              uint16 = 0x0005
	CMDUTypeLinkMetricResponse           uint16 = 0x0006
	CMDUTypeAPAutoconfigSearch           uint16 = 0x0007
	CMDUTypeAPAutoconfigResponse         uint16 = 0x0008
	CMDUTypeAPAutoconfigWSC              uint16 = 0x0009
	CMDUTypeAPAutoconfigRenew            uint16 = 0x000A
	CMDUTypePushButtonEventNotification  uint16 = 0x000B
	CMDUTypePushButtonJoinNotification   uint16 = 0x000C
	CMDUTypeHigherLayerQuery             uint16 = 0x000D
	CMDUTypeHigherLayerResponse          uint16 = 0x000E
	CMDUTypeInterfacePowerChangeRequest  uint16 = 0x000F
	CMDUTypeInterfacePowerChangeResponse uint16 = 0x0010
	CMDUTypeGenericPhyQuery              uint16 = 0x0011
	CMDUTypeGenericPhyResponse           uint16 = 0x0012
)

var cmduTypeNames = map[uint16]string{
	CMDUTypeTopologyDiscovery:           "TOPOLOGY_DISCOVERY",
	CMDUTypeTopologyNotification:        "TOPOLOGY_NOTIFICATION",
	CMDUTypeTopologyQuery:                "TOPOLOGY_QUERY",
	CMDUTypeTopologyResponse:             "TOPOLOGY_RESPONSE",
	CMDUTypeVendorSpecific:               "VENDOR_SPECIFIC",
	CMDUTypeLinkMetricQuery:              "LINK_METRIC_QUERY",
	CMDUTypeLinkMetricResponse:           "LINK_METRIC_RESPONSE",
	CMDUTypeAPAutoconfigSearch:           "AP_AUTOCONFIG_SEARCH",
	CMDUTypeAPAutoconfigResponse:         "AP_AUTOCONFIG_RESPONSE",
	CMDUTypeAPAutoconfigWSC:              "AP_AUTOCONFIG_WSC",
	CMDUTypeAPAutoconfigRenew:            "AP_AUTOCONFIG_RENEW",
	CMDUTypePushButtonEventNotification:  "PUSH_BUTTON_EVENT_NOTIFICATION",
	CMDUTypePushButtonJoinNotification:   "PUSH_BUTTON_JOIN_NOTIFICATION",
	CMDUTypeHigherLayerQuery:             "HIGHER_LAYER_QUERY",
	CMDUTypeHigherLayerResponse:          "HIGHER_LAYER_RESPONSE",
	CMDUTypeInterfacePowerChangeRequest:  "INTERFACE_POWER_CHANGE_REQUEST",
	CMDUTypeInterfacePowerChangeResponse: "INTERFACE_POWER_CHANGE_RESPONSE",
	CMDUTypeGenericPhyQuery:              "GENERIC_PHY_QUERY",
	CMDUTypeGenericPhyResponse:           "GENERIC_PHY_RESPONSE",
}

// CMDUTypeName turns a CMDU_TYPE_* value into its string representation,
// or "UNKNOWN" if it isn't one of the known types.
func CMDUTypeName(t uint16) string {
	if n, ok := cmduTypeNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// TLV types, IEEE Std 1905.1-2013 Table 6-7 plus the Multi-AP extensions
// this implementation understands.
const (
	TLVTypeEndOfMessage              uint8 = 0x00
	TLVTypeALMACAddress               uint8 = 0x01
	TLVTypeMACAddress                 uint8 = 0x02
	TLVTypeDeviceInformation          uint8 = 0x03
	TLVTypeDeviceBridgingCapability   uint8 = 0x04
	TLVTypeNon1905NeighborDeviceList  uint8 = 0x06
	TLVTypeNeighborDeviceList         uint8 = 0x07
	TLVTypeLinkMetricQuery            uint8 = 0x08
	TLVTypeTransmitterLinkMetric      uint8 = 0x09
	TLVTypeReceiverLinkMetric         uint8 = 0x0A
	TLVTypeVendorSpecific             uint8 = 0x0B
	TLVTypeLinkMetricResultCode       uint8 = 0x0C
	TLVTypeSearchedRole               uint8 = 0x0D
	TLVTypeAutoconfigFreqBand         uint8 = 0x0E
	TLVTypeSupportedRole              uint8 = 0x0F
	TLVTypeSupportedFreqBand          uint8 = 0x10
	TLVTypeWSC                        uint8 = 0x11
	TLVTypePushButtonEventNotification uint8 = 0x12
	TLVTypePushButtonJoinNotification uint8 = 0x13
	TLVTypeGenericPhyDeviceInfo       uint8 = 0x14
	TLVTypeDeviceIdentification       uint8 = 0x15
	TLVTypeControlURL                 uint8 = 0x16
	TLVTypeIPv4                       uint8 = 0x17
	TLVTypeIPv6                       uint8 = 0x18
	TLVTypePushButtonGenericPhyEvent  uint8 = 0x19
	TLVTypeProfileVersion             uint8 = 0x1A
	TLVTypePowerOffInterface          uint8 = 0x1B
	TLVTypeInterfacePowerChangeInfo   uint8 = 0x1C
	TLVTypeInterfacePowerChangeStatus uint8 = 0x1D
	TLVTypeL2NeighborDevice           uint8 = 0x1E
	TLVTypeSupportedService           uint8 = 0x80
	TLVTypeSearchedService            uint8 = 0x81
	TLVTypeAPRadioIdentifier          uint8 = 0x82
	TLVTypeAPOperationalBSS           uint8 = 0x83
	TLVTypeAssociatedClients          uint8 = 0x84
	TLVTypeAPRadioBasicCapabilities   uint8 = 0x87
)

// Media types for local interfaces, IEEE Std 1905.1-2013 Table 6-12.
const (
	MediaTypeIEEE802_3u_FastEthernet   uint16 = 0x0000
	MediaTypeIEEE802_3ab_GigabitEthernet uint16 = 0x0001
	MediaTypeIEEE802_11b_2_4GHz       uint16 = 0x0100
	MediaTypeIEEE802_11g_2_4GHz       uint16 = 0x0101
	MediaTypeIEEE802_11a_5GHz         uint16 = 0x0102
	MediaTypeIEEE802_11n_2_4GHz       uint16 = 0x0103
	MediaTypeIEEE802_11n_5GHz         uint16 = 0x0104
	MediaTypeIEEE802_11ac_5GHz        uint16 = 0x0105
	MediaTypeIEEE802_11ad_60GHz       uint16 = 0x0106
	MediaTypeIEEE802_11af_GHz         uint16 = 0x0107
	MediaTypeIEEE1901_WaveletHT       uint16 = 0x0200
	MediaTypeIEEE1901_FFT             uint16 = 0x0201
	MediaTypeMoCAv1_1                uint16 = 0x0300
	MediaTypeUnknown                  uint16 = 0xFFFF
)

// IPv4/IPv6 address origin types.
const (
	IPAddrTypeUnknown uint8 = 0
	IPAddrTypeDHCP    uint8 = 1
	IPAddrTypeStatic  uint8 = 2
	IPAddrTypeAutoIP  uint8 = 3 // SLAAC for IPv6
)

// Supported/searched service, IEEE 1905.1a Multi-AP extension.
const (
	ServiceMultiAPController uint8 = 0x00
	ServiceMultiAPAgent      uint8 = 0x01
)

// RF band byte used in autoconfig-frequency-band / supported-frequency-band
// TLVs and in WSC M1's RF Bands attribute.
const (
	FreqBand2_4GHz uint8 = 0x00
	FreqBand5GHz   uint8 = 0x01
	FreqBand60GHz  uint8 = 0x02
)

// RoleRegistrar is the only role value IEEE 1905.1a defines for the
// searched-role/supported-role TLVs.
const RoleRegistrar uint8 = 0x00

// Power states for a local interface.
const (
	PowerStateOn   uint8 = 0x00
	PowerStateSave uint8 = 0x01
	PowerStateOff  uint8 = 0x02
)

// Power change request/response result codes.
const (
	PowerStateResultCompleted        uint8 = 0x00
	PowerStateResultNoChange         uint8 = 0x01
	PowerStateResultAlternativeChange uint8 = 0x02
)

// Link metric query scope ("all neighbors" vs. a specific one) and the
// metrics-requested selector, IEEE Std 1905.1-2013 Table 6-19/6-20.
const (
	LinkMetricNeighborAll      uint8 = 0x00
	LinkMetricNeighborSpecific uint8 = 0x01

	LinkMetricTypeTxOnly uint8 = 0x00
	LinkMetricTypeRxOnly uint8 = 0x01
	LinkMetricTypeBoth   uint8 = 0x02
)

// MaxNetworkSegmentSize bounds the per-fragment CMDU payload: 1500 (Ethernet
// MTU) minus the 14-byte Ethernet header already stripped by the caller,
// minus the 8-byte (minimum) CMDU header that prefixes every fragment.
const MaxNetworkSegmentSize = 1500 - 14 - cmduHeaderSize

const cmduHeaderSize = 8
