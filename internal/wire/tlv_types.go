package wire

import (
	"encoding/binary"
	"fmt"
)

// ALMACAddressTLV carries the AL MAC address of the sender, TLV_TYPE_AL_MAC_ADDRESS_TYPE.
type ALMACAddressTLV struct {
	ALMAC MAC
}

func (t *ALMACAddressTLV) Type() uint8 { return TLVTypeALMACAddress }
func (t *ALMACAddressTLV) Marshal() []byte {
	buf := make([]byte, 6)
	putMAC(buf, t.ALMAC)
	return buf
}
func decodeALMACAddress(v []byte) (*ALMACAddressTLV, error) {
	m, err := getMAC(v)
	if err != nil {
		return nil, err
	}
	return &ALMACAddressTLV{ALMAC: m}, nil
}

// MACAddressTLV carries the MAC address of the interface a CMDU was sent on,
// TLV_TYPE_MAC_ADDRESS_TYPE.
type MACAddressTLV struct {
	MAC MAC
}

func (t *MACAddressTLV) Type() uint8 { return TLVTypeMACAddress }
func (t *MACAddressTLV) Marshal() []byte {
	buf := make([]byte, 6)
	putMAC(buf, t.MAC)
	return buf
}
func decodeMACAddress(v []byte) (*MACAddressTLV, error) {
	m, err := getMAC(v)
	if err != nil {
		return nil, err
	}
	return &MACAddressTLV{MAC: m}, nil
}

// LocalInterfaceEntry is one interface entry inside a DeviceInformationTLV.
type LocalInterfaceEntry struct {
	MAC               MAC
	MediaType         uint16
	MediaSpecificData []byte // shape depends on MediaType, see datamodel package
}

// DeviceInformationTLV describes the sending AL node and its local
// interfaces, TLV_TYPE_DEVICE_INFORMATION_TYPE.
type DeviceInformationTLV struct {
	ALMAC      MAC
	Interfaces []LocalInterfaceEntry
}

func (t *DeviceInformationTLV) Type() uint8 { return TLVTypeDeviceInformation }
func (t *DeviceInformationTLV) Marshal() []byte {
	buf := make([]byte, 6+1)
	putMAC(buf, t.ALMAC)
	buf[6] = uint8(len(t.Interfaces))
	for _, ifc := range t.Interfaces {
		entry := make([]byte, 6+2+1)
		putMAC(entry, ifc.MAC)
		binary.BigEndian.PutUint16(entry[6:8], ifc.MediaType)
		entry[8] = uint8(len(ifc.MediaSpecificData))
		entry = append(entry, ifc.MediaSpecificData...)
		buf = append(buf, entry...)
	}
	return buf
}
func decodeDeviceInformation(v []byte) (*DeviceInformationTLV, error) {
	if len(v) < 7 {
		return nil, fmt.Errorf("wire: DEVICE_INFORMATION too short")
	}
	almac, _ := getMAC(v)
	n := int(v[6])
	off := 7
	out := &DeviceInformationTLV{ALMAC: almac}
	for i := 0; i < n; i++ {
		if off+9 > len(v) {
			return nil, fmt.Errorf("wire: DEVICE_INFORMATION interface %d truncated", i)
		}
		mac, _ := getMAC(v[off:])
		mediaType := binary.BigEndian.Uint16(v[off+6 : off+8])
		specLen := int(v[off+8])
		off += 9
		if off+specLen > len(v) {
			return nil, fmt.Errorf("wire: DEVICE_INFORMATION interface %d media data truncated", i)
		}
		spec := append([]byte(nil), v[off:off+specLen]...)
		off += specLen
		out.Interfaces = append(out.Interfaces, LocalInterfaceEntry{MAC: mac, MediaType: mediaType, MediaSpecificData: spec})
	}
	return out, nil
}

// DeviceBridgingCapabilityTLV lists groups of interfaces bridged together
// locally, TLV_TYPE_DEVICE_BRIDGING_CAPABILITY.
type DeviceBridgingCapabilityTLV struct {
	Groups [][]MAC
}

func (t *DeviceBridgingCapabilityTLV) Type() uint8 { return TLVTypeDeviceBridgingCapability }
func (t *DeviceBridgingCapabilityTLV) Marshal() []byte {
	buf := []byte{uint8(len(t.Groups))}
	for _, g := range t.Groups {
		buf = append(buf, uint8(len(g)))
		for _, m := range g {
			buf = append(buf, m[:]...)
		}
	}
	return buf
}
func decodeDeviceBridgingCapability(v []byte) (*DeviceBridgingCapabilityTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: DEVICE_BRIDGING_CAPABILITY too short")
	}
	n := int(v[0])
	off := 1
	out := &DeviceBridgingCapabilityTLV{}
	for i := 0; i < n; i++ {
		if off+1 > len(v) {
			return nil, fmt.Errorf("wire: DEVICE_BRIDGING_CAPABILITY group %d truncated", i)
		}
		cnt := int(v[off])
		off++
		var g []MAC
		for j := 0; j < cnt; j++ {
			m, err := getMAC(v[off:])
			if err != nil {
				return nil, err
			}
			g = append(g, m)
			off += 6
		}
		out.Groups = append(out.Groups, g)
	}
	return out, nil
}

// Non1905NeighborDeviceListTLV lists L2 neighbors observed on one local
// interface that did not respond as 1905 nodes, TLV_TYPE_NON_1905_NEIGHBOR_DEVICE_LIST.
type Non1905NeighborDeviceListTLV struct {
	LocalIfMAC MAC
	Neighbors  []MAC
}

func (t *Non1905NeighborDeviceListTLV) Type() uint8 { return TLVTypeNon1905NeighborDeviceList }
func (t *Non1905NeighborDeviceListTLV) Marshal() []byte {
	buf := make([]byte, 6)
	putMAC(buf, t.LocalIfMAC)
	for _, m := range t.Neighbors {
		buf = append(buf, m[:]...)
	}
	return buf
}
func decodeNon1905NeighborDeviceList(v []byte) (*Non1905NeighborDeviceListTLV, error) {
	if len(v) < 6 || (len(v)-6)%6 != 0 {
		return nil, fmt.Errorf("wire: NON_1905_NEIGHBOR_DEVICE_LIST malformed")
	}
	mac, _ := getMAC(v)
	out := &Non1905NeighborDeviceListTLV{LocalIfMAC: mac}
	for off := 6; off < len(v); off += 6 {
		m, _ := getMAC(v[off:])
		out.Neighbors = append(out.Neighbors, m)
	}
	return out, nil
}

// NeighborEntry is one 1905 neighbor inside a NeighborDeviceListTLV.
type NeighborEntry struct {
	ALMAC    MAC
	IsBridge bool
}

// NeighborDeviceListTLV lists 1905 neighbors observed on one local
// interface, TLV_TYPE_NEIGHBOR_DEVICE_LIST.
type NeighborDeviceListTLV struct {
	LocalIfMAC MAC
	Neighbors  []NeighborEntry
}

func (t *NeighborDeviceListTLV) Type() uint8 { return TLVTypeNeighborDeviceList }
func (t *NeighborDeviceListTLV) Marshal() []byte {
	buf := make([]byte, 6)
	putMAC(buf, t.LocalIfMAC)
	for _, n := range t.Neighbors {
		entry := make([]byte, 7)
		putMAC(entry, n.ALMAC)
		if n.IsBridge {
			entry[6] = 0x80
		}
		buf = append(buf, entry...)
	}
	return buf
}
func decodeNeighborDeviceList(v []byte) (*NeighborDeviceListTLV, error) {
	if len(v) < 6 || (len(v)-6)%7 != 0 {
		return nil, fmt.Errorf("wire: NEIGHBOR_DEVICE_LIST malformed")
	}
	mac, _ := getMAC(v)
	out := &NeighborDeviceListTLV{LocalIfMAC: mac}
	for off := 6; off < len(v); off += 7 {
		m, _ := getMAC(v[off:])
		out.Neighbors = append(out.Neighbors, NeighborEntry{ALMAC: m, IsBridge: v[off+6]&0x80 != 0})
	}
	return out, nil
}

// LinkMetricQueryTLV requests TX/RX metrics for one or all neighbors on the
// responder, TLV_TYPE_LINK_METRIC_QUERY.
type LinkMetricQueryTLV struct {
	NeighborType  uint8 // LinkMetricNeighborAll | LinkMetricNeighborSpecific
	NeighborALMAC MAC   // valid iff NeighborType == specific
	MetricsType   uint8 // LinkMetricType{TxOnly,RxOnly,Both}
}

func (t *LinkMetricQueryTLV) Type() uint8 { return TLVTypeLinkMetricQuery }
func (t *LinkMetricQueryTLV) Marshal() []byte {
	buf := []byte{t.NeighborType}
	if t.NeighborType == LinkMetricNeighborSpecific {
		buf = append(buf, t.NeighborALMAC[:]...)
	}
	buf = append(buf, t.MetricsType)
	return buf
}
func decodeLinkMetricQuery(v []byte) (*LinkMetricQueryTLV, error) {
	if len(v) < 2 {
		return nil, fmt.Errorf("wire: LINK_METRIC_QUERY too short")
	}
	out := &LinkMetricQueryTLV{NeighborType: v[0]}
	if out.NeighborType == LinkMetricNeighborSpecific {
		if len(v) < 8 {
			return nil, fmt.Errorf("wire: LINK_METRIC_QUERY specific-neighbor too short")
		}
		mac, _ := getMAC(v[1:])
		out.NeighborALMAC = mac
		out.MetricsType = v[7]
	} else {
		out.MetricsType = v[1]
	}
	return out, nil
}

// LinkEntry is one interface-pair metric sample shared by TX and RX TLVs.
type LinkEntry struct {
	LocalIfMAC    MAC
	NeighborIfMAC MAC
	MediaType     uint16
	Bridge        bool

	PacketErrors          uint32
	PacketsTransmittedOrReceived uint32
	MACThroughputCapacity uint16 // TX only, Mb/s; 0 on RX entries
	LinkAvailability      uint16 // TX only, percent (0-100); 0 on RX entries
	PHYRate               uint16 // TX only, Mb/s; 0 on RX entries
	RSSI                  uint8  // RX only; 0 on TX entries
}

// TransmitterLinkMetricTLV reports TX-side metrics for every link between
// the sender and one neighbor AL, TLV_TYPE_TRANSMITTER_LINK_METRIC.
type TransmitterLinkMetricTLV struct {
	LocalALMAC    MAC
	NeighborALMAC MAC
	Links         []LinkEntry
}

func (t *TransmitterLinkMetricTLV) Type() uint8 { return TLVTypeTransmitterLinkMetric }
func (t *TransmitterLinkMetricTLV) Marshal() []byte {
	buf := make([]byte, 12)
	putMAC(buf, t.LocalALMAC)
	putMAC(buf[6:], t.NeighborALMAC)
	for _, l := range t.Links {
		e := make([]byte, 6+6+2+1+4+4+2+2+2)
		off := 0
		putMAC(e[off:], l.LocalIfMAC)
		off += 6
		putMAC(e[off:], l.NeighborIfMAC)
		off += 6
		binary.BigEndian.PutUint16(e[off:], l.MediaType)
		off += 2
		if l.Bridge {
			e[off] = 1
		}
		off++
		binary.BigEndian.PutUint32(e[off:], l.PacketErrors)
		off += 4
		binary.BigEndian.PutUint32(e[off:], l.PacketsTransmittedOrReceived)
		off += 4
		binary.BigEndian.PutUint16(e[off:], l.MACThroughputCapacity)
		off += 2
		binary.BigEndian.PutUint16(e[off:], l.LinkAvailability)
		off += 2
		binary.BigEndian.PutUint16(e[off:], l.PHYRate)
		buf = append(buf, e...)
	}
	return buf
}
func decodeTransmitterLinkMetric(v []byte) (*TransmitterLinkMetricTLV, error) {
	if len(v) < 12 {
		return nil, fmt.Errorf("wire: TRANSMITTER_LINK_METRIC too short")
	}
	localAL, _ := getMAC(v)
	neighAL, _ := getMAC(v[6:])
	out := &TransmitterLinkMetricTLV{LocalALMAC: localAL, NeighborALMAC: neighAL}
	const entryLen = 6 + 6 + 2 + 1 + 4 + 4 + 2 + 2 + 2
	for off := 12; off+entryLen <= len(v); off += entryLen {
		var l LinkEntry
		l.LocalIfMAC, _ = getMAC(v[off:])
		l.NeighborIfMAC, _ = getMAC(v[off+6:])
		l.MediaType = binary.BigEndian.Uint16(v[off+12:])
		l.Bridge = v[off+14] != 0
		l.PacketErrors = binary.BigEndian.Uint32(v[off+15:])
		l.PacketsTransmittedOrReceived = binary.BigEndian.Uint32(v[off+19:])
		l.MACThroughputCapacity = binary.BigEndian.Uint16(v[off+23:])
		l.LinkAvailability = binary.BigEndian.Uint16(v[off+25:])
		l.PHYRate = binary.BigEndian.Uint16(v[off+27:])
		out.Links = append(out.Links, l)
	}
	return out, nil
}

// ReceiverLinkMetricTLV reports RX-side metrics for every link between the
// sender and one neighbor AL, TLV_TYPE_RECEIVER_LINK_METRIC.
type ReceiverLinkMetricTLV struct {
	LocalALMAC    MAC
	NeighborALMAC MAC
	Links         []LinkEntry
}

func (t *ReceiverLinkMetricTLV) Type() uint8 { return TLVTypeReceiverLinkMetric }
func (t *ReceiverLinkMetricTLV) Marshal() []byte {
	buf := make([]byte, 12)
	putMAC(buf, t.LocalALMAC)
	putMAC(buf[6:], t.NeighborALMAC)
	for _, l := range t.Links {
		e := make([]byte, 6+6+2+1+4+4+1)
		off := 0
		putMAC(e[off:], l.LocalIfMAC)
		off += 6
		putMAC(e[off:], l.NeighborIfMAC)
		off += 6
		binary.BigEndian.PutUint16(e[off:], l.MediaType)
		off += 2
		if l.Bridge {
			e[off] = 1
		}
		off++
		binary.BigEndian.PutUint32(e[off:], l.PacketErrors)
		off += 4
		binary.BigEndian.PutUint32(e[off:], l.PacketsTransmittedOrReceived)
		off += 4
		e[off] = l.RSSI
		buf = append(buf, e...)
	}
	return buf
}
func decodeReceiverLinkMetric(v []byte) (*ReceiverLinkMetricTLV, error) {
	if len(v) < 12 {
		return nil, fmt.Errorf("wire: RECEIVER_LINK_METRIC too short")
	}
	localAL, _ := getMAC(v)
	neighAL, _ := getMAC(v[6:])
	out := &ReceiverLinkMetricTLV{LocalALMAC: localAL, NeighborALMAC: neighAL}
	const entryLen = 6 + 6 + 2 + 1 + 4 + 4 + 1
	for off := 12; off+entryLen <= len(v); off += entryLen {
		var l LinkEntry
		l.LocalIfMAC, _ = getMAC(v[off:])
		l.NeighborIfMAC, _ = getMAC(v[off+6:])
		l.MediaType = binary.BigEndian.Uint16(v[off+12:])
		l.Bridge = v[off+14] != 0
		l.PacketErrors = binary.BigEndian.Uint32(v[off+15:])
		l.PacketsTransmittedOrReceived = binary.BigEndian.Uint32(v[off+19:])
		l.RSSI = v[off+23]
		out.Links = append(out.Links, l)
	}
	return out, nil
}

// VendorSpecificTLV carries an OUI-tagged opaque payload, TLV_TYPE_VENDOR_SPECIFIC.
// The core never interprets Payload; no vendor extension is registered
// anywhere, and the dispatcher ignores VENDOR_SPECIFIC CMDUs.
type VendorSpecificTLV struct {
	OUI     [3]byte
	Payload []byte
}

func (t *VendorSpecificTLV) Type() uint8 { return TLVTypeVendorSpecific }
func (t *VendorSpecificTLV) Marshal() []byte {
	return append(append([]byte{}, t.OUI[:]...), t.Payload...)
}
func decodeVendorSpecific(v []byte) (*VendorSpecificTLV, error) {
	if len(v) < 3 {
		return nil, fmt.Errorf("wire: VENDOR_SPECIFIC too short")
	}
	out := &VendorSpecificTLV{Payload: append([]byte(nil), v[3:]...)}
	copy(out.OUI[:], v[:3])
	return out, nil
}

// SearchedRoleTLV names the role being searched for (always REGISTRAR),
// TLV_TYPE_SEARCHED_ROLE.
type SearchedRoleTLV struct{ Role uint8 }

func (t *SearchedRoleTLV) Type() uint8      { return TLVTypeSearchedRole }
func (t *SearchedRoleTLV) Marshal() []byte  { return []byte{t.Role} }
func decodeSearchedRole(v []byte) (*SearchedRoleTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: SEARCHED_ROLE too short")
	}
	return &SearchedRoleTLV{Role: v[0]}, nil
}

// AutoconfigFreqBandTLV names the band an autoconfig search is for,
// TLV_TYPE_AUTOCONFIG_FREQ_BAND.
type AutoconfigFreqBandTLV struct{ Band uint8 }

func (t *AutoconfigFreqBandTLV) Type() uint8     { return TLVTypeAutoconfigFreqBand }
func (t *AutoconfigFreqBandTLV) Marshal() []byte { return []byte{t.Band} }
func decodeAutoconfigFreqBand(v []byte) (*AutoconfigFreqBandTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: AUTOCONFIG_FREQ_BAND too short")
	}
	return &AutoconfigFreqBandTLV{Band: v[0]}, nil
}

// SupportedRoleTLV names the role the responder supports (always REGISTRAR),
// TLV_TYPE_SUPPORTED_ROLE.
type SupportedRoleTLV struct{ Role uint8 }

func (t *SupportedRoleTLV) Type() uint8     { return TLVTypeSupportedRole }
func (t *SupportedRoleTLV) Marshal() []byte { return []byte{t.Role} }
func decodeSupportedRole(v []byte) (*SupportedRoleTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: SUPPORTED_ROLE too short")
	}
	return &SupportedRoleTLV{Role: v[0]}, nil
}

// SupportedFreqBandTLV names the band the responder is a registrar for,
// TLV_TYPE_SUPPORTED_FREQ_BAND.
type SupportedFreqBandTLV struct{ Band uint8 }

func (t *SupportedFreqBandTLV) Type() uint8     { return TLVTypeSupportedFreqBand }
func (t *SupportedFreqBandTLV) Marshal() []byte { return []byte{t.Band} }
func decodeSupportedFreqBand(v []byte) (*SupportedFreqBandTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: SUPPORTED_FREQ_BAND too short")
	}
	return &SupportedFreqBandTLV{Band: v[0]}, nil
}

// WSCTLV carries an opaque Wi-Fi Simple Configuration M1/M2 envelope,
// TLV_TYPE_WSC. The envelope's attribute stream is parsed by the wsc package,
// not here.
type WSCTLV struct{ Data []byte }

func (t *WSCTLV) Type() uint8     { return TLVTypeWSC }
func (t *WSCTLV) Marshal() []byte { return t.Data }
func decodeWSC(v []byte) (*WSCTLV, error) {
	return &WSCTLV{Data: append([]byte(nil), v...)}, nil
}

// SupportedServiceTLV advertises the Multi-AP roles the sender supports,
// TLV_TYPE_SUPPORTED_SERVICE.
type SupportedServiceTLV struct{ Services []uint8 }

func (t *SupportedServiceTLV) Type() uint8 { return TLVTypeSupportedService }
func (t *SupportedServiceTLV) Marshal() []byte {
	return append([]byte{uint8(len(t.Services))}, t.Services...)
}
func decodeSupportedService(v []byte) (*SupportedServiceTLV, error) {
	if len(v) < 1 || len(v) != 1+int(v[0]) {
		return nil, fmt.Errorf("wire: SUPPORTED_SERVICE malformed")
	}
	return &SupportedServiceTLV{Services: append([]byte(nil), v[1:]...)}, nil
}

// SearchedServiceTLV names the Multi-AP role an autoconfig search wants a
// response from, TLV_TYPE_SEARCHED_SERVICE.
type SearchedServiceTLV struct{ Services []uint8 }

func (t *SearchedServiceTLV) Type() uint8 { return TLVTypeSearchedService }
func (t *SearchedServiceTLV) Marshal() []byte {
	return append([]byte{uint8(len(t.Services))}, t.Services...)
}
func decodeSearchedService(v []byte) (*SearchedServiceTLV, error) {
	if len(v) < 1 || len(v) != 1+int(v[0]) {
		return nil, fmt.Errorf("wire: SEARCHED_SERVICE malformed")
	}
	return &SearchedServiceTLV{Services: append([]byte(nil), v[1:]...)}, nil
}

// APRadioIdentifierTLV names the radio a WSC M2 configures,
// TLV_TYPE_AP_RADIO_IDENTIFIER.
type APRadioIdentifierTLV struct{ RadioUID MAC }

func (t *APRadioIdentifierTLV) Type() uint8 { return TLVTypeAPRadioIdentifier }
func (t *APRadioIdentifierTLV) Marshal() []byte {
	buf := make([]byte, 6)
	putMAC(buf, t.RadioUID)
	return buf
}
func decodeAPRadioIdentifier(v []byte) (*APRadioIdentifierTLV, error) {
	m, err := getMAC(v)
	if err != nil {
		return nil, err
	}
	return &APRadioIdentifierTLV{RadioUID: m}, nil
}

// OperatingClass is one entry in an AP-radio-basic-capabilities TLV.
type OperatingClass struct {
	Class               uint8
	MaxTxPowerDB         uint8
	NonOperableChannels []uint8
}

// APRadioBasicCapabilitiesTLV describes one local radio's BSS capacity and
// supported operating classes, TLV_TYPE_AP_RADIO_BASIC_CAPABILITIES.
type APRadioBasicCapabilitiesTLV struct {
	RadioUID        MAC
	MaxBSSSupported uint8
	Classes         []OperatingClass
}

func (t *APRadioBasicCapabilitiesTLV) Type() uint8 { return TLVTypeAPRadioBasicCapabilities }
func (t *APRadioBasicCapabilitiesTLV) Marshal() []byte {
	buf := make([]byte, 6+1+1)
	putMAC(buf, t.RadioUID)
	buf[6] = t.MaxBSSSupported
	buf[7] = uint8(len(t.Classes))
	for _, c := range t.Classes {
		e := []byte{c.Class, c.MaxTxPowerDB, uint8(len(c.NonOperableChannels))}
		e = append(e, c.NonOperableChannels...)
		buf = append(buf, e...)
	}
	return buf
}
func decodeAPRadioBasicCapabilities(v []byte) (*APRadioBasicCapabilitiesTLV, error) {
	if len(v) < 8 {
		return nil, fmt.Errorf("wire: AP_RADIO_BASIC_CAPABILITIES too short")
	}
	mac, _ := getMAC(v)
	out := &APRadioBasicCapabilitiesTLV{RadioUID: mac, MaxBSSSupported: v[6]}
	n := int(v[7])
	off := 8
	for i := 0; i < n; i++ {
		if off+3 > len(v) {
			return nil, fmt.Errorf("wire: AP_RADIO_BASIC_CAPABILITIES class %d truncated", i)
		}
		cnt := int(v[off+2])
		if off+3+cnt > len(v) {
			return nil, fmt.Errorf("wire: AP_RADIO_BASIC_CAPABILITIES class %d channels truncated", i)
		}
		out.Classes = append(out.Classes, OperatingClass{
			Class:               v[off],
			MaxTxPowerDB:         v[off+1],
			NonOperableChannels: append([]byte(nil), v[off+3:off+3+cnt]...),
		})
		off += 3 + cnt
	}
	return out, nil
}

// APOperationalBSSEntry is one configured BSS inside an AP-operational-BSS
// TLV radio entry.
type APOperationalBSSEntry struct {
	BSSID MAC
	SSID  []byte
}

// APOperationalBSSRadio groups the BSSes configured on one radio.
type APOperationalBSSRadio struct {
	RadioUID MAC
	BSSes    []APOperationalBSSEntry
}

// APOperationalBSSTLV reports the configured BSS inventory across radios,
// TLV_TYPE_AP_OPERATIONAL_BSS.
type APOperationalBSSTLV struct {
	Radios []APOperationalBSSRadio
}

func (t *APOperationalBSSTLV) Type() uint8 { return TLVTypeAPOperationalBSS }
func (t *APOperationalBSSTLV) Marshal() []byte {
	buf := []byte{uint8(len(t.Radios))}
	for _, r := range t.Radios {
		e := make([]byte, 6+1)
		putMAC(e, r.RadioUID)
		e[6] = uint8(len(r.BSSes))
		for _, b := range r.BSSes {
			be := make([]byte, 6+1)
			putMAC(be, b.BSSID)
			be[6] = uint8(len(b.SSID))
			be = append(be, b.SSID...)
			e = append(e, be...)
		}
		buf = append(buf, e...)
	}
	return buf
}
func decodeAPOperationalBSS(v []byte) (*APOperationalBSSTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: AP_OPERATIONAL_BSS too short")
	}
	n := int(v[0])
	off := 1
	out := &APOperationalBSSTLV{}
	for i := 0; i < n; i++ {
		if off+7 > len(v) {
			return nil, fmt.Errorf("wire: AP_OPERATIONAL_BSS radio %d truncated", i)
		}
		radioUID, _ := getMAC(v[off:])
		bssCount := int(v[off+6])
		off += 7
		radio := APOperationalBSSRadio{RadioUID: radioUID}
		for j := 0; j < bssCount; j++ {
			if off+7 > len(v) {
				return nil, fmt.Errorf("wire: AP_OPERATIONAL_BSS radio %d bss %d truncated", i, j)
			}
			bssid, _ := getMAC(v[off:])
			ssidLen := int(v[off+6])
			off += 7
			if off+ssidLen > len(v) {
				return nil, fmt.Errorf("wire: AP_OPERATIONAL_BSS radio %d bss %d ssid truncated", i, j)
			}
			radio.BSSes = append(radio.BSSes, APOperationalBSSEntry{BSSID: bssid, SSID: append([]byte(nil), v[off:off+ssidLen]...)})
			off += ssidLen
		}
		out.Radios = append(out.Radios, radio)
	}
	return out, nil
}

// DeviceIdentificationTLV carries the sender's human-readable identity,
// TLV_TYPE_DEVICE_IDENTIFICATION.
type DeviceIdentificationTLV struct {
	FriendlyName     string // max 64 bytes
	ManufacturerName string // max 64 bytes
	ModelName        string // max 64 bytes
}

func (t *DeviceIdentificationTLV) Type() uint8 { return TLVTypeDeviceIdentification }
func (t *DeviceIdentificationTLV) Marshal() []byte {
	return appendFixedStrings(t.FriendlyName, t.ManufacturerName, t.ModelName)
}
func decodeDeviceIdentification(v []byte) (*DeviceIdentificationTLV, error) {
	if len(v) != 64*3 {
		return nil, fmt.Errorf("wire: DEVICE_IDENTIFICATION malformed")
	}
	return &DeviceIdentificationTLV{
		FriendlyName:     trimFixedString(v[0:64]),
		ManufacturerName: trimFixedString(v[64:128]),
		ModelName:        trimFixedString(v[128:192]),
	}, nil
}

func appendFixedStrings(strs ...string) []byte {
	var out []byte
	for _, s := range strs {
		field := make([]byte, 64)
		copy(field, s)
		out = append(out, field...)
	}
	return out
}

func trimFixedString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// ControlURLTLV carries the sender's web-management control URL,
// TLV_TYPE_CONTROL_URL.
type ControlURLTLV struct{ URL string }

func (t *ControlURLTLV) Type() uint8     { return TLVTypeControlURL }
func (t *ControlURLTLV) Marshal() []byte { return []byte(t.URL) }
func decodeControlURL(v []byte) (*ControlURLTLV, error) {
	return &ControlURLTLV{URL: string(v)}, nil
}

// IPv4Address is one addr/origin pair reported for an interface.
type IPv4Address struct {
	Type       uint8
	Address    [4]byte
	DHCPServer [4]byte
}

// IPv4Entry groups the IPv4 addresses configured on one local interface.
type IPv4Entry struct {
	MAC       MAC
	Addresses []IPv4Address
}

// IPv4TLV reports per-interface IPv4 configuration, TLV_TYPE_IPV4.
type IPv4TLV struct{ Entries []IPv4Entry }

func (t *IPv4TLV) Type() uint8 { return TLVTypeIPv4 }
func (t *IPv4TLV) Marshal() []byte {
	buf := []byte{uint8(len(t.Entries))}
	for _, e := range t.Entries {
		entry := make([]byte, 6+1)
		putMAC(entry, e.MAC)
		entry[6] = uint8(len(e.Addresses))
		for _, a := range e.Addresses {
			entry = append(entry, a.Type)
			entry = append(entry, a.Address[:]...)
			entry = append(entry, a.DHCPServer[:]...)
		}
		buf = append(buf, entry...)
	}
	return buf
}
func decodeIPv4(v []byte) (*IPv4TLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: IPV4 too short")
	}
	n := int(v[0])
	off := 1
	out := &IPv4TLV{}
	for i := 0; i < n; i++ {
		if off+7 > len(v) {
			return nil, fmt.Errorf("wire: IPV4 entry %d truncated", i)
		}
		mac, _ := getMAC(v[off:])
		addrCount := int(v[off+6])
		off += 7
		entry := IPv4Entry{MAC: mac}
		for j := 0; j < addrCount; j++ {
			if off+9 > len(v) {
				return nil, fmt.Errorf("wire: IPV4 entry %d address %d truncated", i, j)
			}
			var a IPv4Address
			a.Type = v[off]
			copy(a.Address[:], v[off+1:off+5])
			copy(a.DHCPServer[:], v[off+5:off+9])
			entry.Addresses = append(entry.Addresses, a)
			off += 9
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// IPv6Address is one addr/origin pair reported for an interface.
type IPv6Address struct {
	Type           uint8
	Address        [16]byte
	OriginRouter   [16]byte
}

// IPv6Entry groups the IPv6 addresses configured on one local interface.
type IPv6Entry struct {
	MAC       MAC
	Addresses []IPv6Address
}

// IPv6TLV reports per-interface IPv6 configuration, TLV_TYPE_IPV6.
type IPv6TLV struct{ Entries []IPv6Entry }

func (t *IPv6TLV) Type() uint8 { return TLVTypeIPv6 }
func (t *IPv6TLV) Marshal() []byte {
	buf := []byte{uint8(len(t.Entries))}
	for _, e := range t.Entries {
		entry := make([]byte, 6+1)
		putMAC(entry, e.MAC)
		entry[6] = uint8(len(e.Addresses))
		for _, a := range e.Addresses {
			entry = append(entry, a.Type)
			entry = append(entry, a.Address[:]...)
			entry = append(entry, a.OriginRouter[:]...)
		}
		buf = append(buf, entry...)
	}
	return buf
}
func decodeIPv6(v []byte) (*IPv6TLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: IPV6 too short")
	}
	n := int(v[0])
	off := 1
	out := &IPv6TLV{}
	for i := 0; i < n; i++ {
		if off+7 > len(v) {
			return nil, fmt.Errorf("wire: IPV6 entry %d truncated", i)
		}
		mac, _ := getMAC(v[off:])
		addrCount := int(v[off+6])
		off += 7
		entry := IPv6Entry{MAC: mac}
		for j := 0; j < addrCount; j++ {
			if off+33 > len(v) {
				return nil, fmt.Errorf("wire: IPV6 entry %d address %d truncated", i, j)
			}
			var a IPv6Address
			a.Type = v[off]
			copy(a.Address[:], v[off+1:off+17])
			copy(a.OriginRouter[:], v[off+17:off+33])
			entry.Addresses = append(entry.Addresses, a)
			off += 33
		}
		out.Entries = append(out.Entries, entry)
	}
	return out, nil
}

// ProfileVersionTLV reports the 1905 profile version the sender implements,
// TLV_TYPE_1905_PROFILE_VERSION.
type ProfileVersionTLV struct{ Version uint8 }

func (t *ProfileVersionTLV) Type() uint8     { return TLVTypeProfileVersion }
func (t *ProfileVersionTLV) Marshal() []byte { return []byte{t.Version} }
func decodeProfileVersion(v []byte) (*ProfileVersionTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: 1905_PROFILE_VERSION too short")
	}
	return &ProfileVersionTLV{Version: v[0]}, nil
}

// PowerOffInterfaceEntry is one powered-off local interface.
type PowerOffInterfaceEntry struct {
	MAC               MAC
	MediaType         uint16
	GenericPhyOUI     [3]byte
	Variant           uint8
	MediaSpecificData []byte
}

// PowerOffInterfaceTLV lists local interfaces currently powered off,
// TLV_TYPE_POWER_OFF_INTERFACE.
type PowerOffInterfaceTLV struct{ Interfaces []PowerOffInterfaceEntry }

func (t *PowerOffInterfaceTLV) Type() uint8 { return TLVTypePowerOffInterface }
func (t *PowerOffInterfaceTLV) Marshal() []byte {
	buf := []byte{uint8(len(t.Interfaces))}
	for _, e := range t.Interfaces {
		entry := make([]byte, 6+2+3+1+1)
		putMAC(entry, e.MAC)
		binary.BigEndian.PutUint16(entry[6:8], e.MediaType)
		copy(entry[8:11], e.GenericPhyOUI[:])
		entry[11] = e.Variant
		entry[12] = uint8(len(e.MediaSpecificData))
		entry = append(entry, e.MediaSpecificData...)
		buf = append(buf, entry...)
	}
	return buf
}
func decodePowerOffInterface(v []byte) (*PowerOffInterfaceTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: POWER_OFF_INTERFACE too short")
	}
	n := int(v[0])
	off := 1
	out := &PowerOffInterfaceTLV{}
	for i := 0; i < n; i++ {
		if off+13 > len(v) {
			return nil, fmt.Errorf("wire: POWER_OFF_INTERFACE entry %d truncated", i)
		}
		mac, _ := getMAC(v[off:])
		mediaType := binary.BigEndian.Uint16(v[off+6:])
		var oui [3]byte
		copy(oui[:], v[off+8:off+11])
		variant := v[off+11]
		specLen := int(v[off+12])
		off += 13
		if off+specLen > len(v) {
			return nil, fmt.Errorf("wire: POWER_OFF_INTERFACE entry %d data truncated", i)
		}
		out.Interfaces = append(out.Interfaces, PowerOffInterfaceEntry{
			MAC: mac, MediaType: mediaType, GenericPhyOUI: oui, Variant: variant,
			MediaSpecificData: append([]byte(nil), v[off:off+specLen]...),
		})
		off += specLen
	}
	return out, nil
}

// PowerChangeEntry is one requested (interface, new power state) pair.
type PowerChangeEntry struct {
	MAC   MAC
	State uint8 // PowerState{On,Save,Off}
}

// InterfacePowerChangeInfoTLV requests a power-state change for one or more
// local interfaces, TLV_TYPE_INTERFACE_POWER_CHANGE_INFORMATION.
type InterfacePowerChangeInfoTLV struct{ Entries []PowerChangeEntry }

func (t *InterfacePowerChangeInfoTLV) Type() uint8 { return TLVTypeInterfacePowerChangeInfo }
func (t *InterfacePowerChangeInfoTLV) Marshal() []byte {
	buf := []byte{uint8(len(t.Entries))}
	for _, e := range t.Entries {
		entry := make([]byte, 7)
		putMAC(entry, e.MAC)
		entry[6] = e.State
		buf = append(buf, entry...)
	}
	return buf
}
func decodeInterfacePowerChangeInfo(v []byte) (*InterfacePowerChangeInfoTLV, error) {
	if len(v) < 1 || (len(v)-1)%7 != 0 {
		return nil, fmt.Errorf("wire: INTERFACE_POWER_CHANGE_INFORMATION malformed")
	}
	n := int(v[0])
	out := &InterfacePowerChangeInfoTLV{}
	off := 1
	for i := 0; i < n; i++ {
		mac, _ := getMAC(v[off:])
		out.Entries = append(out.Entries, PowerChangeEntry{MAC: mac, State: v[off+6]})
		off += 7
	}
	return out, nil
}

// PowerChangeStatusEntry is one (interface, result) pair in a power-change
// response.
type PowerChangeStatusEntry struct {
	MAC    MAC
	Result uint8 // PowerStateResult{Completed,NoChange,AlternativeChange}
}

// InterfacePowerChangeStatusTLV reports the outcome of a prior power-change
// request, TLV_TYPE_INTERFACE_POWER_CHANGE_STATUS.
type InterfacePowerChangeStatusTLV struct{ Entries []PowerChangeStatusEntry }

func (t *InterfacePowerChangeStatusTLV) Type() uint8 { return TLVTypeInterfacePowerChangeStatus }
func (t *InterfacePowerChangeStatusTLV) Marshal() []byte {
	buf := []byte{uint8(len(t.Entries))}
	for _, e := range t.Entries {
		entry := make([]byte, 7)
		putMAC(entry, e.MAC)
		entry[6] = e.Result
		buf = append(buf, entry...)
	}
	return buf
}
func decodeInterfacePowerChangeStatus(v []byte) (*InterfacePowerChangeStatusTLV, error) {
	if len(v) < 1 || (len(v)-1)%7 != 0 {
		return nil, fmt.Errorf("wire: INTERFACE_POWER_CHANGE_STATUS malformed")
	}
	n := int(v[0])
	out := &InterfacePowerChangeStatusTLV{}
	off := 1
	for i := 0; i < n; i++ {
		mac, _ := getMAC(v[off:])
		out.Entries = append(out.Entries, PowerChangeStatusEntry{MAC: mac, Result: v[off+6]})
		off += 7
	}
	return out, nil
}

// GenericPhyEntry is one generic-PHY local interface description.
type GenericPhyEntry struct {
	MAC               MAC
	OUI               [3]byte
	Variant           uint8
	Description       string // max 32 bytes
	URL               string
	MediaSpecificData []byte
}

// GenericPhyDeviceInfoTLV describes local interfaces whose media type is
// "generic" (not one of the well-known 1905 media types),
// TLV_TYPE_1905_GENERIC_PHY_DEVICE_INFORMATION.
type GenericPhyDeviceInfoTLV struct {
	ALMAC      MAC
	Interfaces []GenericPhyEntry
}

func (t *GenericPhyDeviceInfoTLV) Type() uint8 { return TLVTypeGenericPhyDeviceInfo }
func (t *GenericPhyDeviceInfoTLV) Marshal() []byte {
	buf := make([]byte, 6+1)
	putMAC(buf, t.ALMAC)
	buf[6] = uint8(len(t.Interfaces))
	for _, e := range t.Interfaces {
		entry := make([]byte, 6+3+1+32)
		off := 0
		putMAC(entry, e.MAC)
		off += 6
		copy(entry[off:off+3], e.OUI[:])
		off += 3
		entry[off] = e.Variant
		off++
		copy(entry[off:off+32], e.Description)
		off += 32
		urlBytes := append([]byte(e.URL), 0)
		entry = append(entry, uint8(len(urlBytes)))
		entry = append(entry, urlBytes...)
		entry = append(entry, uint8(len(e.MediaSpecificData)))
		entry = append(entry, e.MediaSpecificData...)
		buf = append(buf, entry...)
	}
	return buf
}
func decodeGenericPhyDeviceInfo(v []byte) (*GenericPhyDeviceInfoTLV, error) {
	if len(v) < 7 {
		return nil, fmt.Errorf("wire: GENERIC_PHY_DEVICE_INFORMATION too short")
	}
	almac, _ := getMAC(v)
	n := int(v[6])
	off := 7
	out := &GenericPhyDeviceInfoTLV{ALMAC: almac}
	for i := 0; i < n; i++ {
		if off+6+3+1+32+1 > len(v) {
			return nil, fmt.Errorf("wire: GENERIC_PHY_DEVICE_INFORMATION interface %d truncated", i)
		}
		var e GenericPhyEntry
		e.MAC, _ = getMAC(v[off:])
		off += 6
		copy(e.OUI[:], v[off:off+3])
		off += 3
		e.Variant = v[off]
		off++
		e.Description = trimFixedString(v[off : off+32])
		off += 32
		urlLen := int(v[off])
		off++
		if off+urlLen > len(v) {
			return nil, fmt.Errorf("wire: GENERIC_PHY_DEVICE_INFORMATION interface %d url truncated", i)
		}
		e.URL = trimFixedString(v[off : off+urlLen])
		off += urlLen
		if off+1 > len(v) {
			return nil, fmt.Errorf("wire: GENERIC_PHY_DEVICE_INFORMATION interface %d media data length missing", i)
		}
		specLen := int(v[off])
		off++
		if off+specLen > len(v) {
			return nil, fmt.Errorf("wire: GENERIC_PHY_DEVICE_INFORMATION interface %d media data truncated", i)
		}
		e.MediaSpecificData = append([]byte(nil), v[off:off+specLen]...)
		off += specLen
		out.Interfaces = append(out.Interfaces, e)
	}
	return out, nil
}

// L2NeighborEntry is one L2-observed (non-1905) neighbor on a local
// interface, with the MACs it in turn reports being behind it.
type L2NeighborEntry struct {
	MAC        MAC
	BehindMACs []MAC
}

// L2NeighborIfaceEntry groups the L2 neighbors observed on one local
// interface.
type L2NeighborIfaceEntry struct {
	LocalIfMAC MAC
	Neighbors  []L2NeighborEntry
}

// L2NeighborDeviceTLV reports L2 (non-1905) topology learned e.g. from
// bridge forwarding tables, TLV_TYPE_L2_NEIGHBOR_DEVICE.
type L2NeighborDeviceTLV struct{ Interfaces []L2NeighborIfaceEntry }

func (t *L2NeighborDeviceTLV) Type() uint8 { return TLVTypeL2NeighborDevice }
func (t *L2NeighborDeviceTLV) Marshal() []byte {
	buf := []byte{uint8(len(t.Interfaces))}
	for _, ifc := range t.Interfaces {
		e := make([]byte, 6+2)
		putMAC(e, ifc.LocalIfMAC)
		binary.BigEndian.PutUint16(e[6:8], uint16(len(ifc.Neighbors)))
		for _, n := range ifc.Neighbors {
			ne := make([]byte, 6+2)
			putMAC(ne, n.MAC)
			binary.BigEndian.PutUint16(ne[6:8], uint16(len(n.BehindMACs)))
			for _, bm := range n.BehindMACs {
				ne = append(ne, bm[:]...)
			}
			e = append(e, ne...)
		}
		buf = append(buf, e...)
	}
	return buf
}
func decodeL2NeighborDevice(v []byte) (*L2NeighborDeviceTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: L2_NEIGHBOR_DEVICE too short")
	}
	n := int(v[0])
	off := 1
	out := &L2NeighborDeviceTLV{}
	for i := 0; i < n; i++ {
		if off+8 > len(v) {
			return nil, fmt.Errorf("wire: L2_NEIGHBOR_DEVICE interface %d truncated", i)
		}
		localMAC, _ := getMAC(v[off:])
		neighCount := int(binary.BigEndian.Uint16(v[off+6:]))
		off += 8
		ifc := L2NeighborIfaceEntry{LocalIfMAC: localMAC}
		for j := 0; j < neighCount; j++ {
			if off+8 > len(v) {
				return nil, fmt.Errorf("wire: L2_NEIGHBOR_DEVICE interface %d neighbor %d truncated", i, j)
			}
			neighMAC, _ := getMAC(v[off:])
			behindCount := int(binary.BigEndian.Uint16(v[off+6:]))
			off += 8
			if off+6*behindCount > len(v) {
				return nil, fmt.Errorf("wire: L2_NEIGHBOR_DEVICE interface %d neighbor %d behind-macs truncated", i, j)
			}
			var behind []MAC
			for k := 0; k < behindCount; k++ {
				m, _ := getMAC(v[off:])
				behind = append(behind, m)
				off += 6
			}
			ifc.Neighbors = append(ifc.Neighbors, L2NeighborEntry{MAC: neighMAC, BehindMACs: behind})
		}
		out.Interfaces = append(out.Interfaces, ifc)
	}
	return out, nil
}

// PushButtonEventNotificationTLV lists the media types on which a
// push-button event was observed, TLV_TYPE_PUSH_BUTTON_EVENT_NOTIFICATION.
type PushButtonEventNotificationTLV struct {
	MediaTypes []PushButtonMediaEntry
}

// PushButtonMediaEntry is one media-specific record in a push-button event.
type PushButtonMediaEntry struct {
	MediaType uint16
	Data      []byte
}

func (t *PushButtonEventNotificationTLV) Type() uint8 { return TLVTypePushButtonEventNotification }
func (t *PushButtonEventNotificationTLV) Marshal() []byte {
	buf := []byte{uint8(len(t.MediaTypes))}
	for _, m := range t.MediaTypes {
		e := make([]byte, 3)
		binary.BigEndian.PutUint16(e, m.MediaType)
		e[2] = uint8(len(m.Data))
		e = append(e, m.Data...)
		buf = append(buf, e...)
	}
	return buf
}
func decodePushButtonEventNotification(v []byte) (*PushButtonEventNotificationTLV, error) {
	if len(v) < 1 {
		return nil, fmt.Errorf("wire: PUSH_BUTTON_EVENT_NOTIFICATION too short")
	}
	n := int(v[0])
	off := 1
	out := &PushButtonEventNotificationTLV{}
	for i := 0; i < n; i++ {
		if off+3 > len(v) {
			return nil, fmt.Errorf("wire: PUSH_BUTTON_EVENT_NOTIFICATION entry %d truncated", i)
		}
		mt := binary.BigEndian.Uint16(v[off:])
		dl := int(v[off+2])
		off += 3
		if off+dl > len(v) {
			return nil, fmt.Errorf("wire: PUSH_BUTTON_EVENT_NOTIFICATION entry %d data truncated", i)
		}
		out.MediaTypes = append(out.MediaTypes, PushButtonMediaEntry{MediaType: mt, Data: append([]byte(nil), v[off:off+dl]...)})
		off += dl
	}
	return out, nil
}

// PushButtonJoinNotificationTLV reports that a neighbor AL completed a
// push-button join, TLV_TYPE_PUSH_BUTTON_JOIN_NOTIFICATION.
type PushButtonJoinNotificationTLV struct {
	ALMAC       MAC
	MID         uint16
	TargetALMAC MAC
	TargetIfMAC MAC
}

func (t *PushButtonJoinNotificationTLV) Type() uint8 { return TLVTypePushButtonJoinNotification }
func (t *PushButtonJoinNotificationTLV) Marshal() []byte {
	buf := make([]byte, 6+2+6+6)
	putMAC(buf, t.ALMAC)
	binary.BigEndian.PutUint16(buf[6:8], t.MID)
	putMAC(buf[8:], t.TargetALMAC)
	putMAC(buf[14:], t.TargetIfMAC)
	return buf
}
func decodePushButtonJoinNotification(v []byte) (*PushButtonJoinNotificationTLV, error) {
	if len(v) < 20 {
		return nil, fmt.Errorf("wire: PUSH_BUTTON_JOIN_NOTIFICATION too short")
	}
	almac, _ := getMAC(v)
	mid := binary.BigEndian.Uint16(v[6:8])
	target, _ := getMAC(v[8:])
	targetIf, _ := getMAC(v[14:])
	return &PushButtonJoinNotificationTLV{ALMAC: almac, MID: mid, TargetALMAC: target, TargetIfMAC: targetIf}, nil
}
