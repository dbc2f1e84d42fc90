package wire

import "fmt"

// decodeTLV turns one (type, value) entry into a concrete TLV. Types this
// codec doesn't have a dedicated shape for come back as *RawTLV so the
// caller can preserve or drop them per §7's "unexpected TLV" rule.
func decodeTLV(typ uint8, value []byte) (TLV, error) {
	switch typ {
	case TLVTypeALMACAddress:
		return decodeALMACAddress(value)
	case TLVTypeMACAddress:
		return decodeMACAddress(value)
	case TLVTypeDeviceInformation:
		return decodeDeviceInformation(value)
	case TLVTypeDeviceBridgingCapability:
		return decodeDeviceBridgingCapability(value)
	case TLVTypeNon1905NeighborDeviceList:
		return decodeNon1905NeighborDeviceList(value)
	case TLVTypeNeighborDeviceList:
		return decodeNeighborDeviceList(value)
	case TLVTypeLinkMetricQuery:
		return decodeLinkMetricQuery(value)
	case TLVTypeTransmitterLinkMetric:
		return decodeTransmitterLinkMetric(value)
	case TLVTypeReceiverLinkMetric:
		return decodeReceiverLinkMetric(value)
	case TLVTypeVendorSpecific:
		return decodeVendorSpecific(value)
	case TLVTypeSearchedRole:
		return decodeSearchedRole(value)
	case TLVTypeAutoconfigFreqBand:
		return decodeAutoconfigFreqBand(value)
	case TLVTypeSupportedRole:
		return decodeSupportedRole(value)
	case TLVTypeSupportedFreqBand:
		return decodeSupportedFreqBand(value)
	case TLVTypeWSC:
		return decodeWSC(value)
	case TLVTypePushButtonEventNotification:
		return decodePushButtonEventNotification(value)
	case TLVTypePushButtonJoinNotification:
		return decodePushButtonJoinNotification(value)
	case TLVTypeGenericPhyDeviceInfo:
		return decodeGenericPhyDeviceInfo(value)
	case TLVTypeDeviceIdentification:
		return decodeDeviceIdentification(value)
	case TLVTypeControlURL:
		return decodeControlURL(value)
	case TLVTypeIPv4:
		return decodeIPv4(value)
	case TLVTypeIPv6:
		return decodeIPv6(value)
	case TLVTypeProfileVersion:
		return decodeProfileVersion(value)
	case TLVTypePowerOffInterface:
		return decodePowerOffInterface(value)
	case TLVTypeInterfacePowerChangeInfo:
		return decodeInterfacePowerChangeInfo(value)
	case TLVTypeInterfacePowerChangeStatus:
		return decodeInterfacePowerChangeStatus(value)
	case TLVTypeL2NeighborDevice:
		return decodeL2NeighborDevice(value)
	case TLVTypeSupportedService:
		return decodeSupportedService(value)
	case TLVTypeSearchedService:
		return decodeSearchedService(value)
	case TLVTypeAPRadioIdentifier:
		return decodeAPRadioIdentifier(value)
	case TLVTypeAPOperationalBSS:
		return decodeAPOperationalBSS(value)
	case TLVTypeAPRadioBasicCapabilities:
		return decodeAPRadioBasicCapabilities(value)
	default:
		return &RawTLV{TLVType: typ, Value: append([]byte(nil), value...)}, nil
	}
}

// DecodeTLVStream decodes every entry up to end-of-message in buf.
func DecodeTLVStream(buf []byte) ([]TLV, error) {
	entries, err := splitEntries(buf)
	if err != nil {
		return nil, err
	}
	out := make([]TLV, 0, len(entries))
	for _, e := range entries {
		t, err := decodeTLV(e.typ, e.value)
		if err != nil {
			return nil, fmt.Errorf("wire: decoding TLV type %d: %w", e.typ, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// EncodeTLVStream serializes tlvs followed by the end-of-message sentinel.
func EncodeTLVStream(tlvs []TLV) []byte {
	var buf []byte
	for _, t := range tlvs {
		buf = appendEntry(buf, t.Type(), t.Marshal())
	}
	return appendEndOfMessage(buf)
}
