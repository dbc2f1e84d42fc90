package wire

import "fmt"

// cmduRule describes, per message type, which TLV types must appear at
// least once and which TLV types are permitted at all (§4.4's required-TLV
// table plus the optional/repeatable TLVs it lists alongside them).
// TLVTypeVendorSpecific is implicitly permitted and preserved everywhere,
// per the parse contract's "except vendor-specific" carve-out.
type cmduRule struct {
	required []uint8
	allowed  []uint8
	// anyOf, if set, means "at least one TLV of these types must be
	// present" instead of each of `required` individually (used for
	// LINK_METRIC_RESPONSE's TX-or-RX-or-both shape).
	anyOf []uint8
}

var cmduRules = map[uint16]cmduRule{
	CMDUTypeTopologyDiscovery: {
		required: []uint8{TLVTypeALMACAddress, TLVTypeMACAddress},
		allowed:  []uint8{TLVTypeALMACAddress, TLVTypeMACAddress},
	},
	CMDUTypeTopologyNotification: {
		required: []uint8{TLVTypeALMACAddress},
		allowed:  []uint8{TLVTypeALMACAddress},
	},
	CMDUTypeTopologyQuery: {},
	CMDUTypeTopologyResponse: {
		required: []uint8{TLVTypeDeviceInformation},
		allowed: []uint8{
			TLVTypeDeviceInformation, TLVTypeDeviceBridgingCapability,
			TLVTypeNon1905NeighborDeviceList, TLVTypeNeighborDeviceList,
			TLVTypePowerOffInterface, TLVTypeL2NeighborDevice, TLVTypeSupportedService,
		},
	},
	CMDUTypeVendorSpecific: {
		required: []uint8{TLVTypeVendorSpecific},
		// allowed is unrestricted: "0+ any" follows the first vendor TLV.
	},
	CMDUTypeLinkMetricQuery: {
		required: []uint8{TLVTypeLinkMetricQuery},
		allowed:  []uint8{TLVTypeLinkMetricQuery},
	},
	CMDUTypeLinkMetricResponse: {
		anyOf:   []uint8{TLVTypeTransmitterLinkMetric, TLVTypeReceiverLinkMetric},
		allowed: []uint8{TLVTypeTransmitterLinkMetric, TLVTypeReceiverLinkMetric, TLVTypeLinkMetricResultCode},
	},
	CMDUTypeAPAutoconfigSearch: {
		required: []uint8{TLVTypeALMACAddress, TLVTypeSearchedRole, TLVTypeAutoconfigFreqBand},
		allowed: []uint8{
			TLVTypeALMACAddress, TLVTypeSearchedRole, TLVTypeAutoconfigFreqBand,
			TLVTypeSupportedService, TLVTypeSearchedService,
		},
	},
	CMDUTypeAPAutoconfigResponse: {
		required: []uint8{TLVTypeSupportedRole, TLVTypeSupportedFreqBand},
		allowed:  []uint8{TLVTypeSupportedRole, TLVTypeSupportedFreqBand, TLVTypeSupportedService},
	},
	CMDUTypeAPAutoconfigWSC: {
		required: []uint8{TLVTypeWSC},
		allowed:  []uint8{TLVTypeWSC, TLVTypeAPRadioBasicCapabilities, TLVTypeAPRadioIdentifier},
	},
	CMDUTypeAPAutoconfigRenew: {
		required: []uint8{TLVTypeALMACAddress, TLVTypeSupportedRole, TLVTypeSupportedFreqBand},
		allowed:  []uint8{TLVTypeALMACAddress, TLVTypeSupportedRole, TLVTypeSupportedFreqBand},
	},
	CMDUTypePushButtonEventNotification: {
		required: []uint8{TLVTypeALMACAddress, TLVTypePushButtonEventNotification},
		allowed:  []uint8{TLVTypeALMACAddress, TLVTypePushButtonEventNotification},
	},
	CMDUTypePushButtonJoinNotification: {
		required: []uint8{TLVTypeALMACAddress, TLVTypePushButtonJoinNotification},
		allowed:  []uint8{TLVTypeALMACAddress, TLVTypePushButtonJoinNotification},
	},
	CMDUTypeHigherLayerQuery: {},
	CMDUTypeHigherLayerResponse: {
		required: []uint8{TLVTypeALMACAddress, TLVTypeProfileVersion, TLVTypeDeviceIdentification},
		allowed: []uint8{
			TLVTypeALMACAddress, TLVTypeProfileVersion, TLVTypeDeviceIdentification,
			TLVTypeControlURL, TLVTypeIPv4, TLVTypeIPv6,
		},
	},
	CMDUTypeInterfacePowerChangeRequest: {
		required: []uint8{TLVTypeInterfacePowerChangeInfo},
		allowed:  []uint8{TLVTypeInterfacePowerChangeInfo},
	},
	CMDUTypeInterfacePowerChangeResponse: {
		required: []uint8{TLVTypeInterfacePowerChangeStatus},
		allowed:  []uint8{TLVTypeInterfacePowerChangeStatus},
	},
	CMDUTypeGenericPhyQuery: {},
	CMDUTypeGenericPhyResponse: {
		required: []uint8{TLVTypeGenericPhyDeviceInfo},
		allowed:  []uint8{TLVTypeGenericPhyDeviceInfo},
	},
}

func contains(set []uint8, v uint8) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func countType(tlvs []TLV, typ uint8) int {
	n := 0
	for _, t := range tlvs {
		if t.Type() == typ {
			n++
		}
	}
	return n
}

// validateRequiredTLVs implements the parse-path contract: a message
// missing any required TLV is rejected outright.
func validateRequiredTLVs(messageType uint16, tlvs []TLV) error {
	rule, ok := cmduRules[messageType]
	if !ok {
		// Unknown message type: nothing to validate against; let the
		// dispatcher decide what to do with it.
		return nil
	}
	if messageType == CMDUTypeVendorSpecific {
		if len(tlvs) == 0 || tlvs[0].Type() != TLVTypeVendorSpecific {
			return fmt.Errorf("wire: VENDOR_SPECIFIC CMDU missing leading VENDOR_SPECIFIC TLV")
		}
		return nil
	}
	if len(rule.anyOf) > 0 {
		found := false
		for _, typ := range rule.anyOf {
			if countType(tlvs, typ) > 0 {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("wire: CMDU type %s missing any of the required link-metric TLVs", CMDUTypeName(messageType))
		}
	}
	for _, typ := range rule.required {
		if countType(tlvs, typ) == 0 {
			return fmt.Errorf("wire: CMDU type %s missing required TLV type %d", CMDUTypeName(messageType), typ)
		}
	}
	return nil
}

// filterRequiredTLVs drops everything beyond the known required/optional
// set for messageType, except vendor-specific TLVs which are always kept
// for extension dispatch, and except VENDOR_SPECIFIC CMDUs which keep
// everything.
func filterRequiredTLVs(messageType uint16, tlvs []TLV) []TLV {
	rule, ok := cmduRules[messageType]
	if !ok || messageType == CMDUTypeVendorSpecific {
		return tlvs
	}
	out := make([]TLV, 0, len(tlvs))
	for _, t := range tlvs {
		if t.Type() == TLVTypeVendorSpecific || contains(rule.allowed, t.Type()) {
			out = append(out, t)
		}
	}
	return out
}

// validateForgeTLVs implements the forge-path contract: any TLV not
// permitted for messageType is a forge error (refuse to send), the
// opposite of the lenient parse-path drop.
func validateForgeTLVs(messageType uint16, tlvs []TLV) error {
	rule, ok := cmduRules[messageType]
	if !ok {
		return nil
	}
	if messageType == CMDUTypeVendorSpecific {
		if len(tlvs) == 0 || tlvs[0].Type() != TLVTypeVendorSpecific {
			return fmt.Errorf("wire: forging VENDOR_SPECIFIC CMDU requires a leading VENDOR_SPECIFIC TLV")
		}
		return nil
	}
	for _, t := range tlvs {
		if t.Type() == TLVTypeVendorSpecific {
			continue
		}
		if !contains(rule.allowed, t.Type()) {
			return fmt.Errorf("wire: TLV type %d not permitted in CMDU type %s", t.Type(), CMDUTypeName(messageType))
		}
	}
	if len(rule.anyOf) > 0 {
		found := false
		for _, typ := range rule.anyOf {
			if countType(tlvs, typ) > 0 {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("wire: forging CMDU type %s requires at least one of its link-metric TLVs", CMDUTypeName(messageType))
		}
	}
	for _, typ := range rule.required {
		if countType(tlvs, typ) == 0 {
			return fmt.Errorf("wire: forging CMDU type %s missing required TLV type %d", CMDUTypeName(messageType), typ)
		}
	}
	return nil
}
