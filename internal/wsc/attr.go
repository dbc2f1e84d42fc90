// Package wsc implements the Wi-Fi Simple Configuration M1/M2 key-agreement
// handshake the AP-autoconfiguration controller drives, §4.9. The WSC
// envelope format itself (attribute-typed TLV stream) is independent of the
// 1905 standard, per al_wsc.h's design note; this package treats it as an
// opaque sub-protocol with its own codec.
package wsc

import (
	"encoding/binary"
	"fmt"
)

// Attribute type IDs, Wi-Fi Simple Configuration Technical Specification.
const (
	attrAuthTypeFlags  uint16 = 0x1004
	attrEncrTypeFlags  uint16 = 0x1010
	attrEnrolleeNonce  uint16 = 0x101A
	attrKeyWrapAuth    uint16 = 0x101E
	attrMACAddr        uint16 = 0x1020
	attrMsgType        uint16 = 0x1022
	attrNetworkKey     uint16 = 0x1027
	attrPublicKey      uint16 = 0x1032
	attrRegistrarNonce uint16 = 0x1039
	attrRFBands        uint16 = 0x103C
	attrSSID           uint16 = 0x1045
	attrUUIDE          uint16 = 0x1047
	attrUUIDR          uint16 = 0x1048
	attrEncrSettings   uint16 = 0x1018
	attrAuthenticator  uint16 = 0x1005
	attrAuthType       uint16 = 0x1003
	attrEncrType       uint16 = 0x100F
	attrIV             uint16 = 0x1060
)

// MsgType is the WSC message-type byte carried in attribute 0x1022.
type MsgType uint8

const (
	MsgTypeM1      MsgType = 0x04
	MsgTypeM2      MsgType = 0x05
	MsgTypeUnknown MsgType = 0xFF
)

type attribute struct {
	typ   uint16
	value []byte
}

func encodeAttrs(attrs []attribute) []byte {
	var out []byte
	for _, a := range attrs {
		hdr := make([]byte, 4)
		binary.BigEndian.PutUint16(hdr[0:2], a.typ)
		binary.BigEndian.PutUint16(hdr[2:4], uint16(len(a.value)))
		out = append(out, hdr...)
		out = append(out, a.value...)
	}
	return out
}

func decodeAttrs(data []byte) (map[uint16][]byte, error) {
	out := make(map[uint16][]byte)
	off := 0
	for off < len(data) {
		if off+4 > len(data) {
			return nil, fmt.Errorf("wsc: attribute header truncated at offset %d", off)
		}
		typ := binary.BigEndian.Uint16(data[off : off+2])
		length := int(binary.BigEndian.Uint16(data[off+2 : off+4]))
		off += 4
		if off+length > len(data) {
			return nil, fmt.Errorf("wsc: attribute 0x%04x value truncated", typ)
		}
		out[typ] = append([]byte(nil), data[off:off+length]...)
		off += length
	}
	return out, nil
}

// GetType distinguishes M1 from M2 by the message-type attribute, §4.9
// "Detect WSC type (M1 vs M2) from the first byte pattern of the WSC
// envelope" / §6 "attribute type 0x1022 ... 0x04 = M1, 0x05 = M2".
func GetType(envelope []byte) MsgType {
	attrs, err := decodeAttrs(envelope)
	if err != nil {
		return MsgTypeUnknown
	}
	v, ok := attrs[attrMsgType]
	if !ok || len(v) != 1 {
		return MsgTypeUnknown
	}
	switch MsgType(v[0]) {
	case MsgTypeM1:
		return MsgTypeM1
	case MsgTypeM2:
		return MsgTypeM2
	default:
		return MsgTypeUnknown
	}
}
