package wire

import (
	"encoding/binary"
	"fmt"
)

// Header is the 8-byte CMDU header that prefixes every fragment on the wire,
// IEEE Std 1905.1-2013 Section 6.2, Table 6-3.
type Header struct {
	MessageVersion uint8
	MessageType    uint16
	MessageID      uint16
	FragmentID     uint8
	LastFragment   bool
	RelayIndicator bool
}

const (
	flagLastFragment   = 0x80
	flagRelayIndicator = 0x40
)

// Fragment is one on-wire piece of a (possibly unfragmented) CMDU, already
// stripped of its 14-byte Ethernet header by the caller. SrcMAC/DstMAC come
// from that Ethernet header and are required to key reassembly groups.
type Fragment struct {
	SrcMAC  MAC
	DstMAC  MAC
	Header  Header
	Payload []byte // raw TLV stream bytes for this fragment only
}

// ParseFragment parses the CMDU header and payload out of a single
// Ethernet-stripped packet buffer.
func ParseFragment(srcMAC, dstMAC MAC, buf []byte) (Fragment, error) {
	if len(buf) < cmduHeaderSize {
		return Fragment{}, fmt.Errorf("wire: CMDU header truncated (%d bytes)", len(buf))
	}
	h := Header{
		MessageVersion: buf[0],
		MessageType:    binary.BigEndian.Uint16(buf[2:4]),
		MessageID:      binary.BigEndian.Uint16(buf[4:6]),
		FragmentID:     buf[6],
		LastFragment:   buf[7]&flagLastFragment != 0,
		RelayIndicator: buf[7]&flagRelayIndicator != 0,
	}
	return Fragment{SrcMAC: srcMAC, DstMAC: dstMAC, Header: h, Payload: buf[cmduHeaderSize:]}, nil
}

func marshalFragmentHeader(h Header) []byte {
	buf := make([]byte, cmduHeaderSize)
	buf[0] = h.MessageVersion
	buf[1] = 0 // reserved
	binary.BigEndian.PutUint16(buf[2:4], h.MessageType)
	binary.BigEndian.PutUint16(buf[4:6], h.MessageID)
	buf[6] = h.FragmentID
	if h.LastFragment {
		buf[7] |= flagLastFragment
	}
	if h.RelayIndicator {
		buf[7] |= flagRelayIndicator
	}
	return buf
}

// CMDU is a single fully reassembled (or not-yet-fragmented) 1905 control
// message, §3.
type CMDU struct {
	MessageVersion uint8
	MessageType    uint16
	MessageID      uint16
	RelayIndicator bool
	TLVs           []TLV
}

// relayForced reports whether the standard fixes the relay-indicator value
// for this message type (everything except vendor-specific).
func relayForced(messageType uint16) (forced bool, value bool) {
	if messageType == CMDUTypeVendorSpecific {
		return false, false
	}
	return true, false
}

// Forge serializes cmdu into one or more on-wire fragments, each no larger
// than MaxNetworkSegmentSize bytes of TLV payload. Only the last fragment
// carries the last-fragment flag; for non-vendor-specific types the
// relay-indicator is forced to the standard value regardless of what the
// caller set.
func Forge(cmdu *CMDU) ([][]byte, error) {
	if err := validateForgeTLVs(cmdu.MessageType, cmdu.TLVs); err != nil {
		return nil, err
	}

	relayIndicator := cmdu.RelayIndicator
	if forced, value := relayForced(cmdu.MessageType); forced {
		relayIndicator = value
	}

	stream := EncodeTLVStream(cmdu.TLVs)

	var chunks [][]byte
	for off := 0; off < len(stream); off += MaxNetworkSegmentSize {
		end := off + MaxNetworkSegmentSize
		if end > len(stream) {
			end = len(stream)
		}
		chunks = append(chunks, stream[off:end])
	}
	if len(chunks) == 0 {
		chunks = [][]byte{{}}
	}

	fragments := make([][]byte, len(chunks))
	for i, chunk := range chunks {
		h := Header{
			MessageVersion: cmdu.MessageVersion,
			MessageType:    cmdu.MessageType,
			MessageID:      cmdu.MessageID,
			FragmentID:     uint8(i),
			LastFragment:   i == len(chunks)-1,
			RelayIndicator: relayIndicator,
		}
		fragments[i] = append(marshalFragmentHeader(h), chunk...)
	}
	return fragments, nil
}

// Parse reassembles a CMDU out of a complete, ordered (by fragment ID) set
// of fragment payloads sharing one header, validates the required TLVs for
// its message type are present, and drops everything beyond end-of-message.
func Parse(header Header, payloads [][]byte) (*CMDU, error) {
	var stream []byte
	for _, p := range payloads {
		stream = append(stream, p...)
	}
	tlvs, err := DecodeTLVStream(stream)
	if err != nil {
		return nil, err
	}
	cmdu := &CMDU{
		MessageVersion: header.MessageVersion,
		MessageType:    header.MessageType,
		MessageID:      header.MessageID,
		RelayIndicator: header.RelayIndicator,
		TLVs:           filterRequiredTLVs(header.MessageType, tlvs),
	}
	if err := validateRequiredTLVs(header.MessageType, cmdu.TLVs); err != nil {
		return nil, err
	}
	return cmdu, nil
}
