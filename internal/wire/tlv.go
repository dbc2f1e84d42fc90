package wire

import (
	"encoding/binary"
	"fmt"
)

// TLV is a single type-length-value record. Every concrete TLV kind in this
// package implements it; RawTLV carries anything the codec doesn't have a
// dedicated shape for (unknown types). Vendor-specific TLVs decode to
// VendorSpecificTLV instead.
type TLV interface {
	// Type returns the wire TLV_TYPE_* value.
	Type() uint8
	// Marshal returns the TLV value bytes (not including the type/length
	// prefix, which the CMDU forger writes).
	Marshal() []byte
}

// RawTLV is the fallback shape: an opaque type/value pair, used for
// unrecognized TLVs (dropped at dispatch), which this layer never
// interprets.
type RawTLV struct {
	TLVType uint8
	Value   []byte
}

func (r *RawTLV) Type() uint8     { return r.TLVType }
func (r *RawTLV) Marshal() []byte { return r.Value }

// entry is one decoded (type, length, value) triple read off the wire,
// before being reshaped into a concrete TLV struct.
type entry struct {
	typ   uint8
	value []byte
}

// splitEntries walks a raw TLV stream (the part of a CMDU after the header)
// and returns every entry before end-of-message, or an error if the stream
// is truncated or a length field overruns it. The end-of-message entry
// itself is not included in the returned slice.
func splitEntries(buf []byte) ([]entry, error) {
	var out []entry
	off := 0
	for {
		if off+3 > len(buf) {
			return nil, fmt.Errorf("wire: truncated TLV header at offset %d", off)
		}
		typ := buf[off]
		length := binary.BigEndian.Uint16(buf[off+1 : off+3])
		off += 3
		if typ == TLVTypeEndOfMessage && length == 0 {
			return out, nil
		}
		if off+int(length) > len(buf) {
			return nil, fmt.Errorf("wire: TLV type %d length %d overruns stream", typ, length)
		}
		out = append(out, entry{typ: typ, value: buf[off : off+int(length)]})
		off += int(length)
	}
}

// appendEntry writes one type/length/value triple to buf.
func appendEntry(buf []byte, typ uint8, value []byte) []byte {
	buf = append(buf, typ)
	var lenbuf [2]byte
	binary.BigEndian.PutUint16(lenbuf[:], uint16(len(value)))
	buf = append(buf, lenbuf[:]...)
	buf = append(buf, value...)
	return buf
}

// appendEndOfMessage writes the zero-length end-of-message sentinel.
func appendEndOfMessage(buf []byte) []byte {
	return append(buf, TLVTypeEndOfMessage, 0, 0)
}

func putMAC(buf []byte, m MAC) { copy(buf, m[:]) }

func getMAC(buf []byte) (MAC, error) {
	var m MAC
	if len(buf) < 6 {
		return m, fmt.Errorf("wire: MAC field too short (%d bytes)", len(buf))
	}
	copy(m[:], buf[:6])
	return m, nil
}
