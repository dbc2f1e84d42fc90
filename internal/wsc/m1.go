package wsc

import (
	"crypto/rand"
	"fmt"
)

// DeviceData names the fields an enrollee radio contributes to M1, §4.9.
type DeviceData struct {
	MACAddress     [6]byte
	AuthTypeFlags  uint16 // bitmask, WSC AuthType flags
	EncrTypeFlags  uint16 // bitmask, WSC EncrType flags
	RFBand         uint8  // FreqBand2_4GHz / FreqBand5GHz / FreqBand60GHz
}

// M1Info is the parsed form of an M1 envelope, kept alive on the registrar
// side between receiving M1 and building the matching M2, and on the
// enrollee side between building M1 and validating the received M2. It
// plays the role al_wsc.h's struct wscM1Info plays in the original
// implementation: M1's keying material survives only as long as this value
// does, which the Radio enrollee-state registry (registry.go) owns.
type M1Info struct {
	MACAddress    [6]byte
	Nonce         []byte
	PublicKey     *dhKeyPair // non-nil only on the side that generated it
	PeerPublicKey []byte
	AuthTypeFlags uint16
	EncrTypeFlags uint16
	RFBand        uint8
	raw           []byte // full M1 envelope, needed to authenticate M2
}

// BuildM1 produces the enrollee's M1 envelope and the M1Info the caller must
// retain (keyed by radio) until the matching M2 is processed or the
// handshake is abandoned, §4.9 / al_wsc.h wscBuildM1.
func BuildM1(dev DeviceData) (m1 []byte, info *M1Info, err error) {
	keyPair, err := generateDHKeyPair()
	if err != nil {
		return nil, nil, fmt.Errorf("wsc: generating enrollee DH keypair: %w", err)
	}
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("wsc: generating enrollee nonce: %w", err)
	}

	attrs := []attribute{
		{attrMsgType, []byte{byte(MsgTypeM1)}},
		{attrMACAddr, dev.MACAddress[:]},
		{attrEnrolleeNonce, nonce},
		{attrPublicKey, keyPair.public.Bytes()},
		{attrAuthTypeFlags, uint16Bytes(dev.AuthTypeFlags)},
		{attrEncrTypeFlags, uint16Bytes(dev.EncrTypeFlags)},
		{attrRFBands, []byte{dev.RFBand}},
	}
	m1 = encodeAttrs(attrs)

	info = &M1Info{
		MACAddress:    dev.MACAddress,
		Nonce:         nonce,
		PublicKey:     keyPair,
		AuthTypeFlags: dev.AuthTypeFlags,
		EncrTypeFlags: dev.EncrTypeFlags,
		RFBand:        dev.RFBand,
		raw:           m1,
	}
	return m1, info, nil
}

// ParseM1 is the registrar-side counterpart of BuildM1: it extracts the
// enrollee's identity and public key from a received M1 envelope, per
// al_wsc.h wscParseM1.
func ParseM1(m1 []byte) (*M1Info, error) {
	attrs, err := decodeAttrs(m1)
	if err != nil {
		return nil, fmt.Errorf("wsc: parsing M1: %w", err)
	}
	if MsgType(firstByte(attrs[attrMsgType])) != MsgTypeM1 {
		return nil, fmt.Errorf("wsc: envelope is not M1")
	}
	mac, ok := attrs[attrMACAddr]
	if !ok || len(mac) != 6 {
		return nil, fmt.Errorf("wsc: M1 missing MAC Address attribute")
	}
	nonce, ok := attrs[attrEnrolleeNonce]
	if !ok || len(nonce) != 16 {
		return nil, fmt.Errorf("wsc: M1 missing Enrollee Nonce attribute")
	}
	pubKey, ok := attrs[attrPublicKey]
	if !ok || len(pubKey) == 0 {
		return nil, fmt.Errorf("wsc: M1 missing Public Key attribute")
	}
	authFlags, ok := attrs[attrAuthTypeFlags]
	if !ok || len(authFlags) != 2 {
		return nil, fmt.Errorf("wsc: M1 missing Auth Type Flags attribute")
	}
	encrFlags, ok := attrs[attrEncrTypeFlags]
	if !ok || len(encrFlags) != 2 {
		return nil, fmt.Errorf("wsc: M1 missing Encr Type Flags attribute")
	}
	rfBand, ok := attrs[attrRFBands]
	if !ok || len(rfBand) != 1 {
		return nil, fmt.Errorf("wsc: M1 missing RF Bands attribute")
	}

	info := &M1Info{
		Nonce:         nonce,
		PeerPublicKey: pubKey,
		AuthTypeFlags: bytesUint16(authFlags),
		EncrTypeFlags: bytesUint16(encrFlags),
		RFBand:        rfBand[0],
		raw:           m1,
	}
	copy(info.MACAddress[:], mac)
	return info, nil
}

func uint16Bytes(v uint16) []byte { return []byte{byte(v >> 8), byte(v)} }
func bytesUint16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

func firstByte(b []byte) byte {
	if len(b) == 0 {
		return 0xFF
	}
	return b[0]
}
