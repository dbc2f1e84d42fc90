package wsc

import (
	"crypto/rand"
	"fmt"
)

// Credential is one BSS's configuration as carried inside M2's Encrypted
// Settings attribute, §4.9.
type Credential struct {
	SSID       []byte
	BSSID      [6]byte
	AuthType   uint16
	EncrType   uint16
	NetworkKey []byte
}

// RegistrarProfile is the registrar-side configuration matched against an
// enrollee's M1 (frequency band and auth/encryption capability
// intersection, §4.8) and turned into the credentials M2 delivers.
type RegistrarProfile struct {
	RFBand      uint8
	AuthTypes   uint16 // bitmask; must intersect the enrollee's AuthTypeFlags
	EncrTypes   uint16 // bitmask; must intersect the enrollee's EncrTypeFlags
	Credentials []Credential
}

// Matches reports whether profile applies to an enrollee advertising band
// and the given auth/encr capability bitmasks, §4.8's "frequency-band
// exact-match and auth/encryption bitmask-intersection" matching rule.
func (p RegistrarProfile) Matches(band uint8, authFlags, encrFlags uint16) bool {
	return p.RFBand == band && p.AuthTypes&authFlags != 0 && p.EncrTypes&encrFlags != 0
}

func encodeCredentials(creds []Credential) []byte {
	var out []byte
	for _, c := range creds {
		out = append(out, encodeAttrs([]attribute{
			{attrSSID, c.SSID},
			{attrMACAddr, c.BSSID[:]},
			{attrAuthType, uint16Bytes(c.AuthType)},
			{attrEncrType, uint16Bytes(c.EncrType)},
			{attrNetworkKey, c.NetworkKey},
		})...)
	}
	return out
}

func decodeCredentials(data []byte) ([]Credential, error) {
	// Each credential is a fixed run of five attributes; decodeAttrs can't
	// tell repeated blocks apart on its own, so walk the stream credential
	// by credential instead of attribute by attribute.
	var creds []Credential
	off := 0
	for off < len(data) {
		attrs, consumed, err := decodeAttrsPrefix(data[off:], 5)
		if err != nil {
			return nil, err
		}
		ssid, ok := attrs[attrSSID]
		if !ok {
			return nil, fmt.Errorf("wsc: credential missing SSID attribute")
		}
		mac, ok := attrs[attrMACAddr]
		if !ok || len(mac) != 6 {
			return nil, fmt.Errorf("wsc: credential missing BSSID attribute")
		}
		authType, ok := attrs[attrAuthType]
		if !ok || len(authType) != 2 {
			return nil, fmt.Errorf("wsc: credential missing Auth Type attribute")
		}
		encrType, ok := attrs[attrEncrType]
		if !ok || len(encrType) != 2 {
			return nil, fmt.Errorf("wsc: credential missing Encr Type attribute")
		}
		netKey := attrs[attrNetworkKey]

		var c Credential
		copy(c.BSSID[:], mac)
		c.SSID = ssid
		c.AuthType = bytesUint16(authType)
		c.EncrType = bytesUint16(encrType)
		c.NetworkKey = netKey
		creds = append(creds, c)
		off += consumed
	}
	return creds, nil
}

// decodeAttrsPrefix decodes exactly n attributes starting at the front of
// data and reports how many bytes they consumed.
func decodeAttrsPrefix(data []byte, n int) (map[uint16][]byte, int, error) {
	out := make(map[uint16][]byte, n)
	off := 0
	for i := 0; i < n; i++ {
		if off+4 > len(data) {
			return nil, 0, fmt.Errorf("wsc: credential attribute header truncated")
		}
		typ := uint16(data[off])<<8 | uint16(data[off+1])
		length := int(data[off+2])<<8 | int(data[off+3])
		off += 4
		if off+length > len(data) {
			return nil, 0, fmt.Errorf("wsc: credential attribute 0x%04x value truncated", typ)
		}
		out[typ] = append([]byte(nil), data[off:off+length]...)
		off += length
	}
	return out, off, nil
}

// BuildM2 is the registrar-side builder: given the enrollee's parsed M1 and
// a matched profile, it runs the Diffie-Hellman agreement, derives keys,
// encrypts the credentials, and authenticates the envelope, §4.9 /
// al_wsc.h wscBuildM2.
func BuildM2(m1 *M1Info, profile RegistrarProfile) (m2 []byte, err error) {
	if m1.PeerPublicKey == nil {
		return nil, fmt.Errorf("wsc: BuildM2 requires a parsed M1 with a peer public key")
	}
	registrarKeyPair, err := generateDHKeyPair()
	if err != nil {
		return nil, fmt.Errorf("wsc: generating registrar DH keypair: %w", err)
	}
	registrarNonce := make([]byte, 16)
	if _, err := rand.Read(registrarNonce); err != nil {
		return nil, fmt.Errorf("wsc: generating registrar nonce: %w", err)
	}

	var peerPublic = bytesToBigInt(m1.PeerPublicKey)
	shared := registrarKeyPair.sharedSecret(peerPublic)
	keys := deriveKeys(shared, m1.Nonce, m1.MACAddress, registrarNonce)

	plainSettings := encodeCredentials(profile.Credentials)
	keyWrapAuth := authenticate(keys.authKey, nil, plainSettings)
	plainSettings = append(plainSettings, encodeAttrs([]attribute{{attrKeyWrapAuth, keyWrapAuth}})...)

	iv, ciphertext, err := encryptSettings(keys.keyWrapKey, plainSettings)
	if err != nil {
		return nil, fmt.Errorf("wsc: encrypting M2 settings: %w", err)
	}

	body := encodeAttrs([]attribute{
		{attrMsgType, []byte{byte(MsgTypeM2)}},
		{attrEnrolleeNonce, m1.Nonce},
		{attrRegistrarNonce, registrarNonce},
		{attrPublicKey, registrarKeyPair.public.Bytes()},
		{attrAuthTypeFlags, uint16Bytes(profile.AuthTypes)},
		{attrEncrTypeFlags, uint16Bytes(profile.EncrTypes)},
		{attrIV, iv},
		{attrEncrSettings, ciphertext},
	})
	authenticator := authenticate(keys.authKey, m1.raw, body)
	m2 = append(body, encodeAttrs([]attribute{{attrAuthenticator, authenticator}})...)
	return m2, nil
}

// ProcessM2 is the enrollee-side counterpart: it validates the HMAC
// authenticator, decrypts the settings, verifies the inner Key Wrap
// Authenticator, and returns the credentials, §4.9 / al_wsc.h
// wscProcessM2. On ANY failure (bad authenticator, decryption error,
// malformed attribute) the caller must reject M2 and stay in M1_SENT so the
// retry/backoff path can run again, §7's "WSC failure" handling.
func ProcessM2(m1 *M1Info, m2 []byte) ([]Credential, error) {
	if m1.PublicKey == nil {
		return nil, fmt.Errorf("wsc: ProcessM2 requires the enrollee's own M1Info with its DH keypair")
	}
	attrs, err := decodeAttrs(m2)
	if err != nil {
		return nil, fmt.Errorf("wsc: parsing M2: %w", err)
	}
	if MsgType(firstByte(attrs[attrMsgType])) != MsgTypeM2 {
		return nil, fmt.Errorf("wsc: envelope is not M2")
	}
	registrarNonce, ok := attrs[attrRegistrarNonce]
	if !ok || len(registrarNonce) != 16 {
		return nil, fmt.Errorf("wsc: M2 missing Registrar Nonce attribute")
	}
	registrarPublic, ok := attrs[attrPublicKey]
	if !ok || len(registrarPublic) == 0 {
		return nil, fmt.Errorf("wsc: M2 missing Public Key attribute")
	}
	iv, ok := attrs[attrIV]
	if !ok || len(iv) == 0 {
		return nil, fmt.Errorf("wsc: M2 missing IV attribute")
	}
	ciphertext, ok := attrs[attrEncrSettings]
	if !ok || len(ciphertext) == 0 {
		return nil, fmt.Errorf("wsc: M2 missing Encrypted Settings attribute")
	}
	authenticator, ok := attrs[attrAuthenticator]
	if !ok || len(authenticator) != 8 {
		return nil, fmt.Errorf("wsc: M2 missing Authenticator attribute")
	}

	bodyLen := len(m2) - (4 + len(authenticator))
	if bodyLen < 0 {
		return nil, fmt.Errorf("wsc: M2 shorter than its trailing Authenticator attribute")
	}
	body := m2[:bodyLen]

	shared := m1.PublicKey.sharedSecret(bytesToBigInt(registrarPublic))
	keys := deriveKeys(shared, m1.Nonce, m1.MACAddress, registrarNonce)

	wantAuth := authenticate(keys.authKey, m1.raw, body)
	if !hmacEqual(wantAuth, authenticator) {
		return nil, fmt.Errorf("wsc: M2 authenticator mismatch")
	}

	plainSettings, err := decryptSettings(keys.keyWrapKey, iv, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("wsc: decrypting M2 settings: %w", err)
	}

	settingsAttrs, err := decodeAttrs(plainSettings)
	if err != nil {
		return nil, fmt.Errorf("wsc: parsing decrypted M2 settings: %w", err)
	}
	keyWrapAuth, ok := settingsAttrs[attrKeyWrapAuth]
	if !ok || len(keyWrapAuth) != 8 {
		return nil, fmt.Errorf("wsc: decrypted M2 settings missing Key Wrap Authenticator")
	}
	credentialBytes := plainSettings[:len(plainSettings)-(4+len(keyWrapAuth))]
	wantKeyWrapAuth := authenticate(keys.authKey, nil, credentialBytes)
	if !hmacEqual(wantKeyWrapAuth, keyWrapAuth) {
		return nil, fmt.Errorf("wsc: M2 key wrap authenticator mismatch")
	}

	return decodeCredentials(credentialBytes)
}

func hmacEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
