package wsc

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/big"
)

// dhGroup is the 1536-bit MODP group (RFC 3526 Group 5), the default
// Diffie-Hellman group Wi-Fi Simple Configuration registrars and enrollees
// are required to support, §4.9.
var dhGroup = struct {
	p *big.Int
	g *big.Int
}{
	p: mustHexBig("" +
		"FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD1" +
		"29024E088A67CC74020BBEA63B139B22514A08798E3404DD" +
		"EF9519B3CD3A431B302B0A6DF25F14374FE1356D6D51C245" +
		"E485B576625E7EC6F44C42E9A637ED6B0BFF5CB6F406B7ED" +
		"EE386BFB5A899FA5AE9F24117C4B1FE649286651ECE45B3D" +
		"C2007CB8A163BF0598DA48361C55D39A69163FA8FD24CF5F" +
		"83655D23DCA3AD961C62F356208552BB9ED529077096966D" +
		"670C354E4ABC9804F1746C08CA237327FFFFFFFFFFFFFFFF"),
	g: big.NewInt(2),
}

func mustHexBig(hexStr string) *big.Int {
	n := new(big.Int)
	if _, ok := n.SetString(hexStr, 16); !ok {
		panic("wsc: invalid DH group constant")
	}
	return n
}

// dhKeyPair holds one side's ephemeral Diffie-Hellman key material.
type dhKeyPair struct {
	private *big.Int
	public  *big.Int
}

func generateDHKeyPair() (*dhKeyPair, error) {
	private, err := rand.Int(rand.Reader, dhGroup.p)
	if err != nil {
		return nil, err
	}
	if private.Sign() == 0 {
		private.SetInt64(1)
	}
	public := new(big.Int).Exp(dhGroup.g, private, dhGroup.p)
	return &dhKeyPair{private: private, public: public}, nil
}

func (kp *dhKeyPair) sharedSecret(peerPublic *big.Int) []byte {
	shared := new(big.Int).Exp(peerPublic, kp.private, dhGroup.p)
	return shared.Bytes()
}

func bytesToBigInt(b []byte) *big.Int {
	return new(big.Int).SetBytes(b)
}

// derivedKeys holds the three keys the WSC key-derivation function produces
// from the Diffie-Hellman shared secret, §4.9.
type derivedKeys struct {
	authKey    [32]byte // HMAC-SHA256 key authenticating M2/M2D
	keyWrapKey [16]byte // AES-128-CBC key encrypting the settings attribute
	emsk       [32]byte // extended master session key, unused beyond derivation
}

// deriveKeys implements the WSC KDF: DHKey = SHA-256(shared secret), then
// KDK = HMAC-SHA256(DHKey, enrolleeNonce || enrolleeMAC || registrarNonce),
// then a SP800-108-style counter-mode expansion of KDK into 640 bits split
// into AuthKey(256) || KeyWrapKey(128) || EMSK(256).
func deriveKeys(sharedSecret, enrolleeNonce []byte, enrolleeMAC [6]byte, registrarNonce []byte) derivedKeys {
	dhKeyHash := sha256.Sum256(sharedSecret)

	kdkMAC := hmac.New(sha256.New, dhKeyHash[:])
	kdkMAC.Write(enrolleeNonce)
	kdkMAC.Write(enrolleeMAC[:])
	kdkMAC.Write(registrarNonce)
	kdk := kdkMAC.Sum(nil)

	const personalization = "Wi-Fi Easy and Secure Key Derivation"
	const totalBits = 640
	var expanded []byte
	for i, counter := uint32(1), 0; len(expanded) < totalBits/8; i++ {
		_ = counter
		h := hmac.New(sha256.New, kdk)
		var iBuf [4]byte
		binary.BigEndian.PutUint32(iBuf[:], i)
		h.Write(iBuf[:])
		h.Write([]byte(personalization))
		var lenBuf [4]byte
		binary.BigEndian.PutUint32(lenBuf[:], totalBits)
		h.Write(lenBuf[:])
		expanded = append(expanded, h.Sum(nil)...)
	}
	expanded = expanded[:totalBits/8]

	var keys derivedKeys
	copy(keys.authKey[:], expanded[0:32])
	copy(keys.keyWrapKey[:], expanded[32:48])
	copy(keys.emsk[:], expanded[48:80])
	return keys
}
