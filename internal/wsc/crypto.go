package wsc

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// encryptSettings AES-128-CBC encrypts plaintext (PKCS#7 padded) under
// keyWrapKey with a fresh random IV, returning the IV and the ciphertext
// separately; BuildM2 carries them in two attributes (IV, Encrypted
// Settings).
func encryptSettings(keyWrapKey [16]byte, plaintext []byte) (iv, ciphertext []byte, err error) {
	block, err := aes.NewCipher(keyWrapKey[:])
	if err != nil {
		return nil, nil, err
	}
	iv = make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, nil, err
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ciphertext = make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)
	return iv, ciphertext, nil
}

// decryptSettings reverses encryptSettings.
func decryptSettings(keyWrapKey [16]byte, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("wsc: encrypted settings length %d is not a multiple of the AES block size", len(ciphertext))
	}
	block, err := aes.NewCipher(keyWrapKey[:])
	if err != nil {
		return nil, err
	}
	if len(iv) != aes.BlockSize {
		return nil, fmt.Errorf("wsc: IV length %d, want %d", len(iv), aes.BlockSize)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("wsc: cannot unpad empty data")
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, fmt.Errorf("wsc: invalid PKCS#7 padding length %d", padLen)
	}
	return data[:len(data)-padLen], nil
}

// authenticate computes the WSC Authenticator attribute value: the first 64
// bits of HMAC-SHA256(AuthKey, lastMessage || thisMessageWithoutAuthenticator).
func authenticate(authKey [32]byte, lastMessage, thisMessageNoAuth []byte) []byte {
	mac := hmac.New(sha256.New, authKey[:])
	mac.Write(lastMessage)
	mac.Write(thisMessageNoAuth)
	return mac.Sum(nil)[:8]
}
