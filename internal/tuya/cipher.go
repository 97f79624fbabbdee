package tuya

import (
	"bytes"
	"crypto/aes"
	"fmt"
)

// Tuya local protocol 3.3 encrypts payloads with AES-128 in ECB mode
// using the device's 16-byte local key, with PKCS#7 padding. ECB is the
// device's choice, not ours; there is no IV in the wire format.

const blockSize = aes.BlockSize

func pkcs7Pad(data []byte) []byte {
	padLen := blockSize - len(data)%blockSize
	padding := bytes.Repeat([]byte{byte(padLen)}, padLen)
	return append(data, padding...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padLen], nil
}

// encryptECB pads and encrypts data with the device key
func encryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("bad local key: %w", err)
	}

	padded := pkcs7Pad(data)
	encrypted := make([]byte, len(padded))
	for i := 0; i < len(padded); i += blockSize {
		block.Encrypt(encrypted[i:i+blockSize], padded[i:i+blockSize])
	}
	return encrypted, nil
}

// decryptECB decrypts data with the device key and strips the padding
func decryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("bad local key: %w", err)
	}
	if len(data)%blockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not block-aligned", len(data))
	}

	decrypted := make([]byte, len(data))
	for i := 0; i < len(data); i += blockSize {
		block.Decrypt(decrypted[i:i+blockSize], data[i:i+blockSize])
	}
	return pkcs7Unpad(decrypted)
}
