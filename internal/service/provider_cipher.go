package service

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

var errBadPadding = errors.New("invalid PKCS#7 padding")

// ProviderCipher is the aggregator payload cipher: AES-256 in ECB mode with
// PKCS#7 padding, base64 encoded. The same plaintext always yields the same
// ciphertext, which the protocol relies on for replayed responses.
type ProviderCipher struct {
	block cipher.Block
}

// NewProviderCipher takes the raw 32-byte provider key.
func NewProviderCipher(key string) (*ProviderCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("provider key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	return &ProviderCipher{block: block}, nil
}

// Encrypt pads, encrypts block by block and base64 encodes.
func (c *ProviderCipher) Encrypt(plaintext []byte) string {
	bs := c.block.BlockSize()
	pad := bs - len(plaintext)%bs
	buf := append(append([]byte(nil), plaintext...), bytes.Repeat([]byte{byte(pad)}, pad)...)
	for i := 0; i < len(buf); i += bs {
		c.block.Encrypt(buf[i:i+bs], buf[i:i+bs])
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// Decrypt reverses Encrypt.
func (c *ProviderCipher) Decrypt(encoded string) ([]byte, error) {
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	bs := c.block.BlockSize()
	if len(buf) == 0 || len(buf)%bs != 0 {
		return nil, fmt.Errorf("payload length %d is not a multiple of %d", len(buf), bs)
	}
	for i := 0; i < len(buf); i += bs {
		c.block.Decrypt(buf[i:i+bs], buf[i:i+bs])
	}

	pad := int(buf[len(buf)-1])
	if pad == 0 || pad > bs || pad > len(buf) {
		return nil, errBadPadding
	}
	for _, b := range buf[len(buf)-pad:] {
		if int(b) != pad {
			return nil, errBadPadding
		}
	}
	return buf[:len(buf)-pad], nil
}
