package es

import (
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

// Compressor is the optional compression stage of the mapper pipeline.
type Compressor interface {
	Compress(state []byte) ([]byte, error)
	Decompress(state []byte) ([]byte, error)
}

// Cipher is the optional encryption stage of the mapper pipeline. It is
// applied after compression on encode and before decompression on decode.
type Cipher interface {
	Encrypt(state []byte) ([]byte, error)
	Decrypt(state []byte) ([]byte, error)
}

// GzipCompressor compresses event state with gzip at the default level.
type GzipCompressor struct{}

func (GzipCompressor) Compress(state []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(state); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (GzipCompressor) Decompress(state []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(state))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// AESGCMCipher encrypts event state with AES-GCM. The nonce is prepended to
// the ciphertext.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCMCipher builds a cipher from a 16, 24 or 32 byte key.
func NewAESGCMCipher(key []byte) (*AESGCMCipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &AESGCMCipher{aead: aead}, nil
}

func (c *AESGCMCipher) Encrypt(state []byte) ([]byte, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return c.aead.Seal(nonce, nonce, state, nil), nil
}

func (c *AESGCMCipher) Decrypt(state []byte) ([]byte, error) {
	if len(state) < c.aead.NonceSize() {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", ErrCorruptedLog)
	}
	nonce, ciphertext := state[:c.aead.NonceSize()], state[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptedLog, err)
	}
	return plain, nil
}
