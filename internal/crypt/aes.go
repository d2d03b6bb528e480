// Package crypt unwraps stream key tokens and decrypts protected
// stream payloads.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrNoMasterKey is returned when a protected stream is seen but no
// master key was configured.
var ErrNoMasterKey = errors.New("decryption master key not configured")

// AES decrypts streams whose key token is wrapped with AES-CBC under a
// master key and whose payload is AES-CTR encrypted.
type AES struct {
	masterKey []byte
}

// NewAES builds a decrypter from a base64 encoded master key.
// An empty key is accepted; Decrypt then fails with ErrNoMasterKey.
func NewAES(masterKeyBase64 string) (*AES, error) {
	if masterKeyBase64 == "" {
		return &AES{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(masterKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode master key: %w", err)
	}
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("master key must be 16, 24 or 32 bytes, got %d", len(key))
	}
	return &AES{masterKey: key}, nil
}

// DecryptToken unwraps a key token into the 16 byte content key and the
// 8 byte nonce.
//
// The token is base64: a 16 byte IV followed by the CBC-encrypted
// key material.
func (a *AES) DecryptToken(token string) (key, nonce []byte, err error) {
	if len(a.masterKey) == 0 {
		return nil, nil, ErrNoMasterKey
	}
	raw, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, nil, fmt.Errorf("decode key token: %w", err)
	}
	if len(raw) < aes.BlockSize*2 || len(raw)%aes.BlockSize != 0 {
		return nil, nil, fmt.Errorf("key token has invalid length %d", len(raw))
	}

	block, err := aes.NewCipher(a.masterKey)
	if err != nil {
		return nil, nil, err
	}
	iv, sealed := raw[:aes.BlockSize], raw[aes.BlockSize:]
	plain := make([]byte, len(sealed))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, sealed)
	if len(plain) < 24 {
		return nil, nil, fmt.Errorf("key token too short")
	}
	return plain[:16], plain[16:24], nil
}

// DecryptFile writes the plaintext of src into dst using AES-CTR with
// the counter block nonce||00000000.
func (a *AES) DecryptFile(src, dst string, key, nonce []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	iv := make([]byte, aes.BlockSize)
	copy(iv, nonce)

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	r := &cipher.StreamReader{S: cipher.NewCTR(block, iv), R: in}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("decrypt %s: %w", src, err)
	}
	return out.Close()
}

// Decrypt unwraps token and decrypts src into dst.
func (a *AES) Decrypt(token, src, dst string) error {
	key, nonce, err := a.DecryptToken(token)
	if err != nil {
		return err
	}
	return a.DecryptFile(src, dst, key, nonce)
}
