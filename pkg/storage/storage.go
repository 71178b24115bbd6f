// Package storage persists opaque history blobs to disk, encrypted at
// rest with AES-256-GCM. The file format is versioned so an old or
// foreign file degrades to "no history" instead of crashing a session.
package storage

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/crypto/hkdf"
)

const (
	// storageVersion is the on-disk format version byte.
	storageVersion = 1

	keySize   = 32
	nonceSize = 12

	hkdfSalt = "kanaserve-history-store"
	hkdfInfo = "history-blob-v1"
)

// magic prefixes every history file.
var magic = []byte("KSRV")

var (
	// ErrNotFound means no blob has been saved yet.
	ErrNotFound = errors.New("storage: blob not found")
	// ErrVersionMismatch means the blob was written by an
	// incompatible format version.
	ErrVersionMismatch = errors.New("storage: blob version mismatch")
	// ErrCorrupt means the blob is truncated, tampered with, or was
	// encrypted under a different key.
	ErrCorrupt = errors.New("storage: blob corrupt")
	// ErrEmptySecret is returned when no key material is provided.
	ErrEmptySecret = errors.New("storage: secret cannot be empty")
)

// EncryptedFileStore reads and writes a single encrypted blob file.
type EncryptedFileStore struct {
	path string
	aead cipher.AEAD
}

// NewEncryptedFileStore derives a 256-bit AES key from secret using
// HKDF-SHA256 and opens a store at path. The file itself is created
// lazily on the first Save.
func NewEncryptedFileStore(path, secret string) (*EncryptedFileStore, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	key, err := deriveKey(secret)
	if err != nil {
		return nil, fmt.Errorf("derive storage key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return &EncryptedFileStore{path: path, aead: aead}, nil
}

// Load reads, authenticates and decrypts the blob.
func (s *EncryptedFileStore) Load() ([]byte, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(raw) < len(magic)+1+nonceSize {
		return nil, ErrCorrupt
	}
	if !bytes.Equal(raw[:len(magic)], magic) {
		return nil, ErrCorrupt
	}
	if raw[len(magic)] != storageVersion {
		return nil, ErrVersionMismatch
	}
	body := raw[len(magic)+1:]
	nonce, ciphertext := body[:nonceSize], body[nonceSize:]

	plaintext, err := s.aead.Open(nil, nonce, ciphertext, magic)
	if err != nil {
		return nil, ErrCorrupt
	}
	return plaintext, nil
}

// Save encrypts the blob and replaces the file atomically so a crash
// mid-write never leaves a half-written history behind.
func (s *EncryptedFileStore) Save(blob []byte) error {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, len(magic)+1+nonceSize+len(blob)+s.aead.Overhead())
	out = append(out, magic...)
	out = append(out, storageVersion)
	out = append(out, nonce...)
	out = s.aead.Seal(out, nonce, blob, magic)

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("create storage dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, out, 0600); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), []byte(hkdfSalt), []byte(hkdfInfo))
	key := make([]byte, keySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
