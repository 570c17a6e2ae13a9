package infra

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/eliteGoblin/focusd/focuslock/internal/domain"
)

const (
	keyFileName = "store.key"
	keySize     = 32 // SQLCipher takes a raw 256-bit key
)

// ErrKeyReadOnly is returned when a provider cannot persist keys.
var ErrKeyReadOnly = errors.New("key provider is read-only")

// KeyProviderFor picks where the store key comes from. An explicit
// base64 key (from config or FOCUSLOCK_STORE_KEY) wins; otherwise the key
// lives in a file in dataDir and is created on first use.
func KeyProviderFor(encodedKey, dataDir string) domain.KeyProvider {
	if strings.TrimSpace(encodedKey) != "" {
		return NewStaticKeyProvider(encodedKey)
	}
	return NewFileKeyProvider(dataDir)
}

// FileKeyProvider keeps the store key base64-encoded in a file only its
// owner can read. The file is created exclusively, so two servers
// starting against one data dir agree on a single key.
type FileKeyProvider struct {
	keyPath string
}

// NewFileKeyProvider creates a FileKeyProvider for the given data directory.
func NewFileKeyProvider(dataDir string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: filepath.Join(dataDir, keyFileName)}
}

// NewFileKeyProviderWithPath uses an explicit key file path.
func NewFileKeyProviderWithPath(path string) *FileKeyProvider {
	return &FileKeyProvider{keyPath: path}
}

// Path returns the key file location.
func (p *FileKeyProvider) Path() string {
	return p.keyPath
}

// GetKey loads the key, refusing files that group or others can access.
func (p *FileKeyProvider) GetKey() ([]byte, error) {
	info, err := os.Stat(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat key file: %w", err)
	}
	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return nil, fmt.Errorf("key file %s is accessible by other users (mode %o)", p.keyPath, perm)
	}

	data, err := os.ReadFile(p.keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}
	return decodeKey(string(data))
}

// StoreKey creates the key file. It fails with an error wrapping
// os.ErrExist if a key is already there; existing keys are never replaced.
func (p *FileKeyProvider) StoreKey(key []byte) error {
	if len(key) != keySize {
		return fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	if err := os.MkdirAll(filepath.Dir(p.keyPath), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	f, err := os.OpenFile(p.keyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	_, werr := f.WriteString(base64.StdEncoding.EncodeToString(key) + "\n")
	cerr := f.Close()
	if err := errors.Join(werr, cerr); err != nil {
		_ = os.Remove(p.keyPath)
		return fmt.Errorf("failed to write key file: %w", err)
	}
	return nil
}

// KeyExists checks if the key file exists.
func (p *FileKeyProvider) KeyExists() bool {
	_, err := os.Stat(p.keyPath)
	return err == nil
}

// StaticKeyProvider serves a key supplied up front, e.g. from the
// environment of a managed deployment.
type StaticKeyProvider struct {
	encoded string
}

// NewStaticKeyProvider wraps a base64-encoded key.
func NewStaticKeyProvider(encoded string) *StaticKeyProvider {
	return &StaticKeyProvider{encoded: encoded}
}

func (p *StaticKeyProvider) GetKey() ([]byte, error) {
	return decodeKey(p.encoded)
}

func (p *StaticKeyProvider) StoreKey([]byte) error {
	return ErrKeyReadOnly
}

func (p *StaticKeyProvider) KeyExists() bool {
	return strings.TrimSpace(p.encoded) != ""
}

// GenerateKey creates a new random 256-bit key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate random key: %w", err)
	}
	return key, nil
}

// EnsureKey returns the provider's key, generating one on first use. If
// another process stores a key first, that key is returned instead.
func EnsureKey(provider domain.KeyProvider) ([]byte, error) {
	if provider.KeyExists() {
		return provider.GetKey()
	}
	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := provider.StoreKey(key); err != nil {
		if errors.Is(err, os.ErrExist) {
			return provider.GetKey()
		}
		return nil, err
	}
	return key, nil
}

func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("invalid key size: got %d, want %d", len(key), keySize)
	}
	return key, nil
}

var (
	_ domain.KeyProvider = (*FileKeyProvider)(nil)
	_ domain.KeyProvider = (*StaticKeyProvider)(nil)
)
