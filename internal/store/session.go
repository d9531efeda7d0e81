package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/minagishl/nostro/internal/keys"
)

// Persisted session encodings. A single stored string disambiguates three
// ways: the extension sentinel, a raw hex key, or an encrypted key.
const (
	sessionExtension = "extension"
	sessionHexPrefix = "hex:"
)

// Persistence stores the single session string between runs.
type Persistence interface {
	Load() (string, bool)
	Save(value string) error
	Clear() error
}

// FileSession persists the session string to a file, the closest equivalent
// to the original client's browser-local storage.
type FileSession struct {
	path string
}

func NewFileSession(path string) *FileSession {
	return &FileSession{path: path}
}

func (f *FileSession) Load() (string, bool) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(string(data))
	return value, value != ""
}

func (f *FileSession) Save(value string) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(f.path, []byte(value), 0o600)
}

func (f *FileSession) Clear() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// MemorySession is an in-memory Persistence for tests and ephemeral runs.
type MemorySession struct {
	value string
	set   bool
}

func (m *MemorySession) Load() (string, bool) { return m.value, m.set }

func (m *MemorySession) Save(value string) error {
	m.value, m.set = value, true
	return nil
}

func (m *MemorySession) Clear() error {
	m.value, m.set = "", false
	return nil
}

// encodeSession produces the persisted string for the current signer mode.
// Local keys persist raw by default; a non-empty passphrase switches to the
// encrypted encoding.
func encodeSession(mode SignerMode, privKeyHex, passphrase string) (string, error) {
	switch mode {
	case SignerExtension:
		return sessionExtension, nil
	case SignerLocal:
		if privKeyHex == "" {
			return "", errors.New("no private key to persist")
		}
		if passphrase == "" {
			return sessionHexPrefix + privKeyHex, nil
		}
		privKey, err := keys.HexToBytes(privKeyHex)
		if err != nil {
			return "", err
		}
		return keys.EncryptPrivateKey(privKey, passphrase)
	default:
		return "", errors.New("no session to persist")
	}
}

// decodeSession reverses encodeSession. For the extension sentinel the
// returned key is empty; for encrypted encodings the passphrase must match.
func decodeSession(stored, passphrase string) (mode SignerMode, privKeyHex string, err error) {
	switch {
	case stored == sessionExtension:
		return SignerExtension, "", nil
	case strings.HasPrefix(stored, sessionHexPrefix):
		return SignerLocal, strings.TrimPrefix(stored, sessionHexPrefix), nil
	case strings.HasPrefix(stored, keys.EncryptedKeyPrefix):
		privKey, err := keys.DecryptPrivateKey(stored, passphrase)
		if err != nil {
			return SignerNone, "", err
		}
		return SignerLocal, keys.BytesToHex(privKey), nil
	default:
		return SignerNone, "", errors.New("unrecognized session encoding")
	}
}
