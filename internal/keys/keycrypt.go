package keys

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// Encrypted private-key-at-rest format, used for the opt-in persisted
// session encoding. Layout of the base64 payload:
//
//	version(1) || logN(1) || salt(16) || nonce(24) || ciphertext(32+16)
//
// The key is derived with scrypt(passphrase, salt, N=2^logN, r=8, p=1) and
// the private key sealed with XChaCha20-Poly1305.

// EncryptedKeyPrefix marks an encrypted private key string.
const EncryptedKeyPrefix = "ncryptsec:"

const (
	keyCryptVersion = 1
	keyCryptLogN    = 16
	keyCryptSaltLen = 16
)

// EncryptPrivateKey seals a 32-byte private key under a passphrase.
func EncryptPrivateKey(privKey []byte, passphrase string) (string, error) {
	if len(privKey) != 32 {
		return "", errors.New("private key must be 32 bytes")
	}
	if passphrase == "" {
		return "", errors.New("empty passphrase")
	}

	salt := make([]byte, keyCryptSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	key, err := scrypt.Key([]byte(passphrase), salt, 1<<keyCryptLogN, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	payload := make([]byte, 0, 2+len(salt)+len(nonce)+len(privKey)+aead.Overhead())
	payload = append(payload, keyCryptVersion, keyCryptLogN)
	payload = append(payload, salt...)
	payload = append(payload, nonce...)
	payload = aead.Seal(payload, nonce, privKey, nil)

	return EncryptedKeyPrefix + base64.RawURLEncoding.EncodeToString(payload), nil
}

// DecryptPrivateKey opens an encrypted private key string.
func DecryptPrivateKey(encoded, passphrase string) ([]byte, error) {
	if !strings.HasPrefix(encoded, EncryptedKeyPrefix) {
		return nil, errors.New("not an encrypted key")
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(encoded, EncryptedKeyPrefix))
	if err != nil {
		return nil, err
	}
	if len(payload) < 2+keyCryptSaltLen+chacha20poly1305.NonceSizeX {
		return nil, errors.New("encrypted key too short")
	}
	if payload[0] != keyCryptVersion {
		return nil, errors.New("unsupported encrypted key version")
	}

	logN := int(payload[1])
	if logN < 10 || logN > 22 {
		return nil, errors.New("unreasonable scrypt cost")
	}

	salt := payload[2 : 2+keyCryptSaltLen]
	nonce := payload[2+keyCryptSaltLen : 2+keyCryptSaltLen+chacha20poly1305.NonceSizeX]
	ciphertext := payload[2+keyCryptSaltLen+chacha20poly1305.NonceSizeX:]

	key, err := scrypt.Key([]byte(passphrase), salt, 1<<logN, 8, 1, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	privKey, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.New("wrong passphrase or corrupted key")
	}
	if len(privKey) != 32 {
		return nil, errors.New("decrypted key has wrong length")
	}

	return privKey, nil
}
