// Package keys holds keypair generation, derivation and the encodings the
// client accepts for private keys (hex, bech32, encrypted-at-rest).
package keys

import (
	"crypto/rand"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
)

// GeneratePrivateKey generates a new random secp256k1 private key (32 bytes)
func GeneratePrivateKey() ([]byte, error) {
	privKey, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return privKey.Serialize(), nil
}

// GetPublicKey derives the public key from a private key (x-only, 32 bytes).
// Derivation is deterministic: the same private key always yields the same
// BIP-340 x-only public key.
func GetPublicKey(privKeyBytes []byte) ([]byte, error) {
	if len(privKeyBytes) != 32 {
		return nil, errors.New("private key must be 32 bytes")
	}
	privKey, _ := btcec.PrivKeyFromBytes(privKeyBytes)
	pubKey := privKey.PubKey()
	// x-only pubkey (32 bytes) - BIP-340 format
	return pubKey.SerializeCompressed()[1:], nil
}

// GetPublicKeyHex derives the hex-encoded x-only public key from a hex
// private key.
func GetPublicKeyHex(privKeyHex string) (string, error) {
	privKeyBytes, err := hex.DecodeString(privKeyHex)
	if err != nil {
		return "", errors.New("invalid private key hex")
	}
	pubKeyBytes, err := GetPublicKey(privKeyBytes)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(pubKeyBytes), nil
}

// BytesToHex encodes bytes as lowercase hex.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

// HexToBytes decodes a hex string. Returns an error on odd length or
// non-hex characters rather than silently truncating.
func HexToBytes(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// RandomBytes returns n cryptographically random bytes.
func RandomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}
