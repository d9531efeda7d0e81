package keys

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestPublicKeyDerivationIsDeterministic(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey failed: %v", err)
	}
	if len(priv) != 32 {
		t.Fatalf("expected 32-byte private key, got %d", len(priv))
	}

	first, err := GetPublicKey(priv)
	if err != nil {
		t.Fatalf("GetPublicKey failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := GetPublicKey(priv)
		if err != nil {
			t.Fatalf("GetPublicKey failed on repeat %d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("derivation not deterministic: %x vs %x", first, again)
		}
	}
}

func TestKnownKeyDerivation(t *testing.T) {
	// Private key 0x00..01 derives the x coordinate of the secp256k1
	// generator point (standard curve test vector).
	priv := make([]byte, 32)
	priv[31] = 1

	pub, err := GetPublicKey(priv)
	if err != nil {
		t.Fatalf("GetPublicKey failed: %v", err)
	}

	expected := "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	if hex.EncodeToString(pub) != expected {
		t.Errorf("pubkey mismatch:\ngot:      %x\nexpected: %s", pub, expected)
	}
}

func TestHexRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x00},
		{0xff, 0x00, 0xab},
		bytes.Repeat([]byte{0x5a}, 32),
	}

	for _, b := range cases {
		decoded, err := HexToBytes(BytesToHex(b))
		if err != nil {
			t.Fatalf("round trip failed for %x: %v", b, err)
		}
		if !bytes.Equal(decoded, b) {
			t.Errorf("round trip mismatch: %x -> %x", b, decoded)
		}
	}

	if _, err := HexToBytes("abc"); err == nil {
		t.Error("expected error for odd-length hex")
	}
	if _, err := HexToBytes("zz"); err == nil {
		t.Error("expected error for non-hex characters")
	}
}

func TestNsecNpubRoundTrip(t *testing.T) {
	privHex := "edc90d06fee17615229c8526dc005d959e4af3bdc0b48c5776c951bcafedec85"

	nsec, err := EncodeNsec(privHex)
	if err != nil {
		t.Fatalf("EncodeNsec failed: %v", err)
	}
	t.Logf("nsec: %s", nsec)

	decoded, err := DecodeNsec(nsec)
	if err != nil {
		t.Fatalf("DecodeNsec failed: %v", err)
	}
	if decoded != privHex {
		t.Errorf("nsec round trip mismatch: %s != %s", decoded, privHex)
	}

	pubHex, err := GetPublicKeyHex(privHex)
	if err != nil {
		t.Fatalf("GetPublicKeyHex failed: %v", err)
	}

	npub, err := EncodeNpub(pubHex)
	if err != nil {
		t.Fatalf("EncodeNpub failed: %v", err)
	}
	decodedPub, err := DecodeNpub(npub)
	if err != nil {
		t.Fatalf("DecodeNpub failed: %v", err)
	}
	if decodedPub != pubHex {
		t.Errorf("npub round trip mismatch: %s != %s", decodedPub, pubHex)
	}

	if _, err := DecodeNsec(npub); err == nil {
		t.Error("expected DecodeNsec to reject an npub")
	}
}

func TestEncryptedKeyRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey failed: %v", err)
	}

	encoded, err := EncryptPrivateKey(priv, "correct horse")
	if err != nil {
		t.Fatalf("EncryptPrivateKey failed: %v", err)
	}
	t.Logf("encrypted: %s", encoded)

	decrypted, err := DecryptPrivateKey(encoded, "correct horse")
	if err != nil {
		t.Fatalf("DecryptPrivateKey failed: %v", err)
	}
	if !bytes.Equal(decrypted, priv) {
		t.Error("decrypted key does not match original")
	}

	if _, err := DecryptPrivateKey(encoded, "wrong passphrase"); err == nil {
		t.Error("expected decryption to fail with wrong passphrase")
	}
	if _, err := DecryptPrivateKey("nsec1notencrypted", "x"); err == nil {
		t.Error("expected error for non-encrypted input")
	}
}
