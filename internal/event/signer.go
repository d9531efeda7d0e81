package event

import (
	"context"
	"encoding/hex"
	"errors"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"

	"github.com/minagishl/nostro/internal/types"
)

// Signer is whichever entity holds signing authority for the session's
// public key. Exactly one variant is active at a time: a local in-memory
// private key or an external extension capability.
type Signer interface {
	// PublicKey returns the hex x-only public key this signer signs for.
	PublicKey() string

	// Sign fills in ID and Sig on the unsigned event. The event's PubKey
	// must already match PublicKey().
	Sign(ctx context.Context, evt *types.Event) error
}

// Extension is the external signer capability (a browser-injected signer in
// the original deployment). Detection is a capability probe: the extension
// is available when a non-nil Extension has been registered.
type Extension interface {
	GetPublicKey(ctx context.Context) (string, error)

	// SignEvent receives the entire unsigned event and returns a fully
	// signed one. Its id/sig computation is authoritative and is not
	// re-derived locally.
	SignEvent(ctx context.Context, evt types.Event) (types.Event, error)
}

// LocalSigner signs with an in-memory secp256k1 private key.
type LocalSigner struct {
	privKey *btcec.PrivateKey
	pubKey  string
}

// NewLocalSigner builds a signer from a 32-byte private key.
func NewLocalSigner(privKeyBytes []byte) (*LocalSigner, error) {
	if len(privKeyBytes) != 32 {
		return nil, errors.New("private key must be 32 bytes")
	}
	privKey, _ := btcec.PrivKeyFromBytes(privKeyBytes)
	pubKeyBytes := privKey.PubKey().SerializeCompressed()[1:]
	return &LocalSigner{
		privKey: privKey,
		pubKey:  hex.EncodeToString(pubKeyBytes),
	}, nil
}

func (s *LocalSigner) PublicKey() string {
	return s.pubKey
}

func (s *LocalSigner) Sign(ctx context.Context, evt *types.Event) error {
	evt.ID = ComputeID(evt)

	idBytes, err := hex.DecodeString(evt.ID)
	if err != nil {
		return err
	}
	sig, err := schnorr.Sign(s.privKey, idBytes)
	if err != nil {
		return err
	}
	evt.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// ExtensionSigner delegates signing to the external capability.
type ExtensionSigner struct {
	ext    Extension
	pubKey string
}

// NewExtensionSigner probes the capability for its public key and binds the
// signer to it.
func NewExtensionSigner(ctx context.Context, ext Extension) (*ExtensionSigner, error) {
	if ext == nil {
		return nil, errors.New("extension not available")
	}
	pubKey, err := ext.GetPublicKey(ctx)
	if err != nil {
		return nil, err
	}
	if pubKey == "" {
		return nil, errors.New("extension returned empty public key")
	}
	return &ExtensionSigner{ext: ext, pubKey: pubKey}, nil
}

func (s *ExtensionSigner) PublicKey() string {
	return s.pubKey
}

func (s *ExtensionSigner) Sign(ctx context.Context, evt *types.Event) error {
	signed, err := s.ext.SignEvent(ctx, *evt)
	if err != nil {
		return err
	}
	if signed.ID == "" || signed.Sig == "" {
		return errors.New("extension returned unsigned event")
	}
	*evt = signed
	return nil
}
