// Package stringbox provides authenticated asymmetric encryption for lists of
// strings, built on NaCl box (Curve25519/XSalsa20/Poly1305).
//
// All strings in one Encrypt call share one fresh nonce and are treated as one
// logical message; callers must not reuse a nonce across independent messages.
// The single sanctioned exception is EncryptComparable, which deliberately
// reuses a stored nonce so the same plaintext always maps to the same
// ciphertext for membership testing. That mode gives up semantic security for
// equal plaintexts and must not be used as a general-purpose encryption
// pattern.
//
// Keys, nonces and ciphertexts cross package boundaries as base64 strings.
// No key material is ever logged by this package.
package stringbox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/nacl/box"
)

const (
	keySize   = 32
	nonceSize = 24
)

// KeyPair holds a base64-encoded Curve25519 key pair.
type KeyPair struct {
	PublicKey  string
	PrivateKey string
}

// Message is the result of one Encrypt call: the ephemeral sender public key,
// the shared nonce, and one ciphertext per input string.
type Message struct {
	PublicKey   string
	Nonce       string
	CipherTexts []string
}

// GenerateKeyPair creates a fresh Curve25519 key pair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("generate key pair: %w", err)
	}
	return KeyPair{
		PublicKey:  base64.StdEncoding.EncodeToString(pub[:]),
		PrivateKey: base64.StdEncoding.EncodeToString(priv[:]),
	}, nil
}

// Encrypt seals each plaintext for the recipient under a fresh ephemeral
// sender key pair and a fresh random nonce. The ephemeral private key is
// discarded; decryption needs only the recipient private key and the returned
// message.
func Encrypt(plainTexts []string, recipientPublicKey string) (Message, error) {
	recipientPub, err := decodeKey(recipientPublicKey)
	if err != nil {
		return Message{}, fmt.Errorf("recipient public key: %w", err)
	}

	senderPub, senderPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return Message{}, fmt.Errorf("generate ephemeral key pair: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Message{}, fmt.Errorf("generate nonce: %w", err)
	}

	cipherTexts := make([]string, 0, len(plainTexts))
	for _, pt := range plainTexts {
		sealed := box.Seal(nil, []byte(pt), &nonce, recipientPub, senderPriv)
		cipherTexts = append(cipherTexts, base64.StdEncoding.EncodeToString(sealed))
	}

	return Message{
		PublicKey:   base64.StdEncoding.EncodeToString(senderPub[:]),
		Nonce:       base64.StdEncoding.EncodeToString(nonce[:]),
		CipherTexts: cipherTexts,
	}, nil
}

// Decrypt opens each ciphertext in the message with the recipient private key.
// Entries that fail authentication (tampered ciphertext, wrong key, wrong
// nonce) come back as nil rather than aborting the whole batch. An error is
// returned only when the keys or nonce themselves are malformed.
func Decrypt(recipientPrivateKey string, msg Message) ([]*string, error) {
	recipientPriv, err := decodeKey(recipientPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("recipient private key: %w", err)
	}
	senderPub, err := decodeKey(msg.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("sender public key: %w", err)
	}
	nonce, err := decodeNonce(msg.Nonce)
	if err != nil {
		return nil, err
	}

	plainTexts := make([]*string, len(msg.CipherTexts))
	for i, ct := range msg.CipherTexts {
		raw, err := base64.StdEncoding.DecodeString(ct)
		if err != nil {
			continue
		}
		opened, ok := box.Open(nil, raw, nonce, senderPub, recipientPriv)
		if !ok {
			continue
		}
		s := string(opened)
		plainTexts[i] = &s
	}
	return plainTexts, nil
}

// EncryptComparable reproduces the ciphertext a plaintext would have had in an
// earlier Encrypt call, given that call's sender public key and nonce plus the
// recipient private key. Curve25519 key agreement is symmetric, so sealing
// with (senderPublicKey, recipientPrivateKey) derives the same shared key as
// the original (recipientPublicKey, senderPrivateKey) pair.
//
// Comparison-oriented mode only: nonce reuse is deliberate here and unsafe
// anywhere else.
func EncryptComparable(plainText, senderPublicKey, recipientPrivateKey, storedNonce string) (string, error) {
	senderPub, err := decodeKey(senderPublicKey)
	if err != nil {
		return "", fmt.Errorf("sender public key: %w", err)
	}
	recipientPriv, err := decodeKey(recipientPrivateKey)
	if err != nil {
		return "", fmt.Errorf("recipient private key: %w", err)
	}
	nonce, err := decodeNonce(storedNonce)
	if err != nil {
		return "", err
	}

	sealed := box.Seal(nil, []byte(plainText), nonce, senderPub, recipientPriv)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func decodeKey(encoded string) (*[keySize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(raw) != keySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", keySize, len(raw))
	}
	var key [keySize]byte
	copy(key[:], raw)
	return &key, nil
}

func decodeNonce(encoded string) (*[nonceSize]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	if len(raw) != nonceSize {
		return nil, fmt.Errorf("nonce must be %d bytes, got %d", nonceSize, len(raw))
	}
	var nonce [nonceSize]byte
	copy(nonce[:], raw)
	return &nonce, nil
}
