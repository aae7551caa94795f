package repository

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fernet/fernet-go"
)

// DocumentCodec transforms ledger documents on their way to and from storage.
type DocumentCodec interface {
	Seal(plain []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// NewCodec returns a fernet codec for a non-empty key and a pass-through codec otherwise.
func NewCodec(encodedKey string) (DocumentCodec, error) {
	if encodedKey == "" {
		return PlainCodec{}, nil
	}
	return NewFernetCodec(encodedKey)
}

// PlainCodec stores documents as plain JSON.
type PlainCodec struct{}

func (PlainCodec) Seal(plain []byte) ([]byte, error) { return plain, nil }

func (PlainCodec) Open(sealed []byte) ([]byte, error) { return sealed, nil }

var errUndecryptable = errors.New("document cannot be decrypted with the configured key")

// FernetCodec encrypts documents at rest with a fernet key.
// Plain JSON documents written before encryption was enabled are still readable,
// and are encrypted the next time they are written.
type FernetCodec struct {
	key *fernet.Key
}

// NewFernetCodec decodes a base64 fernet key.
func NewFernetCodec(encodedKey string) (*FernetCodec, error) {
	key, err := fernet.DecodeKey(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("invalid ledger encryption key: %w", err)
	}
	return &FernetCodec{key: key}, nil
}

func (c *FernetCodec) Seal(plain []byte) ([]byte, error) {
	tok, err := fernet.EncryptAndSign(plain, c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt document: %w", err)
	}
	return tok, nil
}

func (c *FernetCodec) Open(sealed []byte) ([]byte, error) {
	if trimmed := bytes.TrimSpace(sealed); len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return sealed, nil
	}
	msg := fernet.VerifyAndDecrypt(sealed, 0, []*fernet.Key{c.key})
	if msg == nil {
		return nil, errUndecryptable
	}
	return msg, nil
}
