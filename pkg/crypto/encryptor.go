package crypto

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"
)

// Encryptor seals small blobs (the client-held session) with an age X25519
// identity. Output is ASCII-armored so it can live in a dotfile.
type Encryptor struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

// NewEncryptor parses an AGE-SECRET-KEY-1... identity string.
func NewEncryptor(key string) (*Encryptor, error) {
	if strings.TrimSpace(key) == "" {
		return nil, errors.New("encryption key is empty")
	}
	identity, err := age.ParseX25519Identity(strings.TrimSpace(key))
	if err != nil {
		return nil, fmt.Errorf("parsing identity: %w", err)
	}
	return &Encryptor{
		identity:  identity,
		recipient: identity.Recipient(),
	}, nil
}

// GenerateKey generates a new encryption key and returns it
func GenerateKey() (string, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generating identity: %w", err)
	}
	return identity.String(), nil
}

// LoadOrCreateKey reads an identity from path, creating the file with a fresh
// identity (mode 0600) when it does not exist yet.
func LoadOrCreateKey(path string) (*Encryptor, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return NewEncryptor(string(data))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating key dir: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("writing key file: %w", err)
	}
	return NewEncryptor(key)
}

// Encrypt encrypts plaintext data and returns armored ciphertext
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer

	aw := armor.NewWriter(&buf)
	w, err := age.Encrypt(aw, e.recipient)
	if err != nil {
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("writing plaintext: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("closing encryptor: %w", err)
	}
	if err := aw.Close(); err != nil {
		return nil, fmt.Errorf("closing armor: %w", err)
	}

	return buf.Bytes(), nil
}

// Decrypt decrypts armored ciphertext and returns the plaintext
func (e *Encryptor) Decrypt(ciphertext []byte) ([]byte, error) {
	r, err := age.Decrypt(armor.NewReader(bytes.NewReader(ciphertext)), e.identity)
	if err != nil {
		return nil, fmt.Errorf("creating decryptor: %w", err)
	}

	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading plaintext: %w", err)
	}

	return plaintext, nil
}

// PublicKey returns the public key (recipient) as a string
func (e *Encryptor) PublicKey() string {
	return e.recipient.String()
}
