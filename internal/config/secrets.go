package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"filippo.io/age"
	"gopkg.in/yaml.v3"
)

// Secrets is the decrypted payload of the secrets file: a flat map of
// environment-variable names (ALPHA_VANTAGE_API_KEY, ...) to values.
type Secrets map[string]string

// LoadSecretsFile decrypts and parses the age-encrypted secrets file
// using the X25519 identity at keyPath.
func LoadSecretsFile(path, keyPath string) (Secrets, error) {
	ids, err := loadIdentities(keyPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open secrets file: %w", err)
	}
	defer f.Close()

	r, err := age.Decrypt(f, ids...)
	if err != nil {
		return nil, fmt.Errorf("decrypt secrets file: %w", err)
	}
	plaintext, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}

	var s Secrets
	if err := yaml.Unmarshal(plaintext, &s); err != nil {
		return nil, fmt.Errorf("parse secrets yaml: %w", err)
	}
	if s == nil {
		s = make(Secrets)
	}
	return s, nil
}

// SaveSecretsFile encrypts the secrets to path for the identity at
// keyPath (encrypting to its own recipient, so the same key decrypts).
func SaveSecretsFile(path, keyPath string, s Secrets) error {
	ids, err := loadIdentities(keyPath)
	if err != nil {
		return err
	}

	var recipients []age.Recipient
	for _, id := range ids {
		if x, ok := id.(*age.X25519Identity); ok {
			recipients = append(recipients, x.Recipient())
		}
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no X25519 identity in %s", keyPath)
	}

	plaintext, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, recipients...)
	if err != nil {
		return fmt.Errorf("encrypt secrets: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize secrets: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("write secrets file: %w", err)
	}
	return nil
}

// GenerateAgeKey writes a fresh X25519 identity to keyPath and returns
// its public recipient string.
func GenerateAgeKey(keyPath string) (string, error) {
	id, err := age.GenerateX25519Identity()
	if err != nil {
		return "", fmt.Errorf("generate identity: %w", err)
	}
	content := fmt.Sprintf("# public key: %s\n%s\n", id.Recipient(), id)
	if err := os.WriteFile(keyPath, []byte(content), 0o600); err != nil {
		return "", fmt.Errorf("write key file: %w", err)
	}
	return id.Recipient().String(), nil
}

func loadIdentities(keyPath string) ([]age.Identity, error) {
	f, err := os.Open(keyPath)
	if err != nil {
		return nil, fmt.Errorf("open age key: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse age key: %w", err)
	}
	return ids, nil
}
