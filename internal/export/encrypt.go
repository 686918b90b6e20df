package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// Encryptor wraps an export stream.
type Encryptor interface {
	Encrypt(r io.Reader, w io.Writer) error
}

// Decryptor unwraps a stream produced by an Encryptor.
type Decryptor interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// AgeEncryptor encrypts to one or more age recipients.
type AgeEncryptor struct {
	recipients []age.Recipient
}

var _ Encryptor = (*AgeEncryptor)(nil)

// NewPassphraseEncryptor encrypts with age's scrypt-based passphrase recipient.
func NewPassphraseEncryptor(passphrase string) (*AgeEncryptor, error) {
	if passphrase == "" {
		return nil, errors.New("empty passphrase")
	}
	r, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt recipient: %w", err)
	}
	return &AgeEncryptor{recipients: []age.Recipient{r}}, nil
}

// NewRecipientEncryptor encrypts to an X25519 public key. target is either an
// "age1..." key or the path of a file listing recipients one per line.
func NewRecipientEncryptor(target string) (*AgeEncryptor, error) {
	if strings.HasPrefix(target, "age1") {
		r, err := age.ParseX25519Recipient(target)
		if err != nil {
			return nil, fmt.Errorf("parsing recipient: %w", err)
		}
		return &AgeEncryptor{recipients: []age.Recipient{r}}, nil
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("reading recipients file: %w", err)
	}
	recipients, err := age.ParseRecipients(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing recipients file: %w", err)
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("no recipients found in %s", target)
	}
	return &AgeEncryptor{recipients: recipients}, nil
}

// Encrypt reads plaintext from r and writes age ciphertext to w.
func (e *AgeEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	encWriter, err := age.Encrypt(w, e.recipients...)
	if err != nil {
		return fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.Copy(encWriter, r); err != nil {
		return fmt.Errorf("encrypting data: %w", err)
	}
	if err := encWriter.Close(); err != nil {
		return fmt.Errorf("finalizing encryption: %w", err)
	}
	return nil
}

// AgeDecryptor holds unlocked age identities.
type AgeDecryptor struct {
	identities []age.Identity
}

var _ Decryptor = (*AgeDecryptor)(nil)

// NewPassphraseDecryptor decrypts exports made with NewPassphraseEncryptor.
func NewPassphraseDecryptor(passphrase string) (*AgeDecryptor, error) {
	id, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}
	return &AgeDecryptor{identities: []age.Identity{id}}, nil
}

// NewIdentityDecryptor parses X25519 identities, as written by age-keygen.
func NewIdentityDecryptor(r io.Reader) (*AgeDecryptor, error) {
	identities, err := age.ParseIdentities(r)
	if err != nil {
		return nil, fmt.Errorf("parsing identities: %w", err)
	}
	return &AgeDecryptor{identities: identities}, nil
}

// Decrypt reads age ciphertext from r and writes plaintext to w.
func (d *AgeDecryptor) Decrypt(r io.Reader, w io.Writer) error {
	decReader, err := age.Decrypt(r, d.identities...)
	if err != nil {
		return fmt.Errorf("creating decrypted reader: %w", err)
	}
	if _, err := io.Copy(w, decReader); err != nil {
		return fmt.Errorf("decrypting data: %w", err)
	}
	return nil
}
