// Package fieldcrypt encrypts individual monetary values for storage.
//
// The stored form is "hex(iv):hex(ciphertext)" where the iv is 16 random
// bytes and the ciphertext is AES-256-CBC over the decimal string form of
// the amount, PKCS#7 padded. The key is the SHA-256 digest of an
// operator-supplied secret.
//
// CBC provides confidentiality only; there is no authentication tag, so
// tampering is detected on a best-effort basis (padding, hex and numeric
// checks). Decode never substitutes a default value for a record it
// cannot decrypt.
package fieldcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const ivLength = aes.BlockSize // 16

var (
	// ErrMalformedCiphertext means the stored value does not have the
	// "ivhex:cthex" shape (missing separator, bad hex, wrong lengths).
	ErrMalformedCiphertext = errors.New("fieldcrypt: malformed ciphertext")

	// ErrDecryptionFailure means the value had the right shape but did not
	// decrypt to a valid amount under the configured key.
	ErrDecryptionFailure = errors.New("fieldcrypt: decryption failure")
)

// Codec encrypts and decrypts amounts under a fixed key. It holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	key [sha256.Size]byte
}

// New derives the 32-byte AES key from secret and returns a ready codec.
func New(secret string) *Codec {
	return &Codec{key: sha256.Sum256([]byte(secret))}
}

// Encode encrypts amount with a fresh random iv. Two calls with the same
// amount yield different outputs.
func (c *Codec) Encode(amount float64) (string, error) {
	plaintext := pkcs7Pad([]byte(formatAmount(amount)), aes.BlockSize)

	iv := make([]byte, ivLength)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("fieldcrypt: iv generation: %w", err)
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return "", fmt.Errorf("fieldcrypt: cipher init: %w", err)
	}

	ciphertext := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decode reverses Encode. It fails with ErrMalformedCiphertext on any
// structural problem and ErrDecryptionFailure when the decrypted bytes
// are not a number (wrong key, flipped ciphertext, corrupt row).
func (c *Codec) Decode(encoded string) (float64, error) {
	ivHex, ctHex, ok := strings.Cut(encoded, ":")
	if !ok {
		return 0, ErrMalformedCiphertext
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil || len(iv) != ivLength {
		return 0, ErrMalformedCiphertext
	}
	ciphertext, err := hex.DecodeString(ctHex)
	if err != nil || len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return 0, ErrMalformedCiphertext
	}

	block, err := aes.NewCipher(c.key[:])
	if err != nil {
		return 0, fmt.Errorf("fieldcrypt: cipher init: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return 0, ErrDecryptionFailure
	}

	amount, err := strconv.ParseFloat(string(unpadded), 64)
	if err != nil {
		return 0, ErrDecryptionFailure
	}
	return amount, nil
}

// formatAmount renders the amount the way the records were written:
// shortest decimal form, no exponent for typical monetary ranges.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding byte")
	}
	for _, pad := range b[len(b)-n:] {
		if int(pad) != n {
			return nil, errors.New("inconsistent padding")
		}
	}
	return b[:len(b)-n], nil
}
