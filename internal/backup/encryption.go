package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"
	"os"

	"golang.org/x/crypto/scrypt"
)

// Replication encryption: AES-256-GCM with an scrypt-derived key. A random
// salt and nonce prefix the ciphertext so each artifact is independently
// decryptable from the passphrase alone. Local artifacts are never
// encrypted; verify and restore must keep working offline.
const (
	encSaltSize = 16

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// EncryptedSuffix marks replicated objects that carry ciphertext.
const EncryptedSuffix = ".enc"

// EncryptionManager encrypts artifact bytes for offsite replication.
type EncryptionManager struct {
	passphrase string
}

// NewEncryptionManager creates a manager from a passphrase.
func NewEncryptionManager(passphrase string) *EncryptionManager {
	return &EncryptionManager{passphrase: passphrase}
}

func (em *EncryptionManager) deriveKey(salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(em.passphrase), salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, NewEncryptionError("key derivation failed", err)
	}
	return key, nil
}

// Encrypt seals data, returning salt || nonce || ciphertext.
func (em *EncryptionManager) Encrypt(data []byte) ([]byte, error) {
	salt := make([]byte, encSaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, NewEncryptionError("failed to generate salt", err)
	}

	key, err := em.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, NewEncryptionError("failed to generate nonce", err)
	}

	sealed := gcm.Seal(nil, nonce, data, nil)
	out := make([]byte, 0, len(salt)+len(nonce)+len(sealed))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)
	return out, nil
}

// Decrypt opens data produced by Encrypt.
func (em *EncryptionManager) Decrypt(data []byte) ([]byte, error) {
	if len(data) < encSaltSize {
		return nil, NewEncryptionError("ciphertext too short", nil)
	}
	salt, rest := data[:encSaltSize], data[encSaltSize:]

	key, err := em.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, NewEncryptionError("failed to create cipher", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, NewEncryptionError("failed to create GCM", err)
	}
	if len(rest) < gcm.NonceSize() {
		return nil, NewEncryptionError("ciphertext too short", nil)
	}
	nonce, sealed := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, NewEncryptionError("decryption failed (wrong passphrase or corrupt data)", err)
	}
	return plain, nil
}

// EncryptFile reads a local artifact and returns its sealed form.
func (em *EncryptionManager) EncryptFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewEncryptionError("failed to read artifact for encryption", err)
	}
	return em.Encrypt(data)
}
