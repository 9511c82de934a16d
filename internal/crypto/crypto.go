package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"

	"golang.org/x/crypto/argon2"
)

// KeyLen — длина ключа для AES‑256 (в байтах).
const KeyLen = 32

var (
	// ErrKeyLength возвращается, если длина ключа не равна KeyLen.
	ErrKeyLength = errors.New("invalid key length")
	// ErrSealedTooShort — шифртекст короче nonce.
	ErrSealedTooShort = errors.New("sealed data too short")
	// ErrWiped — ключ уже уничтожен.
	ErrWiped = errors.New("secret key wiped")
)

// SecretKey — неизменяемый ключ тенанта. Передаётся по указателю во все задачи
// пайплайна, байты ключа не копируются.
type SecretKey struct {
	raw []byte
}

// NewSecretKey копирует raw один раз и проверяет длину.
func NewSecretKey(raw []byte) (*SecretKey, error) {
	if len(raw) != KeyLen {
		return nil, ErrKeyLength
	}
	k := make([]byte, KeyLen)
	copy(k, raw)
	return &SecretKey{raw: k}, nil
}

// GenerateKey создаёт новый случайный ключ.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, err
	}
	return key, nil
}

func (k *SecretKey) aead() (cipher.AEAD, error) {
	if k == nil || k.raw == nil {
		return nil, ErrWiped
	}
	block, err := aes.NewCipher(k.raw)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Seal шифрует plain с помощью AES‑GCM. Результат: nonce||ciphertext.
func (k *SecretKey) Seal(plain []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize(), gcm.NonceSize()+len(plain)+gcm.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plain, nil), nil
}

// Open расшифровывает результат Seal. Чужой ключ или изменённые данные дают ошибку.
func (k *SecretKey) Open(sealed []byte) ([]byte, error) {
	gcm, err := k.aead()
	if err != nil {
		return nil, err
	}
	ns := gcm.NonceSize()
	if len(sealed) < ns+gcm.Overhead() {
		return nil, ErrSealedTooShort
	}
	return gcm.Open(nil, sealed[:ns], sealed[ns:], nil)
}

// Wipe затирает байты ключа. После вызова Seal/Open возвращают ErrWiped.
func (k *SecretKey) Wipe() {
	if k == nil {
		return
	}
	for i := range k.raw {
		k.raw[i] = 0
	}
	k.raw = nil
}

// EncodePart кодирует шифртекст для колонки part_data.
func EncodePart(sealed []byte) string {
	return base64.URLEncoding.EncodeToString(sealed)
}

// DecodePart — обратная операция к EncodePart.
func DecodePart(data string) ([]byte, error) {
	return base64.URLEncoding.DecodeString(data)
}

// DeriveKey выводит мастер-ключ (KEK) из секрета конфигурации через argon2id.
func DeriveKey(passphrase, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, KeyLen)
}

// Wrap шифрует ключ тенанта мастер-ключом.
func Wrap(kek *SecretKey, tenantKey []byte) ([]byte, error) {
	if len(tenantKey) != KeyLen {
		return nil, ErrKeyLength
	}
	return kek.Seal(tenantKey)
}

// Unwrap расшифровывает ключ тенанта и возвращает готовый SecretKey.
func Unwrap(kek *SecretKey, wrapped []byte) (*SecretKey, error) {
	raw, err := kek.Open(wrapped)
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range raw {
			raw[i] = 0
		}
	}()
	return NewSecretKey(raw)
}
