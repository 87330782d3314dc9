package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/subtle"
	"crypto/x509"
	"errors"
	"fmt"
)

const (
	// KeyBits is the RSA modulus size vanilla servers use.
	KeyBits = 1024
	// VerifyTokenSize is the length of the random challenge sent in the encryption request.
	VerifyTokenSize = 4
	// SecretSize is the length of the AES shared secret chosen by the client.
	SecretSize = 16
)

var ErrAuthentication = errors.New("auth: authentication failed")

// KeyPair is the server's RSA identity for the encryption handshake. It is generated once per
// process and shared by every connection.
type KeyPair struct {
	private   *rsa.PrivateKey
	publicDER []byte
}

func GenerateKeyPair() (*KeyPair, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("generating server key: %w", err)
	}
	return NewKeyPair(key)
}

func NewKeyPair(key *rsa.PrivateKey) (*KeyPair, error) {
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	return &KeyPair{private: key, publicDER: der}, nil
}

// PublicDER returns the public key in X.509 SubjectPublicKeyInfo DER form, as sent to clients.
func (k *KeyPair) PublicDER() []byte {
	return k.publicDER
}

// Decrypt undoes the client's PKCS#1 v1.5 encryption.
func (k *KeyPair) Decrypt(ciphertext []byte) ([]byte, error) {
	out, err := rsa.DecryptPKCS1v15(rand.Reader, k.private, ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}
	return out, nil
}

// Challenge is the per-connection state of one encryption handshake.
type Challenge struct {
	token []byte
}

func NewChallenge() (*Challenge, error) {
	token := make([]byte, VerifyTokenSize)
	if _, err := rand.Read(token); err != nil {
		return nil, err
	}
	return &Challenge{token: token}, nil
}

func (c *Challenge) Token() []byte {
	return c.token
}

// Verify decrypts the client's encryption response. It succeeds only if the verify token matches
// the one that was sent, and returns the shared secret.
func (c *Challenge) Verify(keys *KeyPair, encryptedSecret, encryptedToken []byte) ([]byte, error) {
	token, err := keys.Decrypt(encryptedToken)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare(token, c.token) != 1 {
		return nil, fmt.Errorf("%w: verify token mismatch", ErrAuthentication)
	}
	secret, err := keys.Decrypt(encryptedSecret)
	if err != nil {
		return nil, err
	}
	if len(secret) != SecretSize {
		return nil, fmt.Errorf("%w: shared secret is %d bytes", ErrAuthentication, len(secret))
	}
	return secret, nil
}
