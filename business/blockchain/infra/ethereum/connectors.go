package ethereum

import (
	"context"
	"crypto/ecdsa"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/fd1az/crystal-ball/business/blockchain/app"
	"github.com/fd1az/crystal-ball/business/blockchain/domain"
	"github.com/fd1az/crystal-ball/internal/apperror"
	"github.com/fd1az/crystal-ball/internal/config"
)

// SignerFunc builds a signer for an unlocked key.
type SignerFunc func(key *ecdsa.PrivateKey) (app.Signer, error)

// KeystoreConnector unlocks an encrypted JSON keystore file.
type KeystoreConnector struct {
	path       string
	passphrase string
	newSigner  SignerFunc
}

// NewKeystoreConnector creates a keystore connector.
func NewKeystoreConnector(path, passphrase string, newSigner SignerFunc) *KeystoreConnector {
	return &KeystoreConnector{path: path, passphrase: passphrase, newSigner: newSigner}
}

// Info describes the keystore connector. It is always listed and ready once a
// keystore path is configured.
func (c *KeystoreConnector) Info() domain.ConnectorInfo {
	return domain.ConnectorInfo{
		ID:          config.ConnectorKeystore,
		Name:        "Keystore",
		Recommended: true,
		Ready:       c.path != "",
	}
}

// Connect decrypts the keystore with the configured passphrase.
func (c *KeystoreConnector) Connect(_ context.Context) (app.Signer, error) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, apperror.New(apperror.CodeWalletConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("read keystore"))
	}

	key, err := keystore.DecryptKey(data, c.passphrase)
	if err != nil {
		return nil, apperror.New(apperror.CodeWalletConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("decrypt keystore"))
	}

	return c.newSigner(key.PrivateKey)
}

// PrivateKeyConnector uses a hex-encoded private key.
type PrivateKeyConnector struct {
	hexKey    string
	newSigner SignerFunc
}

// NewPrivateKeyConnector creates a raw private key connector.
func NewPrivateKeyConnector(hexKey string, newSigner SignerFunc) *PrivateKeyConnector {
	return &PrivateKeyConnector{hexKey: hexKey, newSigner: newSigner}
}

// Info describes the private key connector.
func (c *PrivateKeyConnector) Info() domain.ConnectorInfo {
	return domain.ConnectorInfo{
		ID:    config.ConnectorPrivateKey,
		Name:  "Private Key",
		Ready: c.hexKey != "",
	}
}

// Connect parses the hex key, with or without a 0x prefix.
func (c *PrivateKeyConnector) Connect(_ context.Context) (app.Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(c.hexKey, "0x"))
	if err != nil {
		return nil, apperror.New(apperror.CodeWalletConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext("parse private key"))
	}
	return c.newSigner(key)
}

// ConnectorsFromConfig lists the keystore connector always and the private key
// connector only when a key is configured.
func ConnectorsFromConfig(cfg config.WalletConfig, newSigner SignerFunc) []app.Connector {
	connectors := []app.Connector{
		NewKeystoreConnector(cfg.KeystorePath, cfg.KeystorePassphrase, newSigner),
	}
	if cfg.PrivateKey != "" {
		connectors = append(connectors, NewPrivateKeyConnector(cfg.PrivateKey, newSigner))
	}
	return connectors
}
