package keys

import (
	"crypto/rand"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/renameio"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"

	apperrors "p2p-discovery/go-client/internal/errors"
)

const pemType = "LIBP2P PRIVATE KEY"

// Generate creates a new ed25519 identity key
func Generate() (crypto.PrivKey, error) {
	priv, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, apperrors.WrapIOError(err, "generate identity", "failed to generate identity key")
	}
	return priv, nil
}

// LoadOrGenerate returns the identity stored at path, creating and saving a
// new one when the file does not exist. An empty path yields an ephemeral key.
func LoadOrGenerate(path string) (crypto.PrivKey, error) {
	if path == "" {
		return Generate()
	}

	priv, err := Load(path)
	if err == nil {
		return priv, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	priv, err = Generate()
	if err != nil {
		return nil, err
	}
	if err := Save(priv, path); err != nil {
		return nil, err
	}
	return priv, nil
}

// Save writes a private key to a PEM file readable only by the owner
func Save(priv crypto.PrivKey, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return apperrors.WrapIOError(err, "save identity", "failed to create directory").WithContext("path", path)
	}

	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return apperrors.WrapParseError(err, "save identity", "failed to marshal private key")
	}

	data := pem.EncodeToMemory(&pem.Block{Type: pemType, Bytes: raw})
	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return apperrors.WrapIOError(err, "save identity", "failed to write private key").WithContext("path", path)
	}
	return nil
}

// Load reads a private key from a PEM file
func Load(path string) (crypto.PrivKey, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.WrapIOError(err, "load identity", "failed to read private key file").WithContext("path", path)
	}

	block, _ := pem.Decode(pemData)
	if block == nil || block.Type != pemType {
		return nil, apperrors.NewParseError("load identity", "no PEM block containing a private key").WithContext("path", path)
	}

	priv, err := crypto.UnmarshalPrivateKey(block.Bytes)
	if err != nil {
		return nil, apperrors.WrapParseError(err, "load identity", "failed to parse private key").WithContext("path", path)
	}
	return priv, nil
}

// PeerID derives the peer identity of a private key
func PeerID(priv crypto.PrivKey) (peer.ID, error) {
	id, err := peer.IDFromPrivateKey(priv)
	if err != nil {
		return "", apperrors.WrapParseError(err, "peer id", "failed to derive peer id")
	}
	return id, nil
}
