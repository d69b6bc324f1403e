package network

import (
	"encoding/base64"

	"warp/internal/logging"

	"github.com/libp2p/go-libp2p/core/crypto"
	peerstore "github.com/libp2p/go-libp2p/core/peer"
)

// KeyStore persists the node identity.
type KeyStore interface {
	LoadNodePrivateKey() (string, error)
	SaveNodePrivateKey(encoded string) error
}

func LoadOrCreatePrivateKey(store KeyStore) (crypto.PrivKey, error) {
	storedPrivKey, err := store.LoadNodePrivateKey()
	if err != nil {
		return nil, err
	}

	generateAndPersistNodeKey := func() (crypto.PrivKey, error) {
		generatedKey, encoded, err := GenerateNodeKey()
		if err != nil {
			return nil, err
		}
		if err := store.SaveNodePrivateKey(encoded); err != nil {
			return nil, err
		}

		logging.Log("NODE", "key_generated", nil)
		return generatedKey, nil
	}

	if storedPrivKey == "" {
		return generateAndPersistNodeKey()
	}

	loadedKey, err := DecodeNodeKey(storedPrivKey)
	if err != nil {
		logging.Log("NODE", "key_invalid", map[string]string{
			"reason": err.Error(),
		})
		return generateAndPersistNodeKey()
	}

	logging.Log("NODE", "key_loaded", nil)
	return loadedKey, nil
}

// GenerateNodeKey creates an Ed25519 identity and its base64 encoding.
func GenerateNodeKey() (crypto.PrivKey, string, error) {
	priv, _, err := crypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, "", err
	}
	raw, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return nil, "", err
	}
	return priv, base64.StdEncoding.EncodeToString(raw), nil
}

func DecodeNodeKey(encoded string) (crypto.PrivKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	return crypto.UnmarshalPrivateKey(raw)
}

func PeerIDFromKey(priv crypto.PrivKey) (peerstore.ID, error) {
	return peerstore.IDFromPrivateKey(priv)
}
