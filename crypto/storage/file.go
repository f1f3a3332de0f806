package storage

import (
	"crypto/ecdh"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	corecrypto "github.com/arkaitz-dev/hashrand/crypto"
	"github.com/arkaitz-dev/hashrand/crypto/keys"
)

const fileKeyExt = ".key.json"

// fileKeyRecord is the on-disk representation of a stored key pair. Only the
// private-key material is persisted; the public key and fingerprint are
// re-derived on load.
type fileKeyRecord struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	PrivateKey string `json:"private_key"`
}

// fileKeyStorage implements KeyStorage by writing one JSON file per key under
// a root directory, keyed by filename.
type fileKeyStorage struct {
	dir string
	mu  sync.Mutex
}

// NewFileKeyStorage creates (if needed) dir and returns a KeyStorage backed by it.
func NewFileKeyStorage(dir string) (corecrypto.KeyStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("file key storage: empty directory")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("file key storage: %w", err)
	}
	return &fileKeyStorage{dir: dir}, nil
}

func (s *fileKeyStorage) path(id string) string {
	return filepath.Join(s.dir, id+fileKeyExt)
}

func (s *fileKeyStorage) Store(id string, keyPair corecrypto.KeyPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	priv, err := encodePrivateKey(keyPair)
	if err != nil {
		return err
	}

	record := fileKeyRecord{
		ID:         id,
		Type:       string(keyPair.Type()),
		PrivateKey: priv,
	}
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("file key storage: marshal %s: %w", id, err)
	}
	return os.WriteFile(s.path(id), data, 0600)
}

func (s *fileKeyStorage) Load(id string) (corecrypto.KeyPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, corecrypto.ErrKeyNotFound
		}
		return nil, fmt.Errorf("file key storage: read %s: %w", id, err)
	}

	var record fileKeyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("file key storage: decode %s: %w", id, err)
	}
	return decodePrivateKey(record)
}

func (s *fileKeyStorage) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil {
		if os.IsNotExist(err) {
			return corecrypto.ErrKeyNotFound
		}
		return fmt.Errorf("file key storage: delete %s: %w", id, err)
	}
	return nil
}

func (s *fileKeyStorage) List() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("file key storage: list: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileKeyExt) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), fileKeyExt))
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *fileKeyStorage) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(s.path(id))
	return err == nil
}

func encodePrivateKey(keyPair corecrypto.KeyPair) (string, error) {
	switch keyPair.Type() {
	case corecrypto.KeyTypeEd25519:
		priv, ok := keyPair.PrivateKey().(ed25519.PrivateKey)
		if !ok {
			return "", fmt.Errorf("file key storage: unexpected Ed25519 private key type %T", keyPair.PrivateKey())
		}
		return base64.StdEncoding.EncodeToString(priv), nil

	case corecrypto.KeyTypeX25519:
		priv, ok := keyPair.PrivateKey().(*ecdh.PrivateKey)
		if !ok {
			return "", fmt.Errorf("file key storage: unexpected X25519 private key type %T", keyPair.PrivateKey())
		}
		return base64.StdEncoding.EncodeToString(priv.Bytes()), nil

	default:
		return "", fmt.Errorf("file key storage: unsupported key type %s", keyPair.Type())
	}
}

func decodePrivateKey(record fileKeyRecord) (corecrypto.KeyPair, error) {
	raw, err := base64.StdEncoding.DecodeString(record.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("file key storage: decode %s: %w", record.ID, err)
	}

	switch corecrypto.KeyType(record.Type) {
	case corecrypto.KeyTypeEd25519:
		if len(raw) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("file key storage: bad Ed25519 key length for %s", record.ID)
		}
		return keys.NewEd25519KeyPair(ed25519.PrivateKey(raw), record.ID)

	case corecrypto.KeyTypeX25519:
		priv, err := ecdh.X25519().NewPrivateKey(raw)
		if err != nil {
			return nil, fmt.Errorf("file key storage: bad X25519 key for %s: %w", record.ID, err)
		}
		return keys.NewX25519KeyPair(priv, record.ID)

	default:
		return nil, fmt.Errorf("file key storage: unsupported key type %s for %s", record.Type, record.ID)
	}
}
