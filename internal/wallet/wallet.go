// Package wallet loads or creates the deployer signing keypair. Key
// files use the solana-keygen JSON byte-array format so they stay
// interchangeable with the standard tooling.
package wallet

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"

	"kira-treasury-go/internal/deployerr"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// LoadOrCreate returns the keypair stored at path, or generates a new
// one and persists it with owner-only permissions before returning. A
// freshly generated key that cannot be persisted is discarded: callers
// never see a key that is not on durable storage.
func LoadOrCreate(path string) (solana.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err == nil {
		return decodeKeyFile(path, raw)
	}
	if !os.IsNotExist(err) {
		return nil, &deployerr.PersistenceError{Op: "read", Path: path, Err: err}
	}
	return generate(path)
}

// Load returns the keypair stored at path, failing if it is absent.
func Load(path string) (solana.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &deployerr.PersistenceError{Op: "read", Path: path, Err: err}
	}
	return decodeKeyFile(path, raw)
}

func decodeKeyFile(path string, raw []byte) (solana.PrivateKey, error) {
	// solana-keygen writes a JSON array of numbers.
	var ints []int
	if err := json.Unmarshal(raw, &ints); err != nil {
		return nil, &deployerr.CorruptKeyError{Path: path, Reason: "not a JSON byte array"}
	}
	keyBytes := make([]byte, len(ints))
	for i, v := range ints {
		if v < 0 || v > 255 {
			return nil, &deployerr.CorruptKeyError{Path: path, Reason: "byte value out of range"}
		}
		keyBytes[i] = byte(v)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return nil, &deployerr.CorruptKeyError{Path: path, Reason: "wrong key length"}
	}
	// The second half of an ed25519 private key is the public key;
	// re-derive it from the seed to catch truncated or spliced files.
	derived := ed25519.NewKeyFromSeed(keyBytes[:ed25519.SeedSize])
	for i := ed25519.SeedSize; i < ed25519.PrivateKeySize; i++ {
		if derived[i] != keyBytes[i] {
			return nil, &deployerr.CorruptKeyError{Path: path, Reason: "public half does not match seed"}
		}
	}
	return solana.PrivateKey(keyBytes), nil
}

func generate(path string) (solana.PrivateKey, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, &deployerr.PersistenceError{Op: "generate", Path: path, Err: err}
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, &deployerr.PersistenceError{Op: "mkdir", Path: dir, Err: err}
		}
	}

	ints := make([]int, len(key))
	for i, b := range key {
		ints[i] = int(b)
	}
	raw, err := json.Marshal(ints)
	if err != nil {
		return nil, &deployerr.PersistenceError{Op: "encode", Path: path, Err: err}
	}

	// Write to a sibling temp file and rename so a crash mid-write
	// never leaves a half-written key behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, filePerm); err != nil {
		return nil, &deployerr.PersistenceError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, &deployerr.PersistenceError{Op: "rename", Path: path, Err: err}
	}
	return key, nil
}
