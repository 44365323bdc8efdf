package conduit

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// KeyFileName is the identity blob the conduit workload writes into its data
// volume on first run. The manager treats it as opaque and read-only.
const KeyFileName = "conduit_key.json"

const nodeIDBytes = 32

type keyBlob struct {
	PrivateKey string `json:"privateKey"`
}

// ValidateKeyBlob checks that raw is a parsable identity blob without
// rewriting or normalizing it. Backups and restores copy the bytes verbatim.
func ValidateKeyBlob(raw []byte) error {
	_, err := decodeKey(raw)
	return err
}

// NodeID derives the display identifier for a node from its identity blob:
// the trailing 32 bytes of the decoded private key, re-encoded.
func NodeID(raw []byte) (string, error) {
	key, err := decodeKey(raw)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(key[len(key)-nodeIDBytes:]), nil
}

func decodeKey(raw []byte) ([]byte, error) {
	var blob keyBlob
	if err := json.Unmarshal(raw, &blob); err != nil {
		return nil, fmt.Errorf("parse key blob: %w", err)
	}
	if blob.PrivateKey == "" {
		return nil, fmt.Errorf("key blob has no privateKey field")
	}
	key, err := base64.StdEncoding.DecodeString(blob.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	if len(key) < nodeIDBytes {
		return nil, fmt.Errorf("private key too short: %d bytes", len(key))
	}
	return key, nil
}
