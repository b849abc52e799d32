package vm

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var digestEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor canonical enc mode: %v", err))
	}
	digestEncMode = em
}

// Digest returns the hex sha256 of the canonical CBOR encoding of the
// sequence's portable dump. Equal sequences always share a digest.
func (s *InstructionSequence) Digest() (string, error) {
	data, err := digestEncMode.Marshal(Portable(s.ToArray()))
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", s.Label, err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
