// SPDX-License-Identifier: Apache-2.0

package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	MethodSHA256       = "sha256"
	MethodSHA256Salted = "sha256_salted"
)

// HashRule emits the hex-encoded SHA-256 digest of the value's canonical
// string form. Null hashes the same as the empty string, which makes the
// two indistinguishable downstream; that is the intended anonymization
// behavior.
type HashRule struct {
	name   string
	salted bool
	salt   string
}

func NewHashRule(emitAs, using, salt string) (*HashRule, error) {
	switch using {
	case MethodSHA256:
		return &HashRule{name: emitAs}, nil
	case MethodSHA256Salted:
		return &HashRule{name: emitAs, salted: true, salt: salt}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownHashMethod, using)
	}
}

func (r *HashRule) Apply(value any) (Emission, error) {
	input := canonicalString(value)
	if r.salted {
		input = r.salt + ":" + input
	}
	digest := sha256.Sum256([]byte(input))
	return Emission{Name: r.name, Value: hex.EncodeToString(digest[:]), Emitted: true}, nil
}

// canonicalString is the stringified form values are hashed over. Null maps
// to the empty string.
func canonicalString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
