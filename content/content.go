// Package content decodes content identifiers and derives the integrity
// checksums that bind an upload to the bytes its CID names.
package content

import (
	"encoding/base64"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"github.com/mwantia/carupload/data"
)

// Identifier is a parsed content identifier. The zero value is undefined.
type Identifier struct {
	cid    cid.Cid
	digest []byte
	code   uint64
}

// Parse decodes a textual CID in any multibase (or the base58 CIDv0 form).
func Parse(text string) (Identifier, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Identifier{}, &data.IdentifierError{Text: text}
	}

	c, err := cid.Decode(trimmed)
	if err != nil {
		return Identifier{}, &data.IdentifierError{Text: text, Err: err}
	}

	decoded, err := multihash.Decode(c.Hash())
	if err != nil {
		return Identifier{}, &data.IdentifierError{Text: text, Err: err}
	}

	return Identifier{
		cid:    c,
		digest: decoded.Digest,
		code:   decoded.Code,
	}, nil
}

// Serialize returns the canonical textual form of id.
func Serialize(id Identifier) string {
	return id.String()
}

// Checksum returns the padded base64 encoding of the raw digest bytes.
func Checksum(id Identifier) string {
	return base64.StdEncoding.EncodeToString(id.digest)
}

func (id Identifier) String() string {
	if !id.Defined() {
		return ""
	}
	return id.cid.String()
}

func (id Identifier) Defined() bool {
	return id.cid.Defined()
}

// Digest returns a copy of the multihash digest bytes.
func (id Identifier) Digest() []byte {
	out := make([]byte, len(id.digest))
	copy(out, id.digest)
	return out
}

// Version is 0 or 1.
func (id Identifier) Version() uint64 {
	return id.cid.Version()
}

// HashCode is the multihash function code, e.g. multihash.SHA2_256.
func (id Identifier) HashCode() uint64 {
	return id.code
}

// HashName is the multihash function name, e.g. "sha2-256".
func (id Identifier) HashName() string {
	if name, ok := multihash.Codes[id.code]; ok {
		return name
	}
	return ""
}

func (id Identifier) Equals(other Identifier) bool {
	return id.cid.Equals(other.cid)
}

// CID exposes the underlying go-cid value.
func (id Identifier) CID() cid.Cid {
	return id.cid
}
