package upload

import (
	"fmt"
	"strings"

	"github.com/mwantia/carupload/data"
)

const (
	carExtension  = ".car"
	jsonExtension = ".json"
)

// DeriveKey builds the object storage key for an upload.
//
//	data/{name}/{cid}.car
//	file/{name}/{cid}.car
//	meta/{name}/{branch}.json
//
// The discriminator is a serialized CID for data and file, and a branch label
// for meta. Keys are unique per (kind, name, discriminator) because neither
// segment may contain a separator.
func DeriveKey(kind data.Kind, name, discriminator string) (string, error) {
	if !kind.IsValid() {
		return "", data.UnsupportedKind(string(kind))
	}
	if err := validateSegment("name", name); err != nil {
		return "", err
	}

	if kind.IsContentAddressed() {
		if err := validateSegment("car", discriminator); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s/%s/%s%s", kind, name, discriminator, carExtension), nil
	}

	if err := validateSegment("branch", discriminator); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s/%s/%s%s", kind, name, discriminator, jsonExtension), nil
}

func validateSegment(field, segment string) error {
	if segment == "" {
		return data.MissingParameter(field)
	}
	if segment == "." || segment == ".." || strings.ContainsAny(segment, "/\\") {
		return data.InvalidParameter(field)
	}
	return nil
}
