package data

// Kind selects how an upload is addressed and which content type it carries.
type Kind string

const (
	KindData Kind = "data"
	KindFile Kind = "file"
	KindMeta Kind = "meta"
)

// IsContentAddressed reports whether objects of this kind are keyed by a CID
// and bound to an integrity checksum.
func (k Kind) IsContentAddressed() bool {
	return k == KindData || k == KindFile
}

// IsValid reports whether the kind is one of the supported kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindData, KindFile, KindMeta:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}
