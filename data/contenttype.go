package data

type ContentType string

const (
	ContentTypeApplicationCar  ContentType = "application/car"
	ContentTypeApplicationJson ContentType = "application/json"
)

// ContentTypeForKind returns the content type an upload of the given kind must declare.
func ContentTypeForKind(kind Kind) (ContentType, bool) {
	switch kind {
	case KindData, KindFile:
		return ContentTypeApplicationCar, true
	case KindMeta:
		return ContentTypeApplicationJson, true
	default:
		return "", false
	}
}

func (ct ContentType) String() string {
	return string(ct)
}
