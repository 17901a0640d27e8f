package backend

import (
	"net/url"
	"regexp"
)

// NamespacedKey joins namespace and key for key-value backends.
// Both parts are path-escaped, so a separator inside a namespace cannot
// collide with another (namespace, key) pair.
func NamespacedKey(namespace, key string) string {
	return url.PathEscape(namespace) + "/" + url.PathEscape(key)
}

// tableNamePattern accepts DynamoDB-style names such as "sam-app-metaStore".
var tableNamePattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,254}$`)

// ValidTableName reports whether name is usable as a table name. SQL backends
// still have to quote it, since it may contain '-' and '.'.
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}
