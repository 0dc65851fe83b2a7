package store

// Key layout. Every key is prefixed with its record type.
const (
	bookPrefix = "book:"

	revokedTokenPrefix = "revoked:"

	syncConfigKey = "setting:sync_config"
	lastSyncKey   = "meta:last_sync"
)

// indexKey builds the key of a secondary index entry:
// <prefix>idx:<name>:<value>.
func indexKey(prefix, name, value string) []byte {
	buf := make([]byte, 0, len(prefix)+len("idx:")+len(name)+1+len(value))
	buf = append(buf, prefix...)
	buf = append(buf, "idx:"...)
	buf = append(buf, name...)
	buf = append(buf, ':')
	buf = append(buf, value...)
	return buf
}

// recordKey builds the primary key of a record.
func recordKey(prefix, id string) []byte {
	buf := make([]byte, 0, len(prefix)+len(id))
	buf = append(buf, prefix...)
	buf = append(buf, id...)
	return buf
}

// isIndexKey reports whether key (under prefix) is an index entry.
func isIndexKey(prefix string, key []byte) bool {
	rest := key[len(prefix):]
	return len(rest) >= 4 && string(rest[:4]) == "idx:"
}
