// Package blob provides content-addressed storage for filing document
// bodies. Objects live under two logical namespaces keyed by the SHA1
// of the raw document bytes, so byte-identical content across filings
// collapses to one object.
package blob

// Key namespaces.
const (
	NamespaceRaw  = "raw"
	NamespaceText = "text"
)

// RawKey returns the storage key for a raw document body.
func RawKey(sha1 string) string {
	return "documents/raw/" + sha1
}

// TextKey returns the storage key for a document's extracted text.
func TextKey(sha1 string) string {
	return "documents/text/" + sha1
}

// Store is a key-value blob store.
//
// Put is idempotent: writing a key that already exists is a no-op, and
// implementations guarantee at-most-once physical write under
// concurrent ingestion of the same content. Get fails with
// edgar.NotFoundError when the key is absent.
type Store interface {
	Put(key string, data []byte) error
	Get(key string) ([]byte, error)
	Exists(key string) (bool, error)
}
