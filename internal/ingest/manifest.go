package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	bolt "go.etcd.io/bbolt"
)

var manifestBucket = []byte("by_md5")

// ManifestEntry is what the manifest records for each fetched
// document: enough to short-circuit a re-fetch and to reconstruct the
// processed_manifest.json export.
type ManifestEntry struct {
	MD5         string    `json:"md5"`
	URL         string    `json:"url"`
	SourceKey   string    `json:"source_key"`
	BlobPath    string    `json:"blob_path"`
	ContentType string    `json:"content_type"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// ManifestStore is the content-addressed dedup ledger described in
// SPEC_FULL.md §5/§9: it answers "have we already processed this exact
// document" by MD5, independent of URL (documents get re-published
// under new URLs; the same bytes shouldn't be re-ingested).
//
// Backed by bbolt rather than a single JSON file: bbolt gives the
// write-temp-then-rename durability the spec calls for natively (every
// Put is one atomic transaction), where a hand-rolled JSON file would
// need to reimplement that. ExportJSON writes the entries out as a
// flat JSON array for operators/tooling that expect a file.
type ManifestStore struct {
	db *bolt.DB
}

// OpenManifest opens (creating if absent) the bbolt-backed manifest at
// path.
func OpenManifest(path string) (*ManifestStore, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening manifest %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(manifestBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing manifest bucket: %w", err)
	}
	return &ManifestStore{db: db}, nil
}

func (m *ManifestStore) Close() error {
	return m.db.Close()
}

// Lookup returns the recorded entry for md5, if any.
func (m *ManifestStore) Lookup(md5 string) (ManifestEntry, bool, error) {
	var entry ManifestEntry
	var found bool
	err := m.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(manifestBucket).Get([]byte(md5))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &entry)
	})
	return entry, found, err
}

// Record upserts the manifest entry for a fetched document.
func (m *ManifestStore) Record(entry ManifestEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return m.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(manifestBucket).Put([]byte(entry.MD5), raw)
	})
}

// ExportJSON writes every manifest entry to path as a single JSON
// array, the derived artifact operators and legacy tooling expect.
func (m *ManifestStore) ExportJSON(path string) error {
	var entries []ManifestEntry
	err := m.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(manifestBucket).ForEach(func(_, raw []byte) error {
			var e ManifestEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("reading manifest for export: %w", err)
	}

	raw, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
