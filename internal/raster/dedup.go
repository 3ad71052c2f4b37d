package raster

import "crypto/sha256"

// DedupSet remembers raster fingerprints seen during one extraction pass.
// It is not safe for concurrent use.
type DedupSet struct {
	seen map[[sha256.Size]byte]struct{}
}

// NewDedupSet returns an empty set.
func NewDedupSet() *DedupSet {
	return &DedupSet{seen: make(map[[sha256.Size]byte]struct{})}
}

// Fingerprint hashes the decoded raster bytes. Strings that are not valid
// data URIs are hashed as-is.
func Fingerprint(uri string) [sha256.Size]byte {
	if b, _, err := DecodeDataURI(uri); err == nil {
		return sha256.Sum256(b)
	}
	return sha256.Sum256([]byte(uri))
}

// Add records uri and reports whether it was new.
func (d *DedupSet) Add(uri string) bool {
	if d.seen == nil {
		d.seen = make(map[[sha256.Size]byte]struct{})
	}
	fp := Fingerprint(uri)
	if _, ok := d.seen[fp]; ok {
		return false
	}
	d.seen[fp] = struct{}{}
	return true
}

// Len returns the number of distinct rasters seen.
func (d *DedupSet) Len() int { return len(d.seen) }
