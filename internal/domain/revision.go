package domain

// Revision is the optimistic concurrency stamp carried by every mutable document.
// Stores advance it on each successful replace and refuse a replace whose version
// no longer matches the stored one.
type Revision struct {
	Version int64 `json:"version"`
}

// DocumentVersion returns the version the document was read at.
func (r *Revision) DocumentVersion() int64 { return r.Version }

// SetDocumentVersion is called by stores after a write.
func (r *Revision) SetDocumentVersion(v int64) { r.Version = v }
