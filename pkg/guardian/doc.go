// Package guardian provides a content registry with similarity matching and
// license issuance.
//
// A Registry owns every ContentRecord. Registration fingerprints the body,
// uploads it to a content-addressed StorageClient, anchors the fingerprint and
// storage locator on a Ledger and persists a full snapshot of the registry
// through a PersistenceStore. Registration is all-or-nothing: if any
// collaborator fails, no record is kept.
//
// A Matcher scans the registry linearly for the record most similar to a
// query of the same content type (TF-IDF cosine for text, 8x8 luminance
// difference for images; see package similarity). A LicenseIssuer appends
// time-bounded licenses to registered records.
//
// Service composes the three behind a single interface. Collaborator
// implementations live in subpackages: storage/{memory,fs,s3},
// ledger/{memory,postgres} and repo/{file,memory,postgres,redis}.
package guardian
