// Package wire defines the JSON shapes the (out-of-scope) HTTP/JSON layer
// exchanges with clients, per spec.md §6. None of this is implemented by
// this repository — the HTTP surface itself remains an external
// collaborator — but a future HTTP package can import these types instead
// of re-deriving the wire contract.
package wire

// SubmitPackageRecordRequest is the request body of the package-record
// submission endpoint.
type SubmitPackageRecordRequest struct {
	Record         []byte               `json:"record"` // canonical signed envelope bytes
	ContentSources []ContentSourceEntry `json:"content_sources"`
}

// ContentSourceEntry is one content_sources[] entry.
type ContentSourceEntry struct {
	Digest string             `json:"digest"` // hex-encoded
	Kind   ContentSourceKind  `json:"kind"`
}

// ContentSourceKind tags the content-source union; only HttpAnonymous
// exists today, per spec.md §6.
type ContentSourceKind struct {
	HTTPAnonymous *HTTPAnonymousSource `json:"HttpAnonymous,omitempty"`
}

// HTTPAnonymousSource is the HttpAnonymous{url} content source kind.
type HTTPAnonymousSource struct {
	URL string `json:"url"`
}

// PendingResponseKind tags the PendingResponse tagged union (spec.md §6).
// Unknown is intentionally absent — it is never surfaced from this
// endpoint; the edge maps it to a 404 instead.
type PendingResponseKind string

const (
	PendingResponseProcessing PendingResponseKind = "Processing"
	PendingResponsePublished  PendingResponseKind = "Published"
	PendingResponseRejected   PendingResponseKind = "Rejected"
)

// PendingResponse is the response body of the package-record submission
// endpoint: a tagged union over Processing/Published/Rejected.
type PendingResponse struct {
	Kind      PendingResponseKind `json:"kind"`
	StatusURL string              `json:"status_url,omitempty"`  // Processing: /package/{LogId}/pending/{RecordId}
	RecordURL string              `json:"record_url,omitempty"`  // Published: /package/{LogId}/records/{RecordId}
	Reason    string              `json:"reason,omitempty"`      // Rejected
}
