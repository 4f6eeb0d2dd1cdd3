package types

// FetchedDocument is a resume PDF retrieved from a LinkRecord.
type FetchedDocument struct {
	Content    []byte `json:"-"`
	Filename   string `json:"filename"`
	SourceText string `json:"source_text"`
	SourceURL  string `json:"source_url"`
}

// Size returns the byte length of the document content.
func (d FetchedDocument) Size() int64 {
	return int64(len(d.Content))
}

// StatusState is the lifecycle state of a fetch status update.
type StatusState string

const (
	// StatusPending is reported before a request is issued
	StatusPending StatusState = "pending"
	// StatusSuccess is reported after a 2xx response has been read
	StatusSuccess StatusState = "success"
	// StatusError is reported on transport failure or a non-2xx response
	StatusError StatusState = "error"
	// StatusComplete is reported once after the whole batch
	StatusComplete StatusState = "complete"
)

// StatusEvent is a progress update for a document fetch batch.
type StatusEvent struct {
	Index   int         `json:"index"`
	Total   int         `json:"total"`
	State   StatusState `json:"state"`
	Message string      `json:"message"`
	Bytes   int64       `json:"bytes,omitempty"`
}
