package messaging

type ChangeTopic string

const (
	// DocumentsChanged is published by the upstream source when the
	// library content or a configured column changed, the listing reloads
	// its items on it.
	DocumentsChanged ChangeTopic = "documents_changed"
	// RequestRecorded carries every recorded access request.
	RequestRecorded ChangeTopic = "request_recorded"
)
