package board

// Request and response type bytes on session channels.
const (
	RequestView byte = 'v'
	RequestPost byte = 'm'

	ResponseRecords byte = 'r'
	ResponseSent    byte = 's'
)

// DefaultMaxRequestBytes bounds a single request line.
const DefaultMaxRequestBytes = 1024
