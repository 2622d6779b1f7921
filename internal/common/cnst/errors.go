package cnst

import "errors"

var (
	// ErrMissingCredentials is returned when neither an API key nor a token is configured
	ErrMissingCredentials = errors.New("you must provide an apikey or a token")
	// ErrConnectionNotOpen is returned when sending on a session without an open connection
	ErrConnectionNotOpen = errors.New("websocket connection is not open")
	// ErrSessionClosed is returned when using a session after Close
	ErrSessionClosed = errors.New("session closed")
	// ErrMalformedFrame is returned when an inbound frame is not a JSON object
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrReconnectExhausted is reported once the reconnect budget is spent
	ErrReconnectExhausted = errors.New("maximum reconnect attempts reached")
	// ErrNameOrMetadataRequired is returned when conversation attributes carry nothing to update
	ErrNameOrMetadataRequired = errors.New("either name or metadata must be provided")
)
