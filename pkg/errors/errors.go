package errors

import "fmt"

// ErrDial is returned when a websocket handshake fails
func ErrDial(uri string, err error) error {
	return fmt.Errorf("dial %s: %w", uri, err)
}

// ErrEncodeRequest is returned when a request body cannot be encoded
func ErrEncodeRequest(endpoint string, err error) error {
	return fmt.Errorf("encode request for %s: %w", endpoint, err)
}

// ErrDecodeResponse is returned when a response body cannot be decoded
func ErrDecodeResponse(endpoint string, err error) error {
	return fmt.Errorf("decode response from %s: %w", endpoint, err)
}

// ErrSocketClosedBeforeReply is returned when a chat session ends without a chat frame
func ErrSocketClosedBeforeReply(code int, reason string) error {
	return fmt.Errorf("websocket closed before reply: code=%d reason=%q", code, reason)
}

// ErrUnknownFactory is returned when a factory name is not served by the server
func ErrUnknownFactory(name string) error {
	return fmt.Errorf("unknown factory: %s", name)
}

// ErrUnsupportedConfigFormat is returned for config files that are neither YAML nor TOML
func ErrUnsupportedConfigFormat(ext string) error {
	return fmt.Errorf("unsupported config format: %s", ext)
}
