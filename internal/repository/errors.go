package repository

import "fmt"

// TransportError is returned when no response was received (network, DNS, timeout)
type TransportError struct {
	Path string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rundeck api %s: transport failure: %v", e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is returned when Rundeck answers with an XML document flagged as an error
type APIError struct {
	Path    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("rundeck api %s: %s", e.Path, e.Message)
}

// ParseError is returned when a response body is neither XML nor JSON,
// or lacks the structure an operation expects
type ParseError struct {
	Path   string
	Body   string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("rundeck api %s: unable to parse response: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("rundeck api %s: unable to parse %q", e.Path, truncate(e.Body, 256))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
