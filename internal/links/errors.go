package links

import "fmt"

// ScanError represents a failure to read a page while scanning for links
type ScanError struct {
	Message string
	Cause   error
}

func (e *ScanError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("link scan error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("link scan error: %s", e.Message)
}

func (e *ScanError) Unwrap() error {
	return e.Cause
}
