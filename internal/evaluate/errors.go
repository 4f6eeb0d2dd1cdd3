package evaluate

import "fmt"

// ServiceError is returned when the evaluation service answers with a non-2xx status.
type ServiceError struct {
	StatusCode int
	Status     string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("Search service error: %d %s", e.StatusCode, e.Status)
}

// ParseError describes an evaluation response that does not carry a verdict array.
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("evaluation response parse error: %s", e.Message)
}
