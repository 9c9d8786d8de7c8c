package validation

import "strings"

// StructuralError reports every field of an input that failed structural
// validation. Each detail has the form "<field>: <message>".
type StructuralError struct {
	Details []string
}

func (e *StructuralError) Error() string {
	return "invalid input data: " + strings.Join(e.Details, "; ")
}

// BusinessError reports the first business rule an input violated.
type BusinessError struct {
	Message string
}

func (e *BusinessError) Error() string {
	return e.Message
}

func businessError(message string) *BusinessError {
	return &BusinessError{Message: message}
}
