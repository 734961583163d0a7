// Package mdflowerr defines the error kinds that determine the top-level
// handler's exit behavior, independent of which component raised them.
package mdflowerr

import "fmt"

// Kind names one of the fatal (or control-flow) error classes.
type Kind string

const (
	KindFileNotFound           Kind = "FileNotFound"
	KindFileSizeLimit          Kind = "FileSizeLimit"
	KindBinaryFileImport       Kind = "BinaryFileImport"
	KindSymbolNotFound         Kind = "SymbolNotFound"
	KindCircularImport         Kind = "CircularImport"
	KindNetworkError           Kind = "NetworkError"
	KindUnsupportedContentType Kind = "UnsupportedContentType"
	KindCommandFailed          Kind = "CommandFailed"
	KindTemplateError          Kind = "TemplateError"
	KindImportError            Kind = "ImportError"
	KindConfigurationError     Kind = "ConfigurationError"
	KindSecurityError          Kind = "SecurityError"
	KindUserCancelled          Kind = "UserCancelled"
	KindEarlyExitRequest       Kind = "EarlyExitRequest"
)

// Error wraps an underlying cause with the Kind that governs how the
// top-level handler reports it and which exit code it maps to.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Message: cause.Error(), Cause: cause}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// ExitCode maps a Kind to the process exit code the orchestrator uses
// when no driver ever ran (driver exit codes otherwise take priority).
func (k Kind) ExitCode() int {
	switch k {
	case KindConfigurationError:
		return 2
	case KindUserCancelled:
		return 130
	case KindEarlyExitRequest:
		return 0
	default:
		return 1
	}
}
