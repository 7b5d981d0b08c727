// Package errno defines the coded errors shared by the pipeline components
// and their retryability classification. The external task runner consults
// the classification to decide between retry, escalation, and swallowing.
package errno

import (
	"errors"
	"fmt"
)

// Errno is a coded error. Code is stable and machine-readable; Message is for
// humans. Retryable errors may be re-attempted by the task runner; the rest
// must be escalated (or, for notification errors, swallowed by the caller).
type Errno struct {
	Code      string
	Message   string
	Retryable bool
}

// Error implements the error interface.
func (e *Errno) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithMessage clones the errno with a formatted message, keeping code and
// classification. The sentinel values below stay immutable.
func (e *Errno) WithMessage(format string, args ...any) *Errno {
	return &Errno{
		Code:      e.Code,
		Message:   fmt.Sprintf(format, args...),
		Retryable: e.Retryable,
	}
}

// Wrap attaches a cause to the message, keeping code and classification.
func (e *Errno) Wrap(err error) *Errno {
	if err == nil {
		return e
	}
	return e.WithMessage("%s: %v", e.Message, err)
}

// Is lets errors.Is match any clone of the same code.
func (e *Errno) Is(target error) bool {
	var t *Errno
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

var (
	// ErrInvalidArgument flags malformed input to an operation.
	ErrInvalidArgument = &Errno{Code: "InvalidArgument", Message: "invalid argument"}

	// ErrValidation flags a record rejected by schema validation. Reported
	// and counted, never retried: retrying cannot repair the record.
	ErrValidation = &Errno{Code: "ValidationError", Message: "record failed validation"}

	// ErrArtifactNotFound flags a missing object-store key.
	ErrArtifactNotFound = &Errno{Code: "ArtifactNotFound", Message: "artifact not found", Retryable: true}

	// ErrStagingUnavailable flags a transient object-store failure.
	ErrStagingUnavailable = &Errno{Code: "StagingUnavailable", Message: "artifact store unavailable", Retryable: true}

	// ErrStagingFailed flags a staging task that exhausted its attempts.
	ErrStagingFailed = &Errno{Code: "StagingFailed", Message: "staging exhausted retry budget"}

	// ErrDeserialization flags a corrupt staged artifact. Fatal for the
	// artifact: no number of retries can make the bytes parse.
	ErrDeserialization = &Errno{Code: "DeserializationError", Message: "staged artifact is corrupt"}

	// ErrStoreWrite flags a rejected batch insert into the analytical store.
	ErrStoreWrite = &Errno{Code: "StoreWriteError", Message: "analytical store rejected batch", Retryable: true}

	// ErrNotification flags a delivery failure on the messaging channel.
	// Always swallowed by the notifier, logged only.
	ErrNotification = &Errno{Code: "NotificationError", Message: "notification delivery failed"}
)

// IsRetryable reports whether err (or any error in its chain) is a retryable
// Errno. Unknown errors are treated as retryable so transient driver errors
// still get their attempts; known-fatal codes must come through an Errno.
func IsRetryable(err error) bool {
	var e *Errno
	if errors.As(err, &e) {
		return e.Retryable
	}
	return err != nil
}

// IsCode reports whether err carries the given errno code.
func IsCode(err error, code string) bool {
	var e *Errno
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
