package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input rejected before any network call.
	ErrValidation = errors.New("invalid input")
	// ErrInvalidTokenFormat marks a token that cannot be decoded into
	// three segments and a valid JSON payload.
	ErrInvalidTokenFormat = errors.New("invalid token format")
	// ErrSessionExpired marks a persisted token whose expiry claim has passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrUploadFailed marks a failed upload call; retryable by resubmission.
	ErrUploadFailed = errors.New("upload failed")
	// ErrScoreRetrieval marks a failed follow-up score fetch after a
	// nominally successful upload.
	ErrScoreRetrieval = errors.New("score retrieval failed")
	// ErrNetworkUnavailable marks the absence of any server response.
	ErrNetworkUnavailable = errors.New("network unavailable")
	// ErrEntryNotFound marks a history lookup miss.
	ErrEntryNotFound = errors.New("history entry not found")
	// ErrTemporary marks transient failures worth retrying.
	ErrTemporary = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
