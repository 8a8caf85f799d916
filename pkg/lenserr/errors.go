// Package lenserr holds the sentinel errors shared by the lens registries,
// the extension entry point and the permission protocol. Call sites wrap them
// with fmt.Errorf("...: %w", err) so callers can test with errors.Is.
package lenserr

import "errors"

var (
	// ErrInvalidCallShape indicates a malformed extension call (arity or tag mismatch).
	ErrInvalidCallShape = errors.New("invalid call shape")

	// ErrMissingArgument indicates a nil extension argument that was replaced by a default.
	ErrMissingArgument = errors.New("missing argument")

	// ErrNotFound indicates a registry lookup miss.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKind indicates two providers claiming the same concrete kind.
	ErrDuplicateKind = errors.New("duplicate provider kind")

	// ErrDuplicateKey indicates a tool key that is already registered.
	ErrDuplicateKey = errors.New("duplicate tool key")

	// ErrUnauthorizedSender indicates a peer sent a message it may not originate.
	ErrUnauthorizedSender = errors.New("unauthorized sender")

	// ErrUnrecognizedMessageTag indicates a wire message with an unknown tag.
	ErrUnrecognizedMessageTag = errors.New("unrecognized message tag")

	// ErrToolDisabled indicates the local permission mirror denies a tool.
	ErrToolDisabled = errors.New("tool disabled")

	// ErrActivationFailed indicates a tool callback panicked.
	ErrActivationFailed = errors.New("tool activation failed")
)
