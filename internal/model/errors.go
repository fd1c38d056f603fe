package model

import "errors"

// Error taxonomy shared by the sensor and the collector. Callers wrap these
// with fmt.Errorf("...: %w") and test with errors.Is.
var (
	// ErrValidation marks a malformed ingestion payload or record.
	ErrValidation = errors.New("validation error")
	// ErrPersistence marks a failed store transaction; the whole batch is abandoned.
	ErrPersistence = errors.New("persistence error")
	// ErrModel marks a fit or predict failure; the prior model state is untouched.
	ErrModel = errors.New("model error")
	// ErrTransport marks a failed sensor to collector send; the batch is dropped.
	ErrTransport = errors.New("transport error")
	// ErrPermission marks a capture device that cannot be opened for lack of privileges.
	ErrPermission = errors.New("insufficient capture privileges")
	// ErrAlreadyCollecting is returned when training is activated twice.
	ErrAlreadyCollecting = errors.New("already collecting")
	// ErrBusy is returned when the worker pool queue is full.
	ErrBusy = errors.New("pipeline busy")
)
