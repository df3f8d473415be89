package wlm

// invalidArgumentError signals programmer error in a PollBatch call.
type invalidArgumentError struct{ msg string }

func (e invalidArgumentError) Error() string { return "invalid argument: " + e.msg }

// IsInvalidArgument reports whether err came from a malformed call.
func IsInvalidArgument(err error) bool {
	_, ok := err.(invalidArgumentError)
	return ok
}

// tooBusyError signals admission rejection (ticket exhausted or data queue
// full) for 429 mapping.
type tooBusyError struct{ model string }

func (e tooBusyError) Error() string { return "too busy: " + e.model }

// ErrTooBusy constructs a backpressure error for the named model.
func ErrTooBusy(model string) error { return tooBusyError{model: model} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	_, ok := err.(tooBusyError)
	return ok
}

// modelNotFoundError signals a model name/version not present in the manager.
type modelNotFoundError struct{ key string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.key }

// ErrModelNotFound constructs an error for a missing model key.
func ErrModelNotFound(key string) error { return modelNotFoundError{key: key} }

// IsModelNotFound reports whether the error indicates a missing model.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// modelExistsError signals a duplicate registration.
type modelExistsError struct{ key string }

func (e modelExistsError) Error() string { return "model already registered: " + e.key }

// IsModelExists reports whether the error indicates a duplicate registration.
func IsModelExists(err error) bool {
	_, ok := err.(modelExistsError)
	return ok
}
