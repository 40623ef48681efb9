package response

// AppError is a business error with its response code. Kind carries the core
// error kind (OUT_OF_STOCK, CONCURRENT_MODIFICATION, ...) when there is one.
type AppError struct {
	Code    int
	Kind    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	prefix := e.Message
	if e.Kind != "" {
		prefix = e.Kind + ": " + e.Message
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// WrapError builds an AppError without a kind.
func WrapError(code int, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// KindError builds an AppError for a classified core failure.
func KindError(code int, kind, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}
