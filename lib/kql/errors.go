package kql

// TranslationError reports a statement that parsed cleanly but cannot
// be expressed as a KQL pipeline.
type TranslationError struct {
	Message string
	Err     error
}

func (e *TranslationError) Error() string {
	return e.Message
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}
