package pivot

import "fmt"

// ConfigError reports a problem with a pivot registration file or one
// of its entries.
type ConfigError struct {
	File  string
	Entry string
	Msg   string
	Err   error
}

func (e *ConfigError) Error() string {
	switch {
	case e.Entry != "" && e.File != "":
		return fmt.Sprintf("pivot: entry %q in %s: %s", e.Entry, e.File, e.Msg)
	case e.File != "":
		return fmt.Sprintf("pivot: %s: %s", e.File, e.Msg)
	default:
		return "pivot: " + e.Msg
	}
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
