package catalog

import "fmt"

// PersistError reports that an operation was applied in memory but could not
// be written to the store. The catalog stays consistent; the change is lost on
// restart unless a later write succeeds.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
