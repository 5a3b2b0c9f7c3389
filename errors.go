package mirrorcache

import (
	"fmt"
)

// ClearError reports a partially failed EvictAll: key enumeration and bulk
// deletion are distinct remote calls and either can fail independently.
type ClearError struct {
	Collection string
	KeysErr    error
	DelErr     error
}

func (e *ClearError) Error() string {
	switch {
	case e.KeysErr != nil && e.DelErr != nil:
		return fmt.Sprintf("clear %q failed: keys scan and delete failed: keys=%v; delete=%v",
			e.Collection, e.KeysErr, e.DelErr)
	case e.KeysErr != nil:
		return fmt.Sprintf("clear %q: keys scan failed: %v", e.Collection, e.KeysErr)
	case e.DelErr != nil:
		return fmt.Sprintf("clear %q: delete failed: %v", e.Collection, e.DelErr)
	default:
		return fmt.Sprintf("clear %q: unknown error", e.Collection)
	}
}

func (e *ClearError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.KeysErr != nil {
		errs = append(errs, e.KeysErr)
	}
	if e.DelErr != nil {
		errs = append(errs, e.DelErr)
	}
	return errs
}
