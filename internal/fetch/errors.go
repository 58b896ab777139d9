package fetch

import "fmt"

// PageError records which page request failed.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}
