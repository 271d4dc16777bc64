package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// AmbiguousError reports that a target matched more than one file. The
// candidate list is sorted lexicographically and always attached; callers
// must never pick one silently.
type AmbiguousError struct {
	Target     string
	Candidates []string
	Tried      []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("resolver: ambiguous target %q: candidates [%s]",
		e.Target, strings.Join(e.Candidates, ", "))
}

// BrokenError reports that no file matched the target. Tried lists the
// locations that were searched, for diagnostics.
type BrokenError struct {
	Target string
	Tried  []string
}

func (e *BrokenError) Error() string {
	return fmt.Sprintf("resolver: broken target %q: tried [%s]",
		e.Target, strings.Join(e.Tried, ", "))
}

// AsAmbiguous unwraps err into an AmbiguousError if it is one.
func AsAmbiguous(err error) (*AmbiguousError, bool) {
	var ae *AmbiguousError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// AsBroken unwraps err into a BrokenError if it is one.
func AsBroken(err error) (*BrokenError, bool) {
	var be *BrokenError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
