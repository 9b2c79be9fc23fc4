// Package errors implements curated faults: a fixed vocabulary of
// conditions the emulator core can raise (a ROM that does not fit in
// flash at the requested offset) that callers inspect by identity
// instead of by matching formatted text.
package errors

import (
	"fmt"
	"strings"
)

// Cause holds the arguments substituted into a fault's message,
// including (optionally) other faults nested as context.
type Cause []interface{}

// fault is a message template plus its substituted causes. Two faults
// are considered to carry the same identity when their templates are
// byte-equal, regardless of what was substituted into them.
type fault struct {
	template string
	cause    Cause
}

// Errorf builds a fault from a message template and its causes. A
// cause may itself be a fault produced by Errorf, in which case Head
// and Has can see through to it.
func Errorf(template string, cause ...interface{}) error {
	return fault{template: template, cause: cause}
}

// Error renders the fault, collapsing an immediately-repeated head
// that would otherwise appear when a fault wraps another fault with
// an identical template (e.g. a bus fault reporting a bus fault).
func (f fault) Error() string {
	rendered := fmt.Errorf(f.template, f.cause...).Error()

	head, rest, found := strings.Cut(rendered, ": ")
	if !found {
		return rendered
	}
	nextHead, _, _ := strings.Cut(rest, ": ")
	if head == nextHead {
		return rest
	}
	return rendered
}

// Head returns the message template a fault was built from, or the
// plain Error() text if err isn't one of ours.
func Head(err error) string {
	if f, ok := err.(fault); ok {
		return f.template
	}
	return err.Error()
}

// IsAny reports whether err was produced by Errorf.
func IsAny(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(fault)
	return ok
}

// Is reports whether err's own template matches head.
func Is(err error, head string) bool {
	if err == nil {
		return false
	}
	f, ok := err.(fault)
	return ok && f.template == head
}

// Has reports whether head matches err's own template or that of any
// fault nested in its causes, searched recursively.
func Has(err error, head string) bool {
	if err == nil || !IsAny(err) {
		return false
	}
	if Is(err, head) {
		return true
	}

	f := err.(fault)
	for _, c := range f.cause {
		if nested, ok := c.(fault); ok && Has(nested, head) {
			return true
		}
	}
	return false
}
