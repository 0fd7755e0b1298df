package literate

import (
	"errors"
	"fmt"
	"strings"
)

// Kind tags the source of a failure.
type Kind uint8

const (
	// KindParse means the source text did not parse.
	KindParse Kind = iota + 1
	// KindStructural means a parsed function body broke the brace invariant.
	KindStructural
	// KindEnvironment means a required configuration value is missing.
	KindEnvironment
	// KindIO means a filesystem or stream operation failed.
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindStructural:
		return "structural"
	case KindEnvironment:
		return "environment"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// ErrStructural is wrapped by every KindStructural error.
var ErrStructural = errors.New("unexpected token")

// Error is the tagged error returned across the package boundary.
type Error struct {
	Kind Kind
	// Path names the page or file being processed, when known.
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Err.Error()
	if e.Path == "" || strings.HasPrefix(msg, e.Path+": ") {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Path, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// Wrap tags err with kind and path. A nil err stays nil and an err that is
// already an *Error keeps its kind; it only gains the path if it had none.
func Wrap(kind Kind, path string, err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		if e.Path != "" || path == "" {
			return e
		}
		c := *e
		c.Path = path
		return &c
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: kind, Path: path, Err: err}
}

// Errors collects the failures of independent pages. It prints them on one
// line separated by "; ".
type Errors []error

func (es Errors) Error() string {
	msgs := make([]string, len(es))
	for i, err := range es {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

func (es Errors) Unwrap() []error { return es }

// Join returns the non-nil errors of errs as Errors, the error itself when
// there is only one, or nil when there is none.
func Join(errs ...error) error {
	var es Errors
	for _, err := range errs {
		if err != nil {
			es = append(es, err)
		}
	}
	switch len(es) {
	case 0:
		return nil
	case 1:
		return es[0]
	default:
		return es
	}
}
