package literate

import (
	"errors"
	"io/fs"
	"testing"
)

func TestJoin(t *testing.T) {
	if err := Join(nil, nil); err != nil {
		t.Fatalf("Join(nil, nil) = %v, want nil", err)
	}
	only := &Error{Kind: KindIO, Path: "a.rs", Err: fs.ErrNotExist}
	if err := Join(nil, only); err != only {
		t.Fatalf("Join of one error = %v, want it unchanged", err)
	}

	err := Join(
		&Error{Kind: KindParse, Path: "a.rs", Err: errors.New("1:1: bad")},
		nil,
		&Error{Kind: KindStructural, Path: "b.rs", Err: ErrStructural},
		only,
	)
	if got, want := err.Error(), "a.rs: 1:1: bad; b.rs: unexpected token; a.rs: file does not exist"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrStructural) || !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("joined error lost its causes: %v", err)
	}
	if KindOf(err) != KindParse {
		t.Fatalf("KindOf = %v, want the first error's kind", KindOf(err))
	}
}
