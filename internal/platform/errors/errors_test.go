package errors

import (
	stderrs "errors"
	"net/http"
	"testing"
)

func TestExitCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, ExitNotFound},
		{ErrorCodePermission, ExitPermission},
		{ErrorCodeDecode, ExitDecode},
		{ErrorCodeIO, ExitIO},
		{ErrorCodeUnavailable, ExitIO},
		{ErrorCodeArchive, ExitArchive},
		{ErrorCodeUnsupportedBackend, ExitUnsupportedBackend},
		{ErrorCodeEmptyInput, ExitOther},
		{ErrorCodeInvalid, ExitOther},
		{ErrorCodeUnknown, ExitOther},
		{9999, ExitOther}, // default branch
	}
	for _, c := range cases {
		if got := ExitCodeOf(c.code); got != c.want {
			t.Fatalf("ExitCodeOf(%v) = %d, want %d", c.code, got, c.want)
		}
	}
	if ExitCode(nil) != ExitOK {
		t.Fatalf("ExitCode(nil) = %d, want %d", ExitCode(nil), ExitOK)
	}
	if got := ExitCode(stderrs.New("foreign")); got != ExitOther {
		t.Fatalf("ExitCode(foreign) = %d, want %d", got, ExitOther)
	}
}

func TestHTTPStatusCodeMapping(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{ErrorCodeNotFound, http.StatusNotFound},
		{ErrorCodePermission, http.StatusForbidden},
		{ErrorCodeInvalid, http.StatusUnprocessableEntity},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable},
		{ErrorCodeIO, http.StatusInternalServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.want {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.want)
		}
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	// nil *Error should render "<nil>"
	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q, want <nil>", e.Error())
	}

	// New / Newf
	e1 := New(ErrorCodeEmptyInput, "nothing to read")
	if CodeOf(e1) != ErrorCodeEmptyInput {
		t.Fatalf("CodeOf(New) = %v", CodeOf(e1))
	}
	e2 := Newf(ErrorCodeArchive, "bad tar member %d", 12)
	if got := e2.Error(); got != "bad tar member 12" {
		t.Fatalf("Newf().Error = %q", got)
	}

	// Wrap / Wrapf / Unwrap
	src := stderrs.New("root")
	e3 := Wrap(src, ErrorCodeIO, "read failed")
	if u := stderrs.Unwrap(e3); u == nil || u.Error() != "root" {
		t.Fatalf("Wrap did not keep orig")
	}
	if CodeOf(e3) != ErrorCodeIO {
		t.Fatalf("CodeOf(Wrap) = %v", CodeOf(e3))
	}
	e4 := Wrapf(src, ErrorCodePermission, "nope %s", "here")
	if want := "nope here: root"; e4.Error() != want {
		t.Fatalf("Wrapf().Error = %q, want %q", e4.Error(), want)
	}

	// As
	if got, ok := As(e4); !ok || got.Code() != ErrorCodePermission {
		t.Fatalf("As() failed for our error")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As() true for foreign error")
	}

	// WithLoc / WithOp (copy-on-write)
	e5 := Wrap(src, ErrorCodeNotFound, "oops")
	e6 := WithLoc(e5, "s3://bucket/queries.fa")
	e7 := WithOp(e6, "open_for_read")
	if w, ok := As(e7); !ok || w.Loc() != "s3://bucket/queries.fa" || w.Op() != "open_for_read" {
		t.Fatalf("WithLoc/WithOp did not stick: %+v", w)
	}
	if orig, ok := As(e5); !ok || orig.Loc() != "" || orig.Op() != "" {
		t.Fatalf("copy-on-write mutated the original")
	}

	// Root
	if Root(e7).Error() != "root" {
		t.Fatalf("Root() = %v", Root(e7))
	}
}

func TestRetryable(t *testing.T) {
	if !Retryable(Unavailablef("scheduler down")) {
		t.Fatalf("Unavailable should be retryable")
	}
	if Retryable(NotFoundf("gone")) {
		t.Fatalf("NotFound should not be retryable")
	}
	if Retryable(nil) {
		t.Fatalf("nil should not be retryable")
	}
}

func TestWireFrom(t *testing.T) {
	w := WireFrom(nil)
	if w.Code != ErrorCodeUnknown || w.Message != "" {
		t.Fatalf("WireFrom(nil) = %+v", w)
	}
	w = WireFrom(WithLoc(NotFoundf("missing"), "queries.fa"))
	if w.Code != ErrorCodeNotFound || w.Loc != "queries.fa" {
		t.Fatalf("WireFrom(ours) = %+v", w)
	}
	w = WireFrom(stderrs.New("foreign"))
	if w.Code != ErrorCodeUnknown || w.Message != "foreign" {
		t.Fatalf("WireFrom(foreign) = %+v", w)
	}
}
