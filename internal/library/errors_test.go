package library

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
)

func classifiedKind(t *testing.T, err error) Kind {
	t.Helper()
	var le *Error
	if !errors.As(err, &le) {
		t.Fatalf("expected *Error, got %T: %v", err, err)
	}
	return le.Kind
}

func TestClassifyNil(t *testing.T) {
	if Classify(nil) != nil {
		t.Fatalf("Classify(nil) should be nil")
	}
}

func TestClassifyPassThrough(t *testing.T) {
	orig := newError(KindValidation, "missing code or title")
	got := Classify(orig)
	if got != orig {
		t.Fatalf("taxonomy error should pass through unchanged, got %v", got)
	}
}

func TestClassifyWrappedPassThrough(t *testing.T) {
	orig := newError(KindNotFound, "record not found")
	wrapped := fmt.Errorf("delete video: %w", orig)
	if classifiedKind(t, Classify(wrapped)) != KindNotFound {
		t.Fatalf("wrapped taxonomy error lost its kind")
	}
}

func TestClassifyNoRows(t *testing.T) {
	if classifiedKind(t, Classify(sql.ErrNoRows)) != KindNotFound {
		t.Fatalf("sql.ErrNoRows should classify as not found")
	}
	wrapped := fmt.Errorf("get video: %w", sql.ErrNoRows)
	if classifiedKind(t, Classify(wrapped)) != KindNotFound {
		t.Fatalf("wrapped sql.ErrNoRows should classify as not found")
	}
}

func TestClassifyPqCodes(t *testing.T) {
	tests := []struct {
		code pq.ErrorCode
		want Kind
	}{
		{"23505", KindDuplicate},
		{"23503", KindInvalidReference},
		{"08006", KindUnavailable},
		{"57P01", KindUnavailable},
		{"42601", KindInternal}, // syntax error: a bug, not a taxonomy case
	}
	for _, tt := range tests {
		err := &pq.Error{Code: tt.code, Message: "boom"}
		if got := classifiedKind(t, Classify(err)); got != tt.want {
			t.Fatalf("code %s: got kind %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestClassifyUnknown(t *testing.T) {
	if classifiedKind(t, Classify(errors.New("something odd"))) != KindInternal {
		t.Fatalf("unknown errors should classify as internal")
	}
}
