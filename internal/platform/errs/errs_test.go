package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NotFound("patient not found"), http.StatusNotFound},
		{"conflict", Conflict("already admitted"), http.StatusConflict},
		{"validation", Validation("priority out of range"), http.StatusBadRequest},
		{"tx abort", TxAbort(errors.New("deadlock"), "admission failed"), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("admit: %w", NotFound("department not found")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Status(tt.err); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("service: %w", Conflict("busy"))
	if !IsKind(err, KindConflict) {
		t.Error("expected KindConflict through wrapping")
	}
	if IsKind(err, KindNotFound) {
		t.Error("did not expect KindNotFound")
	}
	if IsKind(errors.New("plain"), KindConflict) {
		t.Error("plain error should not match any kind")
	}
}

func TestPayload_MergesMeta(t *testing.T) {
	err := Conflict("patient already in an active queue").
		WithMeta("department", "Cardiology")

	body := Payload(err)
	if body["error"] != "patient already in an active queue" {
		t.Errorf("error = %v", body["error"])
	}
	if body["kind"] != "conflict" {
		t.Errorf("kind = %v", body["kind"])
	}
	if body["department"] != "Cardiology" {
		t.Errorf("department = %v", body["department"])
	}
}

func TestPayload_PlainError(t *testing.T) {
	body := Payload(errors.New("boom"))
	if body["error"] != "boom" {
		t.Errorf("error = %v", body["error"])
	}
	if _, ok := body["kind"]; ok {
		t.Error("plain error should carry no kind")
	}
}

func TestTxAbort_Unwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := TxAbort(inner, "batch creation failed")
	if !errors.Is(err, inner) {
		t.Error("TxAbort should wrap the underlying error")
	}
}
