package validator

import (
	"errors"
	"testing"
	"time"
)

func TestValidateID(t *testing.T) {
	for _, id := range []string{"res-1", "7f2c1e9a-3b1d-4a8e-9c55-0d6f1b2a3c4d", "u_42"} {
		if err := ValidateID(id); err != nil {
			t.Fatalf("expected %q valid, got %v", id, err)
		}
	}
	for _, id := range []string{"", "a b", "x;DROP", string(make([]byte, 65))} {
		if err := ValidateID(id); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("expected %q invalid", id)
		}
	}
}

func TestValidateEnums(t *testing.T) {
	if ValidateGroupLevel("B") != nil || ValidateGroupLevel("D") == nil || ValidateGroupLevel("a") == nil {
		t.Fatal("group level validation")
	}
	if ValidateCancelBy("coach") != nil || ValidateCancelBy("none") == nil {
		t.Fatal("cancel party validation")
	}
	if ValidatePaymentMethod("alipay") != nil || ValidatePaymentMethod("card") == nil {
		t.Fatal("payment method validation")
	}
	if ValidateStatus("") != nil || ValidateStatus("confirmed") != nil || ValidateStatus("done") == nil {
		t.Fatal("status validation")
	}
}

func TestParseTime(t *testing.T) {
	got, err := ParseTime("2026-05-12T14:00:00+08:00")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 5, 12, 6, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if _, err := ParseTime("2026-05-12 14:00"); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("expected ErrInvalidTime, got %v", err)
	}
}
