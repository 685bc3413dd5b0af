package domain

import (
	"errors"
	"testing"
)

func TestValidatePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"+1 555 0100", "+15550100", true},
		{"89161234567", "89161234567", true},
		{"  +44 20 7946 0958 ", "+442079460958", true},
		{"", "", false},
		{"   ", "", false},
		{"+", "", false},
		{"555-0100", "", false},
		{"1+555", "", false},
		{"abc", "", false},
	}
	for _, tc := range cases {
		got, err := ValidatePhone(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("ValidatePhone(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("ValidatePhone(%q) expected validation error, got %v", tc.in, err)
		}
	}
}

func TestSyntheticChatID_DeterministicAndNegative(t *testing.T) {
	phones := []string{"+15550100", "+15550101", "89161234567", "0", "+442079460958"}
	seen := make(map[int64]string)
	for _, p := range phones {
		id := SyntheticChatID(p)
		if id >= 0 {
			t.Fatalf("expected negative id for %s, got %d", p, id)
		}
		if again := SyntheticChatID(p); again != id {
			t.Fatalf("expected stable id for %s, got %d and %d", p, id, again)
		}
		if other, dup := seen[id]; dup {
			t.Fatalf("collision between %s and %s", p, other)
		}
		seen[id] = p
	}
}

func TestCanTransition_Table(t *testing.T) {
	all := []OrderStatus{StatusPending, StatusConfirmed, StatusCompleted, StatusCanceled}
	legal := map[[2]OrderStatus]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCanceled}:    true,
		{StatusConfirmed, StatusCompleted}: true,
		{StatusConfirmed, StatusCanceled}:  true,
	}
	for _, from := range all {
		for _, to := range all {
			err := CanTransition(from, to)
			if legal[[2]OrderStatus{from, to}] {
				if err != nil {
					t.Fatalf("%s -> %s should be legal, got %v", from, to, err)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("%s -> %s should be invalid, got %v", from, to, err)
			}
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusCompleted.Terminal() || !StatusCanceled.Terminal() {
		t.Fatalf("completed and canceled must be terminal")
	}
	if StatusPending.Terminal() || StatusConfirmed.Terminal() {
		t.Fatalf("pending and confirmed must not be terminal")
	}
	if len(NextStatuses(StatusCanceled)) != 0 {
		t.Fatalf("canceled must have no successors")
	}
}

func TestParseHelpers(t *testing.T) {
	if s, err := ParseOrderStatus(" Confirmed "); err != nil || s != StatusConfirmed {
		t.Fatalf("ParseOrderStatus: %v %v", s, err)
	}
	if _, err := ParseOrderStatus("shipped"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if f, err := ParseFulfillment("PICKUP"); err != nil || f != FulfillmentPickup {
		t.Fatalf("ParseFulfillment: %v %v", f, err)
	}
	if _, err := ParseFulfillment("drone"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCartTotalsAndItems(t *testing.T) {
	cart := Cart{Lines: []CartLine{
		{Item: MenuItem{ID: "a", PriceCents: 100}, Quantity: 1},
		{Item: MenuItem{ID: "b", PriceCents: 50}, Quantity: 2},
	}}
	if cart.TotalCents() != 200 {
		t.Fatalf("expected 200, got %d", cart.TotalCents())
	}
	seq := cart.Items()
	for range 2 {
		var sum int64
		n := 0
		for v := range seq {
			sum += v.TotalCents
			n++
		}
		if n != 2 || sum != 200 {
			t.Fatalf("expected restartable sequence of 2 rows totalling 200, got %d rows %d", n, sum)
		}
	}
	lines := []OrderLine{{Quantity: 1, UnitPriceCents: 100}, {Quantity: 2, UnitPriceCents: 50}}
	if LinesTotal(lines) != 200 {
		t.Fatalf("expected 200, got %d", LinesTotal(lines))
	}
}
