package stripe

import "testing"

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "active", want: "ACTIVE"},
		{in: "trialing", want: "ACTIVE"},
		{in: "canceled", want: "CANCELED"},
		{in: "incomplete_expired", want: "CANCELED"},
		{in: "unpaid", want: "CANCELED"},
		{in: "", want: "NONE"},
		{in: "past_due", want: "PAST_DUE"},
	}

	for _, tt := range tests {
		if got := NormalizeStatus(tt.in); got != tt.want {
			t.Fatalf("NormalizeStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
