package plans

import "testing"

func TestNormalizeTier(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "PRO", want: TierPro},
		{in: "pro", want: TierPro},
		{in: " Pro ", want: TierPro},
		{in: "FREE", want: TierFree},
		{in: "", want: TierFree},
		{in: "enterprise", want: TierFree},
	}

	for _, tt := range tests {
		if got := NormalizeTier(tt.in); got != tt.want {
			t.Fatalf("NormalizeTier(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlanTier(t *testing.T) {
	if got := PlanTier(nil); got != TierFree {
		t.Fatalf("PlanTier(nil) = %q, want FREE", got)
	}
	if got := PlanTier(&Plan{Code: "PRO"}); got != TierPro {
		t.Fatalf("PlanTier(PRO plan) = %q, want PRO", got)
	}
	if got := PlanTier(&Plan{Code: "mystery"}); got != TierFree {
		t.Fatalf("PlanTier(unknown plan) = %q, want FREE", got)
	}
}
