package shopify

import "testing"

func TestRecurringChargeIsBillable(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{status: "accepted", want: true},
		{status: "active", want: true},
		{status: "frozen", want: true},
		{status: "ACTIVE", want: true},
		{status: "pending", want: false},
		{status: "declined", want: false},
		{status: "expired", want: false},
		{status: "", want: false},
	}

	for _, tt := range tests {
		rc := RecurringCharge{Status: tt.status}
		if got := rc.IsBillable(); got != tt.want {
			t.Fatalf("IsBillable(%q) = %v, want %v", tt.status, got, tt.want)
		}
	}
}
