package phone

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		name   string
		raw    string
		region string
		want   string
	}{
		{"us national", "(202) 456-1111", "US", "+12024561111"},
		{"already e164", "+12024561111", "", "+12024561111"},
		{"india with region", "98765 43210", "IN", "+919876543210"},
		{"garbage kept", "  call me  ", "US", "call me"},
		{"empty", "   ", "US", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.raw, tc.region); got != tc.want {
				t.Fatalf("Normalize(%q, %q) = %q, want %q", tc.raw, tc.region, got, tc.want)
			}
		})
	}
}

func TestDigits(t *testing.T) {
	if got := Digits("+1 (202) 456-1111"); got != "12024561111" {
		t.Fatalf("unexpected digits %q", got)
	}
}
