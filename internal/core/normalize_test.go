package core

import "testing"

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want PhoneIdentity
	}{
		{
			name: "prefixed indian mobile",
			raw:  "p:+919876543210",
			want: PhoneIdentity{CountryCode: "+91", NationalNumber: "9876543210"},
		},
		{
			name: "prefix with surrounding spaces",
			raw:  "  p: +91 98765 43210 ",
			want: PhoneIdentity{CountryCode: "+91", NationalNumber: "9876543210"},
		},
		{
			name: "us number without prefix",
			raw:  "+1 650-253-0000",
			want: PhoneIdentity{CountryCode: "+1", NationalNumber: "6502530000"},
		},
		{
			name: "uk number",
			raw:  "p:+447911123456",
			want: PhoneIdentity{CountryCode: "+44", NationalNumber: "7911123456"},
		},
		{
			name: "no country code falls back",
			raw:  "p:9876543210",
			want: PhoneIdentity{NationalNumber: "9876543210"},
		},
		{
			name: "garbage falls back to cleaned text",
			raw:  "p: call me ",
			want: PhoneIdentity{NationalNumber: "call me"},
		},
		{
			name: "empty",
			raw:  "",
			want: PhoneIdentity{},
		},
		{
			name: "prefix only",
			raw:  "p:",
			want: PhoneIdentity{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePhone(tt.raw)
			if got != tt.want {
				t.Errorf("NormalizePhone(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizePhone_SameIdentityForEquivalentInput(t *testing.T) {
	a := NormalizePhone("p:+919876543210")
	b := NormalizePhone("+91 98765-43210")
	if a != b {
		t.Errorf("identities differ: %+v vs %+v", a, b)
	}
}

func TestNormalizeDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"05_March_2024", "2024-03-05"},
		{"5_march_2024", "2024-03-05"},
		{"21st_December_2025", "2025-12-21"},
		{"3rd_JUNE_2024", "2024-06-03"},
		{" 15_August_2024 ", "2024-08-15"},
		{"05_Brumaire_2024", "2024-01-05"},
		{"March_2024", ""},
		{"05_March_2024_extra", ""},
		{"_March_2024", ""},
		{"05__2024", ""},
		{"05_March_", ""},
		{"first_March_2024", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := NormalizeDate(tt.raw); got != tt.want {
				t.Errorf("NormalizeDate(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
