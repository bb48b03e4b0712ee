package matching

import (
	"testing"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Already canonical", "l1", "l1"},
		{"Uppercase", "Retailer1", "retailer1"},
		{"Spaces", "Bass Pro Shops", "bass-pro-shops"},
		{"Run of separators", "Rapala  --  X-Rap", "rapala-x-rap"},
		{"Leading and trailing", " (Spinner) ", "-spinner-"},
		{"Diacritics folded", "Čokolada Ž", "cokolada-z"},
		{"Dj ligature", "Đumbir", "djumbir"},
		{"Empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizeName(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Čokolada", "Cokolada"},
		{"Špagete", "Spagete"},
		{"Žličnjak", "Zlicnjak"},
		{"Đumbir", "Djumbir"},
		{"Ćevapi", "Cevapi"},
		{"Mixed ČŠŽĐĆ", "Mixed CSZDjC"},
		{"café", "cafe"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := RemoveDiacritics(tt.input)
			if result != tt.expected {
				t.Errorf("RemoveDiacritics(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFirstDuplicate(t *testing.T) {
	i, j := FirstDuplicate([]string{"a", "b", "c"})
	if i != -1 || j != -1 {
		t.Errorf("FirstDuplicate(distinct) = %d, %d, want -1, -1", i, j)
	}

	i, j = FirstDuplicate(NormalizeNames([]string{"Lure A", "lure-b", "LURE  a"}))
	if i != 0 || j != 2 {
		t.Errorf("FirstDuplicate = %d, %d, want 0, 2", i, j)
	}
}
