package normalization

import (
	"testing"
)

// TestChooseBestName проверяет выбор отображаемого имени
func TestChooseBestName(t *testing.T) {
	tests := []struct {
		name       string
		variations []string
		want       string
	}{
		{"nil", nil, UnknownCustomerName},
		{"only blanks", []string{"", "  "}, UnknownCustomerName},
		{"only too short", []string{"A", " b "}, UnknownCustomerName},
		{"single", []string{"Awa"}, "Awa"},
		{"longest wins", []string{"Awa", "Awa Diop", "A. Diop"}, "Awa Diop"},
		{"tie keeps first", []string{"Awa Diop", "Awa Diao"}, "Awa Diop"},
		{"tie keeps first reversed", []string{"Awa Diao", "Awa Diop"}, "Awa Diao"},
		{"rune count not bytes", []string{"Aïssata", "Aissatou"}, "Aissatou"},
		{"trimmed", []string{"  Moussa Keita  "}, "Moussa Keita"},
		{"short entries ignored", []string{"M", "Mo"}, "Mo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseBestName(tt.variations); got != tt.want {
				t.Errorf("ChooseBestName(%v) = %q, want %q", tt.variations, got, tt.want)
			}
		})
	}
}

// TestChooseBestName_Deterministic проверяет детерминированность выбора
func TestChooseBestName_Deterministic(t *testing.T) {
	variations := []string{"Fatou Sow", "Fatou Sou", "F. Sow", "Fatoumata"}
	first := ChooseBestName(variations)

	for i := 0; i < 50; i++ {
		if got := ChooseBestName(variations); got != first {
			t.Fatalf("ChooseBestName is not deterministic: %q vs %q", first, got)
		}
	}
}
