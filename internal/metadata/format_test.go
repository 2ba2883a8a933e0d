package metadata

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
)

func TestFormatValue(t *testing.T) {
	name := "Widget"
	var missing *string
	when := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  any
		format string
		lang   language.Tag
		empty  string
		want   string
	}{
		{"nil", nil, "", language.Und, "-", "-"},
		{"nil pointer", missing, "", language.Und, "n/a", "n/a"},
		{"empty string", "", "", language.Und, "(empty)", "(empty)"},
		{"pointer to string", &name, "", language.Und, "", "Widget"},
		{"string verb", "abc", "[%s]", language.Und, "", "[abc]"},
		{"time default layout", when, "", language.Und, "", "2024-03-05 14:30:00"},
		{"time custom layout", when, "02.01.2006", language.Und, "", "05.03.2024"},
		{"zero time", time.Time{}, "", language.Und, "never", "never"},
		{"decimal fixed", decimal.RequireFromString("12.345"), "%.2f", language.Und, "", "12.35"},
		{"decimal plain", decimal.RequireFromString("7.50"), "", language.Und, "", "7.5"},
		{"int", 42, "", language.Und, "", "42"},
		{"float verb", 3.14159, "%.1f", language.Und, "", "3.1"},
		{"grouped number", 1234567, "", language.English, "", "1,234,567"},
		{"bool", true, "", language.Und, "", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatValue(tt.value, tt.format, tt.lang, tt.empty)
			if got != tt.want {
				t.Errorf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPropertyMetadata_FormatValue(t *testing.T) {
	p := &PropertyMetadata{PropertyBase: PropertyBase{DisplayFormat: "%d pcs", EmptyValueDisplay: "-"}}
	if got := p.FormatValue(3); got != "3 pcs" {
		t.Fatalf("FormatValue() = %q, want 3 pcs", got)
	}
	if got := p.FormatValue(nil); got != "-" {
		t.Fatalf("FormatValue(nil) = %q, want -", got)
	}
}
