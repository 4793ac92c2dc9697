package content

import (
	"strings"
	"testing"
)

func TestLoad_EmbeddedContent(t *testing.T) {
	site, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if site.Brand != "SecureBase" {
		t.Errorf("Brand = %q, want SecureBase", site.Brand)
	}
	if len(site.Plans) != 3 {
		t.Fatalf("expected 3 plans, got %d", len(site.Plans))
	}

	wantPrices := []string{"$10", "$25", "$50"}
	for i, p := range site.Plans {
		if p.Price != wantPrices[i] {
			t.Errorf("plan %d price = %s, want %s", i, p.Price, wantPrices[i])
		}
	}
	if !site.Plans[1].Highlighted {
		t.Error("expected the Pro plan to be highlighted")
	}
	if len(site.Team) != 6 {
		t.Errorf("expected 6 team members, got %d", len(site.Team))
	}
	if len(site.FAQ) == 0 || len(site.Guardians) != 3 {
		t.Error("expected FAQ items and 3 guardians")
	}
	if site.Team[4].LinkedIn != "" {
		t.Error("expected optional social links to stay empty")
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"malformed", "brand: [", "parse site content"},
		{"no brand", "plans: [{title: A, price: $1}]", "brand is required"},
		{"no plans", "brand: X", "at least one plan"},
		{"missing price", "brand: X\nplans: [{title: A}]", "needs a title and a price"},
		{"duplicate plan", "brand: X\nplans: [{title: A, price: $1}, {title: A, price: $2}]", "duplicate plan"},
		{"two highlighted", "brand: X\nplans: [{title: A, price: $1, highlighted: true}, {title: B, price: $2, highlighted: true}]", "at most one"},
		{"nameless member", "brand: X\nplans: [{title: A, price: $1}]\nteam: [{title: CTO}]", "without a name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
