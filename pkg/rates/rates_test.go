package rates

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// closeTo compares floats with a tolerance for accumulated rounding.
func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTable_UnitCostDefaults(t *testing.T) {
	table := NewTable()

	cost, ok := table.UnitCost(OpBasicScrape)
	if !ok {
		t.Fatal("Expected basicScrape to be in the table")
	}
	if cost != 0.0005 {
		t.Errorf("Expected unit cost 0.0005, got %v", cost)
	}

	cost, ok = table.UnitCost(OpCompanyEnrichment)
	if !ok || cost != 0.015 {
		t.Errorf("Expected companyEnrichment unit cost 0.015, got %v (ok=%v)", cost, ok)
	}
}

func TestTable_UnknownOperation(t *testing.T) {
	table := NewTable()

	if _, ok := table.UnitCost(Operation("scraping.teleportScrape")); ok {
		t.Error("Expected unknown operation to report ok=false")
	}
	if cost := table.Cost(Operation("scraping.teleportScrape"), 100); cost != 0 {
		t.Errorf("Expected zero cost for unknown operation, got %v", cost)
	}
}

func TestTable_Cost(t *testing.T) {
	table := NewTable()

	// 100 basic scrapes at $0.0005
	if cost := table.Cost(OpBasicScrape, 100); cost != 0.05 {
		t.Errorf("Expected 0.05, got %v", cost)
	}

	// 30 company enrichments at $0.015
	if cost := table.Cost(OpCompanyEnrichment, 30); !closeTo(cost, 0.45) {
		t.Errorf("Expected 0.45, got %v", cost)
	}

	if cost := table.Cost(OpBasicScrape, 0); cost != 0 {
		t.Errorf("Expected zero cost for zero quantity, got %v", cost)
	}
	if cost := table.Cost(OpBasicScrape, -5); cost != 0 {
		t.Errorf("Expected zero cost for negative quantity, got %v", cost)
	}
}

func TestTable_SetUnitCosts(t *testing.T) {
	table := NewTable()

	table.SetUnitCosts(map[Operation]float64{OpSMSSend: 0.01})

	if cost, _ := table.UnitCost(OpSMSSend); cost != 0.01 {
		t.Errorf("Expected overridden cost 0.01, got %v", cost)
	}
	// Unrelated operations keep their defaults.
	if cost, _ := table.UnitCost(OpBasicScrape); cost != 0.0005 {
		t.Errorf("Expected default cost 0.0005, got %v", cost)
	}
}

func TestTable_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	content := `unit_costs:
  scraping.basicScrape: 0.001
  emailSend: 0.0003
  scraping.quantumScrape: 9.99
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write rates file: %v", err)
	}

	table := NewTable()
	if err := table.LoadFile(path); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cost, _ := table.UnitCost(OpBasicScrape); cost != 0.001 {
		t.Errorf("Expected overridden cost 0.001, got %v", cost)
	}
	// Bare type names resolve too.
	if cost, _ := table.UnitCost(OpEmailSend); cost != 0.0003 {
		t.Errorf("Expected overridden cost 0.0003, got %v", cost)
	}
	// Unknown keys are skipped, not added.
	if _, ok := table.UnitCost(Operation("scraping.quantumScrape")); ok {
		t.Error("Expected unknown key to be skipped")
	}
}

func TestTable_LoadFileNegativeCost(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	if err := os.WriteFile(path, []byte("unit_costs:\n  scraping.basicScrape: -0.01\n"), 0o644); err != nil {
		t.Fatalf("failed to write rates file: %v", err)
	}

	table := NewTable()
	if err := table.LoadFile(path); err == nil {
		t.Error("Expected error for negative unit cost")
	}
}

func TestOperation_CategoryType(t *testing.T) {
	if OpCompanyEnrichment.Category() != "enrichment" {
		t.Errorf("Expected category enrichment, got %s", OpCompanyEnrichment.Category())
	}
	if OpCompanyEnrichment.Type() != "companyEnrichment" {
		t.Errorf("Expected type companyEnrichment, got %s", OpCompanyEnrichment.Type())
	}
}

func TestParseOperation(t *testing.T) {
	tests := []struct {
		key  string
		want Operation
		ok   bool
	}{
		{"scraping.basicScrape", OpBasicScrape, true},
		{"basicScrape", OpBasicScrape, true},
		{"companyEnrichment", OpCompanyEnrichment, true},
		{"nonsense", Operation("nonsense"), false},
	}

	for _, tt := range tests {
		got, ok := ParseOperation(tt.key)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseOperation(%q) = (%v, %v), want (%v, %v)", tt.key, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTierForDailyBudget(t *testing.T) {
	tests := []struct {
		daily float64
		want  Tier
	}{
		{0.50, TierStarter},
		{1.00, TierStarter}, // boundary resolves to the lower tier
		{1.01, TierBasic},
		{5.00, TierBasic},
		{25.00, TierGrowth},
		{100.00, TierPro},
		{100.01, TierEnterprise},
		{500.00, TierEnterprise},
	}

	for _, tt := range tests {
		if got := TierForDailyBudget(tt.daily); got != tt.want {
			t.Errorf("TierForDailyBudget(%.2f) = %s, want %s", tt.daily, got, tt.want)
		}
	}
}

func TestLimitsForTier(t *testing.T) {
	limits := LimitsForTier(TierGrowth)
	if limits.DailyCeiling != 25.00 {
		t.Errorf("Expected growth ceiling 25.00, got %v", limits.DailyCeiling)
	}
	if limits.MaxLeadsPerDay != 1250 {
		t.Errorf("Expected growth max leads 1250, got %d", limits.MaxLeadsPerDay)
	}

	// Unknown tier falls back to starter limits.
	if LimitsForTier(Tier("mystery")).MaxLeadsPerDay != 50 {
		t.Error("Expected unknown tier to use starter limits")
	}
}
