package orchestrator

import (
	"context"
	"errors"
	"math"
	"testing"

	"leadforge-hq/saturn/pkg/audit"
	"leadforge-hq/saturn/pkg/budget"
	"leadforge-hq/saturn/pkg/docstore"
	"leadforge-hq/saturn/pkg/rates"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// stubSource returns canned leads or a canned error.
type stubSource struct {
	name  string
	class SourceClass
	op    rates.Operation
	leads []Lead
	err   error
	calls int
}

func (s *stubSource) Name() string               { return s.name }
func (s *stubSource) Class() SourceClass         { return s.class }
func (s *stubSource) Operation() rates.Operation { return s.op }

func (s *stubSource) Fetch(ctx context.Context, limit int) ([]Lead, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.leads) > limit {
		return s.leads[:limit], nil
	}
	return s.leads, nil
}

func newTestEngine(t *testing.T, accountID string, daily, monthly float64) *budget.Engine {
	t.Helper()
	engine := budget.NewEngine(budget.Config{
		Store: docstore.NewMemoryStore(),
		Audit: audit.NewMemoryStore(),
		Rates: rates.NewTable(),
	})
	if _, err := engine.InitializeBudgetControl(context.Background(), accountID, daily, monthly); err != nil {
		t.Fatalf("InitializeBudgetControl failed: %v", err)
	}
	return engine
}

func TestRun_FetchesAndCharges(t *testing.T) {
	engine := newTestEngine(t, "acct-1", 5.00, 100.00)
	src := &stubSource{
		name:  "yellow-pages",
		class: ClassDirectories,
		op:    rates.OpBasicScrape,
		leads: []Lead{
			{Name: "Ada", Email: "ada@example.com"},
			{Name: "Bob", Phone: "+15550001111"},
		},
	}

	result, err := New(engine, []Source{src}).Run(context.Background(), "acct-1", 50)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Leads) != 2 {
		t.Fatalf("Expected 2 leads, got %d", len(result.Leads))
	}
	// Charged for 2 fetched, not the limit of 50.
	if !closeTo(result.TotalCost, 2*0.0005) {
		t.Errorf("Expected cost for 2 units, got %v", result.TotalCost)
	}
	if result.Leads[0].Source != "yellow-pages" {
		t.Errorf("Expected source stamped on lead, got %q", result.Leads[0].Source)
	}

	status, err := engine.GetStatus(context.Background(), "acct-1")
	if err != nil {
		t.Fatalf("GetStatus failed: %v", err)
	}
	if !closeTo(status.Account.CurrentDailySpend, 2*0.0005) {
		t.Errorf("Expected ledger spend recorded, got %v", status.Account.CurrentDailySpend)
	}
}

func TestRun_ClassGating(t *testing.T) {
	tests := []struct {
		name        string
		dailyBudget float64
		wantRun     []string
	}{
		{"starter budget", 0.50, []string{"dir"}},
		{"social unlocked", 2.00, []string{"dir", "soc"}},
		{"all unlocked", 10.00, []string{"dir", "soc", "map", "cus"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(t, "acct-1", tt.dailyBudget, 500.00)
			sources := []Source{
				&stubSource{name: "dir", class: ClassDirectories, op: rates.OpBasicScrape, leads: []Lead{{Name: "A", Email: "a@x.com"}}},
				&stubSource{name: "soc", class: ClassSocial, op: rates.OpBasicScrape, leads: []Lead{{Name: "B", Email: "b@x.com"}}},
				&stubSource{name: "map", class: ClassMaps, op: rates.OpDetailedScrape, leads: []Lead{{Name: "C", Email: "c@x.com"}}},
				&stubSource{name: "cus", class: ClassCustom, op: rates.OpDetailedScrape, leads: []Lead{{Name: "D", Email: "d@x.com"}}},
			}

			result, err := New(engine, sources).Run(context.Background(), "acct-1", 10)
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if len(result.SourcesRun) != len(tt.wantRun) {
				t.Fatalf("Expected sources %v, got %v", tt.wantRun, result.SourcesRun)
			}
			for i, name := range tt.wantRun {
				if result.SourcesRun[i] != name {
					t.Errorf("Expected source %s at position %d, got %s", name, i, result.SourcesRun[i])
				}
			}
			if want := 4 - len(tt.wantRun); len(result.SourcesSkipped) != want {
				t.Errorf("Expected %d skipped sources, got %v", want, result.SourcesSkipped)
			}
		})
	}
}

func TestRun_DedupeAndValidation(t *testing.T) {
	engine := newTestEngine(t, "acct-1", 5.00, 100.00)
	sources := []Source{
		&stubSource{name: "s1", class: ClassDirectories, op: rates.OpBasicScrape, leads: []Lead{
			{Name: "Ada Lovelace", Email: "ada@example.com"},
			{Name: "No Contact"},
		}},
		&stubSource{name: "s2", class: ClassDirectories, op: rates.OpBasicScrape, leads: []Lead{
			// Exact duplicate of the first source's lead.
			{Name: "Ada Lovelace", Email: "ada@example.com"},
			// Different case is a different lead; matching is exact.
			{Name: "Ada Lovelace", Email: "Ada@example.com"},
		}},
	}

	result, err := New(engine, sources).Run(context.Background(), "acct-1", 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Leads) != 2 {
		t.Fatalf("Expected 2 leads after dedupe, got %d: %+v", len(result.Leads), result.Leads)
	}
	if result.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got %d", result.Duplicates)
	}
	if result.Invalid != 1 {
		t.Errorf("Expected 1 invalid lead, got %d", result.Invalid)
	}
	// First seen wins: the surviving duplicate carries the first source.
	if result.Leads[0].Source != "s1" {
		t.Errorf("Expected first-seen lead from s1, got %s", result.Leads[0].Source)
	}
	// All four fetched leads were charged, including the dropped ones.
	if !closeTo(result.TotalCost, 4*0.0005) {
		t.Errorf("Expected cost for 4 fetched units, got %v", result.TotalCost)
	}
}

func TestRun_DedupeIdentifierPriority(t *testing.T) {
	engine := newTestEngine(t, "acct-1", 5.00, 100.00)
	src := &stubSource{
		name:  "s1",
		class: ClassDirectories,
		op:    rates.OpBasicScrape,
		leads: []Lead{
			// Email-only, then the same email gaining a phone, then the
			// phone alone. The second lead is identified by its phone and
			// stays distinct from the first; the third collides with the
			// second on that phone.
			{Email: "a@x.com"},
			{Email: "a@x.com", Phone: "1"},
			{Phone: "1"},
		},
	}

	result, err := New(engine, []Source{src}).Run(context.Background(), "acct-1", 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(result.Leads) != 2 {
		t.Fatalf("Expected exactly the first two leads to survive, got %d: %+v", len(result.Leads), result.Leads)
	}
	if result.Leads[0].Email != "a@x.com" || result.Leads[0].Phone != "" {
		t.Errorf("Expected first survivor to be the email-only lead, got %+v", result.Leads[0])
	}
	if result.Leads[1].Phone != "1" || result.Leads[1].Email != "a@x.com" {
		t.Errorf("Expected second survivor to carry both identifiers, got %+v", result.Leads[1])
	}
	if result.Duplicates != 1 {
		t.Errorf("Expected 1 duplicate, got %d", result.Duplicates)
	}
}

func TestRun_StopsOnAdmissionDenial(t *testing.T) {
	engine := newTestEngine(t, "acct-1", 0.50, 15.00)
	expensive := &stubSource{
		name:  "deep",
		class: ClassDirectories,
		op:    rates.OpDetailedScrape,
		leads: []Lead{{Name: "X", Email: "x@x.com"}},
	}
	never := &stubSource{
		name:  "after",
		class: ClassDirectories,
		op:    rates.OpBasicScrape,
		leads: []Lead{{Name: "Y", Email: "y@x.com"}},
	}

	// 500 detailed scrapes project to $1.00, over the $0.475 headroom line.
	result, err := New(engine, []Source{expensive, never}).Run(context.Background(), "acct-1", 500)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !result.Stopped {
		t.Fatal("Expected the run to stop on admission denial")
	}
	if result.StopReason == "" {
		t.Error("Expected a stop reason")
	}
	if expensive.calls != 0 || never.calls != 0 {
		t.Error("Expected no fetches after denial")
	}
	if len(result.Leads) != 0 {
		t.Errorf("Expected no leads, got %d", len(result.Leads))
	}
}

func TestRun_SourceFailureContinues(t *testing.T) {
	engine := newTestEngine(t, "acct-1", 5.00, 100.00)
	sources := []Source{
		&stubSource{name: "broken", class: ClassDirectories, op: rates.OpBasicScrape, err: errors.New("upstream 503")},
		&stubSource{name: "healthy", class: ClassDirectories, op: rates.OpBasicScrape, leads: []Lead{{Name: "Z", Email: "z@x.com"}}},
	}

	result, err := New(engine, sources).Run(context.Background(), "acct-1", 10)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Stopped {
		t.Error("A source failure should not stop the run")
	}
	if len(result.Leads) != 1 {
		t.Fatalf("Expected 1 lead from the healthy source, got %d", len(result.Leads))
	}
	if len(result.SourcesSkipped) != 1 || result.SourcesSkipped[0] != "broken" {
		t.Errorf("Expected broken source skipped, got %v", result.SourcesSkipped)
	}
	// The failed source committed no cost.
	if !closeTo(result.TotalCost, 0.0005) {
		t.Errorf("Expected cost for 1 unit, got %v", result.TotalCost)
	}
}

func TestRun_UninitializedAccount(t *testing.T) {
	engine := budget.NewEngine(budget.Config{
		Store: docstore.NewMemoryStore(),
		Audit: audit.NewMemoryStore(),
		Rates: rates.NewTable(),
	})

	_, err := New(engine, nil).Run(context.Background(), "ghost", 10)
	if !errors.Is(err, budget.ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized, got %v", err)
	}
}
