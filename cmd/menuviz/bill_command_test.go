package main

import (
	"encoding/json"
	"testing"

	"menuviz/internal/api"
)

func TestBuildBillRequest(t *testing.T) {
	items := sampleItems()
	req, err := buildBillRequest(items,
		[]string{"Ana", " ", "Ben"},
		[]string{"1=Ana,Ben", "steak frites=ben"},
		[]string{"2=20.5"},
		8,
	)
	if err != nil {
		t.Fatalf("buildBillRequest: %v", err)
	}
	if len(req.People) != 2 || req.People[0].ID != "ana" || req.People[1].Name != "Ben" {
		t.Fatalf("unexpected people %+v", req.People)
	}
	if got := req.Assignments["a1"]; len(got) != 2 || got[0] != "ana" || got[1] != "ben" {
		t.Fatalf("unexpected soup assignment %v", got)
	}
	if got := req.Assignments["b2"]; len(got) != 1 || got[0] != "ben" {
		t.Fatalf("unexpected steak assignment %v", got)
	}
	if req.Prices["b2"] != 20.5 || req.TaxPercent != 8 || req.TipPercent != nil {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestBuildBillRequestRejectsBadInput(t *testing.T) {
	items := sampleItems()
	cases := []struct {
		assigns []string
		prices  []string
	}{
		{assigns: []string{"1:Ana"}},
		{assigns: []string{"9=Ana"}},
		{prices: []string{"1"}},
		{prices: []string{"1=abc"}},
	}
	for _, tc := range cases {
		if _, err := buildBillRequest(items, nil, tc.assigns, tc.prices, 0); err == nil {
			t.Fatalf("expected error for %+v", tc)
		}
	}
}

func TestBillCommandSplitsCurrentDishes(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"scan", env.imagePath}, env.configPath); err != nil {
		t.Fatalf("scan: %v", err)
	}

	out, _, err := runCLI(t, []string{
		"bill", "--person", "Ana", "--person", "Ben",
		"--assign", "1=Ana", "--assign", "2=Ana,Ben",
		"--tip", "0", "--json",
	}, env.configPath)
	if err != nil {
		t.Fatalf("bill: %v", err)
	}
	var bill api.BillResponse
	if err := json.Unmarshal([]byte(out), &bill); err != nil {
		t.Fatalf("decode bill: %v", err)
	}
	if bill.GrandTotal != 32 || len(bill.People) != 2 {
		t.Fatalf("unexpected bill %+v", bill)
	}
	if bill.People[0].Total != 20 || bill.People[1].Total != 12 {
		t.Fatalf("unexpected split %+v", bill.People)
	}

	out, _, err = runCLI(t, []string{"bill", "--person", "Ana", "--assign", "1=ana", "--assign", "2=ana", "--tip", "0"}, env.configPath)
	if err != nil {
		t.Fatalf("bill table: %v", err)
	}
	requireContains(t, out, "Ana")
	requireContains(t, out, "32.00")
}

func TestMoney(t *testing.T) {
	if got := money(12); got != "12.00" {
		t.Fatalf("money = %q", got)
	}
	if got := money(3.456); got != "3.46" {
		t.Fatalf("money = %q", got)
	}
}
