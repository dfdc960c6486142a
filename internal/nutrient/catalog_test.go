package nutrient

import "testing"

func TestLookupResolvesAliasesAndCase(t *testing.T) {
	cat := Default()
	cases := map[string]string{
		"Vit D":                   "Vitamin D",
		"thiamine":                "Vitamin B1",
		"VITAMIN c":               "Vitamin C",
		"  iron ":                 "Iron",
		"Vitamin B12 (cobalamin)": "Vitamin B12",
		"Vitamin D3 supplement":   "Vitamin D",
		"coffee":                  "Caffeine",
		"magnesium citrate":       "Magnesium",
	}
	for input, want := range cases {
		info, ok := cat.Lookup(input)
		if !ok {
			t.Fatalf("expected %q to resolve", input)
		}
		if info.Name != want {
			t.Fatalf("lookup %q: expected %q, got %q", input, want, info.Name)
		}
	}
}

func TestLookupShortSymbolsMatchExactlyOnly(t *testing.T) {
	cat := Default()
	if info, ok := cat.Lookup("K"); !ok || info.Name != "Potassium" {
		t.Fatalf("expected K to resolve to Potassium, got %+v (ok=%v)", info, ok)
	}
	if info, ok := cat.Lookup("milk"); ok {
		t.Fatalf("expected milk to stay unmatched, got %q", info.Name)
	}
}

func TestLookupUnknown(t *testing.T) {
	if _, ok := Default().Lookup("unobtanium"); ok {
		t.Fatalf("expected no match")
	}
	if _, ok := Default().Lookup(""); ok {
		t.Fatalf("expected empty name to miss")
	}
}

func TestLookupReturnsCopies(t *testing.T) {
	cat := Default()
	info, _ := cat.Lookup("Vitamin C")
	info.Aliases[0] = "mutated"
	again, _ := cat.Lookup("Vitamin C")
	if again.Aliases[0] == "mutated" {
		t.Fatalf("catalog entry was mutated through a lookup result")
	}
}

func TestParseRejectsInvalidCatalogs(t *testing.T) {
	cases := map[string]string{
		"empty":        "nutrients: []",
		"no name":      "nutrients:\n  - unit: mg\n",
		"duplicate":    "nutrients:\n  - name: Iron\n  - name: iron\n",
		"bad limit":    "nutrients:\n  - name: Salt\n    anti: true\n",
		"bad category": "nutrients:\n  - name: Iron\n    categories: [luck]\n",
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Fatalf("%s: expected parse error", name)
		}
	}
}

func TestDefaultCatalogShape(t *testing.T) {
	cat := Default()
	if cat.Len() == 0 {
		t.Fatalf("expected embedded catalog entries")
	}
	covered := map[Category]bool{}
	for _, info := range cat.All() {
		if info.Anti {
			if info.Limit <= 0 || info.Class == "" {
				t.Fatalf("anti-nutrient %q missing limit or class", info.Name)
			}
			continue
		}
		if info.RDA.Male <= 0 || info.RDA.Female <= 0 {
			t.Fatalf("nutrient %q missing RDA", info.Name)
		}
		for _, c := range info.Categories {
			covered[c] = true
		}
	}
	for _, c := range Categories {
		if !covered[c] {
			t.Fatalf("no nutrient maps to category %q", c)
		}
	}
}
