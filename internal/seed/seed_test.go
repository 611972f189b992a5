package seed

import "testing"

func TestParseCatalogRow(t *testing.T) {
	record := []string{"bags", "Sacs à main", "Sac Noir", "Cuir véritable", "2500000", "10", "https://example.com/sac.png"}
	row, err := parseCatalogRow(record)
	if err != nil {
		t.Fatalf("parseCatalogRow() error = %v", err)
	}
	if row.Code != "BAGS" {
		t.Errorf("code = %q, want BAGS", row.Code)
	}
	if row.ProductName != "Sac Noir" {
		t.Errorf("product name = %q", row.ProductName)
	}
	if row.Price != 2500000 || row.Stock != 10 {
		t.Errorf("price = %d, stock = %d, want 2500000 and 10", row.Price, row.Stock)
	}
}

func TestParseCatalogRowRejectsMalformed(t *testing.T) {
	cases := []struct {
		name   string
		record []string
	}{
		{"short row", []string{"bags", "Sacs à main"}},
		{"missing code", []string{"", "Sacs à main", "Sac Noir", "", "2500000", "10", ""}},
		{"missing product name", []string{"bags", "Sacs à main", "", "", "2500000", "10", ""}},
		{"non-numeric price", []string{"bags", "Sacs à main", "Sac Noir", "", "cher", "10", ""}},
		{"negative price", []string{"bags", "Sacs à main", "Sac Noir", "", "-1", "10", ""}},
		{"non-numeric stock", []string{"bags", "Sacs à main", "Sac Noir", "", "2500000", "beaucoup", ""}},
		{"negative stock", []string{"bags", "Sacs à main", "Sac Noir", "", "2500000", "-3", ""}},
	}
	for _, tc := range cases {
		if _, err := parseCatalogRow(tc.record); err == nil {
			t.Errorf("%s: parseCatalogRow() should reject the row", tc.name)
		}
	}
}
