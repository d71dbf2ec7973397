package pipeline

import (
	"strings"
	"testing"
)

func TestStoredFileKey(t *testing.T) {
	got := StoredFileKey("m123", "report.xlsx")
	if got != "m123_report.xlsx" {
		t.Fatalf("got %q", got)
	}
}

func TestStoredFileKeySanitizesIllegalChars(t *testing.T) {
	got := StoredFileKey("m<1>", `re:p/o\r|t?*.xlsx`)
	if strings.ContainsAny(got, `<>:"/\|?*`) {
		t.Fatalf("illegal characters survived: %q", got)
	}
	if !strings.HasSuffix(got, ".xlsx") {
		t.Fatalf("lost extension: %q", got)
	}
}

func TestStoredFileKeyCapsLengthPreservingExtension(t *testing.T) {
	long := strings.Repeat("a", 200) + ".xlsx"
	got := StoredFileKey("msg", long)
	if n := len([]rune(got)); n > 100 {
		t.Fatalf("length %d exceeds cap", n)
	}
	if !strings.HasSuffix(got, ".xlsx") {
		t.Fatalf("lost extension: %q", got)
	}
}

func TestStoredFileKeyDeterministic(t *testing.T) {
	a := StoredFileKey("m9", "grn final.xlsx")
	b := StoredFileKey("m9", "grn final.xlsx")
	if a != b {
		t.Fatalf("%q != %q", a, b)
	}
}

func TestContentKey(t *testing.T) {
	cases := []struct {
		name   string
		row    []string
		poIdx  int
		skuIdx int
		want   string
		ok     bool
	}{
		{name: "simple", row: []string{"PO1", "SKU1"}, poIdx: 0, skuIdx: 1, want: "PO1|SKU1", ok: true},
		{name: "trims whitespace", row: []string{" PO1 ", " SKU1 "}, poIdx: 0, skuIdx: 1, want: "PO1|SKU1", ok: true},
		{name: "blank po", row: []string{"", "SKU1"}, poIdx: 0, skuIdx: 1, ok: false},
		{name: "blank sku", row: []string{"PO1", "  "}, poIdx: 0, skuIdx: 1, ok: false},
		{name: "index out of range", row: []string{"PO1"}, poIdx: 0, skuIdx: 5, ok: false},
		{name: "missing column", row: []string{"PO1", "SKU1"}, poIdx: -1, skuIdx: 1, ok: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ContentKey(tc.row, tc.poIdx, tc.skuIdx)
			if ok != tc.ok {
				t.Fatalf("ok=%v want %v", ok, tc.ok)
			}
			if ok && got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestSanitizeFolderName(t *testing.T) {
	if got := SanitizeFolderName("alerts@bigbasket.com"); got != "alerts@bigbasket.com" {
		t.Fatalf("got %q", got)
	}
	if got := SanitizeFolderName(`a/b\c:d`); got != "a_b_c_d" {
		t.Fatalf("got %q", got)
	}
}
