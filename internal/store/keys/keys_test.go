package keys

import "testing"

func TestIndexKey_Format(t *testing.T) {
	if got := IndexKey("geo-items", 513); got != "geo:geo-items:513" {
		t.Fatalf("IndexKey=%q", got)
	}
}

func TestMetadataKey_Format(t *testing.T) {
	if got := MetadataKey(" geo-items ", "abc123"); got != "item:geo-items:abc123" {
		t.Fatalf("MetadataKey=%q", got)
	}
}

func TestSanitizeTable(t *testing.T) {
	cases := map[string]string{
		"prod items":    "prod_items",
		"a:b":           "a-b",
		"a::b":          "a-b",
		"tab\t\tle":     "tab_le",
		"ok_name-1.v2":  "ok_name-1.v2",
		"":              "",
		"ünïcode table": "-n-code_table",
	}
	for in, want := range cases {
		if got := sanitizeTable(in); got != want {
			t.Fatalf("sanitizeTable(%q)=%q want %q", in, got, want)
		}
	}
}
