package raw

import "testing"

func TestGetWithPrefixAndDefault(t *testing.T) {
	t.Setenv("SEQRUN_RESULTS", "  s3://bucket/run1  ")
	c := New().Prefix("SEQRUN_")
	if got := c.Get("RESULTS", "def"); got != "s3://bucket/run1" {
		t.Fatalf("Get trimmed = %q", got)
	}
	if got := c.Get("MISSING", "def"); got != "def" {
		t.Fatalf("Get default = %q", got)
	}
}

func TestGetBool(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"1", false, true},
		{"true", false, true},
		{"yes", false, true},
		{"no", true, false},
		{"0", true, false},
		{"", true, true},
		{"", false, false},
	}
	for _, cse := range cases {
		t.Setenv("RAW_B", cse.val)
		if got := New().GetBool("RAW_B", cse.def); got != cse.want {
			t.Fatalf("GetBool(%q, %v) = %v, want %v", cse.val, cse.def, got, cse.want)
		}
	}
}

func TestGetInt(t *testing.T) {
	t.Setenv("RAW_N", "42")
	if got := New().GetInt("RAW_N", 7); got != 42 {
		t.Fatalf("GetInt = %d", got)
	}
	t.Setenv("RAW_N", "4x2")
	if got := New().GetInt("RAW_N", 7); got != 7 {
		t.Fatalf("GetInt non-numeric = %d", got)
	}
	t.Setenv("RAW_N", "")
	if got := New().GetInt("RAW_N", 7); got != 7 {
		t.Fatalf("GetInt empty = %d", got)
	}
}
