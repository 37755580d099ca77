package naming

import "testing"

func TestHandlerName(t *testing.T) {
	cases := []struct {
		in  string
		out string
	}{
		{"balanceOf", "callBalanceOf"},
		{"transfer", "callTransfer"},
		{"Transfer", "callTransfer"},
		{"_burn", "call_burn"},
		{"", "call"},
		{"élan", "callÉlan"},
	}

	for i, tc := range cases {
		if got := HandlerName(tc.in); got != tc.out {
			t.Fatalf("case %d: HandlerName(%q) = %q, want %q", i, tc.in, got, tc.out)
		}
	}
}

func TestDuplicateNamesAreNotResolved(t *testing.T) {
	if HandlerName("mint") != HandlerName("mint") {
		t.Fatal("handler names must be a pure function of the operation name")
	}
	if FieldID("mint", "to") != FieldID("mint", "to") {
		t.Fatal("field ids must be a pure function of operation and parameter")
	}
}

func TestFieldID(t *testing.T) {
	if got := FieldID("transfer", "amount"); got != "transfer-amount" {
		t.Fatalf("FieldID = %q", got)
	}
	if got := FieldID("approve", FieldKey("", 1)); got != "approve-1" {
		t.Fatalf("FieldID with fallback = %q", got)
	}
}

func TestParamName(t *testing.T) {
	if got := ParamName("who", 0); got != "who" {
		t.Fatalf("ParamName = %q", got)
	}
	if got := ParamName("", 2); got != "arg2" {
		t.Fatalf("ParamName fallback = %q", got)
	}
}
