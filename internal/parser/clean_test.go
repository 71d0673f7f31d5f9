package parser

import "testing"

func TestCleanModelJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced bare", "```\n[1,2]\n```", `[1,2]`},
		{"prose around object", `Here you go: {"a":1} hope that helps`, `{"a":1}`},
		{"prose around array", `result: [1,2] done`, `[1,2]`},
		{"whitespace", "   {\"a\":1}   ", `{"a":1}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cleanModelJSON(tc.in); got != tc.want {
				t.Fatalf("cleanModelJSON(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
