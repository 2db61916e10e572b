package app

import (
	"testing"
	"unicode/utf8"
)

func TestCodePrefix(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"", ""},
		{"AB", "AB"},
		{"ABCD", "AB…"},
		{"ÄÖÜX", "ÄÖ…"},
		{"日本語コード", "日本…"},
	}
	for _, tc := range cases {
		got := codePrefix(tc.code)
		if got != tc.want {
			t.Errorf("codePrefix(%q) = %q, want %q", tc.code, got, tc.want)
		}
		if !utf8.ValidString(got) {
			t.Errorf("codePrefix(%q) produced invalid UTF-8 %q", tc.code, got)
		}
	}
}
