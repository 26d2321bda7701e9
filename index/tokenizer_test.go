package index

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"simple", "The quick brown fox", []string{"the", "quick", "brown", "fox"}},
		{"punctuation", "Hello, world! It's fine.", []string{"hello", "world", "it", "fine"}},
		{"single-char dropped", "a I to be", []string{"to", "be"}},
		{"empty", "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Tokenize(tc.in)
			if len(got) == 0 && len(tc.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestTokenizeIdempotent(t *testing.T) {
	inputs := []string{
		"The Eiffel Tower is 330 meters tall.",
		"database indexing with B-trees!!",
		"  leading and trailing spaces  ",
	}
	for _, in := range inputs {
		first := Tokenize(in)
		rejoined := strings.Join(first, " ")
		second := Tokenize(rejoined)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("tokenize not idempotent across rejoin for %q: %v != %v", in, first, second)
		}
	}
}
