package textutil_test

import (
	"testing"

	"recut/internal/textutil"
)

func TestReplaceFold(t *testing.T) {
	cases := []struct {
		name        string
		input       string
		old         string
		replacement string
		want        string
		matched     bool
	}{
		{
			name:        "exact case",
			input:       "a dog runs across the street",
			old:         "dog",
			replacement: "cat",
			want:        "a cat runs across the street",
			matched:     true,
		},
		{
			name:        "mixed case occurrences",
			input:       "The Dog barks. A DOG sleeps. One dog plays.",
			old:         "dog",
			replacement: "cat",
			want:        "The cat barks. A cat sleeps. One cat plays.",
			matched:     true,
		},
		{
			name:        "no occurrence",
			input:       "a bird on a wire",
			old:         "dog",
			replacement: "cat",
			want:        "a bird on a wire",
			matched:     false,
		},
		{
			name:        "replacement contains subject",
			input:       "dog meets dog",
			old:         "dog",
			replacement: "big dog",
			want:        "big dog meets big dog",
			matched:     true,
		},
		{
			name:        "empty subject",
			input:       "anything",
			old:         "  ",
			replacement: "cat",
			want:        "anything",
			matched:     false,
		},
		{
			name:        "unicode folding",
			input:       "ein GROSSER Hund",
			old:         "grosser",
			replacement: "kleiner",
			want:        "ein kleiner Hund",
			matched:     true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, matched := textutil.ReplaceFold(tc.input, tc.old, tc.replacement)
			if got != tc.want || matched != tc.matched {
				t.Fatalf("ReplaceFold(%q, %q, %q) = %q, %v; want %q, %v",
					tc.input, tc.old, tc.replacement, got, matched, tc.want, tc.matched)
			}
		})
	}
}

func TestContainsFold(t *testing.T) {
	if !textutil.ContainsFold("A Dog in the rain", "dog") {
		t.Fatal("expected case-folded match")
	}
	if textutil.ContainsFold("A cat in the rain", "dog") {
		t.Fatal("unexpected match")
	}
	if textutil.ContainsFold("", "dog") || textutil.ContainsFold("text", "") {
		t.Fatal("empty inputs must not match")
	}
}
