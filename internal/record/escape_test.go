package record

import (
	"errors"
	"testing"
)

func TestEscape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "hello world", "hello world"},
		{"tab", "a\tb", `a\tb`},
		{"cr", "a\rb", `a\rb`},
		{"lf", "a\nb", `a\nb`},
		{"backslash", `a\b`, `a\\b`},
		{"crlf", "a\r\nb", `a\r\nb`},
		{"all four", "\t\r\n\\", `\t\r\n\\`},
		{"backslash before letter t", `\t`, `\\t`},
		{"unicode passthrough", "döner é", "döner é"},
		{"invalid utf-8 passthrough", "a\x80b", "a\x80b"},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got := Escape(testCase.input)
			if got != testCase.want {
				t.Errorf("Escape(%q) = %q, want %q", testCase.input, got, testCase.want)
			}
		})
	}
}

func TestUnescape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"plain", "hello", "hello"},
		{"tab", `a\tb`, "a\tb"},
		{"cr", `a\rb`, "a\rb"},
		{"lf", `a\nb`, "a\nb"},
		{"backslash", `a\\b`, `a\b`},
		{"escaped backslash then t", `\\t`, `\t`},
		{"double escaped", `\\\\`, `\\`},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			got, err := Unescape(testCase.input)
			if err != nil {
				t.Fatalf("Unescape(%q) returned error: %v", testCase.input, err)
			}

			if got != testCase.want {
				t.Errorf("Unescape(%q) = %q, want %q", testCase.input, got, testCase.want)
			}
		})
	}
}

func TestUnescapeInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"unknown sequence", `a\xb`},
		{"trailing backslash", `abc\`},
		{"backslash space", `a\ b`},
		{"uppercase escapes are invalid", `a\Nb`},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			_, err := Unescape(testCase.input)
			if !errors.Is(err, ErrInvalidEscape) {
				t.Errorf("Unescape(%q) error = %v, want ErrInvalidEscape", testCase.input, err)
			}
		})
	}
}

func TestEscapeRoundTrip(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"plain text",
		"line1\nline2",
		"windows\r\nending",
		`literal \ backslash`,
		`tricky \t not a tab`,
		"\\",
		"\\\\",
		"\t\t\r\r\n\n",
		"mixed \\n and \n real",
		"unicode ✓ \U0001F600",
		"not utf-8 a\x80b",
		"\xff\xfe\t\xfd",
	}

	for _, input := range inputs {
		got, err := Unescape(Escape(input))
		if err != nil {
			t.Errorf("round trip of %q failed: %v", input, err)

			continue
		}

		if got != input {
			t.Errorf("round trip of %q = %q", input, got)
		}
	}
}
