package output

import (
	"bytes"
	"strings"
	"testing"
)

type people struct{}

func (people) Headers() []string { return []string{"name", "age"} }
func (people) Rows() [][]string  { return [][]string{{"alice", "25"}, {"bob", "30"}} }

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yml ", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrinter(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewPrinter(&buf, FormatTable).Print(people{}); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"name", "alice", "30"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in:\n%s", want, out)
			}
		}
		if strings.Contains(out, "+") || strings.Contains(out, "|") {
			t.Errorf("expected borderless table, got:\n%s", out)
		}
	})

	t.Run("table falls back to json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewPrinter(&buf, FormatTable).Print(map[string]int{"a": 1}); err != nil {
			t.Fatal(err)
		}
		if got := buf.String(); got != "{\n  \"a\": 1\n}\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		if err := NewPrinter(&buf, FormatYAML).Print(map[string]int{"a": 1}); err != nil {
			t.Fatal(err)
		}
		if got := buf.String(); got != "a: 1\n" {
			t.Errorf("unexpected output %q", got)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if err := NewPrinter(&bytes.Buffer{}, "xml").Print(1); err == nil {
			t.Error("expected error")
		}
	})
}
