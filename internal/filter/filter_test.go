package filter

import "testing"

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantErr bool
		empty   bool
	}{
		{"empty", "", false, true},
		{"whitespaceOnly", "   ", false, true},
		{"terms", "proxy stats", false, false},
		{"level", "level=error", false, false},
		{"levelAlias", "level=warn", false, false},
		{"unknownLevel", "level=loud", true, false},
		{"regex", "~conn(ect|ecting)", false, false},
		{"emptyRegex", "~", true, false},
		{"badRegex", "~[unclosed", true, false},
		{"mixed", "level=info ~stats proxy", false, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if f.IsEmpty() != tt.empty {
				t.Fatalf("Parse(%q).IsEmpty() = %v, want %v", tt.input, f.IsEmpty(), tt.empty)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		line  string
		want  bool
	}{
		{"emptyMatchesAll", "", "anything at all", true},
		{"termHit", "proxy", "2025/08/30 proxy stats connecting=1", true},
		{"termCaseInsensitive", "PROXY", "proxy stats", true},
		{"termMiss", "proxy", "container started", false},
		{"allTermsRequired", "proxy started", "proxy stats", false},
		{"levelHit", "level=error", "[ERROR] handshake failed", true},
		{"levelLowercaseLine", "level=error", "time=x level=error msg=boom", true},
		{"levelWordBoundary", "level=err", "deferred cleanup", false},
		{"levelMiss", "level=error", "[INFO] all good", false},
		{"regexHit", "~conn\\w+=\\d+", "proxy stats connecting=3", true},
		{"regexMiss", "~^ERROR", "warn: something", false},
		{"mixedAllMustHold", "level=info proxy", "[INFO] proxy stats", true},
		{"mixedOneFails", "level=info proxy", "[ERROR] proxy stats", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := Parse(tt.query)
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.query, err)
			}
			if got := f.Match(tt.line); got != tt.want {
				t.Fatalf("Match(%q) with query %q = %v, want %v", tt.line, tt.query, got, tt.want)
			}
		})
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	text := "[INFO] proxy stats connecting=1\n[ERROR] handshake failed\n\n[INFO] container healthy"

	t.Run("emptyPassthrough", func(t *testing.T) {
		t.Parallel()
		f := New()
		if got := f.Apply(text); got != text {
			t.Fatalf("Apply() = %q, want passthrough", got)
		}
	})

	t.Run("keepsOnlyMatches", func(t *testing.T) {
		t.Parallel()
		f, err := Parse("level=info")
		if err != nil {
			t.Fatalf("Parse() unexpected error: %v", err)
		}
		want := "[INFO] proxy stats connecting=1\n[INFO] container healthy"
		if got := f.Apply(text); got != want {
			t.Fatalf("Apply() = %q, want %q", got, want)
		}
	})

	t.Run("noMatches", func(t *testing.T) {
		t.Parallel()
		f, err := Parse("nosuchthing")
		if err != nil {
			t.Fatalf("Parse() unexpected error: %v", err)
		}
		if got := f.Apply(text); got != "" {
			t.Fatalf("Apply() = %q, want empty", got)
		}
	})
}

func TestString(t *testing.T) {
	t.Parallel()

	f, err := Parse("  level=error proxy  ")
	if err != nil {
		t.Fatalf("Parse() unexpected error: %v", err)
	}
	if got := f.String(); got != "level=error proxy" {
		t.Fatalf("String() = %q, want trimmed query", got)
	}
}
