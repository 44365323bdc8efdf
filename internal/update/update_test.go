package update

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCompareVersions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"equal", "1.2.3", "1.2.3", 0},
		{"equalWithPrefix", "v1.2.3", "1.2.3", 0},
		{"patchNewer", "1.2.4", "1.2.3", 1},
		{"minorOlder", "1.1.9", "1.2.0", -1},
		{"majorWins", "2.0.0", "1.9.9", 1},
		{"shorterPadsZero", "1.2", "1.2.0", 0},
		{"longerNewer", "1.2.0.1", "1.2", 1},
		{"numericBeatsDoubleDigit", "1.10.0", "1.9.0", 1},
		{"nonNumericFallsBackToStrings", "1.2.beta", "1.2.alpha", 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CompareVersions(tt.a, tt.b); got != tt.want {
				t.Fatalf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("newerAvailable", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("1.3.0\n"))
		}))
		defer srv.Close()

		res, err := NewChecker("1.2.0", srv.URL).Check(context.Background())
		if err != nil {
			t.Fatalf("Check() unexpected error: %v", err)
		}
		if !res.Available {
			t.Fatal("Check() Available = false, want true")
		}
		if res.Latest != "1.3.0" || res.Current != "1.2.0" {
			t.Fatalf("Check() = %+v, want latest 1.3.0 current 1.2.0", res)
		}
	})

	t.Run("upToDate", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("v1.2.0"))
		}))
		defer srv.Close()

		res, err := NewChecker("1.2.0", srv.URL).Check(context.Background())
		if err != nil {
			t.Fatalf("Check() unexpected error: %v", err)
		}
		if res.Available {
			t.Fatal("Check() Available = true, want false")
		}
	})

	t.Run("serverError", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusInternalServerError)
		}))
		defer srv.Close()

		if _, err := NewChecker("1.2.0", srv.URL).Check(context.Background()); err == nil {
			t.Fatal("Check() expected error for server failure")
		}
	})

	t.Run("emptyBody", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("   \n"))
		}))
		defer srv.Close()

		if _, err := NewChecker("1.2.0", srv.URL).Check(context.Background()); err == nil {
			t.Fatal("Check() expected error for empty response")
		}
	})

	t.Run("contextCancelled", func(t *testing.T) {
		t.Parallel()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("1.0.0"))
		}))
		defer srv.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewChecker("1.2.0", srv.URL).Check(ctx); err == nil {
			t.Fatal("Check() expected error for cancelled context")
		}
	})
}
