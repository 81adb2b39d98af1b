package memory

import (
	"errors"
	"strings"
	"testing"
)

func TestSaveRequestValidate(t *testing.T) {
	valid := SaveRequest{Type: "learning", Title: "Indexes beat scans", Content: "Measured on the orders table."}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	cases := []struct {
		name string
		req  SaveRequest
		want string
	}{
		{
			"unknown type",
			SaveRequest{Type: "memo", Title: "x", Content: "y"},
			"",
		},
		{
			"missing title",
			SaveRequest{Type: "learning", Content: "y"},
			"",
		},
		{
			"blank title",
			SaveRequest{Type: "learning", Title: "   ", Content: "y"},
			"title must not be blank",
		},
		{
			"severity on non-gotcha",
			SaveRequest{Type: "learning", Title: "x", Content: "y", Severity: "high"},
			"only valid for gotcha",
		},
		{
			"missing content",
			SaveRequest{Type: "decision", Title: "x"},
			"content is required",
		},
		{
			"unknown scope",
			SaveRequest{Type: "learning", Title: "x", Content: "y", Scope: "galactic"},
			"",
		},
		{
			"unknown severity",
			SaveRequest{Type: "gotcha", Title: "x", Content: "y", Severity: "catastrophic"},
			"",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.req.Validate()
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if tc.want != "" && !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}

	t.Run("breadcrumb without content", func(t *testing.T) {
		req := SaveRequest{Type: "breadcrumb", Title: "Resume at parser"}
		if err := req.Validate(); err != nil {
			t.Fatalf("breadcrumb should allow empty content: %v", err)
		}
	})

	t.Run("severity on gotcha", func(t *testing.T) {
		req := SaveRequest{Type: "gotcha", Title: "x", Content: "y", Severity: "critical"}
		if err := req.Validate(); err != nil {
			t.Fatalf("gotcha severity rejected: %v", err)
		}
	})
}

func TestValidID(t *testing.T) {
	cases := map[string]bool{
		"learning-indexes-beat-scans": true,
		"thought-2":                   true,
		"decision-a1-b2":              true,
		"learning":                    false,
		"Learning-x":                  false,
		"-x":                          false,
		"learning--":                  false, // second segment must start alnum
		"":                            false,
	}
	for id, want := range cases {
		if got := ValidID(id); got != want {
			t.Errorf("ValidID(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Use Postgres for billing": "use-postgres-for-billing",
		"  HTTP/2: the basics!  ":  "http-2-the-basics",
		"---":                      "untitled",
		"":                         "untitled",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}

	t.Run("long titles are capped", func(t *testing.T) {
		got := Slugify(strings.Repeat("very long title ", 20))
		if len(got) > 60 {
			t.Fatalf("slug length %d exceeds cap", len(got))
		}
		if strings.HasSuffix(got, "-") {
			t.Fatalf("slug %q has trailing hyphen", got)
		}
	})
}

func TestIsEphemeral(t *testing.T) {
	if !(&Memory{ID: "thought-try-wal-mode"}).IsEphemeral() {
		t.Fatal("thought- prefix should be ephemeral")
	}
	if (&Memory{ID: "learning-wal-mode"}).IsEphemeral() {
		t.Fatal("regular id flagged ephemeral")
	}
}
