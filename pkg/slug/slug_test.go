package slug

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func noneTaken(ctx context.Context, slug string) (bool, error) { return false, nil }

func takenSet(slugs ...string) TakenFunc {
	set := make(map[string]bool, len(slugs))
	for _, s := range slugs {
		set[s] = true
	}
	return func(ctx context.Context, slug string) (bool, error) {
		return set[slug], nil
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "simple", in: "My Project", want: "my-project"},
		{name: "already clean", in: "my-project", want: "my-project"},
		{name: "punctuation runs collapse", in: "My!!  Cool... Project", want: "my-cool-project"},
		{name: "leading and trailing junk", in: "  --Hello World--  ", want: "hello-world"},
		{name: "unicode stripped", in: "projekt-über-alles", want: "projekt-ber-alles"},
		{name: "digits kept", in: "App 2 Electric Boogaloo", want: "app-2-electric-boogaloo"},
		{name: "all junk", in: "!!! ???", want: ""},
		{name: "empty", in: "", want: ""},
		{
			name: "truncated to bound",
			in:   strings.Repeat("abcde ", 20),
			want: "abcde-abcde-abcde-abcde-abcde-abcde-abcd",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	got, err := Generate(ctx, "user-1", "My Project", noneTaken)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got != "my-project" {
		t.Errorf("Generate() = %q, want %q", got, "my-project")
	}
}

func TestGenerateAppendsSuffixOnCollision(t *testing.T) {
	ctx := context.Background()

	got, err := Generate(ctx, "user-1", "My Project", takenSet("my-project"))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got != "my-project-2" {
		t.Errorf("Generate() = %q, want %q", got, "my-project-2")
	}

	got, err = Generate(ctx, "user-1", "My Project", takenSet("my-project", "my-project-2", "my-project-3"))
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got != "my-project-4" {
		t.Errorf("Generate() = %q, want %q", got, "my-project-4")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	ctx := context.Background()
	taken := takenSet("my-project")

	first, err := Generate(ctx, "user-1", "My Project", taken)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	second, err := Generate(ctx, "user-1", "My Project", taken)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if first != second {
		t.Errorf("Generate() not deterministic: %q then %q", first, second)
	}
}

func TestGenerateNeverEmpty(t *testing.T) {
	ctx := context.Background()

	got, err := Generate(ctx, "user-1", "!!!", noneTaken)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if got == "" {
		t.Fatal("Generate() returned an empty slug")
	}
	if !strings.HasPrefix(got, "sbx-") {
		t.Errorf("fallback slug = %q, want \"sbx-\" prefix", got)
	}

	// Different owners with the same unsanitizable name get different tokens.
	other, err := Generate(ctx, "user-2", "!!!", noneTaken)
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if other == got {
		t.Errorf("fallback slug identical across owners: %q", got)
	}
}

func TestGeneratePropagatesStoreError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("store down")

	_, err := Generate(ctx, "user-1", "My Project", func(ctx context.Context, slug string) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Generate() error = %v, want wrapped %v", err, boom)
	}
}

func TestGenerateRandomSuffixAfterNumberedCandidates(t *testing.T) {
	ctx := context.Background()

	// Every numbered candidate is taken; the first randomized one is free.
	calls := 0
	got, err := Generate(ctx, "user-1", "My Project", func(ctx context.Context, slug string) (bool, error) {
		calls++
		return calls <= 50, nil
	})
	if err != nil {
		t.Fatalf("Generate() error: %v", err)
	}
	if !strings.HasPrefix(got, "my-project-") {
		t.Fatalf("fallback slug = %q, want \"my-project-\" prefix", got)
	}
	suffix := strings.TrimPrefix(got, "my-project-")
	if len(suffix) != 8 {
		t.Errorf("random suffix = %q, want 8 hex characters", suffix)
	}
	if _, err := hex.DecodeString(suffix); err != nil {
		t.Errorf("random suffix %q is not hex", suffix)
	}
}

func TestGenerateGivesUpEventually(t *testing.T) {
	ctx := context.Background()

	_, err := Generate(ctx, "user-1", "My Project", func(ctx context.Context, slug string) (bool, error) {
		return true, nil
	})
	if err == nil {
		t.Fatal("Generate() = nil error with every slug taken")
	}
}
