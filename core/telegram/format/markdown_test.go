package format

import "testing"

func TestEscapeMarkdownV2(t *testing.T) {
	got, err := EscapeMarkdown("my_proj.io (beta)!", MarkdownV2)
	if err != nil {
		t.Fatalf("escape: %v", err)
	}
	want := `my\_proj\.io \(beta\)\!`
	if got != want {
		t.Fatalf("EscapeMarkdown = %q, want %q", got, want)
	}
	if V2(`a\b`) != `a\\b` {
		t.Fatalf("backslash not escaped: %q", V2(`a\b`))
	}
}

func TestEscapeMarkdownV1(t *testing.T) {
	got, err := EscapeMarkdown("*bold* [link] x.com", MarkdownV1)
	if err != nil {
		t.Fatalf("escape: %v", err)
	}
	if got != `\*bold\* \[link] x.com` {
		t.Fatalf("EscapeMarkdown = %q", got)
	}
	if _, err := EscapeMarkdown("x", 3); err == nil {
		t.Fatal("expected error for unknown version")
	}
}
