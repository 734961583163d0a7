package symbol

import "testing"

func TestExtractConstSingleLine(t *testing.T) {
	src := "const unrelated = 1;\nexport const formatName = (n) => n.trim();\nconst after = 2;\n"
	got, err := Extract(src, "formatName")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "export const formatName = (n) => n.trim();"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractFunctionMultiLine(t *testing.T) {
	src := "function other() {}\n\nexport async function formatName(n) {\n  if (n) {\n    return n.trim();\n  }\n  return '';\n}\n\nconst after = 1;\n"
	got, err := Extract(src, "formatName")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "export async function formatName(n) {\n  if (n) {\n    return n.trim();\n  }\n  return '';\n}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractInterface(t *testing.T) {
	src := "interface Other {}\n\nexport interface User {\n  name: string;\n  age: number;\n}\n"
	got, err := Extract(src, "User")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "export interface User {\n  name: string;\n  age: number;\n}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractAbstractClassWithNestedMethod(t *testing.T) {
	src := "export abstract class Base {\n  run() {\n    return 1;\n  }\n}\n"
	got, err := Extract(src, "Base")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "export abstract class Base {\n  run() {\n    return 1;\n  }\n}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractEnum(t *testing.T) {
	src := "enum Color {\n  Red,\n  Blue,\n}\n"
	got, err := Extract(src, "Color")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "enum Color {\n  Red,\n  Blue,\n}"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExtractTypeAlias(t *testing.T) {
	src := "type ID = string;\n"
	got, err := Extract(src, "ID")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "type ID = string;" {
		t.Errorf("got %q", got)
	}
}

func TestExtractIgnoresBracesInStringLiterals(t *testing.T) {
	src := "function withBraces() {\n  const s = \"{ not a brace }\";\n  return s;\n}\n"
	got, err := Extract(src, "withBraces")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "function withBraces() {\n  const s = \"{ not a brace }\";\n  return s;\n}"
	if got != want {
		t.Errorf("got %q", got)
	}
}

func TestExtractNotFound(t *testing.T) {
	_, err := Extract("const a = 1;\n", "missingSymbol")
	if err == nil {
		t.Fatalf("expected NotFoundError")
	}
	if _, ok := err.(*NotFoundError); !ok {
		t.Fatalf("expected *NotFoundError, got %T", err)
	}
}

func TestExtractNoNaturalEndFallsBackToEOF(t *testing.T) {
	src := "function open() {\n  const x = 1\n"
	got, err := Extract(src, "open")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != src {
		t.Errorf("got %q, want whole remainder %q", got, src)
	}
}
