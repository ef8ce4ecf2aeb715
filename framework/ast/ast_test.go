package ast

import (
	"reflect"
	"testing"
)

func TestLanguageDetector(t *testing.T) {
	detector := NewLanguageDetector()
	if lang := detector.Detect("main.go"); lang != "go" {
		t.Fatalf("expected go, got %s", lang)
	}
	if lang := detector.Detect("docs/README.MD"); lang != "markdown" {
		t.Fatalf("expected markdown, got %s", lang)
	}
	if lang := detector.Detect(""); lang != "plaintext" {
		t.Fatalf("expected plaintext for untitled, got %s", lang)
	}
	if lang := detector.Detect("notes.unknownext"); lang != "plaintext" {
		t.Fatalf("expected plaintext fallback, got %s", lang)
	}
	detector.Register(".mdx", "markdown")
	if lang := detector.Detect("page.mdx"); lang != "markdown" {
		t.Fatalf("expected registered extension, got %s", lang)
	}
	if cat := detector.DetectCategory("yaml"); cat != CategoryConfig {
		t.Fatalf("expected config category, got %s", cat)
	}
	if cat := detector.DetectCategory("unknown-lang"); cat != CategoryDoc {
		t.Fatalf("expected doc category fallback, got %s", cat)
	}
}

type stubParser struct {
	language string
}

func (s *stubParser) Parse(content string, path string) (*ParseResult, error) {
	return &ParseResult{}, nil
}

func (s *stubParser) Language() string   { return s.language }
func (s *stubParser) Category() Category { return CategoryDoc }

func TestParserRegistry(t *testing.T) {
	registry := NewParserRegistry()
	registry.Register(&stubParser{language: "custom"})
	registry.Register(nil)
	if _, ok := registry.GetParser("custom"); !ok {
		t.Fatal("expected parser to be registered")
	}
	supported := registry.SupportedLanguages()
	if len(supported) != 1 || supported[0] != "custom" {
		t.Fatalf("unexpected supported languages: %v", supported)
	}
	defaults := DefaultParserRegistry().SupportedLanguages()
	if !reflect.DeepEqual(defaults, []string{"go", "markdown", "toml", "yaml"}) {
		t.Fatalf("unexpected default languages: %v", defaults)
	}
}

func outlineNames(entries []OutlineEntry) []string {
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name)
	}
	return names
}

func outlineDepths(entries []OutlineEntry) []int {
	depths := make([]int, 0, len(entries))
	for _, entry := range entries {
		depths = append(depths, entry.Depth)
	}
	return depths
}

func TestGoParserOutline(t *testing.T) {
	source := `package sample

import "fmt"

const Greeting = "hi"

// Person is a sample type.
type Person struct {
	Name string
	age  int
}

func (p *Person) Hello() string {
	return fmt.Sprintf("%s %s", Greeting, p.Name)
}

func New(name string) *Person {
	return &Person{Name: name}
}
`
	result, err := NewGoParser().Parse(source, "sample.go")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.RootNode == nil || result.RootNode.Type != NodeTypePackage || result.RootNode.Name != "sample" {
		t.Fatalf("root node incorrect: %#v", result.RootNode)
	}
	entries := result.Outline()
	want := []string{"Greeting", "Person", "Name", "age", "(*Person) Hello", "New"}
	if got := outlineNames(entries); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected outline %v", got)
	}
	if got := outlineDepths(entries); !reflect.DeepEqual(got, []int{0, 0, 1, 1, 0, 0}) {
		t.Fatalf("unexpected depths %v", got)
	}
	if entries[1].Kind != NodeTypeStruct || entries[1].StartLine != 8 {
		t.Fatalf("unexpected struct entry %#v", entries[1])
	}
	if entries[5].Kind != NodeTypeFunction {
		t.Fatalf("expected function kind, got %s", entries[5].Kind)
	}
}

func TestGoParserKeepsPartialResultOnSyntaxError(t *testing.T) {
	source := "package broken\n\nfunc Good() {}\n\nfunc Bad( {\n"
	result, err := NewGoParser().Parse(source, "broken.go")
	if err != nil {
		t.Fatalf("expected partial result, got %v", err)
	}
	if len(result.Errors) == 0 {
		t.Fatal("expected syntax errors to be recorded")
	}
	if names := outlineNames(result.Outline()); len(names) == 0 || names[0] != "Good" {
		t.Fatalf("expected Good in outline, got %v", names)
	}
}

func TestGoParserFailsWithoutPackageClause(t *testing.T) {
	result, err := NewGoParser().Parse("func main() {}\n", "b.go")
	if err == nil {
		t.Fatalf("expected error, got %d nodes", len(result.Nodes))
	}
}

func TestMarkdownParserOutline(t *testing.T) {
	content := "# Intro\n\nSome *text*.\n\n## Install `tool`\n\n```sh\n# not a heading\n```\n\n### Deep\n\n## Usage\n\n# Setup\n"
	result, err := NewMarkdownParser().Parse(content, "notes.md")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if result.RootNode == nil || result.RootNode.Type != NodeTypeDocument {
		t.Fatalf("expected document root, got %#v", result.RootNode)
	}
	entries := result.Outline()
	want := []string{"Intro", "Install tool", "Deep", "Usage", "Setup"}
	if got := outlineNames(entries); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected outline %v", got)
	}
	if got := outlineDepths(entries); !reflect.DeepEqual(got, []int{0, 1, 2, 1, 0}) {
		t.Fatalf("unexpected depths %v", got)
	}
	if entries[0].StartLine != 1 || entries[1].StartLine != 5 {
		t.Fatalf("unexpected lines %d %d", entries[0].StartLine, entries[1].StartLine)
	}
}

func TestMarkdownWithoutHeadingsHasEmptyOutline(t *testing.T) {
	result, err := NewMarkdownParser().Parse("just a paragraph\n", "plain.md")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if entries := result.Outline(); len(entries) != 0 {
		t.Fatalf("expected no entries, got %v", entries)
	}
}

func TestYAMLParserOutline(t *testing.T) {
	content := "server:\n  host: localhost\n  port: 8080\nservices:\n  - name: api\n  - name: web\nenabled: true\n"
	result, err := NewYAMLParser().Parse(content, "config.yaml")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	entries := result.Outline()
	want := []string{"server", "host", "port", "services", "name", "name", "enabled"}
	if got := outlineNames(entries); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected outline %v", got)
	}
	if got := outlineDepths(entries); !reflect.DeepEqual(got, []int{0, 1, 1, 0, 1, 1, 0}) {
		t.Fatalf("unexpected depths %v", got)
	}
	if entries[3].Kind != NodeTypeArray || entries[3].StartLine != 4 {
		t.Fatalf("unexpected services entry %#v", entries[3])
	}
}

func TestYAMLParserRejectsInvalidDocument(t *testing.T) {
	if _, err := NewYAMLParser().Parse("key: [unclosed\n", "bad.yaml"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestTOMLParserOutline(t *testing.T) {
	content := "title = \"demo\"\n\n[server]\nport = 8080\n\n[[plugins]]\nname = \"a\"\n"
	result, err := NewTOMLParser().Parse(content, "Cargo.toml")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	entries := result.Outline()
	want := []string{"title", "server", "port", "plugins", "name"}
	if got := outlineNames(entries); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected outline %v", got)
	}
	if got := outlineDepths(entries); !reflect.DeepEqual(got, []int{0, 0, 1, 0, 1}) {
		t.Fatalf("unexpected depths %v", got)
	}
	if entries[1].Kind != NodeTypeTable {
		t.Fatalf("expected table kind, got %s", entries[1].Kind)
	}
}

func TestFromDocumentSymbols(t *testing.T) {
	result := FromDocumentSymbols("lib.rs", "rust", []DocumentSymbol{
		{Name: "Widget", Kind: NodeTypeStruct, StartLine: 1, Children: []DocumentSymbol{
			{Name: "render", Kind: NodeTypeMethod, StartLine: 3},
		}},
		{Name: "main", StartLine: 10},
	})
	entries := result.Outline()
	if got := outlineNames(entries); !reflect.DeepEqual(got, []string{"Widget", "render", "main"}) {
		t.Fatalf("unexpected outline %v", got)
	}
	if got := outlineDepths(entries); !reflect.DeepEqual(got, []int{0, 1, 0}) {
		t.Fatalf("unexpected depths %v", got)
	}
	if entries[2].Kind != NodeTypeSection {
		t.Fatalf("expected section fallback kind, got %s", entries[2].Kind)
	}
}
