package features

import (
	"reflect"
	"testing"
)

func TestExtractEmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t\n"} {
		fs := Extract(input)
		if !fs.Empty() {
			t.Errorf("Extract(%q) should yield an empty FeatureSet", input)
		}
	}
}

func TestExtractNonCodeTextDoesNotFail(t *testing.T) {
	fs := Extract("the quick brown fox jumps over the lazy dog")
	if fs.Empty() {
		t.Fatal("plain prose still yields tokens")
	}
	if fs.TokenCounts["quick"] != 1 {
		t.Errorf("expected token 'quick' counted once, got %d", fs.TokenCounts["quick"])
	}
}

func TestExtractCommentLineNumbers(t *testing.T) {
	code := "function add(a, b) {\n  // TODO: handle overflow\n  return a + b;\n}\n# trailing note\n"
	fs := Extract(code)

	if len(fs.Comments) != 2 {
		t.Fatalf("expected 2 comments, got %d: %+v", len(fs.Comments), fs.Comments)
	}
	if fs.Comments[0].Line != 2 || fs.Comments[0].Text != "TODO: handle overflow" {
		t.Errorf("unexpected first comment: %+v", fs.Comments[0])
	}
	if fs.Comments[1].Line != 5 {
		t.Errorf("expected trailing note on line 5, got %d", fs.Comments[1].Line)
	}
}

func TestExtractBlockComments(t *testing.T) {
	code := "/* first line\n * second line\n */\nfunc run() {}\n"
	fs := Extract(code)

	if len(fs.Comments) != 2 {
		t.Fatalf("expected 2 comment lines from block, got %d: %+v", len(fs.Comments), fs.Comments)
	}
	if fs.Comments[0].Text != "first line" || fs.Comments[0].Line != 1 {
		t.Errorf("unexpected block comment head: %+v", fs.Comments[0])
	}
	if !fs.Has(MarkerFunctionDecl) {
		t.Error("func declaration after block comment should still be detected")
	}
}

func TestCamelCaseSplitting(t *testing.T) {
	fs := Extract("function validateEmail(email) { return emailRegex.test(email); }")

	if fs.TokenCounts["validateemail"] == 0 {
		t.Error("full identifier token missing")
	}
	if fs.TokenCounts["validate"] == 0 || fs.TokenCounts["email"] == 0 {
		t.Error("camelCase subtokens missing")
	}

	found := false
	for _, id := range fs.Identifiers {
		if id == "validateEmail" {
			found = true
		}
	}
	if !found {
		t.Errorf("original-case identifier not preserved: %v", fs.Identifiers)
	}
}

func TestSplitIdentifier(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"validateEmail", []string{"validate", "email"}},
		{"read_file_sync", []string{"read", "file", "sync"}},
		{"simple", nil},
		{"parseJSONBody", []string{"parse", "jsonbody"}},
	}
	for _, c := range cases {
		got := SplitIdentifier(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("SplitIdentifier(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestFactoryMarkers(t *testing.T) {
	code := `class ShapeFactory {
  static createShape(kind) {
    switch (kind) {
      case "circle": return new Circle();
      case "square": return new Square();
    }
  }
}`
	fs := Extract(code)

	for _, m := range []string{MarkerClassDecl, MarkerStaticMethod, MarkerTypeDispatch, MarkerConditional} {
		if !fs.Has(m) {
			t.Errorf("factory sample missing marker %s (have %v)", m, fs.MarkerNames())
		}
	}
}

func TestBuilderMarkers(t *testing.T) {
	code := `class QueryBuilder {
  withTable(name) { this.table = name; return this; }
  withLimit(n) { this.limit = n; return this; }
  build() { return new Query(this); }
}`
	fs := Extract(code)

	for _, m := range []string{MarkerFluentChain, MarkerBuildMethod, MarkerFieldAssignment} {
		if !fs.Has(m) {
			t.Errorf("builder sample missing marker %s (have %v)", m, fs.MarkerNames())
		}
	}
}

func TestDecrementIsNotComment(t *testing.T) {
	fs := Extract("for (let i = 10; i > 0; i--) { total += i; }")
	if len(fs.Comments) != 0 {
		t.Errorf("decrement operator misread as comment: %+v", fs.Comments)
	}
	if !fs.Has(MarkerLoop) {
		t.Error("loop marker missing")
	}
}

func TestExtractDeterministic(t *testing.T) {
	code := "// NOTE: stable\nfunc handler(w, r) { log.Println(\"hit\") }"
	a := Extract(code)
	b := Extract(code)

	if !reflect.DeepEqual(a, b) {
		t.Error("Extract is not deterministic for identical input")
	}
}

func TestVectorMergesCodeAndComments(t *testing.T) {
	fs := Extract("// validate input\nfunc validate(x) {}")
	vec := fs.Vector()
	// "validate" appears once in the comment and once in code.
	if vec["validate"] != 2 {
		t.Errorf("expected merged weight 2 for 'validate', got %v", vec["validate"])
	}
}
