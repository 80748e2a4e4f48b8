package diff

import "testing"

func TestParseEmpty(t *testing.T) {
	result, err := Parse("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 0 {
		t.Errorf("expected 0 files, got %d", len(result.Files))
	}
}

func TestParseSingleFile(t *testing.T) {
	text := `diff --git a/foo.go b/foo.go
index 1234567..abcdefg 100644
--- a/foo.go
+++ b/foo.go
@@ -1,5 +1,6 @@
 package main

 func main() {
+    fmt.Println("hello")
     fmt.Println("world")
 }
`
	result, err := Parse(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(result.Files))
	}

	file := result.Files[0]
	if file.OldPath != "foo.go" || file.NewPath != "foo.go" {
		t.Fatalf("unexpected paths: %+v", file)
	}
	if file.IsNew || file.Deleted {
		t.Fatalf("expected a plain modification, got %+v", file)
	}
	if len(file.Hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(file.Hunks))
	}
	if len(file.Hunks[0].Added) != 1 {
		t.Fatalf("expected 1 added line, got %+v", file.Hunks[0].Added)
	}
	addedLine := file.Hunks[0].Added[0]
	if text := file.Hunks[0].AddedText[addedLine]; text != `    fmt.Println("hello")` {
		t.Fatalf("expected AddedText[%d] to hold the raw added line, got %q", addedLine, text)
	}
}

func TestIsSourceFileSkipsVendorAndGenerated(t *testing.T) {
	cases := map[string]bool{
		"internal/foo/bar.go":      true,
		"vendor/lib/x.go":          false,
		"go.sum":                   false,
		"api/service.pb.go":        false,
		"node_modules/pkg/idx.js":  false,
	}
	for path, want := range cases {
		if got := IsSourceFile(path); got != want {
			t.Errorf("IsSourceFile(%q) = %v, want %v", path, got, want)
		}
	}
}
