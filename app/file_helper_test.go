package app

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFiles(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte("class: X\n"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
}

func TestFileHelperCollectClassFiles(t *testing.T) {
	tempDir := t.TempDir()
	writeFiles(t, tempDir, "B.yml", "A.yaml", "C.json", "notes.txt", "nested/D.yaml")

	helper := NewFileHelper()

	files, err := helper.CollectClassFiles([]string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectClassFiles failed: %v", err)
	}
	expected := []string{
		filepath.Join(tempDir, "A.yaml"),
		filepath.Join(tempDir, "B.yml"),
		filepath.Join(tempDir, "C.json"),
		filepath.Join(tempDir, "nested", "D.yaml"),
	}
	if len(files) != len(expected) {
		t.Fatalf("Expected %d class documents, got %d: %v", len(expected), len(files), files)
	}
	for i := range expected {
		if files[i] != expected[i] {
			t.Errorf("Expected files[%d] = %s, got %s", i, expected[i], files[i])
		}
	}
}

func TestFileHelperCollectClassFiles_NonRecursive(t *testing.T) {
	tempDir := t.TempDir()
	writeFiles(t, tempDir, "A.yaml", "nested/B.yaml")

	files, err := NewFileHelper().CollectClassFiles([]string{tempDir}, false, nil, nil)
	if err != nil {
		t.Fatalf("CollectClassFiles failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "A.yaml" {
		t.Errorf("Expected only the top-level document, got %v", files)
	}
}

func TestFileHelperCollectClassFiles_Patterns(t *testing.T) {
	tempDir := t.TempDir()
	writeFiles(t, tempDir, "A.yaml", "A.draft.yaml", "B.json", "generated/G.yaml")

	tests := []struct {
		name     string
		include  []string
		exclude  []string
		expected []string
	}{
		{"no patterns", nil, nil, []string{"A.draft.yaml", "A.yaml", "B.json", "G.yaml"}},
		{"exclude directory", nil, []string{"generated/"}, []string{"A.draft.yaml", "A.yaml", "B.json"}},
		{"exclude glob", nil, []string{"*.draft.yaml"}, []string{"A.yaml", "B.json", "G.yaml"}},
		{"include glob", []string{"*.json"}, nil, []string{"B.json"}},
		{"include and exclude", []string{"*.yaml"}, []string{"generated/", "*.draft.yaml"}, []string{"A.yaml"}},
	}

	helper := NewFileHelper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files, err := helper.CollectClassFiles([]string{tempDir}, true, tt.include, tt.exclude)
			if err != nil {
				t.Fatalf("CollectClassFiles failed: %v", err)
			}
			if len(files) != len(tt.expected) {
				t.Fatalf("Expected %v, got %v", tt.expected, files)
			}
			for i, f := range files {
				if filepath.Base(f) != tt.expected[i] {
					t.Errorf("Expected %s at %d, got %s", tt.expected[i], i, filepath.Base(f))
				}
			}
		})
	}
}

func TestFileHelperCollectClassFiles_Gitignore(t *testing.T) {
	tempDir := t.TempDir()
	writeFiles(t, tempDir, "A.yaml", "build/B.yaml")
	if err := os.WriteFile(filepath.Join(tempDir, ".gitignore"), []byte("build/\n"), 0644); err != nil {
		t.Fatalf("Failed to create .gitignore: %v", err)
	}

	helper := NewFileHelper()
	files, err := helper.CollectClassFiles([]string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectClassFiles failed: %v", err)
	}
	if len(files) != 2 {
		t.Errorf("Expected .gitignore to be ignored by default, got %v", files)
	}

	helper.RespectGitignore = true
	files, err = helper.CollectClassFiles([]string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectClassFiles failed: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "A.yaml" {
		t.Errorf("Expected ignored build directory to be skipped, got %v", files)
	}
}

func TestFileHelperCollectClassFiles_ExplicitFiles(t *testing.T) {
	tempDir := t.TempDir()
	writeFiles(t, tempDir, "A.yaml", "notes.txt")
	a := filepath.Join(tempDir, "A.yaml")

	files, err := NewFileHelper().CollectClassFiles(
		[]string{a, filepath.Join(tempDir, "notes.txt"), a, tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("CollectClassFiles failed: %v", err)
	}
	if len(files) != 1 || files[0] != a {
		t.Errorf("Expected the document once, got %v", files)
	}

	if _, err := NewFileHelper().CollectClassFiles([]string{filepath.Join(tempDir, "missing")}, true, nil, nil); err == nil {
		t.Error("Expected error for a missing path")
	}
}

func TestFileHelperIsValidClassFile(t *testing.T) {
	helper := NewFileHelper()

	tests := []struct {
		path     string
		expected bool
	}{
		{"Calc.yaml", true},
		{"Calc.yml", true},
		{"Calc.json", true},
		{"Calc.YAML", true},
		{"Calc.java", false},
		{"Calc.class", false},
		{"Calc", false},
	}

	for _, tt := range tests {
		result := helper.IsValidClassFile(tt.path)
		if result != tt.expected {
			t.Errorf("IsValidClassFile(%s) = %v, expected %v", tt.path, result, tt.expected)
		}
	}
}

func TestFileHelperFileExists(t *testing.T) {
	helper := NewFileHelper()
	tempDir := t.TempDir()
	writeFiles(t, tempDir, "A.yaml")

	exists, err := helper.FileExists(filepath.Join(tempDir, "A.yaml"))
	if err != nil {
		t.Fatalf("FileExists failed: %v", err)
	}
	if !exists {
		t.Error("Expected file to exist")
	}

	exists, err = helper.FileExists(filepath.Join(tempDir, "missing.yaml"))
	if err != nil {
		t.Fatalf("FileExists failed: %v", err)
	}
	if exists {
		t.Error("Expected file to not exist")
	}

	exists, err = helper.FileExists(tempDir)
	if err != nil {
		t.Fatalf("FileExists failed: %v", err)
	}
	if exists {
		t.Error("Expected a directory not to count as a file")
	}
}

func TestResolveFilePaths(t *testing.T) {
	tempDir := t.TempDir()
	writeFiles(t, tempDir, "A.yaml")
	testFile := filepath.Join(tempDir, "A.yaml")

	helper := NewFileHelper()

	files, err := ResolveFilePaths(helper, []string{testFile}, true, nil, nil)
	if err != nil {
		t.Fatalf("ResolveFilePaths failed: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Expected 1 file, got %d", len(files))
	}

	files, err = ResolveFilePaths(helper, []string{tempDir}, true, nil, nil)
	if err != nil {
		t.Fatalf("ResolveFilePaths failed: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("Expected 1 file, got %d", len(files))
	}
}
