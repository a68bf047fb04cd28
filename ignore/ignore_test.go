package ignore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func Test_RuleSet_DefaultDirectories(t *testing.T) {
	rules := DefaultRuleSet()

	tests := []struct {
		name    string
		ignored bool
	}{
		{"node_modules", true},
		{"__pycache__", true},
		{"Node_Modules", true},
		{"dist", true},
		{"src", false},
		{"lib", false},
	}
	for _, tt := range tests {
		got := rules.ShouldIgnoreEntry(tt.name, true, false)
		if got != tt.ignored {
			t.Errorf("ShouldIgnoreEntry(%s, dir) = %v, want %v", tt.name, got, tt.ignored)
		}
	}
}

func Test_RuleSet_DirectoryNameDoesNotApplyToFiles(t *testing.T) {
	rules := DefaultRuleSet()
	if rules.ShouldIgnoreEntry("build", false, true) {
		t.Error("expected a file named 'build' to NOT be ignored")
	}
}

func Test_RuleSet_Extensions(t *testing.T) {
	rules := DefaultRuleSet()

	tests := []struct {
		name    string
		ignored bool
	}{
		{"app.log", true},
		{"APP.LOG", true},
		{"backup.tar.gz", true},
		{"module.pyc", true},
		{"main.go", false},
		{"notes.gz", false},
		{"README", false},
	}
	for _, tt := range tests {
		got := rules.ShouldIgnoreEntry(tt.name, false, true)
		if got != tt.ignored {
			t.Errorf("ShouldIgnoreEntry(%s, file) = %v, want %v", tt.name, got, tt.ignored)
		}
	}
}

func Test_RuleSet_ExtensionDoesNotApplyToDirectories(t *testing.T) {
	rules := DefaultRuleSet()
	if rules.ShouldIgnoreEntry("release.zip", true, false) {
		t.Error("expected a directory named 'release.zip' to NOT be ignored")
	}
}

func Test_RuleSet_HiddenFiles(t *testing.T) {
	rules := DefaultRuleSet()

	tests := []struct {
		name    string
		isDir   bool
		ignored bool
	}{
		{".DS_Store", false, true},
		{".secret", false, true},
		{".github", true, true},
		{".gitignore", false, false},
		{".editorconfig", false, false},
		{".env.example", false, false},
		{".GITIGNORE", false, true}, // exceptions are exact
	}
	for _, tt := range tests {
		got := rules.ShouldIgnoreEntry(tt.name, tt.isDir, !tt.isDir)
		if got != tt.ignored {
			t.Errorf("ShouldIgnoreEntry(%s) = %v, want %v", tt.name, got, tt.ignored)
		}
	}
}

// Test_RuleSet_Invariant checks every synthetic name/kind combination against the
// OR-of-three-predicates definition.
func Test_RuleSet_Invariant(t *testing.T) {
	rules := NewRuleSet(RuleSetOptions{
		DirectoryNames:       []string{"Cache", ".hidden-dir", "x.log"},
		FileExtensions:       []string{".log", "TMP"},
		HiddenFileExceptions: []string{".keep", ".hidden-dir"},
	})

	stems := []string{"cache", "CACHE", "x", ".keep", ".hidden-dir", ".other", "plain", "x.log"}
	suffixes := []string{"", ".log", ".LOG", ".tmp", ".txt"}
	kinds := []struct{ isDir, isFile bool }{{true, false}, {false, true}, {false, false}}

	dirSet := map[string]bool{"cache": true, ".hidden-dir": true, "x.log": true}
	extSet := map[string]bool{".log": true, ".tmp": true}
	exceptions := map[string]bool{".keep": true, ".hidden-dir": true}

	for _, stem := range stems {
		for _, suffix := range suffixes {
			name := stem + suffix
			for _, kind := range kinds {
				extMatch := false
				lower := strings.ToLower(name)
				for i := 1; i < len(lower); i++ {
					if lower[i] == '.' && extSet[lower[i:]] {
						extMatch = true
					}
				}
				want := (kind.isDir && dirSet[lower]) ||
					(kind.isFile && extMatch) ||
					(strings.HasPrefix(name, ".") && !exceptions[name])

				got := rules.ShouldIgnoreEntry(name, kind.isDir, kind.isFile)
				if got != want {
					t.Errorf("ShouldIgnoreEntry(%q, dir=%v, file=%v) = %v, want %v",
						name, kind.isDir, kind.isFile, got, want)
				}
			}
		}
	}
}

func Test_RuleSet_ShouldIgnore_StatsPath(t *testing.T) {
	tmpDir := t.TempDir()
	rules := DefaultRuleSet()

	os.Mkdir(filepath.Join(tmpDir, "node_modules"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "node_modules.txt"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "debug.log"), []byte("x"), 0644)

	if !rules.ShouldIgnore(filepath.Join(tmpDir, "node_modules")) {
		t.Error("expected node_modules directory to be ignored")
	}
	if rules.ShouldIgnore(filepath.Join(tmpDir, "node_modules.txt")) {
		t.Error("expected node_modules.txt file to NOT be ignored")
	}
	if !rules.ShouldIgnore(filepath.Join(tmpDir, "debug.log")) {
		t.Error("expected debug.log to be ignored")
	}
}

func Test_RuleSet_ShouldIgnore_MissingPath(t *testing.T) {
	rules := DefaultRuleSet()
	missing := filepath.Join(t.TempDir(), ".missing")
	if rules.ShouldIgnore(missing) {
		t.Error("expected nonexistent path to NOT be ignored")
	}
}

func Test_RuleSet_Extend(t *testing.T) {
	rules := DefaultRuleSet().Extend([]string{"fixtures"}, []string{"snap"})

	if !rules.ShouldIgnoreEntry("fixtures", true, false) {
		t.Error("expected extended directory name to be ignored")
	}
	if !rules.ShouldIgnoreEntry("view.snap", false, true) {
		t.Error("expected extension without leading dot to be normalized")
	}
	if !rules.ShouldIgnoreEntry("node_modules", true, false) {
		t.Error("expected defaults to survive Extend")
	}
}
