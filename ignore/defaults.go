package ignore

// DefaultDirectoryNames are directories that never belong in an LLM context document.
var DefaultDirectoryNames = []string{
	// Version control
	".git", ".svn", ".hg",

	// Dependencies
	"node_modules", "vendor", "bower_components", "jspm_packages", "web_modules",
	".yarn", ".pnp", "Pods",

	// Build output
	"dist", "build", "out", "target", "bin", "obj", "DerivedData", "debug",

	// Framework caches
	".next", ".nuxt", ".vitepress", ".svelte-kit", ".angular", ".turbo", ".expo",
	".meteor", ".serverless", ".terraform", ".vagrant", ".gradle",
	".cache", ".parcel-cache", ".sass-cache", ".rpt2_cache",

	// IDE / Editor
	".idea", ".vscode", ".vs", ".cursor",

	// Python
	"__pycache__", ".pytest_cache", ".mypy_cache", ".tox",
	"venv", ".venv", "env", ".env", ".virtualenv", "virtualenv",

	// Scratch, logs, coverage
	".tmp", "tmp", "temp", ".temp", "logs", ".logs",
	"coverage", ".coverage", ".nyc_output",
}

// DefaultFileExtensions are file extensions for temporary, compiled and archive files.
var DefaultFileExtensions = []string{
	".log", ".tmp", ".temp", ".bak", ".backup", ".swp", ".swo", ".orig",
	".rej", ".patch", ".pyc", ".pyo", ".pyd", ".so", ".dll", ".dylib",
	".exe", ".msi", ".dmg", ".pkg", ".deb", ".rpm", ".tar.gz", ".zip",
	".rar", ".7z", ".iso", ".img", ".bin", ".dat", ".dump", ".lock",
}

// DefaultHiddenFileExceptions are dotfiles worth keeping despite the hidden-file rule.
var DefaultHiddenFileExceptions = []string{
	".gitignore",
	".env.example",
	".env.template",
	".editorconfig",
	".dockerignore",
	".htaccess",
}

// DefaultOptions returns a fresh copy of the default rule lists.
func DefaultOptions() RuleSetOptions {
	return RuleSetOptions{
		DirectoryNames:       append([]string(nil), DefaultDirectoryNames...),
		FileExtensions:       append([]string(nil), DefaultFileExtensions...),
		HiddenFileExceptions: append([]string(nil), DefaultHiddenFileExceptions...),
	}
}
