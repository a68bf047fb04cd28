package language

import (
	"path/filepath"
	"strings"
)

// DefaultFenceTag is used for files with no extension and no recognized name.
const DefaultFenceTag = "text"

// ExtensionToFence maps file extensions (without dot) to Markdown code fence tags.
// Extensions not listed here are used as the tag verbatim.
var ExtensionToFence = map[string]string{
	// Go
	"go": "go",
	// JavaScript / TypeScript
	"js": "javascript", "jsx": "jsx", "mjs": "javascript", "cjs": "javascript",
	"ts": "typescript", "tsx": "tsx", "mts": "typescript", "cts": "typescript",
	// Python
	"py": "python", "pyi": "python", "pyw": "python",
	// Rust
	"rs": "rust",
	// Java / Kotlin
	"java": "java", "kt": "kotlin", "kts": "kotlin",
	// C / C++
	"h":   "c",
	"cc":  "cpp", "cxx": "cpp", "hpp": "cpp", "hxx": "cpp",
	// C#
	"cs": "csharp", "csx": "csharp",
	// Ruby
	"rb": "ruby", "erb": "erb",
	// Shell
	"sh": "bash", "bash": "bash", "zsh": "zsh", "fish": "fish",
	"ps1": "powershell", "psm1": "powershell", "psd1": "powershell",
	"bat": "batch", "cmd": "batch",
	// Web
	"htm": "html",
	// Data / Config
	"jsonc": "json",
	"yml":   "yaml",
	"xsl":   "xml", "xslt": "xml",
	// Markup
	"md": "markdown", "mdx": "markdown",
	"rst": "rst",
	"tex": "latex",
	// Misc
	"gql":    "graphql",
	"proto":  "protobuf",
	"tf":     "hcl", "tfvars": "hcl",
	"ex":     "elixir", "exs": "elixir",
	"erl":    "erlang", "hrl": "erlang",
	"hs":     "haskell",
	"rmd":    "r",
	"gradle": "groovy",
}

// FenceTag returns the code fence tag for a file: the mapped language name, else the
// lowercase extension, else a name-based guess (Makefile, Dockerfile), else "text".
func FenceTag(filePath string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filePath), "."))
	base := strings.ToLower(filepath.Base(filePath))

	// ".env" style names have no extension, only a leading dot.
	if ext != "" && base == "."+ext {
		ext = ""
	}

	if ext == "" {
		switch base {
		case "makefile", "gnumakefile":
			return "makefile"
		case "dockerfile", "containerfile":
			return "dockerfile"
		case "gemfile", "rakefile":
			return "ruby"
		case ".gitignore", ".dockerignore", ".gitattributes":
			return "gitignore"
		case ".editorconfig":
			return "ini"
		case ".htaccess":
			return "apacheconf"
		}
		return DefaultFenceTag
	}

	if tag, ok := ExtensionToFence[ext]; ok {
		return tag
	}
	return ext
}
