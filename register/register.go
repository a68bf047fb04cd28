// Package register adds or removes this server in an MCP client configuration file.
package register

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/lexandro/contextor-mcp/browse"
)

// Scope selects which configuration file is edited.
type Scope string

const (
	ScopeProject Scope = "project" // <directory>/.mcp.json
	ScopeUser    Scope = "user"    // ~/.claude.json
)

// ErrNotRegistered is returned by Unregister when the server has no entry.
var ErrNotRegistered = errors.New("server is not registered")

// Options describes one registration.
type Options struct {
	Scope      Scope
	Directory  string   // project scope only; default "."
	ServerName string   // default derived from BinaryPath
	BinaryPath string   // default: the running executable
	ServerArgs []string // forwarded to the server on launch
}

type serverEntry struct {
	Command string   `json:"command"`
	Args    []string `json:"args,omitempty"`
}

// ParseScope validates a scope name.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeProject, ScopeUser:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q (must be %q or %q)", s, ScopeProject, ScopeUser)
}

// Register writes the server entry and returns the configuration path.
// Other entries and unrelated keys of an existing file are preserved.
func Register(options Options) (string, error) {
	options, configPath, err := resolve(options)
	if err != nil {
		return "", err
	}

	entry := buildEntry(options.BinaryPath, options.ServerArgs)
	err = updateConfig(configPath, func(servers map[string]any) error {
		servers[options.ServerName] = entry
		return nil
	})
	if err != nil {
		return "", err
	}
	return configPath, nil
}

// Unregister removes the server entry and returns the configuration path.
func Unregister(options Options) (string, error) {
	options, configPath, err := resolve(options)
	if err != nil {
		return "", err
	}

	err = updateConfig(configPath, func(servers map[string]any) error {
		if _, ok := servers[options.ServerName]; !ok {
			return fmt.Errorf("%q in %s: %w", options.ServerName, configPath, ErrNotRegistered)
		}
		delete(servers, options.ServerName)
		return nil
	})
	if err != nil {
		return "", err
	}
	return configPath, nil
}

// DeriveServerName extracts a server name from a binary path by stripping .exe and -mcp suffixes.
func DeriveServerName(binaryPath string) string {
	name := filepath.Base(binaryPath)
	name = strings.TrimSuffix(name, ".exe")
	name = strings.TrimSuffix(name, "-mcp")
	return name
}

func resolve(options Options) (Options, string, error) {
	if _, err := ParseScope(string(options.Scope)); err != nil {
		return options, "", err
	}
	if options.BinaryPath == "" {
		binaryPath, err := detectBinaryPath()
		if err != nil {
			return options, "", err
		}
		options.BinaryPath = binaryPath
	}
	if options.ServerName == "" {
		options.ServerName = DeriveServerName(options.BinaryPath)
	}
	if options.Directory == "" {
		options.Directory = "."
	}

	configPath, err := resolveConfigPath(options.Scope, options.Directory)
	if err != nil {
		return options, "", err
	}
	return options, configPath, nil
}

func detectBinaryPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("getting executable path: %w", err)
	}
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("resolving symlinks for %s: %w", exe, err)
	}
	return resolved, nil
}

func resolveConfigPath(scope Scope, directory string) (string, error) {
	if scope == ScopeProject {
		absDir, err := filepath.Abs(directory)
		if err != nil {
			return "", fmt.Errorf("resolving directory %s: %w", directory, err)
		}
		return filepath.Join(absDir, ".mcp.json"), nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".claude.json"), nil
}

// buildEntry wraps the binary in cmd /C on Windows, where MCP clients spawn without a shell.
func buildEntry(binaryPath string, serverArgs []string) serverEntry {
	if runtime.GOOS == "windows" {
		return serverEntry{
			Command: "cmd",
			Args:    append([]string{"/C", binaryPath}, serverArgs...),
		}
	}
	return serverEntry{Command: binaryPath, Args: serverArgs}
}

// updateConfig loads configPath (or an empty config), lets edit change the
// mcpServers object and writes the result back atomically.
func updateConfig(configPath string, edit func(servers map[string]any) error) error {
	config := map[string]any{}

	data, err := os.ReadFile(configPath)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &config); err != nil {
			return fmt.Errorf("parsing existing config %s: %w", configPath, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("reading config %s: %w", configPath, err)
	}

	servers, ok := config["mcpServers"]
	if !ok || servers == nil {
		servers = map[string]any{}
		config["mcpServers"] = servers
	}
	serversMap, ok := servers.(map[string]any)
	if !ok {
		return fmt.Errorf("mcpServers in %s is not an object", configPath)
	}

	if err := edit(serversMap); err != nil {
		return err
	}

	output, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return browse.SaveText(configPath, string(output)+"\n")
}
