package builtin

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"cora/internal/tool"
)

// RegisterFiles adds the file tools: read_file, write_file, list_files
// and search_files.
func RegisterFiles(reg *tool.Registry) {
	reg.Register(&tool.Spec{
		Name:        "read_file",
		Description: "Read contents of a file",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to read",
				},
			},
			"required": []string{"path"},
		},
		Handler: readFile,
	})

	reg.Register(&tool.Spec{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories as needed",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Path to the file to write",
				},
				"content": map[string]any{
					"type":        "string",
					"description": "Content to write",
				},
			},
			"required": []string{"path", "content"},
		},
		Handler: writeFile,
	})

	reg.Register(&tool.Spec{
		Name:        "list_files",
		Description: "List files in a directory, optionally filtered by a glob pattern",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"path": map[string]any{
					"type":        "string",
					"description": "Directory to list (default: current directory)",
				},
				"pattern": map[string]any{
					"type":        "string",
					"description": "Glob pattern to filter names (e.g. '*.go')",
				},
			},
		},
		Handler: listFiles,
	})

	reg.Register(&tool.Spec{
		Name:        "search_files",
		Description: "Search for content in files using regex patterns",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"pattern": map[string]any{
					"type":        "string",
					"description": "Regular expression pattern to search for",
				},
				"path": map[string]any{
					"type":        "string",
					"description": "File or directory to search in",
				},
				"case_insensitive": map[string]any{
					"type":        "boolean",
					"description": "Case-insensitive search (default: false)",
				},
				"file_pattern": map[string]any{
					"type":        "string",
					"description": "Filter files by pattern (e.g., '*.go')",
				},
			},
			"required": []string{"pattern", "path"},
		},
		Handler: searchFiles,
	})
}

func readFile(ctx context.Context, args tool.Args) (any, error) {
	path := args.String("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}

	content, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %v", err)
	}
	return string(content), nil
}

func writeFile(ctx context.Context, args tool.Args) (any, error) {
	path := args.String("path", "")
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	content := args.String("content", "")

	path = expandHome(path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %v", err)
		}
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write file: %v", err)
	}

	return map[string]any{
		"path":    path,
		"written": len(content),
	}, nil
}

func listFiles(ctx context.Context, args tool.Args) (any, error) {
	dir := expandHome(args.String("path", "."))
	pattern := args.String("pattern", "")

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %v", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if pattern != "" {
			matched, err := filepath.Match(pattern, name)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern: %v", err)
			}
			if !matched {
				continue
			}
		}
		if entry.IsDir() {
			name += "/"
		}
		names = append(names, name)
	}
	sort.Strings(names)

	return map[string]any{
		"path":  dir,
		"files": names,
		"count": len(names),
	}, nil
}

func searchFiles(ctx context.Context, args tool.Args) (any, error) {
	pattern := args.String("pattern", "")
	path := expandHome(args.String("path", ""))
	if pattern == "" || path == "" {
		return nil, fmt.Errorf("pattern and path are required")
	}

	regexPattern := pattern
	if args.Bool("case_insensitive", false) {
		regexPattern = "(?i)" + regexPattern
	}

	re, err := regexp.Compile(regexPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path not found: %v", err)
	}

	filePattern := args.String("file_pattern", "")
	var results []string

	if info.IsDir() {
		err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil // Skip files with errors
			}

			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			if info.IsDir() {
				return nil
			}

			if filePattern != "" {
				matched, err := filepath.Match(filePattern, filepath.Base(p))
				if err != nil || !matched {
					return nil
				}
			}

			if isBinaryFile(p) {
				return nil
			}

			results = append(results, searchFile(p, re)...)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("directory walk failed: %v", err)
		}
	} else if !isBinaryFile(path) {
		results = searchFile(path, re)
	}

	if len(results) == 0 {
		return "No matches found", nil
	}

	return map[string]any{
		"matches": strings.Join(results, "\n"),
		"count":   len(results),
	}, nil
}

func searchFile(path string, re *regexp.Regexp) []string {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()

	var results []string
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if re.MatchString(line) {
			results = append(results, fmt.Sprintf("%s:%d:%s", path, lineNum, line))
		}
	}

	return results
}

// isBinaryFile checks if a file is binary by reading the first 512 bytes
func isBinaryFile(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return true // Assume binary if can't open
	}
	defer file.Close()

	buf := make([]byte, 512)
	n, err := file.Read(buf)
	if err != nil {
		return true
	}

	// Null bytes indicate a binary file
	return bytes.Contains(buf[:n], []byte{0})
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return path
}
