package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/xxh3"
)

// DefaultExtensions are the file types the scanner and patcher operate on.
var DefaultExtensions = []string{".c", ".h"}

// Discover walks root and returns relative slash-separated paths of files
// matching the given extensions, in lexical order. Hidden directories are
// skipped. Passing no extensions returns every regular file.
func Discover(root string, exts []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root is not a directory: %s", root)
	}

	extSet := make(map[string]struct{}, len(exts))
	for _, e := range exts {
		extSet[strings.ToLower(e)] = struct{}{}
	}

	var paths []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(extSet) > 0 {
			if _, ok := extSet[strings.ToLower(filepath.Ext(name))]; !ok {
				return nil
			}
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk source root: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ReadText reads a file and returns its raw content as a string. Bytes are
// preserved exactly, including any invalid UTF-8 sequences, so a later write
// of unmodified regions is byte-identical.
func ReadText(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

// DecodePermissive returns text with invalid UTF-8 sequences replaced by
// U+FFFD. Scanning uses this view so a file with stray bytes degrades to
// findings on the decodable parts instead of aborting the scan. Never use
// the permissive view for patching.
func DecodePermissive(text string) string {
	return strings.ToValidUTF8(text, "�")
}

// SplitLinesKeepEnds splits text into lines, each retaining its original
// terminator. The concatenation of the result equals the input byte for
// byte, including a final line without a trailing newline.
func SplitLinesKeepEnds(text string) []string {
	if text == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}

// TrimLineEnd returns the line without its trailing LF or CRLF.
func TrimLineEnd(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}

// DominantLineEnding reports the terminator used by the majority of lines,
// defaulting to LF for empty or single-line content.
func DominantLineEnding(text string) string {
	crlf := strings.Count(text, "\r\n")
	lf := strings.Count(text, "\n") - crlf
	if crlf > lf {
		return "\r\n"
	}
	return "\n"
}

// Fingerprint returns a short stable content hash, used to assert whether a
// file actually changed across a patch attempt.
func Fingerprint(text string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(text))
}
