package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// uploadExts are the extensions accepted as user images
var uploadExts = []string{"jpg", "jpeg", "png", "gif", "webp"}

// EnsureDir creates a directory (and parents) if it doesn't exist
func EnsureDir(dir string) error {
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Ext returns the lower-case extension without the dot
func Ext(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// IsImageFile reports whether filename has an extension the upload path can decode
func IsImageFile(filename string) bool {
	return slices.Contains(uploadExts, Ext(filename))
}

// IsURL reports whether source is an http(s) URL rather than a path
func IsURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// OutputName derives the PNG name for a batch item, e.g. "me.jpg" -> "me_avatar.png"
func OutputName(input, suffix string) string {
	base := filepath.Base(input)
	if IsURL(input) {
		base = input[strings.LastIndex(input, "/")+1:]
		if i := strings.IndexAny(base, "?#"); i >= 0 {
			base = base[:i]
		}
	}
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = SanitizeFilename(name)
	if name == "" {
		name = "image"
	}
	if suffix != "" {
		name += "_" + suffix
	}
	return name + ".png"
}

// ExpandInputs turns a mix of files, directories and URLs into a flat list of
// image sources. Directories are walked recursively; non-image files inside
// them are skipped, but explicitly named files are kept as-is.
func ExpandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if IsURL(arg) || !DirExists(arg) {
			out = append(out, arg)
			continue
		}
		files, err := ListImageFiles(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// ListImageFiles recursively lists all image files in a directory, sorted
func ListImageFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsImageFile(path) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	slices.Sort(files)
	return files, nil
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	return err == nil && !info.IsDir()
}

// DirExists checks if a directory exists
func DirExists(dirname string) bool {
	info, err := os.Stat(dirname)
	return err == nil && info.IsDir()
}

// SanitizeFilename replaces characters that are invalid in file names
func SanitizeFilename(filename string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_")
	return strings.Trim(r.Replace(filename), " .")
}

// FormatFileSize formats a byte count in human-readable form
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
