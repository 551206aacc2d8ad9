package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// File cache for rendered article responses, keyed by section and
// slug. The xxhash suffix keeps renamed slugs from colliding with
// stale files.

// GetCachePath returns the cache file path for a section/slug pair.
func GetCachePath(section, slug string) string {
	hash := generateHash(section + slug)
	shortHash := hash[:16]
	cacheDir := filepath.Join("cache", section)
	return filepath.Join(cacheDir, fmt.Sprintf("%s_%s.json", slug, shortHash))
}

// generateHash generates an xxHash hash for the given string
func generateHash(s string) string {
	hash := xxhash.Sum64String(s)
	return fmt.Sprintf("%016x", hash)
}

// EnsureCacheDir ensures the cache directory exists
func EnsureCacheDir(section string) error {
	cacheDir := filepath.Join("cache", section)
	return os.MkdirAll(cacheDir, 0755)
}

// WriteCache writes a rendered response body to the cache file
func WriteCache(section, slug, body string) error {
	if err := EnsureCacheDir(section); err != nil {
		return err
	}

	cachePath := GetCachePath(section, slug)
	return os.WriteFile(cachePath, []byte(body), 0644)
}

// ReadCache reads a cached body if it exists and is not expired
func ReadCache(section, slug string, maxAge time.Duration) (string, bool) {
	cachePath := GetCachePath(section, slug)

	info, err := os.Stat(cachePath)
	if err != nil {
		return "", false
	}

	if time.Since(info.ModTime()) > maxAge {
		return "", false
	}

	content, err := os.ReadFile(cachePath)
	if err != nil {
		return "", false
	}

	return string(content), true
}

// ClearCache removes a specific cache file
func ClearCache(section, slug string) error {
	cachePath := GetCachePath(section, slug)
	err := os.Remove(cachePath)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// ClearCacheBySlugs removes cache files for the given slugs, including
// stale files left behind by slug renames.
func ClearCacheBySlugs(section string, slugs ...string) error {
	cacheDir := filepath.Join("cache", section)

	for _, slug := range slugs {
		if err := ClearCache(section, slug); err != nil {
			return err
		}

		pattern := filepath.Join(cacheDir, slug+"_*.json")
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}

		for _, match := range matches {
			os.Remove(match)
		}
	}

	return nil
}

// ClearSectionCache removes all cache files for a section
func ClearSectionCache(section string) error {
	cacheDir := filepath.Join("cache", section)
	return os.RemoveAll(cacheDir)
}

// ClearOldCache removes cache files older than the specified duration
func ClearOldCache(maxAge time.Duration) error {
	cacheRoot := "cache"

	return filepath.Walk(cacheRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		if !strings.HasSuffix(path, ".json") {
			return nil
		}

		if time.Since(info.ModTime()) > maxAge {
			os.Remove(path)
		}

		return nil
	})
}
