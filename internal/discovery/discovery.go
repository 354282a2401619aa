// ABOUTME: Image discovery: enumerates candidate files in a directory
// ABOUTME: Filters by extension, minimum size, and excluded directories
package discovery

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SupportedExtensions are the image formats the critic accepts.
var SupportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".heic": true,
}

// MinFileSize skips thumbnails and tiny images (100 KiB).
const MinFileSize = 100 * 1024

// excludedDirs are directory names never descended into.
var excludedDirs = map[string]bool{
	"_cache":      true,
	"__MACOSX":    true,
	"thumbnails":  true,
	".thumbnails": true,
}

// Image is one discovered candidate file.
type Image struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discover finds supported images under root. The returned order is newest
// first by modification time with path as tiebreaker, and is stable for the
// duration of a run. maxImages <= 0 means no limit.
func Discover(root string, recursive bool, maxImages int) ([]Image, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("path does not exist: %s", root)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", root)
	}

	var images []Image

	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if !recursive || excludedDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !SupportedExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			// File vanished mid-walk; skip it.
			return nil
		}
		if fi.Size() < MinFileSize {
			return nil
		}
		images = append(images, Image{
			Path:    path,
			Name:    d.Name(),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
		return nil
	}

	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	sort.SliceStable(images, func(i, j int) bool {
		if !images[i].ModTime.Equal(images[j].ModTime) {
			return images[i].ModTime.After(images[j].ModTime)
		}
		return images[i].Path < images[j].Path
	})

	if maxImages > 0 && len(images) > maxImages {
		images = images[:maxImages]
	}

	return images, nil
}

// Stats summarizes discovered images for display.
type Stats struct {
	Total       int
	TotalSizeMB float64
	AvgSizeMB   float64
	ByExtension map[string]int
}

// GetStats computes display statistics for a discovery result.
func GetStats(images []Image) Stats {
	stats := Stats{ByExtension: map[string]int{}}
	if len(images) == 0 {
		return stats
	}

	var totalSize int64
	for _, img := range images {
		totalSize += img.Size
		ext := strings.ToLower(filepath.Ext(img.Path))
		stats.ByExtension[ext]++
	}

	stats.Total = len(images)
	stats.TotalSizeMB = round2(float64(totalSize) / (1024 * 1024))
	stats.AvgSizeMB = round2(stats.TotalSizeMB / float64(len(images)))
	return stats
}

func round2(f float64) float64 {
	return float64(int64(f*100+0.5)) / 100
}
