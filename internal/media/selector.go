// Package media picks and prepares the image attached to an outbound post.
package media

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/mikequentel/autoshare/internal/model"
)

// DefaultMaxImageSize is the X upload ceiling for still images.
const DefaultMaxImageSize int64 = 5_000_000

// FullSize names the original upload when it is chosen over a rendition.
const FullSize = "full"

// Choice is the rendition picked for upload. Width and Height are 0 when the
// metadata does not record them.
type Choice struct {
	Name   string
	Path   string
	Size   int64
	Width  int
	Height int
}

type Selector struct {
	MaxBytes int64
	// Stat reports a file's size when metadata lacks it. Defaults to os.Stat.
	Stat func(path string) (int64, error)
}

func NewSelector(maxBytes int64) *Selector {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageSize
	}
	return &Selector{MaxBytes: maxBytes, Stat: statSize}
}

// Largest returns the biggest image no larger than s.MaxBytes: the original
// file if it qualifies, otherwise the rendition with the largest pixel area
// that does. ok is false when nothing qualifies.
func (s *Selector) Largest(file string, sizes map[string]model.Rendition) (Choice, bool) {
	return s.largest(model.Rendition{Name: FullSize, File: file}, sizes)
}

// ForAttachment is Largest over a stored attachment. The recorded size of the
// original is used when known; the file is stat'ed otherwise.
func (s *Selector) ForAttachment(att *model.Attachment) (Choice, bool) {
	full := model.Rendition{
		Name:     FullSize,
		File:     att.File,
		Width:    att.Width,
		Height:   att.Height,
		FileSize: att.FileSize,
	}
	return s.largest(full, att.Sizes)
}

func (s *Selector) largest(full model.Rendition, sizes map[string]model.Rendition) (Choice, bool) {
	if full.File != "" {
		n := full.FileSize
		var err error
		if n <= 0 {
			n, err = s.stat(full.File)
		}
		if err == nil && n <= s.MaxBytes {
			return Choice{Name: FullSize, Path: full.File, Size: n, Width: full.Width, Height: full.Height}, true
		}
	}

	for _, r := range byArea(sizes) {
		if r.File == "" || r.Width <= 0 || r.Height <= 0 {
			continue
		}
		path := filepath.Join(filepath.Dir(full.File), r.File)
		n := r.FileSize
		if n <= 0 {
			var err error
			if n, err = s.stat(path); err != nil {
				continue
			}
		}
		if n <= s.MaxBytes {
			return Choice{Name: r.Name, Path: path, Size: n, Width: r.Width, Height: r.Height}, true
		}
	}
	return Choice{}, false
}

func (s *Selector) stat(path string) (int64, error) {
	if s.Stat != nil {
		return s.Stat(path)
	}
	return statSize(path)
}

// byArea orders renditions largest first. Equal areas sort by name so the
// result does not depend on map iteration.
func byArea(sizes map[string]model.Rendition) []model.Rendition {
	out := make([]model.Rendition, 0, len(sizes))
	for name, r := range sizes {
		if r.Name == "" {
			r.Name = name
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Area() != out[j].Area() {
			return out[i].Area() > out[j].Area()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func statSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}
