// Package naming picks collision-free file names inside the destination
// directory. Candidates are name, stem_1.ext, stem_2.ext, ... where stem and
// ext come from splitting the requested name at its last dot.
package naming

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"landrop/pkg/platform"
)

// FallbackName replaces a file name that is empty or reduces to nothing
// once directory components are stripped.
const FallbackName = "unnamed"

const filePerm = 0644

// Sanitize keeps only the final path element of a client-supplied name.
// Both separators are stripped regardless of the host OS because senders
// may run on any platform.
func Sanitize(requested string) string {
	name := requested
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return FallbackName
	}
	return name
}

// SplitName splits name at its last dot. A name without a dot has an
// empty extension.
func SplitName(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// Candidate returns the i-th candidate for name; i == 0 is the name itself.
func Candidate(name string, i int) string {
	if i == 0 {
		return name
	}
	stem, ext := SplitName(name)
	suffixed := stem + "_" + strconv.Itoa(i)
	if ext == "" {
		return suffixed
	}
	return suffixed + "." + ext
}

// Resolve returns the first candidate path in dir that does not exist at
// the time of the check. The answer is advisory: another writer may claim
// the path before the caller creates it. Use Create when the file is
// about to be written.
func Resolve(p platform.Platform, dir, requested string) (string, error) {
	name := Sanitize(requested)
	for i := 0; ; i++ {
		path := filepath.Join(dir, Candidate(name, i))
		_, err := p.Stat(path)
		if p.IsNotExist(err) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", path, err)
		}
	}
}

// Create opens the first free candidate in dir with O_EXCL, so two
// concurrent uploads of the same name can never share a path. A candidate
// that already exists moves the search to the next index; any other error
// is returned.
func Create(p platform.Platform, dir, requested string) (platform.File, string, error) {
	name := Sanitize(requested)
	for i := 0; ; i++ {
		path := filepath.Join(dir, Candidate(name, i))
		f, err := p.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if err == nil {
			return f, path, nil
		}
		if !p.IsExist(err) {
			return nil, "", fmt.Errorf("failed to create %s: %w", path, err)
		}
	}
}
