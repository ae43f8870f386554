// internal/infra/fsys/checker.go
package fsys

import "os"

// Checker implements the file-existence capability against the real
// filesystem. Directories do not count: an attachment path must name a file.
type Checker struct{}

func NewChecker() Checker {
	return Checker{}
}

func (Checker) Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
