// Package filer is an interface used by the rollogr packages.
// You may override this to gain more control of file operations in your app.
package filer

//go:generate mockgen -destination=../mocks/filer.go -package=mocks github.com/agentdiag/rollogr/filer Filer

import (
	"os"
	"path/filepath"
)

// Filer is used to override file-managing procedures.
type Filer interface {
	Remove(fileName string) error
	ReadDir(dirPath string) ([]os.DirEntry, error)
	ReadFile(fileName string) ([]byte, error)
	MkdirAll(path string, perm os.FileMode) error
	OpenFile(name string, flag int, perm os.FileMode) (*os.File, error)
	Stat(fileName string) (os.FileInfo, error)
	Walk(root string, walkFn filepath.WalkFunc) error
}

// Default returns a Filer interface that works, using default procedures.
func Default() Filer {
	return &File{}
}

// File can be embedded in a custom type to provide the missing methods for the Filer interface.
type File struct{}

// Remove provides os.Remove.
func (f *File) Remove(fileName string) error {
	return os.Remove(fileName)
}

// ReadDir provides os.ReadDir.
func (f *File) ReadDir(dirPath string) ([]os.DirEntry, error) {
	return os.ReadDir(dirPath)
}

// ReadFile provides os.ReadFile.
func (f *File) ReadFile(fileName string) ([]byte, error) {
	return os.ReadFile(fileName)
}

// MkdirAll provides os.MkdirAll.
func (f *File) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// OpenFile provides os.OpenFile.
func (f *File) OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(name, flag, perm)
}

// Stat provides os.Stat.
func (f *File) Stat(fileName string) (os.FileInfo, error) {
	return os.Stat(fileName)
}

// Walk provides filepath.Walk.
func (f *File) Walk(root string, walkFn filepath.WalkFunc) error {
	return filepath.Walk(root, walkFn)
}
