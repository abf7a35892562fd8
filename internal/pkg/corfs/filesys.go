package corfs

import (
	"io"
	"strings"
)

// FileSystemType is an identifier for supported FileSystems
type FileSystemType int

// Identifiers for supported FileSystemTypes
const (
	Local FileSystemType = iota
	S3
)

func (t FileSystemType) String() string {
	switch t {
	case Local:
		return "local"
	case S3:
		return "s3"
	}
	return "unknown"
}

// FileSystem provides the file backend for indexing jobs.
// Input documents and stop words are read from a file system. Shuffle and
// output data is written to a file system.
// This is abstracted to allow remote filesystems like S3 to be supported.
type FileSystem interface {
	ListFiles(pathGlob string) ([]FileInfo, error)
	Stat(filePath string) (FileInfo, error)
	OpenReader(filePath string, startAt int64) (io.ReadCloser, error)
	OpenWriter(filePath string) (io.WriteCloser, error)
	Delete(filePath string) error
	Join(elem ...string) string
	Init() error
}

// FileInfo provides information about a file
type FileInfo struct {
	Name string // file path
	Size int64  // file size in bytes
}

// InitFilesystem intializes a filesystem of the given type
func InitFilesystem(fsType FileSystemType) (FileSystem, error) {
	var fs FileSystem
	switch fsType {
	case S3:
		fs = &S3FileSystem{}
	default:
		fs = &LocalFileSystem{}
	}

	if err := fs.Init(); err != nil {
		return nil, err
	}
	return fs, nil
}

// InferFilesystemType picks the FileSystemType that serves location.
func InferFilesystemType(location string) FileSystemType {
	if strings.HasPrefix(location, "s3://") {
		return S3
	}
	return Local
}

// InferFilesystem initializes the filesystem that serves location.
func InferFilesystem(location string) (FileSystem, error) {
	return InitFilesystem(InferFilesystemType(location))
}
