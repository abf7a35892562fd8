package corfs

import (
	"io"
	"os"
	"path/filepath"
)

// LocalFileSystem wraps the local disk.
type LocalFileSystem struct{}

// walkDir lists every file below dir. An unreadable entry fails the walk.
func walkDir(dir string) ([]FileInfo, error) {
	files := make([]FileInfo, 0)
	err := filepath.Walk(dir, func(path string, f os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if f.IsDir() {
			return nil
		}
		files = append(files, FileInfo{
			Name: path,
			Size: f.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ListFiles lists the files matching pathGlob. Matched directories are
// listed recursively.
func (l *LocalFileSystem) ListFiles(pathGlob string) ([]FileInfo, error) {
	globbedFiles, err := filepath.Glob(pathGlob)
	if err != nil {
		return nil, err
	}

	files := make([]FileInfo, 0)
	for _, fileName := range globbedFiles {
		fInfo, err := os.Stat(fileName)
		if err != nil {
			return nil, err
		}
		if !fInfo.IsDir() {
			files = append(files, FileInfo{
				Name: fileName,
				Size: fInfo.Size(),
			})
			continue
		}

		dirFiles, err := walkDir(fileName)
		if err != nil {
			return nil, err
		}
		files = append(files, dirFiles...)
	}

	return files, nil
}

// OpenReader opens filePath for reading, starting startAt bytes in.
func (l *LocalFileSystem) OpenReader(filePath string, startAt int64) (io.ReadCloser, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	if _, err = file.Seek(startAt, io.SeekStart); err != nil {
		file.Close()
		return nil, err
	}
	return file, nil
}

// OpenWriter truncates or creates filePath, along with any missing parent
// directories.
func (l *LocalFileSystem) OpenWriter(filePath string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
}

// Stat returns information about filePath.
func (l *LocalFileSystem) Stat(filePath string) (FileInfo, error) {
	fInfo, err := os.Stat(filePath)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Name: filePath,
		Size: fInfo.Size(),
	}, nil
}

// Delete removes filePath and everything below it. Deleting a missing path
// is not an error.
func (l *LocalFileSystem) Delete(filePath string) error {
	return os.RemoveAll(filePath)
}

// Init is a no-op for the local filesystem.
func (l *LocalFileSystem) Init() error {
	return nil
}

// Join joins path elements with the OS separator.
func (l *LocalFileSystem) Join(elem ...string) string {
	return filepath.Join(elem...)
}
