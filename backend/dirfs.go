package backend

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ehrlich-b/virtualmarlin/internal/interfaces"
)

// DirFS backs the virtual SD card with a real directory on disk, for
// operators who want print files to persist across runs instead of living
// only in an in-memory map.
type DirFS struct {
	root string
}

// NewDirFS creates a DirFS rooted at dir. dir must already exist.
func NewDirFS(dir string) *DirFS {
	return &DirFS{root: dir}
}

// resolve joins name under root, rejecting any attempt to escape it.
func (d *DirFS) resolve(name string) (string, error) {
	clean := filepath.Clean("/" + name)
	path := filepath.Join(d.root, clean)
	if !strings.HasPrefix(path, filepath.Clean(d.root)+string(os.PathSeparator)) && path != filepath.Clean(d.root) {
		return "", os.ErrInvalid
	}
	return path, nil
}

func (d *DirFS) List() ([]interfaces.FileInfo, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		return nil, err
	}
	infos := make([]interfaces.FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, interfaces.FileInfo{
			Name:    entry.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime().Unix(),
			Mode:    info.Mode(),
		})
	}
	return infos, nil
}

func (d *DirFS) ReadFile(name string) ([]byte, error) {
	path, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

func (d *DirFS) WriteFile(name string, data []byte) error {
	path, err := d.resolve(name)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (d *DirFS) AppendFile(name string, data []byte) error {
	path, err := d.resolve(name)
	if err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

func (d *DirFS) DeleteFile(name string) error {
	path, err := d.resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}

func (d *DirFS) Stat(name string) (interfaces.FileInfo, error) {
	path, err := d.resolve(name)
	if err != nil {
		return interfaces.FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return interfaces.FileInfo{}, err
	}
	return interfaces.FileInfo{
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime().Unix(),
		Mode:    info.Mode(),
	}, nil
}

var _ interfaces.FileSystem = (*DirFS)(nil)
