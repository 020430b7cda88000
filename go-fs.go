package fatview

import (
	"io/fs"

	"github.com/spf13/afero"

	"github.com/croeber/fatview/trail"
)

// GoDirEntry adapts an os.FileInfo to fs.DirEntry.
type GoDirEntry struct {
	fs.FileInfo
}

func (g GoDirEntry) Type() fs.FileMode {
	return g.FileInfo.Mode().Type()
}

func (g GoDirEntry) Info() (fs.FileInfo, error) {
	return g.FileInfo, nil
}

// GoFile adapts a File to fs.File and fs.ReadDirFile.
type GoFile struct {
	*File
}

func (g GoFile) Stat() (fs.FileInfo, error) {
	return g.File.Stat()
}

func (g GoFile) ReadDir(n int) ([]fs.DirEntry, error) {
	infos, err := g.File.Readdir(n)
	if err != nil {
		return nil, trail.From(err)
	}

	entries := make([]fs.DirEntry, len(infos))
	for i, info := range infos {
		entries[i] = GoDirEntry{info}
	}

	return entries, nil
}

// GoFs wraps a Volume to be compatible with fs.FS.
type GoFs struct {
	*Volume
}

// MountGoFS mounts the volume behind the device as an fs.FS compatible
// filesystem.
func MountGoFS(device BlockDevice) (*GoFs, error) {
	volume, err := Mount(device)
	if err != nil {
		return nil, trail.From(err)
	}

	return &GoFs{volume}, nil
}

func (g *GoFs) Open(name string) (fs.File, error) {
	file, err := g.Volume.Open(name)
	if err != nil {
		return nil, trail.From(err)
	}

	f, ok := file.(*File)
	if !ok {
		return nil, trail.From(ErrNotSupported)
	}

	return GoFile{f}, nil
}

// compile-time interface checks
var (
	_ afero.Fs = (*Volume)(nil)
	_ fs.FS    = (*GoFs)(nil)
)
