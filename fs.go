package fatview

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/croeber/fatview/trail"
)

// Volume is a mounted read-only FAT12 or FAT16 volume. It owns the block
// device and the decoded geometry; every operation of this package goes
// through a Volume, so several images can be open at the same time.
//
// Volume implements afero.Fs. All mutating methods fail with ErrNotSupported.
type Volume struct {
	lock   sync.Mutex
	device BlockDevice
	info   Info
}

// Mount decodes the geometry of the volume behind the given device. Sector 0
// is read with the 512-byte default sector size; the size from the BPB is
// installed on the device for every read after that.
func Mount(device BlockDevice) (*Volume, error) {
	device.SetSectorSize(defaultSectorSize)

	sector, err := device.ReadSector(0)
	if err != nil {
		return nil, trail.Wrap(err, ErrOpenFilesystem)
	}

	info, err := decodeGeometry(sector)
	if err != nil {
		return nil, trail.From(err)
	}

	device.SetSectorSize(info.BytesPerSector)

	return &Volume{
		device: device,
		info:   info,
	}, nil
}

// MountPath opens the image at path on fsys, typically afero.NewOsFs(), and
// mounts it.
func MountPath(fsys afero.Fs, path string) (*Volume, error) {
	device, err := OpenDevice(fsys, path)
	if err != nil {
		return nil, trail.From(err)
	}

	volume, err := Mount(device)
	if err != nil {
		_ = device.Close()
		return nil, trail.From(err)
	}

	return volume, nil
}

// Info returns the volume geometry. The returned value stays owned by the
// Volume and is valid until Unmount.
func (v *Volume) Info() *Info {
	return &v.info
}

// Unmount releases the underlying device. The Volume must not be used
// afterwards.
func (v *Volume) Unmount() error {
	return trail.From(v.device.Close())
}

// Label returns the volume label from the boot sector.
func (v *Volume) Label() string {
	return v.info.Label
}

// FSType returns the variant of the mounted volume.
func (v *Volume) FSType() FATType {
	return v.info.FSType
}

func (v *Volume) Name() string {
	return "fatview"
}

// Open opens the file or directory at path. The empty path, "." and "/"
// refer to the root directory. Lookup is case-insensitive. An entry with a
// long name is matched by that long name only; its 8.3 alias is not kept on
// the decoded Entry and does not match. Other entries match by the 8.3 name.
func (v *Volume) Open(path string) (afero.File, error) {
	path = strings.TrimPrefix(filepath.ToSlash(path), "/")
	if path == "." {
		path = ""
	}

	if path == "" {
		return &File{volume: v, path: "/", isRoot: true}, nil
	}

	if !fs.ValidPath(path) {
		return nil, trail.Wrap(ErrInvalidPath, ErrOpenFilesystem)
	}

	path = strings.TrimSuffix(path, "/")
	parts := strings.Split(path, "/")

	entries, err := v.ReadDirectory(0)
	if err != nil {
		return nil, trail.Wrap(err, ErrOpenFilesystem)
	}

	for i, part := range parts {
		entry, found := matchEntry(entries, part)
		if !found {
			return nil, trail.Wrap(os.ErrNotExist, ErrOpenFilesystem)
		}

		if i == len(parts)-1 {
			return &File{
				volume: v,
				path:   path,
				entry:  entry,
			}, nil
		}

		if !entry.IsDir() {
			return nil, trail.Wrap(syscall.ENOTDIR, ErrOpenFilesystem)
		}

		entries, err = v.ReadDirectory(entry.FirstCluster)
		if err != nil {
			return nil, trail.Wrap(err, ErrOpenFilesystem)
		}
	}

	return nil, trail.Wrap(os.ErrNotExist, ErrOpenFilesystem)
}

// matchEntry finds the entry for one path component. FAT is not case
// sensitive.
func matchEntry(entries []Entry, part string) (Entry, bool) {
	for _, entry := range entries {
		if strings.EqualFold(entry.DisplayName(), part) {
			return entry, true
		}
		if entry.LongName != "" && strings.EqualFold(entry.LongName, part) {
			return entry, true
		}
	}

	return Entry{}, false
}

func (v *Volume) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, trail.From(ErrNotSupported)
	}

	return v.Open(name)
}

func (v *Volume) Stat(path string) (os.FileInfo, error) {
	file, err := v.Open(path)
	if err != nil {
		return nil, trail.From(err)
	}
	defer func() {
		_ = file.Close()
	}()

	return file.Stat()
}

func (v *Volume) Create(name string) (afero.File, error) {
	return nil, trail.From(ErrNotSupported)
}

func (v *Volume) Mkdir(name string, perm os.FileMode) error {
	return trail.From(ErrNotSupported)
}

func (v *Volume) MkdirAll(path string, perm os.FileMode) error {
	return trail.From(ErrNotSupported)
}

func (v *Volume) Remove(name string) error {
	return trail.From(ErrNotSupported)
}

func (v *Volume) RemoveAll(path string) error {
	return trail.From(ErrNotSupported)
}

func (v *Volume) Rename(oldname, newname string) error {
	return trail.From(ErrNotSupported)
}

func (v *Volume) Chmod(name string, mode os.FileMode) error {
	return trail.From(ErrNotSupported)
}

func (v *Volume) Chown(name string, uid, gid int) error {
	return trail.From(ErrNotSupported)
}

func (v *Volume) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return trail.From(ErrNotSupported)
}
