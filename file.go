package fatview

import (
	"io"
	"os"

	"github.com/croeber/fatview/trail"
)

// ReadFile copies the data clusters of the chain starting at firstCluster
// into consecutive positions of dest, one whole cluster per step, until the
// chain ends. dest must hold at least the file's round-up size as reported
// on its directory entry; a too-small buffer stops the walk with an error
// instead of writing past the end.
func (v *Volume) ReadFile(firstCluster uint32, dest []byte) error {
	v.lock.Lock()
	defer v.lock.Unlock()

	clusterBytes := int(v.info.ClusterBytes())
	written := 0
	cluster := firstCluster

	for {
		if len(dest)-written < clusterBytes {
			return trail.Wrap(io.ErrShortBuffer, ErrReadFile)
		}

		sector := v.info.firstSectorOfCluster(cluster)
		if _, err := v.device.ReadSectors(sector, uint32(v.info.SectorsPerCluster),
			dest[written:written+clusterBytes]); err != nil {
			return trail.Wrap(err, ErrReadFile)
		}
		written += clusterBytes

		next, err := v.nextCluster(cluster)
		if err != nil {
			return trail.Wrap(err, ErrReadFile)
		}
		if !next.IsNextCluster() {
			return nil
		}
		cluster = next.Value()
	}
}

// readFileAt reads up to len(p) bytes of the chain starting at firstCluster,
// beginning at the given byte offset. fileSize bounds the read; offsets at or
// past it return io.EOF.
func (v *Volume) readFileAt(firstCluster uint32, fileSize, offset int64, p []byte) (int, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if offset >= fileSize {
		return 0, io.EOF
	}
	if remaining := fileSize - offset; int64(len(p)) > remaining {
		p = p[:remaining]
	}

	clusterBytes := int64(v.info.ClusterBytes())
	cluster := firstCluster

	// Walk to the cluster holding the offset.
	for skip := offset / clusterBytes; skip > 0; skip-- {
		next, err := v.nextCluster(cluster)
		if err != nil {
			return 0, trail.Wrap(err, ErrReadFile)
		}
		if !next.IsNextCluster() {
			// The chain is shorter than the size on the entry claims.
			return 0, trail.Wrap(io.ErrUnexpectedEOF, ErrReadFile)
		}
		cluster = next.Value()
	}

	buffer := make([]byte, clusterBytes)
	innerOffset := offset % clusterBytes

	n := 0
	for n < len(p) {
		sector := v.info.firstSectorOfCluster(cluster)
		if _, err := v.device.ReadSectors(sector, uint32(v.info.SectorsPerCluster), buffer); err != nil {
			return n, trail.Wrap(err, ErrReadFile)
		}

		n += copy(p[n:], buffer[innerOffset:])
		innerOffset = 0

		if n == len(p) {
			break
		}

		next, err := v.nextCluster(cluster)
		if err != nil {
			return n, trail.Wrap(err, ErrReadFile)
		}
		if !next.IsNextCluster() {
			return n, trail.Wrap(io.ErrUnexpectedEOF, ErrReadFile)
		}
		cluster = next.Value()
	}

	if offset+int64(n) >= fileSize {
		return n, io.EOF
	}

	return n, nil
}

// File represents an open file or directory of a mounted volume. It
// implements afero.File; all mutating methods fail with ErrNotSupported.
type File struct {
	volume *Volume
	path   string

	entry  Entry
	isRoot bool

	offset int64
	closed bool
}

func (f *File) Close() error {
	f.closed = true
	f.offset = 0
	return nil
}

func (f *File) Read(p []byte) (n int, err error) {
	n, err = f.ReadAt(p, f.offset)
	f.offset += int64(n)
	return n, err
}

func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if f.closed {
		return 0, trail.From(os.ErrClosed)
	}
	if f.isRoot || f.entry.IsDir() {
		return 0, trail.Wrap(ErrNotSupported, ErrReadFile)
	}

	return f.volume.readFileAt(f.entry.FirstCluster, int64(f.entry.Size), off, p)
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, trail.From(os.ErrClosed)
	}

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = f.offset + offset
	case io.SeekEnd:
		abs = int64(f.entry.Size) + offset
	default:
		return 0, trail.From(ErrInvalidPath)
	}

	if abs < 0 {
		return 0, trail.From(ErrInvalidPath)
	}

	f.offset = abs
	return abs, nil
}

func (f *File) Name() string {
	return f.path
}

// Readdir enumerates the directory. A count <= 0 returns every entry;
// a positive count returns at most that many, counted from the start of the
// directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if f.closed {
		return nil, trail.From(os.ErrClosed)
	}
	if !f.isRoot && !f.entry.IsDir() {
		return nil, trail.Wrap(ErrNotSupported, ErrReadDirectory)
	}

	cluster := uint32(0)
	if !f.isRoot {
		cluster = f.entry.FirstCluster
	}

	entries, err := f.volume.ReadDirectory(cluster)
	if err != nil {
		return nil, trail.From(err)
	}

	if count > 0 && count < len(entries) {
		entries = entries[:count]
	}

	infos := make([]os.FileInfo, len(entries))
	for i := range entries {
		infos[i] = entries[i].FileInfo()
	}

	return infos, nil
}

func (f *File) Readdirnames(n int) ([]string, error) {
	infos, err := f.Readdir(n)
	if err != nil {
		return nil, trail.From(err)
	}

	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}

	return names, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	if f.isRoot {
		root := Entry{Attribute: AttrDirectory, Name: []byte("/")}
		return root.FileInfo(), nil
	}

	return f.entry.FileInfo(), nil
}

func (f *File) Sync() error {
	return nil
}

func (f *File) Write(p []byte) (n int, err error) {
	return 0, trail.From(ErrNotSupported)
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, trail.From(ErrNotSupported)
}

func (f *File) WriteString(s string) (ret int, err error) {
	return 0, trail.From(ErrNotSupported)
}

func (f *File) Truncate(size int64) error {
	return trail.From(ErrNotSupported)
}
