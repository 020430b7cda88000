package fatview

import (
	"os"
	"strings"
	"time"
)

// FileInfo adapts the decoded entry to os.FileInfo.
func (e *Entry) FileInfo() os.FileInfo {
	return entryFileInfo{entry: *e}
}

// DisplayName is the name a listing shows: the long name when one exists,
// otherwise the 8.3 short name joined with a dot and stripped of padding.
func (e *Entry) DisplayName() string {
	if e.LongName != "" {
		return e.LongName
	}

	name := strings.TrimRight(string(e.Name), " ")
	ext := strings.TrimRight(string(e.Extension[:]), " ")
	if ext == "" {
		return name
	}

	return name + "." + ext
}

type entryFileInfo struct {
	entry Entry
}

func (e entryFileInfo) Name() string {
	return e.entry.DisplayName()
}

func (e entryFileInfo) Size() int64 {
	return int64(e.entry.Size)
}

func (e entryFileInfo) Mode() os.FileMode {
	if e.IsDir() {
		return os.ModeDir
	}
	return 0
}

func (e entryFileInfo) ModTime() time.Time {
	return e.entry.ModifiedDate.Time(e.entry.ModifiedTime)
}

func (e entryFileInfo) IsDir() bool {
	return e.entry.IsDir()
}

func (e entryFileInfo) Sys() interface{} {
	return e.entry
}
