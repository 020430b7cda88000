package fatview

import "errors"

// These errors may occur while reading a FAT volume. Each one carries the
// single user-visible message for its error kind; use errors.Is to test for
// them through any number of trail wrappings.
var (
	ErrOpenFilesystem     = errors.New("could not open the filesystem image")
	ErrReadSector         = errors.New("sector read returned fewer bytes than requested")
	ErrUnsupportedVariant = errors.New("filesystem is neither FAT12 nor FAT16")
	ErrBadCluster         = errors.New("cluster chain runs into a bad cluster marker")
	ErrReadFat            = errors.New("could not read a FAT sector")
	ErrReadDirectory      = errors.New("could not read a directory from the filesystem")
	ErrReadFile           = errors.New("could not read the file completely from the filesystem")
	ErrInvalidPath        = errors.New("invalid path")
	ErrNotSupported       = errors.New("not supported on a read-only volume")
)

// errShortDest is wrapped into ErrReadSector when a caller hands ReadSectors
// a destination buffer smaller than the requested sectors. ReadFile reports
// a too-small buffer as io.ErrShortBuffer instead.
var errShortDest = errors.New("destination buffer too small")
