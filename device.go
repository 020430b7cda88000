package fatview

import (
	"github.com/spf13/afero"

	"github.com/croeber/fatview/trail"
)

// defaultSectorSize is assumed for sector 0 until the decoded BPB installs
// the real value. Almost all FAT volumes use 512; some use 1024, 2048 or
// 4096 but the boot sector itself always fits the first 512 bytes.
const defaultSectorSize = 512

// BlockDevice provides random access to the fixed-size sectors of a volume
// image. Implementations are not safe for concurrent use; a Volume serializes
// its own access.
//
//go:generate mockgen -source=device.go -destination=mock_device_test.go -package=fatview
type BlockDevice interface {
	// ReadSector reads the sector at index into a fresh buffer of exactly
	// the configured sector size.
	ReadSector(index uint32) ([]byte, error)

	// ReadSectors reads count consecutive sectors starting at index into
	// dest and returns the number of bytes copied. dest must hold at least
	// count sectors.
	ReadSectors(index, count uint32, dest []byte) (int, error)

	// SetSectorSize installs the sector size used by all subsequent reads.
	SetSectorSize(size uint16)

	// SectorSize returns the currently configured sector size.
	SectorSize() uint16

	// Close releases the underlying image.
	Close() error
}

// Device is a BlockDevice over a single image file. Every sector i is
// anchored at byte offset i * SectorSize(), including sector 0.
type Device struct {
	file       afero.File
	sectorSize uint16
}

// OpenDevice opens the image at path on the given filesystem, typically
// afero.NewOsFs(). The sector size starts at the 512-byte default until the
// geometry decoder installs the value from the BPB.
func OpenDevice(fsys afero.Fs, path string) (*Device, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return nil, trail.Wrap(err, ErrOpenFilesystem)
	}

	return &Device{
		file:       file,
		sectorSize: defaultSectorSize,
	}, nil
}

func (d *Device) ReadSector(index uint32) ([]byte, error) {
	buffer := make([]byte, d.sectorSize)
	if _, err := d.ReadSectors(index, 1, buffer); err != nil {
		return nil, trail.From(err)
	}

	return buffer, nil
}

func (d *Device) ReadSectors(index, count uint32, dest []byte) (int, error) {
	length := int(count) * int(d.sectorSize)
	if len(dest) < length {
		return 0, trail.Wrap(errShortDest, ErrReadSector)
	}

	offset := int64(index) * int64(d.sectorSize)
	n, err := d.file.ReadAt(dest[:length], offset)
	if err != nil {
		// Includes io.EOF with n < length: the image ended before the
		// requested sectors did.
		return n, trail.Wrap(err, ErrReadSector)
	}

	return n, nil
}

func (d *Device) SetSectorSize(size uint16) {
	d.sectorSize = size
}

func (d *Device) SectorSize() uint16 {
	return d.sectorSize
}

func (d *Device) Close() error {
	return trail.From(d.file.Close())
}
