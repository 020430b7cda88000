package fatview

import (
	"encoding/binary"
	"testing"

	"github.com/spf13/afero"
)

// testImage builds a minimal but structurally complete FAT12/FAT16 volume
// in memory, so the tests do not depend on binary fixtures. Geometry follows
// the classic 1.44M floppy layout: 512-byte sectors, 1 reserved sector, two
// FATs of 9 sectors, 224 root entries, so the root region starts at sector
// 19 and the data region at sector 33.
type testImage struct {
	variant FATType

	bytesPerSector    uint16
	sectorsPerCluster uint8
	reservedSectors   uint16
	numFATs           uint8
	sectorsPerFAT     uint16
	rootEntries       uint16

	data []byte
}

func newTestImage(variant FATType, sectorsPerCluster uint8, dataClusters uint32) *testImage {
	img := &testImage{
		variant:           variant,
		bytesPerSector:    512,
		sectorsPerCluster: sectorsPerCluster,
		reservedSectors:   1,
		numFATs:           2,
		sectorsPerFAT:     9,
		rootEntries:       224,
	}

	totalSectors := uint32(img.firstDataSector()) +
		dataClusters*uint32(sectorsPerCluster)
	img.data = make([]byte, totalSectors*uint32(img.bytesPerSector))
	img.writeBootSector()

	return img
}

func (img *testImage) firstRootSector() uint32 {
	return uint32(img.reservedSectors) + uint32(img.numFATs)*uint32(img.sectorsPerFAT)
}

func (img *testImage) firstDataSector() uint32 {
	rootSectors := (uint32(img.rootEntries)*32 + uint32(img.bytesPerSector) - 1) /
		uint32(img.bytesPerSector)
	return img.firstRootSector() + rootSectors
}

func (img *testImage) writeBootSector() {
	sector := img.data[:512]
	binary.LittleEndian.PutUint16(sector[0x0B:], img.bytesPerSector)
	sector[0x0D] = img.sectorsPerCluster
	binary.LittleEndian.PutUint16(sector[0x0E:], img.reservedSectors)
	sector[0x10] = img.numFATs
	binary.LittleEndian.PutUint16(sector[0x11:], img.rootEntries)
	binary.LittleEndian.PutUint16(sector[0x16:], img.sectorsPerFAT)
	copy(sector[0x2B:], "TESTVOL    ")

	switch img.variant {
	case FAT12:
		copy(sector[0x36:], "FAT12   ")
	case FAT16:
		copy(sector[0x36:], "FAT16   ")
	default:
		copy(sector[0x36:], string(img.variant))
	}
}

// fatBytes is the first FAT, starting at the first reserved-sector boundary.
func (img *testImage) fatBytes() []byte {
	start := uint32(img.reservedSectors) * uint32(img.bytesPerSector)
	end := start + uint32(img.sectorsPerFAT)*uint32(img.bytesPerSector)
	return img.data[start:end]
}

// setFat writes one FAT entry, packing nibbles for FAT12.
func (img *testImage) setFat(cluster, value uint32) {
	fat := img.fatBytes()
	if img.variant == FAT16 {
		binary.LittleEndian.PutUint16(fat[cluster*2:], uint16(value))
		return
	}

	index := cluster * 3 / 2
	if cluster%2 == 0 {
		fat[index] = byte(value)
		fat[index+1] = fat[index+1]&0xF0 | byte(value>>8)&0x0F
	} else {
		fat[index] = fat[index]&0x0F | byte(value)<<4
		fat[index+1] = byte(value >> 4)
	}
}

// endOfChainValue is the canonical chain terminator of the image's variant.
func (img *testImage) endOfChainValue() uint32 {
	if img.variant == FAT16 {
		return 0xFFFF
	}
	return 0x0FFF
}

// setRootEntry places a raw 32-byte record at slot i of the root directory.
func (img *testImage) setRootEntry(i int, record []byte) {
	offset := img.firstRootSector()*uint32(img.bytesPerSector) + uint32(i)*32
	copy(img.data[offset:offset+32], record)
}

// setDirEntry places a raw record at slot i of the directory cluster.
func (img *testImage) setDirEntry(cluster uint32, i int, record []byte) {
	offset := img.clusterOffset(cluster) + uint32(i)*32
	copy(img.data[offset:offset+32], record)
}

func (img *testImage) clusterOffset(cluster uint32) uint32 {
	sector := img.firstDataSector() + (cluster-2)*uint32(img.sectorsPerCluster)
	return sector * uint32(img.bytesPerSector)
}

// setCluster fills the data cluster with content.
func (img *testImage) setCluster(cluster uint32, content []byte) {
	offset := img.clusterOffset(cluster)
	copy(img.data[offset:], content)
}

// mount writes the image to an in-memory filesystem and mounts it.
func (img *testImage) mount(t testing.TB) *Volume {
	t.Helper()

	fsys := afero.NewMemMapFs()
	if err := afero.WriteFile(fsys, "test.img", img.data, 0o644); err != nil {
		t.Fatal(err)
	}

	volume, err := MountPath(fsys, "test.img")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = volume.Unmount()
	})

	return volume
}

// shortEntry builds a raw 32-byte short directory entry. name and ext are
// padded with spaces to 8 and 3 bytes.
func shortEntry(name, ext string, attr byte, cluster uint16, size uint32, writeTime, writeDate uint16) []byte {
	record := make([]byte, 32)
	copy(record, "        ")
	copy(record, name)
	copy(record[8:], "   ")
	copy(record[8:], ext)
	record[11] = attr
	binary.LittleEndian.PutUint16(record[22:], writeTime)
	binary.LittleEndian.PutUint16(record[24:], writeDate)
	binary.LittleEndian.PutUint16(record[26:], cluster)
	binary.LittleEndian.PutUint32(record[28:], size)
	return record
}

// lfnEntry builds a raw 32-byte long-name record carrying one 13-unit slice.
// text shorter than 13 characters is terminated with 0x0000 and padded with
// 0xFFFF, the way real volumes pad the last slice.
func lfnEntry(sequence byte, text string) []byte {
	units := make([]uint16, 0, 13)
	for _, r := range text {
		units = append(units, uint16(r))
	}
	if len(units) < 13 {
		units = append(units, 0x0000)
	}
	for len(units) < 13 {
		units = append(units, 0xFFFF)
	}

	record := make([]byte, 32)
	record[0] = sequence
	record[11] = AttrLongName
	for i, unit := range units[:5] {
		binary.LittleEndian.PutUint16(record[1+i*2:], unit)
	}
	for i, unit := range units[5:11] {
		binary.LittleEndian.PutUint16(record[14+i*2:], unit)
	}
	for i, unit := range units[11:13] {
		binary.LittleEndian.PutUint16(record[28+i*2:], unit)
	}
	return record
}
