package fatview

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/croeber/fatview/trail"
)

// Info contains the decoded geometry of the mounted volume. It is populated
// once while mounting and immutable afterwards; Volume.Info hands it out by
// reference.
type Info struct {
	FSType              FATType
	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectorCount uint16
	FatCount            uint8
	FatSize             uint16 // sectors per FAT
	RootEntryCount      uint16

	// Derived sector indexes.
	FirstFatSector  uint32
	FirstRootSector uint32
	FirstDataSector uint32

	// EndOfChain is the canonical end-of-chain marker of the variant
	// (0x0FFF for FAT12, 0xFFFF for FAT16). The chain walker additionally
	// accepts the whole reserved range above eocFloor as termination.
	EndOfChain uint32

	Label string

	entryBits uint32 // FAT entry width in bits: 12 or 16
	eocFloor  uint32 // lowest FAT value read as end-of-chain
	badMark   uint32 // bad cluster marker, reported as ErrBadCluster
}

// decodeGeometry interprets the 512-byte sector 0 image.
// The variant is selected by the filesystem type tag at offset 0x36: only
// tags reading "FAT12" or "FAT16" in their first five bytes are accepted.
// Everything else is rejected, "FAT32" included even though its 5th byte
// matches FAT12's; there is no way to walk such a volume correctly with
// 12- or 16-bit table entries.
func decodeGeometry(sector []byte) (Info, error) {
	var bpb BPB
	if err := binary.Read(bytes.NewReader(sector), binary.LittleEndian, &bpb); err != nil {
		return Info{}, trail.Wrap(err, ErrOpenFilesystem)
	}

	var tail FAT16SpecificData
	if err := binary.Read(bytes.NewReader(bpb.FATSpecificData[:]), binary.LittleEndian, &tail); err != nil {
		return Info{}, trail.Wrap(err, ErrOpenFilesystem)
	}

	info := Info{
		BytesPerSector:      bpb.BytesPerSector,
		SectorsPerCluster:   bpb.SectorsPerCluster,
		ReservedSectorCount: bpb.ReservedSectorCount,
		FatCount:            bpb.NumFATs,
		FatSize:             bpb.FATSize16,
		RootEntryCount:      bpb.RootEntryCount,
		Label:               strings.TrimRight(string(tail.BSVolumeLabel[:]), " "),
	}

	switch string(tail.BSFileSystemType[:5]) {
	case "FAT12":
		info.FSType = FAT12
		info.entryBits = 12
		info.EndOfChain = 0x0FFF
		info.eocFloor = 0x0FF8
		info.badMark = 0x0FF7
	case "FAT16":
		info.FSType = FAT16
		info.entryBits = 16
		info.EndOfChain = 0xFFFF
		info.eocFloor = 0xFFF8
		info.badMark = 0xFFF7
	default:
		return Info{}, trail.From(fmt.Errorf("%w: type tag %q",
			ErrUnsupportedVariant, string(tail.BSFileSystemType[:])))
	}

	rootDirSectors := (uint32(info.RootEntryCount)*entrySize + uint32(info.BytesPerSector) - 1) /
		uint32(info.BytesPerSector)

	info.FirstFatSector = uint32(info.ReservedSectorCount)
	info.FirstRootSector = info.FirstFatSector + uint32(info.FatCount)*uint32(info.FatSize)
	info.FirstDataSector = info.FirstRootSector + rootDirSectors

	return info, nil
}

// ClusterBytes returns the size of one data cluster in bytes.
func (i *Info) ClusterBytes() uint32 {
	return uint32(i.BytesPerSector) * uint32(i.SectorsPerCluster)
}

// firstSectorOfCluster maps a data cluster number to its first sector.
// Data cluster numbering starts at 2.
func (i *Info) firstSectorOfCluster(cluster uint32) uint32 {
	return i.FirstDataSector + (cluster-2)*uint32(i.SectorsPerCluster)
}

// roundUpSize rounds size up to a whole number of clusters.
func (i *Info) roundUpSize(size uint32) uint32 {
	clusterBytes := i.ClusterBytes()
	clusters := size / clusterBytes
	if size%clusterBytes != 0 {
		clusters++
	}

	return clusters * clusterBytes
}
