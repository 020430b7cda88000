package fatview

import (
	"encoding/binary"

	"github.com/croeber/fatview/trail"
)

// fatEntry is one value read from the file allocation table. FAT12 values in
// the reserved range are normalized into the FAT16 value space when read
// (0xFF7 -> 0xFFF7 and so on), so the classification methods below work for
// both variants.
type fatEntry uint32

func (e fatEntry) Value() uint32 {
	return uint32(e)
}

// IsFree returns true only if the cluster is unused.
func (e fatEntry) IsFree() bool {
	return e == 0
}

// IsReserved covers the reserved values below the bad cluster marker. They
// should be treated like normal data clusters when following a chain.
func (e fatEntry) IsReserved() bool {
	return e >= 0xFFF0 && e <= 0xFFF6
}

// IsBad reports the bad cluster marker. A chain that runs into one is
// corrupt; following it further would read unrelated data.
func (e fatEntry) IsBad() bool {
	return e == 0xFFF7
}

// IsEndOfChain covers the whole reserved end-of-chain range, not just the
// single canonical marker, so chains terminated by any of 0x(F)FF8-0x(F)FFF
// end here.
func (e fatEntry) IsEndOfChain() bool {
	return e >= 0xFFF8
}

// IsNextCluster is true if the entry points at a followable data cluster.
func (e fatEntry) IsNextCluster() bool {
	return (e >= 2 && e < 0xFFF0) || e.IsReserved()
}

// nextCluster reads the FAT entry for the given cluster and returns the
// successor. Two consecutive FAT sectors are always read because a 12-bit
// entry may straddle a sector boundary.
func (v *Volume) nextCluster(current uint32) (fatEntry, error) {
	bytesPerSector := uint32(v.info.BytesPerSector)

	// Byte index of the entry inside the FAT. For FAT12 this is the
	// floor of current * 1.5, putting the 12 bits somewhere inside the
	// two bytes at that index.
	byteOffset := current * v.info.entryBits / 8
	fatSector := byteOffset / bytesPerSector

	buffer := make([]byte, 2*bytesPerSector)
	if _, err := v.device.ReadSectors(v.info.FirstFatSector+fatSector, 2, buffer); err != nil {
		return 0, trail.Wrap(err, ErrReadFat)
	}

	o := byteOffset - fatSector*bytesPerSector

	var raw uint32
	switch {
	case v.info.FSType == FAT16:
		raw = uint32(binary.LittleEndian.Uint16(buffer[o : o+2]))
	case current%2 == 0:
		// Even cluster: low 8 bits plus the low nibble of the next byte.
		raw = uint32(buffer[o]) | uint32(buffer[o+1]&0x0F)<<8
	default:
		// Odd cluster: high nibble of the first byte plus the next byte.
		raw = uint32(buffer[o])>>4 | uint32(buffer[o+1])<<4
	}

	if v.info.FSType == FAT12 && raw >= 0x0FF0 {
		raw |= 0xF000
	}

	entry := fatEntry(raw)
	if entry.IsBad() {
		return entry, trail.From(ErrBadCluster)
	}

	return entry, nil
}
