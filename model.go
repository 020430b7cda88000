// File model contains the structs which match the direct on-disk structures
// of a FAT12/FAT16 volume. All of them are laid out so that a single
// binary.Read with binary.LittleEndian fills them from the raw sector bytes.

package fatview

// FATType is the variant of the mounted volume.
type FATType string

const (
	FAT12 FATType = "FAT12"
	FAT16 FATType = "FAT16"
)

const (
	AttrNone      = 0x00
	AttrReadOnly  = 0x01
	AttrHidden    = 0x02
	AttrSystem    = 0x04
	AttrVolumeId  = 0x08
	AttrDirectory = 0x10
	AttrArchive   = 0x20
	AttrLongName  = AttrReadOnly | AttrHidden | AttrSystem | AttrVolumeId
)

// entrySize is the on-disk size of one directory record.
const entrySize = 32

// BPB is the BIOS Parameter Block at the start of sector 0.
type BPB struct {
	BSJumpBoot          [3]byte
	BSOEMName           [8]byte
	BytesPerSector      uint16
	SectorsPerCluster   byte
	ReservedSectorCount uint16
	NumFATs             byte
	RootEntryCount      uint16
	TotalSectors16      uint16
	Media               byte
	FATSize16           uint16
	SectorsPerTrack     uint16
	NumberOfHeads       uint16
	HiddenSectors       uint32
	TotalSectors32      uint32
	FATSpecificData     [54]byte
}

// FAT16SpecificData is the tail of the BPB for FAT12 and FAT16 volumes,
// overlaid on BPB.FATSpecificData. Its BSFileSystemType string carries the
// variant tag this package dispatches on.
type FAT16SpecificData struct {
	BSDriveNumber    byte
	BSReserved1      byte
	BSBootSig        byte
	BSVolumeId       uint32
	BSVolumeLabel    [11]byte
	BSFileSystemType [8]byte
}

// EntryHeader is a raw 32-byte short directory entry.
type EntryHeader struct {
	Name           [8]byte
	Ext            [3]byte
	Attribute      byte
	NTReserved     byte
	CreateTimeTens byte
	CreateTime     uint16
	CreateDate     uint16
	AccessDate     uint16
	FirstClusterHI uint16
	WriteTime      uint16
	WriteDate      uint16
	FirstClusterLO uint16
	FileSize       uint32
}

// LongFilenameEntry is the same 32 bytes reinterpreted as a long-name
// record (attribute 0x0F). The 13 UCS-2 code units of one name slice are
// spread over First, Second and Third.
type LongFilenameEntry struct {
	Sequence     byte
	First        [5]uint16
	Attribute    byte
	Type         byte
	Checksum     byte
	Second       [6]uint16
	FirstCluster uint16
	Third        [2]uint16
}

// units returns the 13 code units of the record in slice order.
func (l *LongFilenameEntry) units() []uint16 {
	u := make([]uint16, 0, 13)
	u = append(u, l.First[:]...)
	u = append(u, l.Second[:]...)
	u = append(u, l.Third[:]...)
	return u
}
