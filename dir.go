package fatview

import (
	"bytes"
	"encoding/binary"

	"golang.org/x/text/encoding/unicode"

	"github.com/croeber/fatview/trail"
)

// maxLongName is the longest filename the on-disk format allows, in code
// units. It takes 20 records of 13 units (260, terminator and padding
// included), so the accumulator holds at most 20 records.
const maxLongName = 255

// Entry is one decoded directory entry. Entries are emitted in on-disk
// traversal order and owned by the caller of the enumeration that produced
// them.
type Entry struct {
	// Name is the reconstructed filename. When no long-name records
	// preceded the entry it is the verbatim 8-byte short name, trailing
	// padding spaces included. Otherwise it is the low byte of every
	// accumulated UCS-2 code unit in logical order, padding units
	// included, exactly as the records delivered them.
	Name []byte

	// LongName is the long name decoded as UTF-16LE up to its terminator.
	// Empty when the entry had no long-name records.
	LongName string

	Extension    [3]byte
	Attribute    byte
	ModifiedTime ModTime
	ModifiedDate ModDate

	// Size is the file size in bytes; RoundUpSize is Size rounded up to
	// whole clusters, the minimum buffer length for ReadFile.
	Size        uint32
	RoundUpSize uint32

	FirstCluster uint32
}

// IsDir returns true for subdirectory entries.
func (e *Entry) IsDir() bool {
	return e.Attribute&AttrDirectory == AttrDirectory
}

type entryKind int

const (
	// endOfDirectory is a record whose first byte is 0x00; no further
	// entries follow in this directory.
	endOfDirectory entryKind = iota
	// skippedRecord is a long-name, deleted or otherwise consumed record
	// that does not produce an Entry on its own.
	skippedRecord
	// shortRecord produced a decoded Entry.
	shortRecord
)

// entryDecoder turns a sequence of raw 32-byte directory records into
// decoded entries. It owns the long-name reconstruction state, which spans
// several records, so one decoder must see every record of an enumeration in
// on-disk order. A fresh decoder is created per enumeration.
type entryDecoder struct {
	info *Info

	// low accumulates the low byte of every long-name code unit in
	// on-disk record order; units keeps the full 16-bit values in the
	// same order for the Unicode rendering of the name.
	low   []byte
	units []uint16
	// records counts the long-name records seen since the last short
	// entry. Record i of the accumulator is logically slice
	// records-1-i of the final name.
	records int
}

func newEntryDecoder(info *Info) *entryDecoder {
	return &entryDecoder{info: info}
}

func (d *entryDecoder) reset() {
	d.low = d.low[:0]
	d.units = d.units[:0]
	d.records = 0
}

// decode consumes one raw 32-byte record. Long-name records accumulate into
// the decoder and report skippedRecord; the next short record drains the
// accumulator into the returned Entry.
func (d *entryDecoder) decode(record []byte) (entryKind, Entry, error) {
	// First byte 0x00 means no further entries in this directory.
	if record[0] == 0x00 {
		return endOfDirectory, Entry{}, nil
	}

	// Deleted entry.
	if record[0] == 0xE5 {
		return skippedRecord, Entry{}, nil
	}

	if record[11] == AttrLongName {
		return skippedRecord, Entry{}, trail.From(d.accumulate(record))
	}

	entry, err := d.emit(record)
	if err != nil {
		return skippedRecord, Entry{}, trail.From(err)
	}

	return shortRecord, entry, nil
}

// accumulate appends the 13 code units of one long-name record.
func (d *entryDecoder) accumulate(record []byte) error {
	var long LongFilenameEntry
	if err := binary.Read(bytes.NewReader(record), binary.LittleEndian, &long); err != nil {
		return trail.Wrap(err, ErrReadDirectory)
	}

	// More records than a 255-unit name can have means the directory is
	// corrupt; drop the oldest state rather than growing without bound.
	if (d.records+1)*longNameUnits > maxLongName+longNameUnits {
		d.reset()
	}

	for _, unit := range long.units() {
		d.low = append(d.low, byte(unit))
		d.units = append(d.units, unit)
	}
	d.records++

	return nil
}

const longNameUnits = 13

// emit decodes a short record, attaching and clearing any accumulated
// long name.
func (d *entryDecoder) emit(record []byte) (Entry, error) {
	var header EntryHeader
	if err := binary.Read(bytes.NewReader(record), binary.LittleEndian, &header); err != nil {
		return Entry{}, trail.Wrap(err, ErrReadDirectory)
	}

	// 0x05 escapes a real first name byte of 0xE5.
	if header.Name[0] == 0x05 {
		header.Name[0] = 0xE5
	}

	entry := Entry{
		Extension:    header.Ext,
		Attribute:    header.Attribute,
		ModifiedTime: ParseModTime(header.WriteTime),
		ModifiedDate: ParseModDate(header.WriteDate),
		Size:         header.FileSize,
		RoundUpSize:  d.info.roundUpSize(header.FileSize),
		FirstCluster: uint32(header.FirstClusterLO),
	}

	if d.records == 0 {
		entry.Name = append([]byte(nil), header.Name[:]...)
		return entry, nil
	}

	// The records arrived tail first: record i carries logical slice
	// records-1-i. Reassemble both the narrow-byte name and the full
	// code units in logical order.
	name := make([]byte, 0, d.records*longNameUnits)
	units := make([]uint16, 0, d.records*longNameUnits)
	for i := d.records - 1; i >= 0; i-- {
		name = append(name, d.low[i*longNameUnits:(i+1)*longNameUnits]...)
		units = append(units, d.units[i*longNameUnits:(i+1)*longNameUnits]...)
	}
	entry.Name = name
	entry.LongName = decodeLongName(units)

	d.reset()

	return entry, nil
}

// decodeLongName renders the code units up to their 0x0000 terminator as a
// UTF-16LE string.
func decodeLongName(units []uint16) string {
	raw := make([]byte, 0, len(units)*2)
	for _, unit := range units {
		if unit == 0x0000 {
			break
		}
		raw = append(raw, byte(unit), byte(unit>>8))
	}

	decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).
		NewDecoder().Bytes(raw)
	if err != nil {
		// Unpaired surrogates and the like: fall back to the narrow
		// bytes so the entry still has a usable name.
		narrow := make([]byte, 0, len(units))
		for _, unit := range units {
			if unit == 0x0000 {
				break
			}
			narrow = append(narrow, byte(unit))
		}
		return string(narrow)
	}

	return string(decoded)
}

// dotSelfName is the short name of a directory's self entry.
var dotSelfName = []byte(".       ")

// ReadDirectory enumerates the directory anchored at firstCluster and
// returns its decoded entries in on-disk order. firstCluster 0 selects the
// fixed root directory region; any other value is followed through the FAT
// as a cluster chain. Entries whose attribute is not plain file,
// subdirectory or archive are discarded, as is a subdirectory's "." self
// entry. On error no partial listing is returned.
func (v *Volume) ReadDirectory(firstCluster uint32) ([]Entry, error) {
	v.lock.Lock()
	defer v.lock.Unlock()

	if firstCluster == 0 {
		entries, err := v.readRootDirectory()
		return entries, trail.Wrap(err, ErrReadDirectory)
	}

	entries, err := v.readChainedDirectory(firstCluster)
	return entries, trail.Wrap(err, ErrReadDirectory)
}

// readRootDirectory reads the fixed root region, which lives between the
// last FAT and the data region and is not reachable through the FAT.
func (v *Volume) readRootDirectory() ([]Entry, error) {
	sectors := v.info.FirstDataSector - v.info.FirstRootSector
	buffer := make([]byte, sectors*uint32(v.info.BytesPerSector))
	if _, err := v.device.ReadSectors(v.info.FirstRootSector, sectors, buffer); err != nil {
		return nil, trail.From(err)
	}

	decoder := newEntryDecoder(&v.info)
	entries, _, err := appendEntries(nil, decoder, buffer, false)
	return entries, trail.From(err)
}

// readChainedDirectory reads a subdirectory cluster by cluster, following
// the FAT until the chain ends or an end-of-directory record is seen.
func (v *Volume) readChainedDirectory(firstCluster uint32) ([]Entry, error) {
	decoder := newEntryDecoder(&v.info)
	buffer := make([]byte, v.info.ClusterBytes())

	var entries []Entry
	cluster := firstCluster
	for {
		sector := v.info.firstSectorOfCluster(cluster)
		if _, err := v.device.ReadSectors(sector, uint32(v.info.SectorsPerCluster), buffer); err != nil {
			return nil, trail.From(err)
		}

		var done bool
		var err error
		entries, done, err = appendEntries(entries, decoder, buffer, true)
		if err != nil {
			return nil, trail.From(err)
		}
		if done {
			return entries, nil
		}

		next, err := v.nextCluster(cluster)
		if err != nil {
			return nil, trail.From(err)
		}
		if !next.IsNextCluster() {
			return entries, nil
		}
		cluster = next.Value()
	}
}

// appendEntries feeds every 32-byte record of buffer through the decoder and
// appends the surviving entries. done reports that an end-of-directory
// record was seen.
func appendEntries(entries []Entry, decoder *entryDecoder, buffer []byte, skipDotSelf bool) ([]Entry, bool, error) {
	for offset := 0; offset+entrySize <= len(buffer); offset += entrySize {
		kind, entry, err := decoder.decode(buffer[offset : offset+entrySize])
		if err != nil {
			return nil, false, trail.From(err)
		}

		switch kind {
		case endOfDirectory:
			return entries, true, nil
		case shortRecord:
			if !keepEntry(&entry, skipDotSelf) {
				continue
			}
			entries = append(entries, entry)
		}
	}

	return entries, false, nil
}

// keepEntry applies the attribute whitelist and, inside subdirectories, the
// "." self-entry suppression. ".." is retained.
func keepEntry(entry *Entry, skipDotSelf bool) bool {
	switch entry.Attribute {
	case AttrNone, AttrDirectory, AttrArchive:
	default:
		return false
	}

	if skipDotSelf && bytes.Equal(entry.Name, dotSelfName) {
		return false
	}

	return true
}
