package fatview

import (
	"time"
)

// ModTime is the unpacked form of a FAT timestamp word.
// Second is stored on disk in units of two seconds, so it is always even and
// at most 58.
type ModTime struct {
	Hour   uint8
	Minute uint8
	Second uint8
}

// ModDate is the unpacked form of a FAT date word. Year is absolute, the
// on-disk field counts from 1980.
type ModDate struct {
	Year  uint16
	Month uint8
	Day   uint8
}

// ParseModTime reads the given word as a FAT time stamp:
//
//	Bits 0-4:   2-second count, valid value range 0-29 (0-58 seconds).
//	Bits 5-10:  Minutes, valid value range 0-59.
//	Bits 11-15: Hours, valid value range 0-23.
func ParseModTime(input uint16) ModTime {
	return ModTime{
		Hour:   uint8(input >> 11 & 0x1F),
		Minute: uint8(input >> 5 & 0x3F),
		Second: uint8(input&0x1F) * 2,
	}
}

// ParseModDate reads the given word as a FAT date stamp, relative to the
// MS-DOS epoch of 1980-01-01:
//
//	Bits 0-4:  Day of month, valid value range 1-31.
//	Bits 5-8:  Month of year, 1 = January, valid value range 1-12.
//	Bits 9-15: Count of years from 1980, valid value range 0-127.
func ParseModDate(input uint16) ModDate {
	return ModDate{
		Year:  input>>9&0x7F + 1980,
		Month: uint8(input >> 5 & 0x0F),
		Day:   uint8(input & 0x1F),
	}
}

// Time combines the two unpacked words into a time.Time in UTC.
// Day or month 0 is unspecified in the FAT specification; time.Time{} is
// returned in that case so callers can use time.Time.IsZero.
func (d ModDate) Time(t ModTime) time.Time {
	if d.Day == 0 || d.Month == 0 {
		return time.Time{}
	}

	return time.Date(int(d.Year), time.Month(d.Month), int(d.Day),
		int(t.Hour), int(t.Minute), int(t.Second), 0, time.UTC)
}
