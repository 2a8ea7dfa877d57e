// Package pgm implements the ELF-to-firmware packaging step: split a
// compiled image's QSPI-resident sections from its program sections,
// validate the embedded program header against the QSPI payload, rewrite
// the size field, and append a trailing integrity digest.
package pgm

import (
	"crypto/sha1"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"strings"
)

// headerMagic identifies a valid program header at the start of the
// concatenated program image.
const headerMagic = 0xD377C0DE

// Header field offsets within the program image, matching the firmware's
// fixed program-header layout.
const (
	offsetMagic    = 0
	offsetSize     = 4
	offsetQSPISize = 20
	offsetQSPICRC  = 24
	headerLen      = 28
)

// Report summarizes a completed Pack call.
type Report struct {
	ProgramSize int
	QSPISize    int
}

// Pack reads the ELF at inPath, validates its embedded program header
// against the concatenated contents of every ".qspi"-prefixed section,
// rewrites the header's size field, appends a SHA-1 digest of the
// resulting program image, and writes the result to outPath.
func Pack(inPath, outPath string) (Report, error) {
	f, err := elf.Open(inPath)
	if err != nil {
		return Report{}, fmt.Errorf("opening %s: %w", inPath, err)
	}
	defer f.Close()

	var program, qspi []byte
	for _, sec := range f.Sections {
		if sec.Type != elf.SHT_PROGBITS || sec.Flags&elf.SHF_ALLOC == 0 {
			continue
		}
		data, err := sec.Data()
		if err != nil {
			return Report{}, fmt.Errorf("reading section %s: %w", sec.Name, err)
		}
		if strings.HasPrefix(sec.Name, ".qspi") {
			qspi = append(qspi, data...)
		} else {
			program = append(program, data...)
		}
	}

	out, report, err := buildImage(program, qspi)
	if err != nil {
		return Report{}, err
	}

	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		return Report{}, fmt.Errorf("writing %s: %w", outPath, err)
	}

	return report, nil
}

// buildImage validates program against qspi's size and CRC32, rewrites the
// header's size field, and appends a SHA-1 digest. Split out from Pack so
// the validation logic can be tested without a real ELF file.
func buildImage(program, qspi []byte) ([]byte, Report, error) {
	if len(program) < headerLen {
		return nil, Report{}, fmt.Errorf("program image too small for a header: %d bytes", len(program))
	}

	magic := binary.LittleEndian.Uint32(program[offsetMagic : offsetMagic+4])
	if magic != headerMagic {
		return nil, Report{}, fmt.Errorf("bad program header magic: got 0x%08X, want 0x%08X", magic, uint32(headerMagic))
	}

	expectedQSPISize := binary.LittleEndian.Uint32(program[offsetQSPISize : offsetQSPISize+4])
	if int(expectedQSPISize) != len(qspi) {
		return nil, Report{}, fmt.Errorf("QSPI size mismatch: header says %d, payload is %d bytes", expectedQSPISize, len(qspi))
	}

	expectedQSPICRC := binary.LittleEndian.Uint32(program[offsetQSPICRC : offsetQSPICRC+4])
	actualQSPICRC := crc32.ChecksumIEEE(qspi)
	if expectedQSPICRC != actualQSPICRC {
		return nil, Report{}, fmt.Errorf("QSPI CRC32 mismatch: header says 0x%08X, payload is 0x%08X", expectedQSPICRC, actualQSPICRC)
	}

	rewritten := append([]byte(nil), program...)
	binary.LittleEndian.PutUint32(rewritten[offsetSize:offsetSize+4], uint32(len(rewritten)))

	digest := sha1.Sum(rewritten)
	out := make([]byte, 0, len(rewritten)+len(digest))
	out = append(out, rewritten...)
	out = append(out, digest[:]...)

	return out, Report{ProgramSize: len(rewritten), QSPISize: len(qspi)}, nil
}
