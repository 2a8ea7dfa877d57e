package pgm

import (
	"crypto/sha1"
	"encoding/binary"
	"hash/crc32"
	"testing"
)

func header(size, qspiSize, qspiCRC uint32) []byte {
	h := make([]byte, headerLen)
	binary.LittleEndian.PutUint32(h[offsetMagic:], headerMagic)
	binary.LittleEndian.PutUint32(h[offsetSize:], size)
	binary.LittleEndian.PutUint32(h[offsetQSPISize:], qspiSize)
	binary.LittleEndian.PutUint32(h[offsetQSPICRC:], qspiCRC)
	return h
}

func TestBuildImageRewritesSizeAndAppendsDigest(t *testing.T) {
	qspi := []byte("firmware payload bytes")
	program := append(header(0, uint32(len(qspi)), crc32.ChecksumIEEE(qspi)), []byte("code")...)

	out, report, err := buildImage(program, qspi)
	if err != nil {
		t.Fatalf("buildImage: %v", err)
	}
	if report.ProgramSize != len(program) {
		t.Errorf("ProgramSize = %d, want %d", report.ProgramSize, len(program))
	}
	if report.QSPISize != len(qspi) {
		t.Errorf("QSPISize = %d, want %d", report.QSPISize, len(qspi))
	}

	gotSize := binary.LittleEndian.Uint32(out[offsetSize : offsetSize+4])
	if int(gotSize) != len(program) {
		t.Errorf("rewritten size field = %d, want %d", gotSize, len(program))
	}

	wantDigest := sha1.Sum(out[:len(program)])
	gotDigest := out[len(program):]
	if string(gotDigest) != string(wantDigest[:]) {
		t.Errorf("trailing digest mismatch")
	}
}

func TestBuildImageRejectsBadMagic(t *testing.T) {
	program := header(0, 0, crc32.ChecksumIEEE(nil))
	binary.LittleEndian.PutUint32(program[offsetMagic:], 0xDEADBEEF)

	if _, _, err := buildImage(program, nil); err == nil {
		t.Fatal("expected an error for bad magic, got nil")
	}
}

func TestBuildImageRejectsQSPISizeMismatch(t *testing.T) {
	qspi := []byte("payload")
	program := header(0, uint32(len(qspi)+1), crc32.ChecksumIEEE(qspi))

	if _, _, err := buildImage(program, qspi); err == nil {
		t.Fatal("expected an error for QSPI size mismatch, got nil")
	}
}

func TestBuildImageRejectsQSPICRCMismatch(t *testing.T) {
	qspi := []byte("payload")
	program := header(0, uint32(len(qspi)), crc32.ChecksumIEEE(qspi)+1)

	if _, _, err := buildImage(program, qspi); err == nil {
		t.Fatal("expected an error for QSPI CRC mismatch, got nil")
	}
}

func TestBuildImageRejectsShortProgram(t *testing.T) {
	if _, _, err := buildImage(make([]byte, headerLen-1), nil); err == nil {
		t.Fatal("expected an error for a too-short program image, got nil")
	}
}
