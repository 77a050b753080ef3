package vm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// .v4b container: a fixed 16-byte header followed by raw bytecode.
var v4bMagic = [4]byte{'V', '4', 'B', 'C'}

const (
	v4bVersionMajor = 0
	v4bVersionMinor = 1
)

type v4bHeader struct {
	Magic        [4]byte
	VersionMajor uint8
	VersionMinor uint8
	Flags        uint16
	CodeSize     uint32
	Reserved     uint32
}

// WriteBytecode frames code as a .v4b stream on w.
func WriteBytecode(w io.Writer, code []byte) error {
	hdr := v4bHeader{
		Magic:        v4bMagic,
		VersionMajor: v4bVersionMajor,
		VersionMinor: v4bVersionMinor,
		CodeSize:     uint32(len(code)),
	}
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	_, err := w.Write(code)
	return err
}

// ReadBytecode parses a .v4b stream and returns the code bytes.
func ReadBytecode(r io.Reader) ([]byte, error) {
	var hdr v4bHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("v4b: short header: %w", err)
	}
	if !bytes.Equal(hdr.Magic[:], v4bMagic[:]) {
		return nil, fmt.Errorf("v4b: bad magic %q", hdr.Magic[:])
	}
	code := make([]byte, hdr.CodeSize)
	if _, err := io.ReadFull(r, code); err != nil {
		return nil, fmt.Errorf("v4b: short code section: %w", err)
	}
	return code, nil
}

// SaveBytecode writes code to a .v4b file.
func SaveBytecode(filename string, code []byte) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := WriteBytecode(f, code); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadBytecode reads a .v4b file and returns its code bytes.
func LoadBytecode(filename string) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBytecode(f)
}
