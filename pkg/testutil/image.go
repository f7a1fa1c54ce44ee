package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
)

// PNGHeader returns a grayscale PNG holding only the signature and IHDR
// chunk. It reports width x height through image.DecodeConfig without
// carrying any pixel data.
func PNGHeader(width, height uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")

	chunk := make([]byte, 0, 17)
	chunk = append(chunk, "IHDR"...)
	chunk = binary.BigEndian.AppendUint32(chunk, width)
	chunk = binary.BigEndian.AppendUint32(chunk, height)
	// bit depth 8, grayscale, deflate, adaptive filtering, no interlace
	chunk = append(chunk, 8, 0, 0, 0, 0)

	_ = binary.Write(&buf, binary.BigEndian, uint32(len(chunk)-4))
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}
