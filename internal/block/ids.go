package block

import (
	"encoding/binary"

	"github.com/nazmavali/exfs2/internal/layout"
)

func decodeIDs(buf []byte, out *[layout.PointersPerBlock]int32) {
	for i := 0; i < layout.PointersPerBlock; i++ {
		out[i] = int32(binary.LittleEndian.Uint32(buf[i*4:]))
	}
}

func encodeIDs(ids *[layout.PointersPerBlock]int32, buf []byte) {
	for i := 0; i < layout.PointersPerBlock; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(ids[i]))
	}
}
