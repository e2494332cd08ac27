package persist

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/scalehouse/scalecore/calibrate"
)

func keyWithIndex(prefix string, idx int) string {
	return fmt.Sprintf("%s#%d", prefix, idx)
}

func calibrateStatus(b byte) calibrate.CalStatus { return calibrate.CalStatus(b) }

func readUint16(buf []byte, off int) (uint16, int) {
	return binary.LittleEndian.Uint16(buf[off : off+2]), off + 2
}

func readInt32(buf []byte, off int) (int32, int) {
	return int32(binary.LittleEndian.Uint32(buf[off : off+4])), off + 4
}

func readUint32(buf []byte, off int) (uint32, int) {
	return binary.LittleEndian.Uint32(buf[off : off+4]), off + 4
}

func readFloat32(buf []byte, off int) (float32, int) {
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[off : off+4])), off + 4
}

func readFloat64(buf []byte, off int) (float64, int) {
	return math.Float64frombits(binary.LittleEndian.Uint64(buf[off : off+8])), off + 8
}
