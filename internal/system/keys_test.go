package system

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func inputEvent(tvSize int, typ, code uint16, value int32) []byte {
	rec := make([]byte, tvSize+8)
	binary.LittleEndian.PutUint16(rec[tvSize:], typ)
	binary.LittleEndian.PutUint16(rec[tvSize+2:], code)
	binary.LittleEndian.PutUint32(rec[tvSize+4:], uint32(value))
	return rec
}

func TestKeyPresses(t *testing.T) {
	const tvSize = 16
	var buf []byte
	buf = append(buf, inputEvent(tvSize, evKey, KeyF4, 1)...)
	buf = append(buf, inputEvent(tvSize, evKey, KeyF4, 0)...)  // release
	buf = append(buf, inputEvent(tvSize, evKey, KeyEsc, 2)...) // autorepeat
	buf = append(buf, inputEvent(tvSize, 0x00, 0, 0)...)       // EV_SYN
	buf = append(buf, inputEvent(tvSize, evKey, KeyF12, 1)...)

	assert.Equal(t, []uint16{KeyF4, KeyF12}, keyPresses(buf, tvSize))
}

func TestKeyPressesIgnoresPartialRecord(t *testing.T) {
	const tvSize = 8
	buf := inputEvent(tvSize, evKey, KeyEsc, 1)
	buf = append(buf, inputEvent(tvSize, evKey, KeyF4, 1)[:5]...)

	assert.Equal(t, []uint16{KeyEsc}, keyPresses(buf, tvSize))
	assert.Empty(t, keyPresses(nil, tvSize))
}
