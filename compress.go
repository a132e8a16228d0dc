package seqdecode

import (
	"bytes"
	"compress/flate"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/unixpickle/anyvec"
)

// NewCompressedOutputTape creates an OutputTape that
// stores each written vector as flate-compressed binary
// data, trading time for memory on very long sequences.
//
// The level argument is a compression level for the
// flate package; flate.DefaultCompression is typically
// fine.
//
// The vectors' anyvec.Creator must use []float32 or
// []float64 as its numeric type.
// Other types are not guaranteed to work.
func NewCompressedOutputTape(level int) OutputTape {
	return newCompressedTape(level, 0)
}

type compressedTape struct {
	level     int
	creator   anyvec.Creator
	slots     []*compressedSlot
	written   []bool
	finalized bool
}

type compressedSlot struct {
	Data    []byte
	Float32 bool
}

func newCompressedTape(level, slack int) *compressedTape {
	return &compressedTape{
		level:   level,
		slots:   make([]*compressedSlot, 0, slack),
		written: make([]bool, 0, slack),
	}
}

func (c *compressedTape) Write(time int, v anyvec.Vector) {
	checkTapeWrite(time, c.written, c.finalized)
	if c.creator == nil {
		c.creator = v.Creator()
	} else if c.creator != v.Creator() {
		panic("inconsistent anyvec.Creator in tape")
	}
	for time >= len(c.slots) {
		c.slots = append(c.slots, nil)
		c.written = append(c.written, false)
	}
	c.slots[time] = compressSlot(c.level, v)
	c.written[time] = true
}

func (c *compressedTape) Finalize() []anyvec.Vector {
	checkTapeComplete(c.written, &c.finalized)
	res := make([]anyvec.Vector, len(c.slots))
	for t, slot := range c.slots {
		res[t] = slot.Decompress(c.creator)
	}
	return res
}

func compressSlot(level int, v anyvec.Vector) *compressedSlot {
	binaryData := &bytes.Buffer{}
	vecData := v.Data()
	list32, is32Bit := vecData.([]float32)
	if is32Bit {
		encoded := make([]byte, len(list32)*4)
		for i, num := range list32 {
			data := math.Float32bits(num)
			idx := i << 2
			encoded[idx] = byte(data)
			encoded[idx+1] = byte(data >> 8)
			encoded[idx+2] = byte(data >> 16)
			encoded[idx+3] = byte(data >> 24)
		}
		binaryData = bytes.NewBuffer(encoded)
	} else if _, ok := vecData.([]float64); ok {
		binary.Write(binaryData, binary.LittleEndian, vecData)
	} else {
		panic(fmt.Sprintf("compressed tape: unsupported anyvec.NumericList: %T",
			vecData))
	}

	var compressedData bytes.Buffer
	w, err := flate.NewWriter(&compressedData, level)

	// Only throws an error if the level is invalid.
	if err != nil {
		panic(err)
	}

	io.Copy(w, binaryData)
	w.Close()

	return &compressedSlot{
		Data:    compressedData.Bytes(),
		Float32: is32Bit,
	}
}

func (c *compressedSlot) Decompress(cr anyvec.Creator) anyvec.Vector {
	compressed := bytes.NewReader(c.Data)
	var origData bytes.Buffer
	reader := flate.NewReader(compressed)
	if _, err := io.Copy(&origData, reader); err != nil {
		panic(err)
	}

	var numList anyvec.NumericList
	if c.Float32 {
		vec := make([]float32, origData.Len()/4)
		origBytes := origData.Bytes()
		for i := 0; i+4 <= len(origBytes); i += 4 {
			vec[i>>2] = math.Float32frombits(uint32(origBytes[i]) |
				(uint32(origBytes[i+1]) << 8) |
				(uint32(origBytes[i+2]) << 16) |
				(uint32(origBytes[i+3]) << 24))
		}
		numList = vec
	} else {
		list := make([]float64, origData.Len()/8)
		if err := binary.Read(&origData, binary.LittleEndian, list); err != nil {
			panic(err)
		}
		numList = list
	}

	return cr.MakeVectorData(numList)
}
