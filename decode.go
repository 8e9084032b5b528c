/*
Copyright © 2024 the gaden player authors.
This file is part of the gaden player.

The gaden player is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

The gaden player is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with the gaden player.  If not, see <http://www.gnu.org/licenses/>.
*/

package gaden

import (
	"bufio"
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"math"
	"strconv"
	"strings"
)

// Mode is the representation a simulation log uses for gas.
type Mode int

// Simulation log modes.
const (
	// DenseMode logs store an averaged concentration per grid cell.
	DenseMode Mode = iota + 1
	// FilamentMode logs store a list of gas filaments.
	FilamentMode
)

func (m Mode) String() string {
	switch m {
	case DenseMode:
		return "dense"
	case FilamentMode:
		return "filament"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

const (
	// binaryTag is the leading int32 of binary (filament) logs.
	binaryTag = 1

	// binaryHeaderSize is the size of the leading tag plus the binary header:
	// 14 float64 values and 5 int32 values.
	binaryHeaderSize = 14*8 + 5*4

	// filamentRecordSize is the size of one (int32, 4 x float64) record.
	filamentRecordSize = 4 + 4*8

	// textHeaderLines is the number of lines preceding data in text logs.
	textHeaderLines = 8

	// textScale is the factor text logs multiply stored values by.
	textScale = 1000.
)

// Header holds the metadata read from the first frame of a simulation log.
type Header struct {
	Mode     Mode
	Min, Max [3]float64
	Cells    [3]int
	CellSize float64
	GasType  string

	// Source is the gas source position. It is only stored in text logs.
	Source [3]float64

	// Filament normalization constants; only stored in binary logs.
	TotalMolesInFilament  float64 // [mol]
	NumMolesAllGasesInCM3 float64 // [mol/cm³]
}

// NumCells returns the number of grid cells described by h.
func (h *Header) NumCells() int {
	return h.Cells[0] * h.Cells[1] * h.Cells[2]
}

func (h *Header) index(x, y, z int) int {
	return x + y*h.Cells[0] + z*h.Cells[0]*h.Cells[1]
}

// Frame is the decoded content of one simulation log file. It is either a
// *DenseFrame or a *FilamentFrame.
type Frame interface {
	Mode() Mode
}

// DenseFrame is a frame holding one concentration value per grid cell.
type DenseFrame struct {
	Concentration []float64 // [ppm]

	// Wind is the wind field embedded in the frame. It is nil unless
	// wind decoding was requested.
	Wind *WindField
}

// Mode returns DenseMode.
func (f *DenseFrame) Mode() Mode { return DenseMode }

// FilamentFrame is a frame holding a set of gas filaments.
type FilamentFrame struct {
	// WindIndex identifies the wind snapshot the filaments belong to.
	WindIndex int
	Filaments []Filament
}

// Mode returns FilamentMode.
func (f *FilamentFrame) Mode() Mode { return FilamentMode }

// Filament is a puff of gas with a Gaussian concentration profile.
type Filament struct {
	Index    int
	Position [3]float64 // [m]
	Sigma    float64    // standard deviation [cm]
}

// Decompress inflates a compressed simulation log.
func Decompress(r io.Reader) ([]byte, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("gaden: decompressing frame: %v", err)
	}
	defer zr.Close()
	b, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("gaden: decompressing frame: %v", err)
	}
	return b, nil
}

// DecodeFrame decodes a decompressed simulation log. h is the header
// returned by the first call for the same log, or nil for the first frame.
// The returned header is h itself when h is not nil. cells is the size of
// the grid the log is replayed in: a first frame describing a different grid
// results in a GeometryErr before any cell data is allocated. withWind
// selects whether wind values embedded in dense logs are decoded.
func DecodeFrame(payload []byte, h *Header, cells [3]int, withWind bool) (Frame, *Header, error) {
	if len(payload) < 4 {
		return nil, nil, fmt.Errorf("gaden: frame is %d bytes long; too short to hold a format tag", len(payload))
	}
	mode := DenseMode
	if int32(binary.LittleEndian.Uint32(payload)) == binaryTag {
		mode = FilamentMode
	}
	if h != nil && h.Mode != mode {
		return nil, nil, fmt.Errorf("gaden: %s frame in a %s simulation log", mode, h.Mode)
	}
	if mode == FilamentMode {
		return decodeBinary(payload, h, cells)
	}
	return decodeText(payload, h, cells, withWind)
}

// checkGeometry checks the cell counts of a log header against the grid
// the log is replayed in.
func checkGeometry(h *Header, cells [3]int) error {
	if _, err := cellCount(h.Cells); err != nil {
		return fmt.Errorf("gaden: %s log header has %v", h.Mode, err)
	}
	if h.Cells != cells {
		return GeometryErr{Frame: h.Cells, Environment: cells}
	}
	return nil
}

// binaryHeader is the on-disk layout of the binary log header that follows
// the format tag.
type binaryHeader struct {
	Min, Max              [3]float64
	Cells                 [3]int32
	CellSize              float64
	Reserved              [5]float64
	GasCode               int32
	TotalMolesInFilament  float64
	NumMolesAllGasesInCM3 float64
}

func decodeBinary(payload []byte, h *Header, cells [3]int) (Frame, *Header, error) {
	if len(payload) < binaryHeaderSize+4 {
		return nil, nil, fmt.Errorf("gaden: binary frame is %d bytes long; want at least %d",
			len(payload), binaryHeaderSize+4)
	}
	if h == nil {
		var bh binaryHeader
		if err := binary.Read(bytes.NewReader(payload[4:binaryHeaderSize]), binary.LittleEndian, &bh); err != nil {
			return nil, nil, fmt.Errorf("gaden: reading binary header: %v", err)
		}
		gas, err := GasTableV1.Name(int(bh.GasCode))
		if err != nil {
			return nil, nil, err
		}
		h = &Header{
			Mode:                  FilamentMode,
			Min:                   bh.Min,
			Max:                   bh.Max,
			Cells:                 [3]int{int(bh.Cells[0]), int(bh.Cells[1]), int(bh.Cells[2])},
			CellSize:              bh.CellSize,
			GasType:               gas,
			TotalMolesInFilament:  bh.TotalMolesInFilament,
			NumMolesAllGasesInCM3: bh.NumMolesAllGasesInCM3,
		}
		if err := checkGeometry(h, cells); err != nil {
			return nil, nil, err
		}
	}

	body := payload[binaryHeaderSize:]
	f := &FilamentFrame{WindIndex: int(int32(binary.LittleEndian.Uint32(body)))}
	body = body[4:]
	if len(body)%filamentRecordSize != 0 {
		return nil, nil, fmt.Errorf("gaden: truncated filament record: %d trailing bytes",
			len(body)%filamentRecordSize)
	}
	n := len(body) / filamentRecordSize
	f.Filaments = make([]Filament, 0, n)
	seen := make(map[int]struct{}, n)
	for i := 0; i < n; i++ {
		rec := body[i*filamentRecordSize : (i+1)*filamentRecordSize]
		fil := Filament{
			Index: int(int32(binary.LittleEndian.Uint32(rec))),
			Position: [3]float64{
				float64At(rec, 4),
				float64At(rec, 12),
				float64At(rec, 20),
			},
			Sigma: float64At(rec, 28),
		}
		if _, ok := seen[fil.Index]; ok {
			continue
		}
		seen[fil.Index] = struct{}{}
		f.Filaments = append(f.Filaments, fil)
	}
	return f, h, nil
}

func float64At(b []byte, offset int) float64 {
	return math.Float64frombits(binary.LittleEndian.Uint64(b[offset:]))
}

func decodeText(payload []byte, h *Header, cells [3]int, withWind bool) (Frame, *Header, error) {
	s := bufio.NewScanner(bytes.NewReader(payload))
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	if h == nil {
		var err error
		if h, err = readTextHeader(s); err != nil {
			return nil, nil, err
		}
		if err := checkGeometry(h, cells); err != nil {
			return nil, nil, err
		}
	} else {
		for i := 0; i < textHeaderLines; i++ {
			if !s.Scan() {
				return nil, nil, fmt.Errorf("gaden: reading text frame header: %v", scanErr(s))
			}
		}
	}

	nCells := h.NumCells()
	f := &DenseFrame{Concentration: make([]float64, nCells)}
	if withWind {
		f.Wind = &WindField{
			Index: -1,
			U:     make([]float64, nCells),
			V:     make([]float64, nCells),
			W:     make([]float64, nCells),
		}
	}
	lineNum := textHeaderLines
	for s.Scan() {
		lineNum++
		line := strings.TrimSpace(s.Text())
		if line == "" {
			continue
		}
		if err := f.readLine(h, line); err != nil {
			return nil, nil, fmt.Errorf("gaden: text frame line %d: %v", lineNum, err)
		}
	}
	if err := s.Err(); err != nil {
		return nil, nil, fmt.Errorf("gaden: reading text frame: %v", err)
	}
	return f, h, nil
}

// readTextHeader reads the 8 header lines of the first text frame.
func readTextHeader(s *bufio.Scanner) (*Header, error) {
	h := &Header{Mode: DenseMode}
	cells := make([]float64, 3)
	size := make([]float64, 1)
	for _, dst := range [][]float64{h.Min[:], h.Max[:], cells, size, h.Source[:]} {
		if !s.Scan() {
			return nil, fmt.Errorf("gaden: reading text frame header: %v", scanErr(s))
		}
		if err := parseHeaderLine(s.Text(), dst); err != nil {
			return nil, fmt.Errorf("gaden: reading text frame header: %v", err)
		}
	}
	for i, v := range cells {
		h.Cells[i] = int(v)
	}
	h.CellSize = size[0]

	if !s.Scan() {
		return nil, fmt.Errorf("gaden: reading gas type: %v", scanErr(s))
	}
	line := strings.TrimSpace(s.Text())
	i := strings.Index(line, " ")
	if i < 0 {
		return nil, fmt.Errorf("gaden: gas type line %q has no value", line)
	}
	h.GasType = strings.TrimSpace(line[i+1:])

	// Two reserved lines.
	for i := 0; i < 2; i++ {
		if !s.Scan() {
			return nil, fmt.Errorf("gaden: reading text frame header: %v", scanErr(s))
		}
	}
	return h, nil
}

// readLine stores the values of a data line `x y z conc u v w` in f.
func (f *DenseFrame) readLine(h *Header, line string) error {
	fields := strings.Fields(line)
	if len(fields) != 7 {
		return fmt.Errorf("%d values; want 7", len(fields))
	}
	var xyz [3]int
	for i := range xyz {
		v, err := strconv.Atoi(fields[i])
		if err != nil {
			return err
		}
		if v < 0 || v >= h.Cells[i] {
			return fmt.Errorf("cell coordinate %d out of range [0, %d)", v, h.Cells[i])
		}
		xyz[i] = v
	}
	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(fields[3+i], 64)
		if err != nil {
			return err
		}
		vals[i] = v / textScale
	}
	idx := h.index(xyz[0], xyz[1], xyz[2])
	f.Concentration[idx] = vals[0]
	if f.Wind != nil {
		f.Wind.U[idx] = vals[1]
		f.Wind.V[idx] = vals[2]
		f.Wind.W[idx] = vals[3]
	}
	return nil
}
