package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Errors returned while decoding a glTF or GLB document.
var (
	ErrInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	ErrInvalidGLBMagic    = errors.New("invalid GLB magic number")
	ErrInvalidGLBVersion  = errors.New("invalid GLB version: must be 2")
	ErrMissingJSONChunk   = errors.New("GLB file missing JSON chunk")
	ErrInvalidBufferURI   = errors.New("invalid buffer URI")
	ErrBufferSizeMismatch = errors.New("buffer size mismatch")
	ErrAccessorBounds     = errors.New("accessor reads past the end of its buffer")
	ErrAccessorType       = errors.New("unexpected accessor type")
	ErrNoDocument         = errors.New("no glTF document loaded")
)

// gltfParserImpl is the implementation of the gltfParser interface.
type gltfParserImpl struct {
	baseDir        string
	document       *gltfDocument
	glbBinaryChunk []byte
}

// gltfParser decodes glTF JSON or GLB containers and reads typed accessor data.
// This is internal to the loader package.
type gltfParser interface {
	// Parse loads and parses a glTF/GLB file from the given path.
	// The container is detected from the extension or the GLB magic.
	//
	// Parameters:
	//   - path: path to the glTF or GLB file
	//
	// Returns:
	//   - error: error if parsing fails
	Parse(path string) error

	// ParseReader parses a glTF document from a reader.
	// External buffer URIs resolve against the current working directory.
	//
	// Parameters:
	//   - r: reader containing glTF JSON or GLB data
	//   - isGLB: true if the data is in GLB format
	//
	// Returns:
	//   - error: error if parsing fails
	ParseReader(r io.Reader, isGLB bool) error

	// Document returns the parsed document, or nil before a successful parse.
	Document() *gltfDocument

	// ReadFloats reads a FLOAT accessor of the given type as a flat component slice.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//   - accessorType: the required accessor type (SCALAR, VEC3, MAT4, ...)
	//
	// Returns:
	//   - []float32: Count * components values
	//   - error: ErrAccessorType on a type mismatch, or a read error
	ReadFloats(accessorIndex int, accessorType string) ([]float32, error)

	// ReadUints reads an unsigned integer accessor of the given type, widening each component to uint32.
	// UNSIGNED_BYTE, UNSIGNED_SHORT and UNSIGNED_INT are accepted.
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//   - accessorType: the required accessor type
	//
	// Returns:
	//   - []uint32: Count * components values
	//   - error: ErrAccessorType on a type mismatch, or a read error
	ReadUints(accessorIndex int, accessorType string) ([]uint32, error)

	// ReadWeights reads a VEC4 weights accessor.
	// Normalized UNSIGNED_BYTE and UNSIGNED_SHORT weights are mapped to [0, 1].
	//
	// Parameters:
	//   - accessorIndex: the index of the accessor
	//
	// Returns:
	//   - [][4]float32: one weight set per vertex
	//   - error: error if reading fails
	ReadWeights(accessorIndex int) ([][4]float32, error)
}

var _ gltfParser = &gltfParserImpl{}

// newGLTFParser creates a new glTF parser instance.
//
// Returns:
//   - gltfParser: a new parser instance
func newGLTFParser() gltfParser {
	return &gltfParserImpl{}
}

func (p *gltfParserImpl) Document() *gltfDocument {
	return p.document
}

func (p *gltfParserImpl) Parse(path string) error {
	p.baseDir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".glb") || isGLBData(data) {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func (p *gltfParserImpl) ParseReader(r io.Reader, isGLB bool) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read stream: %w", err)
	}
	if isGLB {
		return p.parseGLB(data)
	}
	return p.parseGLTF(data)
}

func isGLBData(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data[:4]) == gltfGLBMagic
}

func (p *gltfParserImpl) parseGLTF(data []byte) error {
	var doc gltfDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode glTF JSON: %w", err)
	}
	return p.finish(&doc)
}

// parseGLB splits a GLB container into its JSON and BIN chunks.
// Unknown chunk types are skipped.
func (p *gltfParserImpl) parseGLB(data []byte) error {
	r := bytes.NewReader(data)

	var header gltfGLBHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("read GLB header: %w", err)
	}
	if header.Magic != gltfGLBMagic {
		return ErrInvalidGLBMagic
	}
	if header.Version != gltfGLBVersion {
		return ErrInvalidGLBVersion
	}

	var jsonData []byte
	for {
		var chunk gltfGLBChunkHeader
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("read GLB chunk header: %w", err)
		}
		if int64(chunk.ChunkLength) > int64(r.Len()) {
			return fmt.Errorf("GLB chunk of %d bytes: %w", chunk.ChunkLength, io.ErrUnexpectedEOF)
		}

		body := make([]byte, chunk.ChunkLength)
		if _, err := io.ReadFull(r, body); err != nil {
			return fmt.Errorf("read GLB chunk: %w", err)
		}

		switch chunk.ChunkType {
		case gltfGLBChunkJSON:
			jsonData = body
		case gltfGLBChunkBIN:
			p.glbBinaryChunk = body
		}
	}

	if jsonData == nil {
		return ErrMissingJSONChunk
	}
	return p.parseGLTF(jsonData)
}

func (p *gltfParserImpl) finish(doc *gltfDocument) error {
	if !strings.HasPrefix(doc.Asset.Version, "2.") {
		return fmt.Errorf("version %q: %w", doc.Asset.Version, ErrInvalidGLTFVersion)
	}
	if err := p.loadBuffers(doc); err != nil {
		return err
	}
	p.document = doc
	return nil
}

// loadBuffers fills every buffer's Data from the GLB BIN chunk, a data: URI or a file next to the asset.
func (p *gltfParserImpl) loadBuffers(doc *gltfDocument) error {
	for i := range doc.Buffers {
		buf := &doc.Buffers[i]

		switch {
		case buf.URI == "" && i == 0 && p.glbBinaryChunk != nil:
			buf.Data = p.glbBinaryChunk
		case buf.URI == "":
			return fmt.Errorf("buffer %d: no URI and no GLB binary chunk: %w", i, ErrInvalidBufferURI)
		case strings.HasPrefix(buf.URI, "data:"):
			data, err := decodeDataURI(buf.URI)
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		default:
			data, err := os.ReadFile(filepath.Join(p.baseDir, filepath.FromSlash(buf.URI)))
			if err != nil {
				return fmt.Errorf("buffer %d: %w", i, err)
			}
			buf.Data = data
		}

		if len(buf.Data) < buf.ByteLength {
			return fmt.Errorf("buffer %d: have %d bytes, want %d: %w", i, len(buf.Data), buf.ByteLength, ErrBufferSizeMismatch)
		}
	}
	return nil
}

// decodeDataURI decodes a base64 data URI of the form data:[<mediatype>];base64,<data>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok || !strings.HasSuffix(header, ";base64") {
		return nil, ErrInvalidBufferURI
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}

// --- Accessor Data Reading ---

// accessor validates an accessor index and returns it with its component count.
func (p *gltfParserImpl) accessor(index int, accessorType string) (*gltfAccessor, error) {
	if p.document == nil {
		return nil, ErrNoDocument
	}
	if index < 0 || index >= len(p.document.Accessors) {
		return nil, fmt.Errorf("accessor %d of %d: %w", index, len(p.document.Accessors), ErrAccessorBounds)
	}
	acc := &p.document.Accessors[index]
	if acc.Type != accessorType {
		return nil, fmt.Errorf("accessor %d is %s, want %s: %w", index, acc.Type, accessorType, ErrAccessorType)
	}
	if acc.Sparse != nil {
		return nil, fmt.Errorf("accessor %d: sparse accessors are not supported", index)
	}
	return acc, nil
}

// readRaw copies an accessor's elements into a tightly packed byte slice, honouring byteStride.
func (p *gltfParserImpl) readRaw(index int, acc *gltfAccessor) ([]byte, error) {
	elementSize := gltfComponentTypeSize(acc.ComponentType) * gltfAccessorTypeComponentCount(acc.Type)
	if elementSize == 0 {
		return nil, fmt.Errorf("accessor %d component type %d: %w", index, acc.ComponentType, ErrAccessorType)
	}
	out := make([]byte, acc.Count*elementSize)
	if acc.BufferView == nil {
		// No bufferView means all zeros.
		return out, nil
	}

	if *acc.BufferView < 0 || *acc.BufferView >= len(p.document.BufferViews) {
		return nil, fmt.Errorf("accessor %d bufferView %d: %w", index, *acc.BufferView, ErrAccessorBounds)
	}
	bv := &p.document.BufferViews[*acc.BufferView]
	if bv.Buffer < 0 || bv.Buffer >= len(p.document.Buffers) {
		return nil, fmt.Errorf("bufferView %d buffer %d: %w", *acc.BufferView, bv.Buffer, ErrAccessorBounds)
	}
	data := p.document.Buffers[bv.Buffer].Data

	stride := elementSize
	if bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	base := bv.ByteOffset + acc.ByteOffset
	if acc.Count > 0 {
		last := base + (acc.Count-1)*stride + elementSize
		if last > len(data) || last > bv.ByteOffset+bv.ByteLength {
			return nil, fmt.Errorf("accessor %d: %w", index, ErrAccessorBounds)
		}
	}
	for i := 0; i < acc.Count; i++ {
		src := base + i*stride
		copy(out[i*elementSize:(i+1)*elementSize], data[src:src+elementSize])
	}
	return out, nil
}

func (p *gltfParserImpl) ReadFloats(accessorIndex int, accessorType string) ([]float32, error) {
	acc, err := p.accessor(accessorIndex, accessorType)
	if err != nil {
		return nil, err
	}
	if acc.ComponentType != gltfComponentTypeFloat {
		return nil, fmt.Errorf("accessor %d component type %d, want FLOAT: %w", accessorIndex, acc.ComponentType, ErrAccessorType)
	}
	raw, err := p.readRaw(accessorIndex, acc)
	if err != nil {
		return nil, err
	}
	out := make([]float32, len(raw)/4)
	if err := binary.Read(bytes.NewReader(raw), binary.LittleEndian, out); err != nil {
		return nil, fmt.Errorf("accessor %d: %w", accessorIndex, err)
	}
	return out, nil
}

func (p *gltfParserImpl) ReadUints(accessorIndex int, accessorType string) ([]uint32, error) {
	acc, err := p.accessor(accessorIndex, accessorType)
	if err != nil {
		return nil, err
	}
	raw, err := p.readRaw(accessorIndex, acc)
	if err != nil {
		return nil, err
	}

	switch acc.ComponentType {
	case gltfComponentTypeUnsignedByte:
		out := make([]uint32, len(raw))
		for i, b := range raw {
			out[i] = uint32(b)
		}
		return out, nil
	case gltfComponentTypeUnsignedShort:
		out := make([]uint32, len(raw)/2)
		for i := range out {
			out[i] = uint32(binary.LittleEndian.Uint16(raw[i*2:]))
		}
		return out, nil
	case gltfComponentTypeUnsignedInt:
		out := make([]uint32, len(raw)/4)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(raw[i*4:])
		}
		return out, nil
	default:
		return nil, fmt.Errorf("accessor %d component type %d, want unsigned: %w", accessorIndex, acc.ComponentType, ErrAccessorType)
	}
}

func (p *gltfParserImpl) ReadWeights(accessorIndex int) ([][4]float32, error) {
	acc, err := p.accessor(accessorIndex, gltfAccessorTypeVec4)
	if err != nil {
		return nil, err
	}

	var flat []float32
	switch acc.ComponentType {
	case gltfComponentTypeFloat:
		flat, err = p.ReadFloats(accessorIndex, gltfAccessorTypeVec4)
	case gltfComponentTypeUnsignedByte, gltfComponentTypeUnsignedShort:
		var ints []uint32
		ints, err = p.ReadUints(accessorIndex, gltfAccessorTypeVec4)
		scale := float32(255)
		if acc.ComponentType == gltfComponentTypeUnsignedShort {
			scale = 65535
		}
		flat = make([]float32, len(ints))
		for i, v := range ints {
			flat[i] = float32(v) / scale
		}
	default:
		err = fmt.Errorf("accessor %d component type %d: %w", accessorIndex, acc.ComponentType, ErrAccessorType)
	}
	if err != nil {
		return nil, err
	}

	out := make([][4]float32, len(flat)/4)
	for i := range out {
		copy(out[i][:], flat[i*4:i*4+4])
	}
	return out, nil
}

// --- Helper Functions ---

// gltfComponentTypeSize returns the byte size of a component type, or 0 if unknown.
func gltfComponentTypeSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	default:
		return 0
	}
}

// gltfAccessorTypeComponentCount returns the number of components for an accessor type, or 0 if unknown.
func gltfAccessorTypeComponentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4, gltfAccessorTypeMat2:
		return 4
	case gltfAccessorTypeMat3:
		return 9
	case gltfAccessorTypeMat4:
		return 16
	default:
		return 0
	}
}
