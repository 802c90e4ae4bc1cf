package loader

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"io/fs"
	"math"
	"net/url"
	"path"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	errInvalidGLTFVersion = errors.New("invalid glTF version: must be 2.x")
	errInvalidGLB         = errors.New("invalid GLB container")
	errInvalidDataURI     = errors.New("invalid data URI")
	errOutOfRange         = errors.New("index out of range")
)

// gltfFile is a parsed document with every buffer loaded.
type gltfFile struct {
	doc  gltfDocument
	fsys fs.FS
	// dir is the directory of the document inside fsys; relative URIs resolve against it.
	dir string
}

// parseGLTF reads name from fsys as a .gltf JSON document or a .glb container, chosen by
// the file's magic number, and loads every buffer it references.
func parseGLTF(fsys fs.FS, name string) (*gltfFile, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %q", name)
	}

	f := &gltfFile{fsys: fsys, dir: path.Dir(name)}
	var bin []byte
	jsonData := data
	if len(data) >= 4 && binary.LittleEndian.Uint32(data) == gltfGLBMagic {
		jsonData, bin, err = splitGLB(data)
		if err != nil {
			return nil, errors.Wrapf(err, "%q", name)
		}
	}

	if err := json.Unmarshal(jsonData, &f.doc); err != nil {
		return nil, errors.Wrapf(err, "%q: parse JSON", name)
	}
	if !strings.HasPrefix(f.doc.Asset.Version, "2.") {
		return nil, errors.Wrapf(errInvalidGLTFVersion, "%q: version %q", name, f.doc.Asset.Version)
	}
	if len(f.doc.ExtensionsRequired) > 0 {
		return nil, errors.Newf("%q: required extensions %v are not supported", name, f.doc.ExtensionsRequired)
	}
	if err := f.loadBuffers(bin); err != nil {
		return nil, errors.Wrapf(err, "%q", name)
	}
	return f, nil
}

// splitGLB returns the JSON and BIN chunks of a GLB container.
func splitGLB(data []byte) (jsonChunk, binChunk []byte, err error) {
	if len(data) < gltfGLBHeaderSize {
		return nil, nil, errors.Wrap(errInvalidGLB, "file too small")
	}
	if version := binary.LittleEndian.Uint32(data[4:]); version != gltfGLBVersion {
		return nil, nil, errors.Wrapf(errInvalidGLB, "version %d", version)
	}
	length := int(binary.LittleEndian.Uint32(data[8:]))
	if length > len(data) {
		return nil, nil, errors.Wrapf(errInvalidGLB, "declared length %d exceeds file size %d", length, len(data))
	}

	for off := gltfGLBHeaderSize; off+8 <= length; {
		chunkLength := int(binary.LittleEndian.Uint32(data[off:]))
		chunkType := binary.LittleEndian.Uint32(data[off+4:])
		off += 8
		if off+chunkLength > length {
			return nil, nil, errors.Wrapf(errInvalidGLB, "chunk of %d bytes at %d overruns the file", chunkLength, off)
		}

		chunk := data[off : off+chunkLength]
		switch chunkType {
		case gltfGLBChunkJSON:
			jsonChunk = chunk
		case gltfGLBChunkBIN:
			binChunk = chunk
		}
		off += chunkLength
	}

	if jsonChunk == nil {
		return nil, nil, errors.Wrap(errInvalidGLB, "missing JSON chunk")
	}
	return jsonChunk, binChunk, nil
}

// loadBuffers fills every buffer from its URI, or buffer 0 from the GLB BIN chunk.
func (f *gltfFile) loadBuffers(bin []byte) error {
	for i := range f.doc.Buffers {
		buf := &f.doc.Buffers[i]

		var err error
		switch {
		case buf.URI == "" && i == 0 && bin != nil:
			buf.data = bin
		case buf.URI == "":
			return errors.Newf("buffer %d has no URI and no GLB BIN chunk", i)
		default:
			buf.data, _, err = f.readURI(buf.URI)
			if err != nil {
				return errors.Wrapf(err, "buffer %d", i)
			}
		}

		if len(buf.data) < buf.ByteLength {
			return errors.Newf("buffer %d: %d bytes, %d declared", i, len(buf.data), buf.ByteLength)
		}
	}
	return nil
}

// readURI returns the bytes behind a data URI or a file relative to the document, plus the
// MIME type a data URI declares.
func (f *gltfFile) readURI(uri string) ([]byte, string, error) {
	if strings.HasPrefix(uri, "data:") {
		return decodeDataURI(uri)
	}

	rel, err := url.PathUnescape(uri)
	if err != nil {
		return nil, "", errors.Wrapf(err, "unescape %q", uri)
	}
	data, err := fs.ReadFile(f.fsys, path.Join(f.dir, rel))
	if err != nil {
		return nil, "", errors.Wrapf(err, "read %q", uri)
	}
	return data, "", nil
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data>. Only base64 payloads are accepted.
func decodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", errors.Wrap(errInvalidDataURI, "no comma")
	}
	mimeType, isBase64 := strings.CutSuffix(header, ";base64")
	if !isBase64 {
		return nil, "", errors.Wrapf(errInvalidDataURI, "unsupported encoding %q", header)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", errors.Wrap(err, "decode base64")
	}
	return data, mimeType, nil
}

// bufferView returns the bytes of a buffer view.
func (f *gltfFile) bufferView(index int) ([]byte, error) {
	if index < 0 || index >= len(f.doc.BufferViews) {
		return nil, errors.Wrapf(errOutOfRange, "bufferView %d", index)
	}
	bv := &f.doc.BufferViews[index]
	if bv.Buffer < 0 || bv.Buffer >= len(f.doc.Buffers) {
		return nil, errors.Wrapf(errOutOfRange, "bufferView %d: buffer %d", index, bv.Buffer)
	}

	data := f.doc.Buffers[bv.Buffer].data
	end := bv.ByteOffset + bv.ByteLength
	if bv.ByteOffset < 0 || end > len(data) {
		return nil, errors.Wrapf(errOutOfRange, "bufferView %d: bytes [%d, %d) of %d", index, bv.ByteOffset, end, len(data))
	}
	return data[bv.ByteOffset:end], nil
}

// accessorElements returns the accessor's elements, each componentSize*components bytes,
// with any interleaving stride removed.
func (f *gltfFile) accessorElements(index int) (*gltfAccessor, [][]byte, error) {
	if index < 0 || index >= len(f.doc.Accessors) {
		return nil, nil, errors.Wrapf(errOutOfRange, "accessor %d", index)
	}
	acc := &f.doc.Accessors[index]
	if acc.Sparse != nil {
		return nil, nil, errors.Newf("accessor %d: sparse accessors are not supported", index)
	}
	if acc.BufferView == nil {
		return nil, nil, errors.Newf("accessor %d has no bufferView", index)
	}

	view, err := f.bufferView(*acc.BufferView)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "accessor %d", index)
	}

	elementSize := componentSize(acc.ComponentType) * componentCount(acc.Type)
	if elementSize == 0 {
		return nil, nil, errors.Newf("accessor %d: unsupported layout %s/%d", index, acc.Type, acc.ComponentType)
	}
	stride := elementSize
	if bv := f.doc.BufferViews[*acc.BufferView]; bv.ByteStride != nil && *bv.ByteStride > 0 {
		stride = *bv.ByteStride
	}

	elements := make([][]byte, acc.Count)
	for i := range elements {
		start := acc.ByteOffset + i*stride
		if start+elementSize > len(view) {
			return nil, nil, errors.Wrapf(errOutOfRange, "accessor %d: element %d overruns its bufferView", index, i)
		}
		elements[i] = view[start : start+elementSize]
	}
	return acc, elements, nil
}

// readFloats reads an accessor of the given type as float32 components, flattened. Normalized
// unsigned byte and short components are mapped to [0, 1].
func (f *gltfFile) readFloats(index int, accessorType string) ([]float32, error) {
	acc, elements, err := f.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != accessorType {
		return nil, errors.Newf("accessor %d is %s, want %s", index, acc.Type, accessorType)
	}

	n := componentCount(acc.Type)
	out := make([]float32, 0, len(elements)*n)
	for _, e := range elements {
		for c := range n {
			switch {
			case acc.ComponentType == gltfComponentTypeFloat:
				out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(e[c*4:])))
			case acc.ComponentType == gltfComponentTypeUnsignedByte && acc.Normalized:
				out = append(out, float32(e[c])/math.MaxUint8)
			case acc.ComponentType == gltfComponentTypeUnsignedShort && acc.Normalized:
				out = append(out, float32(binary.LittleEndian.Uint16(e[c*2:]))/math.MaxUint16)
			default:
				return nil, errors.Newf("accessor %d: component type %d is not a float", index, acc.ComponentType)
			}
		}
	}
	return out, nil
}

// readIndices reads a scalar unsigned accessor as uint32 indices.
func (f *gltfFile) readIndices(index int) ([]uint32, error) {
	acc, elements, err := f.accessorElements(index)
	if err != nil {
		return nil, err
	}
	if acc.Type != gltfAccessorTypeScalar {
		return nil, errors.Newf("index accessor %d is %s, want SCALAR", index, acc.Type)
	}

	out := make([]uint32, len(elements))
	for i, e := range elements {
		switch acc.ComponentType {
		case gltfComponentTypeUnsignedByte:
			out[i] = uint32(e[0])
		case gltfComponentTypeUnsignedShort:
			out[i] = uint32(binary.LittleEndian.Uint16(e))
		case gltfComponentTypeUnsignedInt:
			out[i] = binary.LittleEndian.Uint32(e)
		default:
			return nil, errors.Newf("index accessor %d: unsupported component type %d", index, acc.ComponentType)
		}
	}
	return out, nil
}

// imageBytes returns the encoded bytes of an image.
func (f *gltfFile) imageBytes(index int) ([]byte, error) {
	if index < 0 || index >= len(f.doc.Images) {
		return nil, errors.Wrapf(errOutOfRange, "image %d", index)
	}
	img := &f.doc.Images[index]

	switch {
	case img.BufferView != nil:
		view, err := f.bufferView(*img.BufferView)
		return bytes.Clone(view), err
	case img.URI != "":
		data, _, err := f.readURI(img.URI)
		return data, err
	}
	return nil, errors.Newf("image %d has neither a bufferView nor a URI", index)
}

func componentSize(componentType int) int {
	switch componentType {
	case gltfComponentTypeByte, gltfComponentTypeUnsignedByte:
		return 1
	case gltfComponentTypeShort, gltfComponentTypeUnsignedShort:
		return 2
	case gltfComponentTypeUnsignedInt, gltfComponentTypeFloat:
		return 4
	}
	return 0
}

func componentCount(accessorType string) int {
	switch accessorType {
	case gltfAccessorTypeScalar:
		return 1
	case gltfAccessorTypeVec2:
		return 2
	case gltfAccessorTypeVec3:
		return 3
	case gltfAccessorTypeVec4:
		return 4
	case gltfAccessorTypeMat4:
		return 16
	}
	return 0
}
