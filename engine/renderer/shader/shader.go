package shader

import (
	"github.com/cockroachdb/errors"
	"github.com/cogentcore/webgpu/wgpu"
)

// Stage identifies a programmable pipeline stage.
type Stage int

const (
	// StageVertex is the vertex stage of a render pipeline.
	StageVertex Stage = iota
	// StageFragment is the fragment stage of a render pipeline.
	StageFragment
	// StageCompute is the single stage of a compute pipeline.
	StageCompute
)

// String returns the WGSL attribute name of the stage.
func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	}
	return "unknown"
}

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	source        string
	entryPoints   map[Stage]string
	workGroupSize [3]uint32
	bindings      map[int][]int
	module        *wgpu.ShaderModuleDescriptor
}

// Shader is a pre-processed WGSL module with the metadata pipeline construction needs.
// One source may hold several entry points; render shaders typically carry both a
// vertex and a fragment entry.
type Shader interface {
	// Key returns the label the module is created with.
	//
	// Returns:
	//   - string: the shader's key
	Key() string

	// Source returns the WGSL source after include expansion.
	//
	// Returns:
	//   - string: the expanded source
	Source() string

	// EntryPoint returns the entry point function name for a stage.
	//
	// Parameters:
	//   - stage: the pipeline stage
	//
	// Returns:
	//   - string: the function name, or "" if the source has no entry for that stage
	EntryPoint(stage Stage) string

	// WorkgroupSize returns the @workgroup_size of the compute entry.
	// Returns [0, 0, 0] when the source has no compute entry.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Bindings returns the bindings declared in each bind group, sorted ascending.
	//
	// Returns:
	//   - map[int][]int: binding indices keyed by group index
	Bindings() map[int][]int

	// Module returns the descriptor used to create the GPU shader module.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the module descriptor
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader expands includes in source and parses its entry points and bindings.
//
// Parameters:
//   - key: the label of the module
//   - source: the raw WGSL source
//   - includes: WGSL snippets available to include directives, may be nil
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if an include is unknown or the source has no entry point
func NewShader(key, source string, includes map[string]string) (Shader, error) {
	expanded, err := NewPreProcessor(includes).Process(source)
	if err != nil {
		return nil, errors.Wrapf(err, "shader %s", key)
	}

	s := &shader{
		key:         key,
		source:      expanded,
		entryPoints: make(map[Stage]string),
		module: &wgpu.ShaderModuleDescriptor{
			Label:          key,
			WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: expanded},
		},
	}

	cleaned := stripComments(expanded)
	for _, stage := range []Stage{StageVertex, StageFragment, StageCompute} {
		if name := parseEntryPoint(cleaned, stage); name != "" {
			s.entryPoints[stage] = name
		}
	}
	if len(s.entryPoints) == 0 {
		return nil, errors.Newf("shader %s: no entry point", key)
	}
	if _, ok := s.entryPoints[StageCompute]; ok {
		s.workGroupSize = parseWorkgroupSize(cleaned)
	}
	s.bindings = parseBindings(cleaned)
	return s, nil
}

// MustShader is NewShader for embedded sources that are known to be valid.
// It panics on error.
func MustShader(key, source string, includes map[string]string) Shader {
	s, err := NewShader(key, source, includes)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint(stage Stage) string {
	return s.entryPoints[stage]
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Bindings() map[int][]int {
	return s.bindings
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}
