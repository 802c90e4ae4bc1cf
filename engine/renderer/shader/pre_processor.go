// pre_processor.go implements the WGSL include pass. Shader sources pull shared struct
// definitions in with a single directive line:
//
//	//@include camera
//
// The directive is replaced by the registered source for that name. Uniform structs live
// next to the Go types that marshal them, so every shader agrees with its CPU-side layout.
package shader

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

// includeRegex matches an include directive and captures the registered name.
var includeRegex = regexp.MustCompile(`^\s*//@include\s+(\w+)\s*$`)

type preProcessor struct {
	includes map[string]string
}

// PreProcessor expands include directives in WGSL source.
type PreProcessor interface {
	// Process replaces every include directive line with the registered source.
	// Each name is expanded at most once per call; repeated directives expand to nothing.
	//
	// Parameters:
	//   - source: the raw WGSL source
	//
	// Returns:
	//   - string: the expanded WGSL source
	//   - error: an error naming the line of an unknown include
	Process(source string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor over the given include registry.
//
// Parameters:
//   - includes: WGSL snippets keyed by the name used in the directive
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor
func NewPreProcessor(includes map[string]string) PreProcessor {
	if includes == nil {
		includes = map[string]string{}
	}
	return &preProcessor{includes: includes}
}

func (p *preProcessor) Process(source string) (string, error) {
	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))
	seen := make(map[string]bool)

	for i, line := range lines {
		match := includeRegex.FindStringSubmatch(line)
		if match == nil {
			out = append(out, line)
			continue
		}

		name := match[1]
		src, ok := p.includes[name]
		if !ok {
			return "", errors.Newf("line %d: unknown include %q", i+1, name)
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, strings.TrimRight(src, "\n"))
	}
	return strings.Join(out, "\n"), nil
}
