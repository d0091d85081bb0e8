package config

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed servicemap.schema.json
var serviceMapSchemaJSON []byte

const serviceMapSchemaURL = "servicemap.schema.json"

var compileServiceMapSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(serviceMapSchemaURL, bytes.NewReader(serviceMapSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	return compiler.Compile(serviceMapSchemaURL)
})

// serviceMapFile is the on-disk shape of a service map.
type serviceMapFile struct {
	Services serviceList        `yaml:"services"`
	Servers  []serviceMapServer `yaml:"servers"`
	Include  []string           `yaml:"include"`
}

type serviceMapServer struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`
}

type serviceMapService struct {
	Path         string    `yaml:"path"`
	Delay        int64     `yaml:"delay"`
	ResponseFile string    `yaml:"response_file"`
	Response     yaml.Node `yaml:"response"`
}

type namedService struct {
	name    string
	service serviceMapService
}

// serviceList decodes the services mapping while keeping document order,
// which a Go map would lose.
type serviceList []namedService

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *serviceList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: services must be a mapping", node.Line)
	}
	out := make(serviceList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var svc serviceMapService
		if err := node.Content[i+1].Decode(&svc); err != nil {
			return fmt.Errorf("service %q: %w", node.Content[i].Value, err)
		}
		out = append(out, namedService{name: node.Content[i].Value, service: svc})
	}
	*l = out
	return nil
}

// ServiceMapLoader loads YAML service maps.
type ServiceMapLoader struct {
	log *slog.Logger
}

// NewServiceMapLoader creates a ServiceMapLoader.
func NewServiceMapLoader(opts ...LoaderOption) *ServiceMapLoader {
	o := buildLoaderOptions(opts)
	return &ServiceMapLoader{log: o.log}
}

// Format returns FormatServiceMap.
func (l *ServiceMapLoader) Format() Format {
	return FormatServiceMap
}

// Load reads the service map at path together with the files it includes.
func (l *ServiceMapLoader) Load(ctx context.Context, path string) (*Spec, error) {
	doc, err := l.readFile(path)
	if err != nil {
		return nil, err
	}

	spec := &Spec{
		Format: FormatServiceMap,
		Source: path,
	}

	entries, err := serviceEntries(path, doc.Services)
	if err != nil {
		return nil, err
	}
	spec.Entries = append(spec.Entries, entries...)

	for _, s := range doc.Servers {
		spec.Servers = append(spec.Servers, Server{Host: s.Host, Port: s.Port})
	}

	includes, err := l.expandIncludes(path, doc.Include)
	if err != nil {
		return nil, err
	}
	for _, inc := range includes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		incDoc, err := l.readFile(inc)
		if err != nil {
			return nil, err
		}
		if len(incDoc.Include) > 0 {
			return nil, &SpecLoadError{Path: inc, Message: "included files cannot declare include"}
		}
		if len(incDoc.Servers) > 0 {
			return nil, &SpecLoadError{Path: inc, Message: "included files cannot declare servers"}
		}
		entries, err := serviceEntries(inc, incDoc.Services)
		if err != nil {
			return nil, err
		}
		l.log.Debug("loaded included services", "file", inc, "count", len(entries))
		spec.Entries = append(spec.Entries, entries...)
	}

	if len(spec.Entries) == 0 {
		return nil, &SpecLoadError{Path: path, Err: ErrNoPaths}
	}
	return spec, nil
}

// readFile reads, validates and decodes one service map file.
func (l *ServiceMapLoader) readFile(path string) (*serviceMapFile, error) {
	data, err := readSpecFile(path)
	if err != nil {
		return nil, err
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &SpecLoadError{Path: path, Message: "invalid YAML", Err: err}
	}
	if err := validateServiceMap(raw); err != nil {
		return nil, &SpecLoadError{Path: path, Message: "invalid service map", Err: err}
	}

	var doc serviceMapFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &SpecLoadError{Path: path, Message: "invalid service map", Err: err}
	}
	return &doc, nil
}

// expandIncludes resolves include globs relative to the including file.
// Matches are sorted per pattern and deduplicated across patterns.
func (l *ServiceMapLoader) expandIncludes(path string, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	baseDir := filepath.Dir(path)
	self, _ := filepath.Abs(path)

	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		resolved := ResolvePath(baseDir, pattern)
		matches, err := doublestar.FilepathGlob(resolved)
		if err != nil {
			return nil, &SpecLoadError{Path: path, Entry: "include " + pattern, Message: "expanding glob pattern", Err: err}
		}
		if len(matches) == 0 {
			l.log.Warn("include pattern matched no files", "spec", path, "pattern", pattern)
			continue
		}
		sort.Strings(matches)
		for _, m := range matches {
			abs, _ := filepath.Abs(m)
			if abs == self || seen[abs] {
				continue
			}
			seen[abs] = true
			files = append(files, m)
		}
	}
	return files, nil
}

// serviceEntries converts the services of the file at path. Relative
// response files resolve against the directory of that file.
func serviceEntries(path string, services serviceList) ([]ServiceEntry, error) {
	baseDir := filepath.Dir(path)
	entries := make([]ServiceEntry, 0, len(services))
	for _, ns := range services {
		svc := ns.service

		var src ResponseSource
		if svc.ResponseFile != "" {
			src = FileSource(ResolvePath(baseDir, svc.ResponseFile))
		} else {
			body, err := inlineBody(&svc.Response)
			if err != nil {
				return nil, &SpecLoadError{Path: path, Entry: ns.name, Message: "invalid inline response", Err: err}
			}
			src = InlineSource(body)
		}

		if svc.Delay < 0 || svc.Delay > MaxDelayMillis {
			return nil, &SpecLoadError{
				Path:    path,
				Entry:   ns.name,
				Message: fmt.Sprintf("delay must be between 0 and %d milliseconds, got %d", MaxDelayMillis, svc.Delay),
			}
		}

		entries = append(entries, ServiceEntry{
			Name:     ns.name,
			Path:     normalizeEntryPath(svc.Path),
			Delay:    time.Duration(svc.Delay) * time.Millisecond,
			Response: src,
		})
	}
	return entries, nil
}

// inlineBody encodes an inline YAML response as JSON.
func inlineBody(node *yaml.Node) ([]byte, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

// validateServiceMap checks a decoded YAML document against the embedded
// service map schema.
func validateServiceMap(doc any) error {
	schema, err := compileServiceMapSchema()
	if err != nil {
		return fmt.Errorf("compile service map schema: %w", err)
	}

	// Round-trip through JSON so the validator sees JSON types only.
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}

	if err := schema.Validate(v); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			return fmt.Errorf("%s", strings.Join(schemaErrorMessages(ve), "; "))
		}
		return err
	}
	return nil
}

// schemaErrorMessages flattens a validation error into its leaf causes.
func schemaErrorMessages(err *jsonschema.ValidationError) []string {
	if len(err.Causes) == 0 {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return []string{loc + ": " + err.Message}
	}
	var msgs []string
	for _, cause := range err.Causes {
		msgs = append(msgs, schemaErrorMessages(cause)...)
	}
	return msgs
}
