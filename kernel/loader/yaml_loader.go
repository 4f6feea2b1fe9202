package loader

import (
	"bytes"
	"io"
	"os"

	"github.com/openkiss/kiss/kernel/model"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type resourceYaml struct {
	Kind     string              `yaml:"kind"`
	Metadata map[interface{}]any `yaml:"metadata"`
	Spec     map[interface{}]any `yaml:"spec"`
}

// LoadFile parses a multi-document YAML manifest file into resources.
func LoadFile(path string) ([]*model.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest [%s]", path)
	}
	return Load(data)
}

// Load parses multi-document YAML manifest content into resources. Each
// document needs a kind and a metadata.name; everything under spec is kept
// as-is for the kind-specific views to interpret.
func Load(data []byte) ([]*model.Resource, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var resources []*model.Resource
	for index := 0; ; index++ {
		var doc resourceYaml
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "parsing manifest document %d", index)
		}
		if doc.Kind == "" && doc.Metadata == nil && doc.Spec == nil {
			continue // empty document between separators
		}

		metadata := normalizeMap(doc.Metadata)
		spec := normalizeMap(doc.Spec)
		name, _ := metadata["name"].(string)
		if doc.Kind == "" || name == "" {
			return nil, errors.Errorf("manifest document %d: missing kind or metadata.name", index)
		}

		switch model.Kind(doc.Kind) {
		case model.KindContainer:
			resources = append(resources, model.NewContainer(name, spec, metadata))
		case model.KindReplicaSet:
			resources = append(resources, model.NewReplicaSet(name, spec, metadata))
		case model.KindService:
			resources = append(resources, model.NewService(name, spec, metadata))
		default:
			return nil, errors.Errorf("manifest document %d: unknown kind '%s'", index, doc.Kind)
		}
	}
	return resources, nil
}

// normalizeMap rewrites yaml.v2's interface-keyed maps into string-keyed
// maps all the way down, so specs are plain map[string]any.
func normalizeMap(in map[interface{}]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		key, ok := k.(string)
		if !ok {
			continue
		}
		out[key] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case map[interface{}]any:
		return normalizeMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
