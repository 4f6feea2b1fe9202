package model

// Kind identifies a resource type in the store.
type Kind string

const (
	KindContainer  Kind = "Container"
	KindReplicaSet Kind = "ReplicaSet"
	KindService    Kind = "Service"
)

// Kinds lists every kind the store tracks, in reconcile dependency order.
func Kinds() []Kind {
	return []Kind{KindContainer, KindReplicaSet, KindService}
}

// MetadataReplicaSet tags a container with the name of its owning ReplicaSet.
const MetadataReplicaSet = "replicaset"

// Resource is a desired-state declaration. (Kind, Name) is the unique key;
// resources of different kinds may share a name. Spec carries kind-specific
// fields, Metadata carries provenance tags.
type Resource struct {
	Kind     Kind           `yaml:"kind" json:"kind"`
	Name     string         `yaml:"name" json:"name"`
	Spec     map[string]any `yaml:"spec" json:"spec"`
	Metadata map[string]any `yaml:"metadata" json:"metadata"`
}

func NewContainer(name string, spec map[string]any, metadata map[string]any) *Resource {
	return newResource(KindContainer, name, spec, metadata)
}

func NewReplicaSet(name string, spec map[string]any, metadata map[string]any) *Resource {
	return newResource(KindReplicaSet, name, spec, metadata)
}

func NewService(name string, spec map[string]any, metadata map[string]any) *Resource {
	return newResource(KindService, name, spec, metadata)
}

func newResource(kind Kind, name string, spec map[string]any, metadata map[string]any) *Resource {
	if spec == nil {
		spec = map[string]any{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &Resource{Kind: kind, Name: name, Spec: spec, Metadata: metadata}
}

// Clone returns a deep copy, so store snapshots can be handed to callers
// without sharing mutable state.
func (r *Resource) Clone() *Resource {
	return &Resource{
		Kind:     r.Kind,
		Name:     r.Name,
		Spec:     cloneMap(r.Spec),
		Metadata: cloneMap(r.Metadata),
	}
}

// ReplicaSetOwner returns the owning ReplicaSet name from metadata, if any.
func (r *Resource) ReplicaSetOwner() string {
	return getString(r.Metadata, MetadataReplicaSet)
}

// CloneSpec deep-copies a spec or metadata mapping, for callers stamping out
// resources from a shared template.
func CloneSpec(spec map[string]any) map[string]any {
	return cloneMap(spec)
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func getString(m map[string]any, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func getInt(m map[string]any, key string, dflt int) int {
	v, ok := m[key]
	if !ok {
		return dflt
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return dflt
	}
}

func getMap(m map[string]any, key string) map[string]any {
	if v, ok := m[key]; ok {
		if sub, ok := v.(map[string]any); ok {
			return sub
		}
	}
	return nil
}
