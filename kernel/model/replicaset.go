package model

// ReplicaSetSpec is a typed view over a ReplicaSet resource's spec.
type ReplicaSetSpec struct {
	r *Resource
}

func (r *Resource) ReplicaSet() ReplicaSetSpec {
	return ReplicaSetSpec{r: r}
}

// Replicas returns the desired replica count, never negative.
func (rs ReplicaSetSpec) Replicas() int {
	n := getInt(rs.r.Spec, "replicas", 1)
	if n < 0 {
		return 0
	}
	return n
}

// TemplateSpec returns the embedded container spec, if the template is
// declared inline.
func (rs ReplicaSetSpec) TemplateSpec() map[string]any {
	return getMap(rs.r.Spec, "spec")
}

// TemplateRef returns the name of a Container resource used as the template,
// if the template is declared by reference.
func (rs ReplicaSetSpec) TemplateRef() string {
	return getString(rs.r.Spec, "container")
}
