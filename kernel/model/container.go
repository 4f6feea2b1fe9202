package model

// ContainerSpec is a typed view over a Container resource's spec. A container
// is backed either by a docker image (image/entrypoint/env) or by an
// in-process workload (workload/params); exactly one form is used per
// deployment mode.
type ContainerSpec struct {
	r *Resource
}

func (r *Resource) Container() ContainerSpec {
	return ContainerSpec{r: r}
}

func (c ContainerSpec) Image() string {
	return getString(c.r.Spec, "image")
}

func (c ContainerSpec) Entrypoint() string {
	return getString(c.r.Spec, "entrypoint")
}

// Env returns the environment mapping for image-backed containers.
// Insertion order is irrelevant.
func (c ContainerSpec) Env() map[string]any {
	return getMap(c.r.Spec, "env")
}

// Workload names a registered workload implementation for in-process
// containers.
func (c ContainerSpec) Workload() string {
	return getString(c.r.Spec, "workload")
}

func (c ContainerSpec) Params() map[string]any {
	return getMap(c.r.Spec, "params")
}

// Ports returns hostPort/containerPort pairs for image-backed containers.
func (c ContainerSpec) Ports() []PortMapping {
	v, ok := c.r.Spec["ports"]
	if !ok {
		return nil
	}
	entries, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []PortMapping
	for _, e := range entries {
		if m, ok := e.(map[string]any); ok {
			out = append(out, PortMapping{
				HostPort:      getInt(m, "hostPort", 0),
				ContainerPort: getInt(m, "containerPort", 0),
			})
		}
	}
	return out
}

type PortMapping struct {
	HostPort      int
	ContainerPort int
}
