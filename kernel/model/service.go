package model

// LoadBalancerName derives the name of the load-balancer container a service
// owns. Deterministic, so reconcile passes and deletion agree on the name.
func LoadBalancerName(serviceName string) string {
	return "service-lb-" + serviceName
}

// LoadBalancerImage is the image deployed for service load balancers in
// docker mode; in workload mode the same name selects the registered
// balancer workload.
const LoadBalancerImage = "loadbalancer"

// ServiceSpec is a typed view over a Service resource's spec.
type ServiceSpec struct {
	r *Resource
}

func (r *Resource) Service() ServiceSpec {
	return ServiceSpec{r: r}
}

// Selector returns the glob pattern matched against container names.
func (s ServiceSpec) Selector() string {
	return getString(s.r.Spec, "selector")
}

func (s ServiceSpec) SourcePort() int {
	return getInt(s.r.Spec, "port", 0)
}

func (s ServiceSpec) TargetPort() int {
	return getInt(s.r.Spec, "targetPort", 0)
}

func (s ServiceSpec) LoadBalancerName() string {
	return LoadBalancerName(s.r.Name)
}
