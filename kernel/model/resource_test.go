package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResource_CloneIsolation(t *testing.T) {
	original := NewContainer("web", map[string]any{
		"image": "nginx",
		"env":   map[string]any{"MODE": "fast"},
		"ports": []any{map[string]any{"hostPort": 8080, "containerPort": 80}},
	}, map[string]any{MetadataReplicaSet: "web-rs"})

	clone := original.Clone()
	clone.Spec["image"] = "apache"
	clone.Spec["env"].(map[string]any)["MODE"] = "slow"
	clone.Metadata[MetadataReplicaSet] = "other"

	assert.Equal(t, "nginx", original.Container().Image())
	assert.Equal(t, "fast", original.Container().Env()["MODE"])
	assert.Equal(t, "web-rs", original.ReplicaSetOwner())
}

func TestReplicaSetSpec_Replicas(t *testing.T) {
	assert.Equal(t, 1, NewReplicaSet("rs", map[string]any{}, nil).ReplicaSet().Replicas(),
		"replicas defaults to one")
	assert.Equal(t, 0, NewReplicaSet("rs", map[string]any{"replicas": -3}, nil).ReplicaSet().Replicas(),
		"negative replicas clamp to zero")
	assert.Equal(t, 4, NewReplicaSet("rs", map[string]any{"replicas": float64(4)}, nil).ReplicaSet().Replicas(),
		"JSON-decoded numbers are accepted")
}

func TestReplicaSetSpec_Template(t *testing.T) {
	embedded := NewReplicaSet("rs", map[string]any{
		"spec": map[string]any{"image": "x"},
	}, nil)
	require.NotNil(t, embedded.ReplicaSet().TemplateSpec())
	assert.Empty(t, embedded.ReplicaSet().TemplateRef())

	referenced := NewReplicaSet("rs", map[string]any{"container": "template"}, nil)
	assert.Nil(t, referenced.ReplicaSet().TemplateSpec())
	assert.Equal(t, "template", referenced.ReplicaSet().TemplateRef())
}

func TestServiceSpec_LoadBalancerName(t *testing.T) {
	service := NewService("math", map[string]any{"selector": "calc-*"}, nil)
	assert.Equal(t, "service-lb-math", service.Service().LoadBalancerName())
	assert.Equal(t, service.Service().LoadBalancerName(), LoadBalancerName("math"))
}
