package runtime

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strconv"

	"github.com/containerd/errdefs"
	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
	"github.com/openkiss/kiss/kernel/balancer"
	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/routing"
	"github.com/pkg/errors"
)

// DefaultNetwork is the dedicated docker network the cluster creates for its
// containers.
const DefaultNetwork = "kiss"

const labelResource = "kiss.resource"

// DockerRuntime backs Container resources with real docker containers on a
// dedicated network.
type DockerRuntime struct {
	cli     *client.Client
	network string
}

func NewDockerRuntime(networkName string) (*DockerRuntime, error) {
	if networkName == "" {
		networkName = DefaultNetwork
	}
	cli, err := client.New(client.FromEnv)
	if err != nil {
		return nil, errors.Wrap(err, "creating docker client")
	}
	return &DockerRuntime{cli: cli, network: networkName}, nil
}

// EnsureNetwork creates the cluster network if it does not exist yet.
func (d *DockerRuntime) EnsureNetwork(ctx context.Context) error {
	if _, err := d.cli.NetworkInspect(ctx, d.network, client.NetworkInspectOptions{}); err == nil {
		return nil
	}
	_, err := d.cli.NetworkCreate(ctx, d.network, client.NetworkCreateOptions{
		Labels: map[string]string{"kiss.network": d.network},
	})
	if err != nil {
		// race-safe: re-inspect before failing
		if _, ie := d.cli.NetworkInspect(ctx, d.network, client.NetworkInspectOptions{}); ie == nil {
			return nil
		}
		return errors.Wrapf(err, "create network %q", d.network)
	}
	return nil
}

// RemoveNetwork tears the cluster network down. Absence is not an error.
func (d *DockerRuntime) RemoveNetwork(ctx context.Context) error {
	if _, err := d.cli.NetworkRemove(ctx, d.network, client.NetworkRemoveOptions{}); err != nil && !errdefs.IsNotFound(err) {
		return errors.Wrapf(err, "remove network %q", d.network)
	}
	return nil
}

// ContainerIP resolves a container's address on the cluster network.
func (d *DockerRuntime) ContainerIP(ctx context.Context, name string) (string, error) {
	inspected, err := d.cli.ContainerInspect(ctx, name, client.ContainerInspectOptions{})
	if err != nil {
		return "", errors.Wrapf(err, "inspect container %q", name)
	}
	settings := inspected.Container.NetworkSettings
	if settings == nil {
		return "", errors.Errorf("container %q has no network settings", name)
	}
	endpoint, ok := settings.Networks[d.network]
	if !ok || endpoint.IPAddress == "" {
		return "", errors.Errorf("container %q not attached to network %q", name, d.network)
	}
	return endpoint.IPAddress, nil
}

// DockerRunnable is the docker-backed Runnable. It carries no inbox; routing
// applies to workload-backed units only.
type DockerRunnable struct {
	rt       *DockerRuntime
	resource *model.Resource
}

func (r *DockerRunnable) Name() string {
	return r.resource.Name
}

func (r *DockerRunnable) Start() error {
	ctx := context.Background()
	spec := r.resource.Container()

	var env []string
	for k, v := range spec.Env() {
		env = append(env, fmt.Sprintf("%s=%v", k, v))
	}

	exposed := network.PortSet{}
	portMap := network.PortMap{}
	for _, mapping := range spec.Ports() {
		port, err := network.PortFrom(uint16(mapping.ContainerPort), "tcp")
		if err != nil {
			return errors.Wrapf(err, "container [%s] port %d", r.resource.Name, mapping.ContainerPort)
		}
		exposed[port] = struct{}{}
		if mapping.HostPort > 0 {
			portMap[port] = append(portMap[port], network.PortBinding{
				HostIP:   netip.AddrFrom4([4]byte{0, 0, 0, 0}),
				HostPort: strconv.Itoa(mapping.HostPort),
			})
		}
	}

	cfg := &container.Config{
		Image:  spec.Image(),
		Env:    env,
		Labels: map[string]string{labelResource: r.resource.Name},
	}
	if entrypoint := spec.Entrypoint(); entrypoint != "" {
		cfg.Entrypoint = []string{entrypoint}
	}
	if len(exposed) > 0 {
		cfg.ExposedPorts = exposed
	}

	created, err := r.rt.cli.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config: cfg,
		HostConfig: &container.HostConfig{
			PortBindings: portMap,
		},
		NetworkingConfig: &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{
				r.rt.network: {},
			},
		},
		Name:  r.resource.Name,
		Image: spec.Image(),
	})
	if err != nil {
		return errors.Wrapf(err, "create container %q", r.resource.Name)
	}
	if _, err := r.rt.cli.ContainerStart(ctx, created.ID, client.ContainerStartOptions{}); err != nil {
		return errors.Wrapf(err, "start container %q", r.resource.Name)
	}
	return nil
}

func (r *DockerRunnable) Stop(ctx context.Context) error {
	_, err := r.rt.cli.ContainerRemove(ctx, r.resource.Name, client.ContainerRemoveOptions{
		Force: true,
	})
	if err != nil && !errdefs.IsNotFound(err) {
		return errors.Wrapf(err, "remove container %q", r.resource.Name)
	}
	return nil
}

// ControlAddr locates a deployed load balancer's control endpoint by asking
// docker for the container's address on the cluster network.
func (r *DockerRunnable) ControlAddr() string {
	ip, err := r.rt.ContainerIP(context.Background(), r.resource.Name)
	if err != nil {
		return ""
	}
	return net.JoinHostPort(ip, strconv.Itoa(balancer.DefaultControlPort))
}

// DockerFactory builds docker-backed runnables for image specs, deferring to
// the in-process factory for workload specs.
func DockerFactory(rt *DockerRuntime) Factory {
	inProcess := WorkloadFactory()
	return func(resource *model.Resource, api *routing.Router) (Runnable, error) {
		if resource.Container().Image() != "" {
			return &DockerRunnable{rt: rt, resource: resource}, nil
		}
		return inProcess(resource, api)
	}
}
