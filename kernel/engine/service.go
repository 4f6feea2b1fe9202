package engine

import (
	"bytes"
	"encoding/json"
	"net/http"
	"path"
	"slices"
	"time"

	"github.com/openkiss/kiss/kernel/balancer"
	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/runtime"
	"github.com/openkiss/kiss/kernel/store"
	"github.com/pkg/errors"
)

// RunnableSource exposes the container controller's live units to the
// service controller, which needs them only to locate load-balancer control
// endpoints.
type RunnableSource interface {
	Runnable(name string) (runtime.Runnable, bool)
}

// ServiceReconciler owns one load-balancer container per service and keeps
// its backend list converged with the service's selector matches. The
// watermark map records the last backend set each balancer accepted, so a
// push is retried until it lands and skipped once it has.
type ServiceReconciler struct {
	store     store.Store
	runnables RunnableSource
	watermark map[string][]string
	client    *http.Client
}

func NewServiceReconciler(s store.Store, runnables RunnableSource) *ServiceReconciler {
	return &ServiceReconciler{
		store:     s,
		runnables: runnables,
		watermark: make(map[string][]string),
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (s *ServiceReconciler) Kind() model.Kind {
	return model.KindService
}

func (s *ServiceReconciler) Reconcile(resources []*model.Resource) error {
	visited := make(map[string]struct{}, len(resources))
	for _, service := range resources {
		visited[service.Name] = struct{}{}
		s.reconcileOne(service)
	}

	// services that disappeared take their load balancers with them
	for name := range s.watermark {
		if _, ok := visited[name]; ok {
			continue
		}
		log.Infof("service [%s] removed, deleting its load balancer", name)
		s.store.Delete(model.KindContainer, model.LoadBalancerName(name))
		delete(s.watermark, name)
	}
	return nil
}

func (s *ServiceReconciler) reconcileOne(service *model.Resource) {
	spec := service.Service()
	matches := s.matchContainers(spec.Selector())
	if len(matches) == 0 {
		// legitimate transiently; advisory only
		log.Warnf("service [%s] selector '%s' matches no containers", service.Name, spec.Selector())
	}

	last, seen := s.watermark[service.Name]
	if !seen {
		s.createLoadBalancer(service)
		return
	}
	if slices.Equal(last, matches) {
		return
	}

	// push failures leave the watermark alone so the next tick retries
	if err := s.pushBackends(service, matches); err != nil {
		log.WithError(err).Warnf("service [%s] balancer not configurable (yet)", service.Name)
		return
	}
	log.Infof("service [%s] backends configured: %v", service.Name, matches)
	s.watermark[service.Name] = matches
}

// createLoadBalancer declares the service's dedicated balancer container and
// records an empty watermark, so the first real match set is pushed on a
// later tick once the balancer is reachable.
func (s *ServiceReconciler) createLoadBalancer(service *model.Resource) {
	spec := service.Service()
	lb := model.NewContainer(spec.LoadBalancerName(), map[string]any{
		"image": model.LoadBalancerImage,
		"env": map[string]any{
			"SOURCE_PORT": spec.SourcePort(),
			"TARGET_PORT": spec.TargetPort(),
		},
		"ports": []any{
			map[string]any{
				"containerPort": balancer.DefaultControlPort,
				"hostPort":      balancer.DefaultControlPort,
			},
		},
	}, nil)

	if err := s.store.Create(lb); err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		log.WithError(err).Errorf("creating load balancer for service [%s]", service.Name)
		return
	}
	s.watermark[service.Name] = []string{}
}

func (s *ServiceReconciler) matchContainers(selector string) []string {
	var matches []string
	for _, container := range s.store.List(model.KindContainer) {
		if matched, _ := path.Match(selector, container.Name); matched {
			matches = append(matches, container.Name)
		}
	}
	slices.Sort(matches)
	return matches
}

func (s *ServiceReconciler) pushBackends(service *model.Resource, matches []string) error {
	lbName := service.Service().LoadBalancerName()
	runnable, ok := s.runnables.Runnable(lbName)
	if !ok {
		return errors.Errorf("balancer [%s] not running", lbName)
	}
	addressed, ok := runnable.(runtime.ControlAddressed)
	if !ok {
		return errors.Errorf("balancer [%s] has no control endpoint", lbName)
	}
	addr := addressed.ControlAddr()
	if addr == "" {
		return errors.Errorf("balancer [%s] not listening yet", lbName)
	}

	body, err := json.Marshal(map[string][]string{"hosts": matches})
	if err != nil {
		return errors.Wrap(err, "encoding backend list")
	}
	resp, err := s.client.Post("http://"+addr+"/config", "application/json", bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "pushing backends to [%s]", addr)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("balancer [%s] returned status %d", lbName, resp.StatusCode)
	}
	return nil
}
