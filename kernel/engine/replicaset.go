package engine

import (
	"fmt"
	"strings"

	"github.com/openkiss/kiss/kernel/model"
	"github.com/openkiss/kiss/kernel/store"
	"github.com/pkg/errors"
)

// ReplicaSetReconciler stamps out `{name}-0 .. {name}-{replicas-1}` container
// resources from each ReplicaSet's template. Indices are assigned densely
// from the current count, never from gaps; names are regenerated from the
// template each time, so index reuse after a scale-down is fine.
type ReplicaSetReconciler struct {
	store store.Store
}

func NewReplicaSetReconciler(s store.Store) *ReplicaSetReconciler {
	return &ReplicaSetReconciler{store: s}
}

func (r *ReplicaSetReconciler) Kind() model.Kind {
	return model.KindReplicaSet
}

func (r *ReplicaSetReconciler) Reconcile(resources []*model.Resource) error {
	var failures []string
	for _, replicaSet := range resources {
		// an unresolved template fails this ReplicaSet only
		if err := r.reconcileOne(replicaSet); err != nil {
			log.WithError(err).Errorf("reconciling replicaset [%s]", replicaSet.Name)
			failures = append(failures, replicaSet.Name+": "+err.Error())
		}
	}
	if len(failures) > 0 {
		return errors.Errorf("replicaset failures: %s", strings.Join(failures, "; "))
	}
	return nil
}

func (r *ReplicaSetReconciler) reconcileOne(replicaSet *model.Resource) error {
	template, err := r.resolveTemplate(replicaSet)
	if err != nil {
		return err
	}

	prefix := replicaSet.Name + "-"
	current := 0
	for _, container := range r.store.List(model.KindContainer) {
		if strings.HasPrefix(container.Name, prefix) && container.ReplicaSetOwner() == replicaSet.Name {
			current++
		}
	}
	desired := replicaSet.ReplicaSet().Replicas()

	switch {
	case current < desired:
		for i := current; i < desired; i++ {
			name := fmt.Sprintf("%s-%d", replicaSet.Name, i)
			log.Infof("creating replica [%s]", name)
			replica := model.NewContainer(name, model.CloneSpec(template), map[string]any{
				model.MetadataReplicaSet: replicaSet.Name,
			})
			if err := r.store.Create(replica); err != nil {
				return errors.Wrapf(err, "creating replica [%s]", name)
			}
		}
	case current > desired:
		for i := desired; i < current; i++ {
			name := fmt.Sprintf("%s-%d", replicaSet.Name, i)
			log.Infof("deleting replica [%s]", name)
			r.store.Delete(model.KindContainer, name)
		}
	}
	return nil
}

// resolveTemplate returns the container spec replicas are stamped from:
// either embedded in the ReplicaSet spec or referenced by container name.
func (r *ReplicaSetReconciler) resolveTemplate(replicaSet *model.Resource) (map[string]any, error) {
	spec := replicaSet.ReplicaSet()
	if template := spec.TemplateSpec(); template != nil {
		return template, nil
	}
	if ref := spec.TemplateRef(); ref != "" {
		container, ok := r.store.Get(model.KindContainer, ref)
		if !ok {
			return nil, errors.Errorf("template container [%s] not found", ref)
		}
		return container.Spec, nil
	}
	return nil, errors.New("no template spec or container reference")
}
