package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var (
	_ repository.CountRepository     = (*CountRepo)(nil)
	_ repository.ThresholdRepository = (*ThresholdRepo)(nil)
)

type CountRepo struct {
	s  *Store
	tx *tx
}

func (r *CountRepo) Create(_ context.Context, c *entity.InventoryCount) error {
	return r.s.autocommit(r.tx, func(t *tx) error {
		cp := *c
		cp.Actions = append([]string(nil), c.Actions...)
		t.counts = append(t.counts, &cp)
		return nil
	})
}

// ListByLocation más recientes primero.
func (r *CountRepo) ListByLocation(_ context.Context, level entity.Level, locationID string, limit int) ([]*entity.InventoryCount, error) {
	r.s.mu.RLock()
	all := append([]*entity.InventoryCount(nil), r.s.counts...)
	r.s.mu.RUnlock()
	if r.tx != nil {
		all = append(all, r.tx.counts...)
	}
	out := make([]*entity.InventoryCount, 0)
	for _, c := range all {
		if c.Level == level && c.LocationID == locationID {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CountedAt.After(out[j].CountedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type ThresholdRepo struct {
	s  *Store
	tx *tx
}

func (r *ThresholdRepo) Create(_ context.Context, th *entity.DifferenceThreshold) error {
	return r.s.autocommit(r.tx, func(t *tx) error {
		cp := *th
		cp.Actions = append([]string(nil), th.Actions...)
		t.thresholds = append(t.thresholds, &cp)
		return nil
	})
}

func (r *ThresholdRepo) List(_ context.Context) ([]*entity.DifferenceThreshold, error) {
	return r.list(false), nil
}

func (r *ThresholdRepo) ListActive(_ context.Context) ([]*entity.DifferenceThreshold, error) {
	return r.list(true), nil
}

func (r *ThresholdRepo) list(activeOnly bool) []*entity.DifferenceThreshold {
	r.s.mu.RLock()
	all := append([]*entity.DifferenceThreshold(nil), r.s.thresholds...)
	r.s.mu.RUnlock()
	if r.tx != nil {
		all = append(all, r.tx.thresholds...)
	}
	out := make([]*entity.DifferenceThreshold, 0, len(all))
	for _, th := range all {
		if activeOnly && !th.IsActive {
			continue
		}
		cp := *th
		out = append(out, &cp)
	}
	return out
}
