package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo registro de movimientos: solo inserción.
type MovementRepo struct {
	s  *Store
	tx *tx
}

func (r *MovementRepo) all() []*entity.MovementRecord {
	r.s.mu.RLock()
	out := make([]*entity.MovementRecord, 0, len(r.s.movements))
	out = append(out, r.s.movements...)
	r.s.mu.RUnlock()
	if r.tx != nil {
		out = append(out, r.tx.movements...)
	}
	return out
}

func (r *MovementRepo) Create(_ context.Context, m *entity.MovementRecord) error {
	return r.s.autocommit(r.tx, func(t *tx) error {
		for _, other := range r.all() {
			if other.ID == m.ID {
				return fmt.Errorf("movimiento %s: %w", m.ID, domain.ErrDuplicate)
			}
		}
		t.movements = append(t.movements, cloneMovement(m))
		return nil
	})
}

func (r *MovementRepo) GetByID(_ context.Context, id string) (*entity.MovementRecord, error) {
	for _, m := range r.all() {
		if m.ID == id {
			return cloneMovement(m), nil
		}
	}
	return nil, nil
}

// List más recientes primero (operation_date, luego created_at).
func (r *MovementRepo) List(_ context.Context, f repository.MovementFilter) ([]*entity.MovementRecord, error) {
	list := r.filter(f)
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].OperationDate.Equal(list[j].OperationDate) {
			return list[i].OperationDate.After(list[j].OperationDate)
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	if f.Offset > 0 {
		if f.Offset >= len(list) {
			return []*entity.MovementRecord{}, nil
		}
		list = list[f.Offset:]
	}
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	out := make([]*entity.MovementRecord, len(list))
	for i, m := range list {
		out[i] = cloneMovement(m)
	}
	return out, nil
}

// Stats total y suma por tipo, tipos en orden alfabético.
func (r *MovementRepo) Stats(_ context.Context, f repository.MovementFilter) (*entity.MovementStats, error) {
	byType := make(map[entity.MovementType]*entity.MovementTypeStats)
	stats := &entity.MovementStats{ByType: []entity.MovementTypeStats{}}
	for _, m := range r.filter(f) {
		s, ok := byType[m.Type]
		if !ok {
			s = &entity.MovementTypeStats{Type: m.Type, Quantity: decimal.Zero}
			byType[m.Type] = s
		}
		s.Count++
		s.Quantity = s.Quantity.Add(m.Quantity)
		stats.Total++
	}
	for _, s := range byType {
		stats.ByType = append(stats.ByType, *s)
	}
	sort.Slice(stats.ByType, func(i, j int) bool { return stats.ByType[i].Type < stats.ByType[j].Type })
	return stats, nil
}

func (r *MovementRepo) filter(f repository.MovementFilter) []*entity.MovementRecord {
	out := make([]*entity.MovementRecord, 0)
	for _, m := range r.all() {
		if f.Type != "" && m.Type != f.Type {
			continue
		}
		if f.ItemID != "" && m.ItemID != f.ItemID {
			continue
		}
		if f.LocationID != "" && m.FromLocationID != f.LocationID && m.ToLocationID != f.LocationID {
			continue
		}
		if f.PerformedBy != "" && m.PerformedBy != f.PerformedBy {
			continue
		}
		if f.TaskID != "" && m.TaskID != f.TaskID {
			continue
		}
		if f.From != nil && m.OperationDate.Before(*f.From) {
			continue
		}
		if f.To != nil && m.OperationDate.After(*f.To) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func cloneMovement(m *entity.MovementRecord) *entity.MovementRecord {
	c := *m
	if m.Metadata != nil {
		c.Metadata = make(map[string]any, len(m.Metadata))
		for k, v := range m.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}
