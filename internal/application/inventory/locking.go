package inventory

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/repository"
)

var tracer = otel.Tracer("github.com/jhoicas/vendhub-inventory/internal/application/inventory")

// lockStock bloquea las filas en orden canónico (StockKey.Less) para que dos transacciones
// que tocan el mismo par de filas nunca se esperen en orden inverso. Las filas inexistentes
// quedan como nil en el mapa.
func lockStock(ctx context.Context, repo repository.StockRepository, keys ...entity.StockKey) (map[entity.StockKey]*entity.StockRecord, error) {
	uniq := make([]entity.StockKey, 0, len(keys))
	seen := make(map[entity.StockKey]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		uniq = append(uniq, k)
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i].Less(uniq[j]) })

	locked := make(map[entity.StockKey]*entity.StockRecord, len(uniq))
	for _, k := range uniq {
		rec, err := repo.GetForUpdate(ctx, k)
		if err != nil {
			return nil, err
		}
		locked[k] = rec
	}
	return locked, nil
}

// saveStock persiste en orden canónico las filas tocadas; las entradas nil se omiten.
func saveStock(ctx context.Context, repo repository.StockRepository, touched map[entity.StockKey]*entity.StockRecord) error {
	keys := make([]entity.StockKey, 0, len(touched))
	for k, rec := range touched {
		if rec != nil {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	for _, k := range keys {
		if err := repo.Save(ctx, touched[k]); err != nil {
			return err
		}
	}
	return nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
