package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/vendhub-inventory/internal/domain"
	"github.com/jhoicas/vendhub-inventory/internal/domain/entity"
	"github.com/jhoicas/vendhub-inventory/internal/domain/inventory"
)

// TransferKind dirección de la transferencia entre niveles adyacentes.
type TransferKind string

const (
	TransferWarehouseToOperator TransferKind = "WAREHOUSE_TO_OPERATOR"
	TransferOperatorToWarehouse TransferKind = "OPERATOR_TO_WAREHOUSE"
	TransferOperatorToMachine   TransferKind = "OPERATOR_TO_MACHINE"
	TransferMachineToOperator   TransferKind = "MACHINE_TO_OPERATOR"
)

type route struct {
	from, to entity.Level
	movement entity.MovementType
}

var routes = map[TransferKind]route{
	TransferWarehouseToOperator: {entity.LevelWarehouse, entity.LevelOperator, entity.MovementWarehouseToOperator},
	TransferOperatorToWarehouse: {entity.LevelOperator, entity.LevelWarehouse, entity.MovementOperatorToWarehouse},
	TransferOperatorToMachine:   {entity.LevelOperator, entity.LevelMachine, entity.MovementOperatorToMachine},
	TransferMachineToOperator:   {entity.LevelMachine, entity.LevelOperator, entity.MovementMachineToOperator},
}

// ParseTransferKind acepta el nombre en cualquier capitalización.
func ParseTransferKind(s string) (TransferKind, bool) {
	k := TransferKind(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := routes[k]
	return k, ok
}

// TransferInput datos de una transferencia.
type TransferInput struct {
	Kind          TransferKind
	SourceID      string // ubicación de origen (bodega, operador o máquina según Kind)
	DestinationID string
	ItemID        string
	Quantity      decimal.Decimal
	Actor         string
	TaskID        string
	OperationDate *time.Time // nil = ahora
	Notes         string
	Metadata      map[string]any
}

// TransferResult cantidades posteriores a la transferencia y el movimiento registrado.
type TransferResult struct {
	Source      *entity.StockRecord
	Destination *entity.StockRecord
	Movement    *entity.MovementRecord
}

// TransferUseCase mueve cantidad entre niveles adyacentes en una sola transacción:
// débito del origen, crédito del destino y un movimiento.
type TransferUseCase struct {
	tx   TxRunner
	opts Options
}

func NewTransferUseCase(tx TxRunner, opts Options) *TransferUseCase {
	return &TransferUseCase{tx: tx, opts: opts.withDefaults()}
}

// Transfer ejecuta la transferencia. Errores: ErrInvalidInput (cantidad <= 0, tipo o claves inválidas),
// ErrNotFound (no hay fila de origen), ErrInsufficientStock (current_quantity del origen < cantidad).
func (uc *TransferUseCase) Transfer(ctx context.Context, in TransferInput) (_ *TransferResult, err error) {
	start := time.Now()
	defer func() { uc.opts.Metrics.ObserveTransfer(string(in.Kind), err, time.Since(start)) }()

	rt, ok := routes[in.Kind]
	if !ok {
		return nil, fmt.Errorf("tipo de transferencia %q: %w", in.Kind, domain.ErrInvalidInput)
	}
	q, err := validQuantity(in.Quantity)
	if err != nil {
		return nil, err
	}
	src := entity.StockKey{Level: rt.from, LocationID: in.SourceID, ItemID: in.ItemID}
	dst := entity.StockKey{Level: rt.to, LocationID: in.DestinationID, ItemID: in.ItemID}
	if err := validateKey(src); err != nil {
		return nil, err
	}
	if err := validateKey(dst); err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, "inventory.Transfer",
		attribute.String("transfer.kind", string(in.Kind)),
		attribute.String("transfer.source", src.String()),
		attribute.String("transfer.destination", dst.String()),
		attribute.String("quantity", q.String()),
	)
	defer func() { endSpan(span, err) }()

	var res *TransferResult
	err = uc.tx.Run(ctx, func(ctx context.Context, r Repositories) error {
		// El destino se crea antes de tomar bloqueos; así ambos se adquieren en orden canónico.
		if err := r.Stock.EnsureExists(ctx, dst); err != nil {
			return err
		}
		locked, err := lockStock(ctx, r.Stock, src, dst)
		if err != nil {
			return err
		}
		source, dest := locked[src], locked[dst]
		if source == nil || source.IsDeleted() {
			return fmt.Errorf("stock de origen %s: %w", src, domain.ErrNotFound)
		}
		if dest == nil {
			return fmt.Errorf("stock de destino %s: %w", dst, domain.ErrNotFound)
		}
		if err := inventory.ApplyDelta(source, q.Neg(), decimal.Zero, inventory.GuardCurrent); err != nil {
			return err
		}
		if err := inventory.ApplyDelta(dest, q, decimal.Zero, inventory.GuardNone); err != nil {
			return err
		}
		now := uc.opts.Now()
		source.UpdatedAt = now
		dest.UpdatedAt = now
		if rt.to == entity.LevelMachine {
			dest.LastRefillAt = &now
			dest.DeletedAt = nil
		}
		if err := saveStock(ctx, r.Stock, locked); err != nil {
			return err
		}

		mov := &entity.MovementRecord{
			Type:           rt.movement,
			ItemID:         in.ItemID,
			Quantity:       q,
			FromLevel:      src.Level,
			FromLocationID: src.LocationID,
			ToLevel:        dst.Level,
			ToLocationID:   dst.LocationID,
			PerformedBy:    in.Actor,
			TaskID:         in.TaskID,
			Notes:          in.Notes,
			Metadata:       in.Metadata,
		}
		if in.OperationDate != nil {
			mov.OperationDate = *in.OperationDate
		}
		if err := appendMovement(ctx, r.Movements, mov, now); err != nil {
			return err
		}
		res = &TransferResult{Source: source, Destination: dest, Movement: mov}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.opts.Logger.Info().
		Str("kind", string(in.Kind)).
		Str("item_id", in.ItemID).
		Str("quantity", q.StringFixed(inventory.QuantityScale)).
		Str("source", src.LocationID).
		Str("destination", dst.LocationID).
		Msg("transferencia registrada")
	uc.opts.publish(ctx, []*entity.MovementRecord{res.Movement})
	return res, nil
}
