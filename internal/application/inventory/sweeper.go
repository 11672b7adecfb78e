package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/vendhub-inventory/pkg/logger"
)

// Expirer operación que dispara el barrido.
type Expirer interface {
	ExpireOldReservations(ctx context.Context) (int, error)
}

// ExpirySweeper dispara periódicamente la expiración de reservas vencidas.
type ExpirySweeper struct {
	expirer  Expirer
	interval time.Duration
	log      *logger.Logger
}

// NewExpirySweeper interval <= 0 deja el barrido desactivado (Run retorna de inmediato).
func NewExpirySweeper(expirer Expirer, interval time.Duration, log *logger.Logger) *ExpirySweeper {
	if log == nil {
		log = logger.Nop()
	}
	return &ExpirySweeper{expirer: expirer, interval: interval, log: log.Component("expiry_sweeper")}
}

// Run bloquea hasta que ctx se cancela. Un barrido fallido se registra y se reintenta en el siguiente tick.
func (s *ExpirySweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Info().Msg("barrido de reservas desactivado")
		return
	}
	s.log.Info().Dur("interval", s.interval).Msg("barrido de reservas iniciado")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("barrido de reservas detenido")
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}

// SweepOnce un barrido inmediato.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	n, err := s.expirer.ExpireOldReservations(ctx)
	if err != nil {
		s.log.Error().Err(err).Int("expired", n).Msg("barrido de reservas con errores")
		return n, err
	}
	if n > 0 {
		s.log.Debug().Int("expired", n).Msg("barrido de reservas")
	}
	return n, nil
}
