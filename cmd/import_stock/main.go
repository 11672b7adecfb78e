// import_stock carga existencias iniciales de bodega desde un CSV "item_id;cantidad".
// Cada línea se registra como recepción (WAREHOUSE_IN), con su movimiento.
//
// Uso: go run ./cmd/import_stock --warehouse W1 [--charset cp1251] [--dry-run] stock.csv
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	flag "github.com/spf13/pflag"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/vendhub-inventory/internal/application/inventory"
	"github.com/jhoicas/vendhub-inventory/internal/infrastructure/postgres"
	"github.com/jhoicas/vendhub-inventory/pkg/config"
	"github.com/jhoicas/vendhub-inventory/pkg/logger"
)

type stockLine struct {
	line     int
	itemID   string
	quantity decimal.Decimal
}

func main() {
	warehouseID := flag.String("warehouse", "", "bodega destino (obligatorio)")
	charset := flag.String("charset", "utf-8", "codificación del archivo: utf-8, cp1251, latin1")
	actor := flag.String("actor", "import_stock", "usuario registrado en los movimientos")
	dryRun := flag.Bool("dry-run", false, "solo validar el archivo")
	flag.Parse()

	if *warehouseID == "" || flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: import_stock --warehouse <id> [--charset cp1251] [--dry-run] <archivo.csv>")
		os.Exit(2)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	lines, err := readStockCSV(f, *charset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		fmt.Printf("%d líneas válidas\n", len(lines))
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	repos := postgres.NewRepositories(pool)
	uc := inventory.NewMovementUseCase(postgres.NewTxRunner(pool), repos.Movements, 0, inventory.Options{Logger: log})

	failed := 0
	for _, l := range lines {
		_, err := uc.ReceiveWarehouse(ctx, inventory.StockChangeInput{
			LocationID: *warehouseID,
			ItemID:     l.itemID,
			Quantity:   l.quantity,
			Actor:      *actor,
			Notes:      "carga inicial",
			Metadata:   map[string]any{"source": "import_stock", "line": l.line},
		})
		if err != nil {
			failed++
			log.Error().Err(err).Int("line", l.line).Str("item_id", l.itemID).Msg("recepción rechazada")
		}
	}
	log.Info().Int("total", len(lines)).Int("failed", failed).Str("warehouse_id", *warehouseID).Msg("importación terminada")
	if failed > 0 {
		os.Exit(1)
	}
}

// readStockCSV parsea "item_id;cantidad". Se admite una cabecera y la coma decimal.
func readStockCSV(r io.Reader, charset string) ([]stockLine, error) {
	enc, err := decoderFor(charset)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = transform.NewReader(r, enc.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	var out []stockLine
	var errs []error
	for n := 1; ; n++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("línea %d: %w", n, err)
		}
		if len(rec) == 0 || (len(rec) == 1 && strings.TrimSpace(rec[0]) == "") {
			continue
		}
		if len(rec) < 2 {
			errs = append(errs, fmt.Errorf("línea %d: se esperan 2 columnas", n))
			continue
		}
		item := strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		raw := strings.ReplaceAll(strings.TrimSpace(rec[1]), ",", ".")
		q, err := decimal.NewFromString(raw)
		if err != nil {
			if n == 1 {
				continue // cabecera
			}
			errs = append(errs, fmt.Errorf("línea %d: cantidad %q inválida", n, rec[1]))
			continue
		}
		if item == "" || !q.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: ítem vacío o cantidad no positiva", n))
			continue
		}
		out = append(out, stockLine{line: n, itemID: item, quantity: q})
	}
	return out, errors.Join(errs...)
}

func decoderFor(charset string) (encoding.Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return nil, nil
	case "cp1251", "windows-1251":
		return charmap.Windows1251, nil
	case "latin1", "iso-8859-1", "iso8859-1":
		return charmap.ISO8859_1, nil
	}
	return nil, fmt.Errorf("charset %q no soportado", charset)
}
