package ingest

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

func (b *Builder) balanceSheet(ctx context.Context) error {
	recs, err := b.table("BalanceSheet")
	if err != nil || recs == nil {
		return err
	}
	if err := b.ensurePeriods(ctx, recs); err != nil {
		return err
	}
	for _, rec := range recs {
		acctID, err := b.upsertAccount(ctx, rec["Line Item"], "BalanceSheet", rec, "")
		if err != nil {
			return err
		}
		pid, err := b.periodID(ctx, rec["Period"])
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO fact_balance_sheet(account_id, period_id, value) VALUES (?,?,?)`,
			acctID, pid, nullableFloat(cleanNumber(rec["Value"]))); err != nil {
			return eris.Wrap(err, "insert balance sheet row")
		}
	}
	zap.L().Info("loaded balance sheet", zap.Int("rows", len(recs)))
	return nil
}

func (b *Builder) cashFlow(ctx context.Context) error {
	recs, err := b.table("CashFlowStatement")
	if err != nil || recs == nil {
		return err
	}
	if err := b.ensurePeriods(ctx, recs); err != nil {
		return err
	}
	for _, rec := range recs {
		acctID, err := b.upsertAccount(ctx, rec["Item"], "CashFlow", rec, "")
		if err != nil {
			return err
		}
		pid, err := b.periodID(ctx, rec["Period"])
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO fact_cash_flow(account_id, period_id, value) VALUES (?,?,?)`,
			acctID, pid, nullableFloat(cleanNumber(rec["Value"]))); err != nil {
			return eris.Wrap(err, "insert cash flow row")
		}
	}
	zap.L().Info("loaded cash flow statement", zap.Int("rows", len(recs)))
	return nil
}

func (b *Builder) consolidatedPnL(ctx context.Context) error {
	recs, err := b.table("Consolidated PnL")
	if err != nil || recs == nil {
		return err
	}
	if err := b.ensurePeriods(ctx, recs); err != nil {
		return err
	}
	for _, rec := range recs {
		name := rec["Line Item"]
		metricType := "absolute"
		canonical := b.synonyms.Canonical(name)
		if canonical == "" {
			canonical = name
		}
		if strings.Contains(name, "%") || strings.HasSuffix(canonical, "%") ||
			strings.HasSuffix(strings.ToLower(canonical), "cagr") {
			metricType = "ratio"
		}
		acctID, err := b.upsertAccount(ctx, name, "PnLAnnual", rec, metricType)
		if err != nil {
			return err
		}
		pid, err := b.periodID(ctx, rec["Period"])
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO fact_pnl_annual(account_id, period_id, value) VALUES (?,?,?)`,
			acctID, pid, nullableFloat(cleanNumber(rec["Value"]))); err != nil {
			return eris.Wrap(err, "insert annual pnl row")
		}
	}
	zap.L().Info("loaded consolidated pnl", zap.Int("rows", len(recs)))
	return nil
}

func (b *Builder) quarterlyPnL(ctx context.Context) error {
	recs, err := b.table("Quarterly PnL")
	if err != nil || recs == nil {
		return err
	}
	if err := b.ensurePeriods(ctx, recs); err != nil {
		return err
	}
	for _, rec := range recs {
		acctID, err := b.upsertAccount(ctx, rec["Item"], "PnLQuarterly", rec, "")
		if err != nil {
			return err
		}
		pid, err := b.periodID(ctx, rec["Period"])
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO fact_pnl_quarterly(account_id, period_id, value) VALUES (?,?,?)`,
			acctID, pid, nullableFloat(cleanNumber(rec["Value"]))); err != nil {
			return eris.Wrap(err, "insert quarterly pnl row")
		}
	}
	zap.L().Info("loaded quarterly pnl", zap.Int("rows", len(recs)))
	return nil
}

func (b *Builder) roceExternal(ctx context.Context) error {
	recs, err := b.table("ROCE External")
	if err != nil || recs == nil {
		return err
	}
	if err := b.ensurePeriods(ctx, recs); err != nil {
		return err
	}
	for _, rec := range recs {
		acctID, err := b.upsertAccount(ctx, rec["Particular"], "ROCEExternal", rec, "")
		if err != nil {
			return err
		}
		pid, err := b.periodID(ctx, rec["Period"])
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO fact_roce_external(account_id, period_id, value) VALUES (?,?,?)`,
			acctID, pid, nullableFloat(cleanNumber(rec["Value"]))); err != nil {
			return eris.Wrap(err, "insert external roce row")
		}
	}
	zap.L().Info("loaded external roce", zap.Int("rows", len(recs)))
	return nil
}

func (b *Builder) roceInternal(ctx context.Context) error {
	recs, err := b.table("ROCE Internal")
	if err != nil || recs == nil {
		return err
	}
	if err := b.ensurePeriods(ctx, recs); err != nil {
		return err
	}
	catMap, err := b.ensureDim(ctx, "dim_roce_category", "roce_category_id", distinct(recs, "Category"))
	if err != nil {
		return err
	}
	portMap, err := b.ensurePorts(ctx, distinct(recs, "Port"))
	if err != nil {
		return err
	}
	for _, rec := range recs {
		acctID, err := b.upsertAccount(ctx, rec["Line Item"], "ROCEInternal", rec, "")
		if err != nil {
			return err
		}
		pid, err := b.periodID(ctx, rec["Period"])
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO fact_roce_internal(roce_category_id, port_id, account_id, period_id, value) VALUES (?,?,?,?,?)`,
			dimID(catMap, rec["Category"]), dimID(portMap, rec["Port"]),
			acctID, pid, nullableFloat(cleanNumber(rec["Value"]))); err != nil {
			return eris.Wrap(err, "insert internal roce row")
		}
	}
	zap.L().Info("loaded internal roce", zap.Int("rows", len(recs)))
	return nil
}

func (b *Builder) roro(ctx context.Context) error {
	recs, err := b.table("RORO")
	if err != nil || recs == nil {
		return err
	}
	if err := b.ensurePeriods(ctx, recs); err != nil {
		return err
	}
	portMap, err := b.ensurePorts(ctx, distinct(recs, "Port"))
	if err != nil {
		return err
	}
	for _, rec := range recs {
		pid, err := b.periodID(ctx, rec["Period"])
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO fact_roro(port_id, period_id, type, value, number_of_cars) VALUES (?,?,?,?,?)`,
			dimID(portMap, rec["Port"]), pid, nullable(rec["Type"]),
			nullableFloat(cleanNumber(rec["Value"])),
			nullableFloat(cleanNumber(rec["Number of Cars"]))); err != nil {
			return eris.Wrap(err, "insert roro row")
		}
	}
	zap.L().Info("loaded roro", zap.Int("rows", len(recs)))
	return nil
}

func (b *Builder) volumes(ctx context.Context) error {
	recs, err := b.table("Volumes")
	if err != nil || recs == nil {
		return err
	}
	if err := b.ensurePeriods(ctx, recs); err != nil {
		return err
	}
	portMap, err := b.ensurePorts(ctx, distinct(recs, "Port"))
	if err != nil {
		return err
	}
	// The Volumes file labels cargo type as "State".
	cargoMap, err := b.ensureDim(ctx, "dim_cargo_type", "cargo_type_id", distinct(recs, "State"))
	if err != nil {
		return err
	}
	comMap, err := b.ensureDim(ctx, "dim_commodity", "commodity_id", distinct(recs, "Commodity"))
	if err != nil {
		return err
	}
	entMap, err := b.ensureDim(ctx, "dim_entity", "entity_id", distinct(recs, "Entity"))
	if err != nil {
		return err
	}
	finMap, err := b.ensureDim(ctx, "dim_fin_type", "fin_type_id", distinct(recs, "Type"))
	if err != nil {
		return err
	}
	for _, rec := range recs {
		pid, err := b.periodID(ctx, rec["Period"])
		if err != nil {
			return err
		}
		if _, err := b.db.ExecContext(ctx,
			`INSERT INTO fact_volume(port_id, cargo_type_id, commodity_id, entity_id, fin_type_id, period_id, volume_value) VALUES (?,?,?,?,?,?,?)`,
			dimID(portMap, rec["Port"]), dimID(cargoMap, rec["State"]),
			dimID(comMap, rec["Commodity"]), dimID(entMap, rec["Entity"]),
			dimID(finMap, rec["Type"]), pid,
			nullableFloat(cleanNumber(rec["Value"]))); err != nil {
			return eris.Wrap(err, "insert volume row")
		}
	}
	zap.L().Info("loaded volumes", zap.Int("rows", len(recs)))
	return nil
}

func dimID(m map[string]int64, key string) any {
	if id, ok := m[strings.TrimSpace(key)]; ok {
		return id
	}
	return nil
}
