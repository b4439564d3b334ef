package ingest

// Schema is the star-schema DDL plus the precomputed views the query
// layer depends on. The view formulas are a collaborator contract: the
// ratios stay unrounded in SQL and rounding happens only at format time.
const Schema = `
CREATE TABLE IF NOT EXISTS dim_period (
	period_id  INTEGER PRIMARY KEY AUTOINCREMENT,
	raw_label  TEXT NOT NULL UNIQUE,
	start_year INTEGER,
	end_year   INTEGER,
	sort_key   INTEGER
);

CREATE TABLE IF NOT EXISTS dim_account (
	account_id       INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL,
	canonical_name   TEXT NOT NULL,
	statement_type   TEXT NOT NULL,
	category         TEXT,
	sub_category     TEXT,
	sub_sub_category TEXT,
	metric_type      TEXT NOT NULL DEFAULT 'absolute',
	UNIQUE(name, statement_type)
);

CREATE TABLE IF NOT EXISTS dim_port (
	port_id   INTEGER PRIMARY KEY AUTOINCREMENT,
	port_name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dim_cargo_type (
	cargo_type_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dim_commodity (
	commodity_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name         TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dim_entity (
	entity_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name      TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dim_fin_type (
	fin_type_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS dim_roce_category (
	roce_category_id INTEGER PRIMARY KEY AUTOINCREMENT,
	name             TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS fact_balance_sheet (
	account_id INTEGER NOT NULL REFERENCES dim_account(account_id),
	period_id  INTEGER REFERENCES dim_period(period_id),
	value      REAL
);

CREATE TABLE IF NOT EXISTS fact_cash_flow (
	account_id INTEGER NOT NULL REFERENCES dim_account(account_id),
	period_id  INTEGER REFERENCES dim_period(period_id),
	value      REAL
);

CREATE TABLE IF NOT EXISTS fact_pnl_annual (
	account_id INTEGER NOT NULL REFERENCES dim_account(account_id),
	period_id  INTEGER REFERENCES dim_period(period_id),
	value      REAL
);

CREATE TABLE IF NOT EXISTS fact_pnl_quarterly (
	account_id INTEGER NOT NULL REFERENCES dim_account(account_id),
	period_id  INTEGER REFERENCES dim_period(period_id),
	value      REAL
);

CREATE TABLE IF NOT EXISTS fact_roce_external (
	account_id INTEGER NOT NULL REFERENCES dim_account(account_id),
	period_id  INTEGER REFERENCES dim_period(period_id),
	value      REAL
);

CREATE TABLE IF NOT EXISTS fact_roce_internal (
	roce_category_id INTEGER REFERENCES dim_roce_category(roce_category_id),
	port_id          INTEGER REFERENCES dim_port(port_id),
	account_id       INTEGER NOT NULL REFERENCES dim_account(account_id),
	period_id        INTEGER REFERENCES dim_period(period_id),
	value            REAL
);

CREATE TABLE IF NOT EXISTS fact_roro (
	port_id        INTEGER REFERENCES dim_port(port_id),
	period_id      INTEGER REFERENCES dim_period(period_id),
	type           TEXT,
	value          REAL,
	number_of_cars REAL
);

CREATE TABLE IF NOT EXISTS fact_volume (
	port_id       INTEGER REFERENCES dim_port(port_id),
	cargo_type_id INTEGER REFERENCES dim_cargo_type(cargo_type_id),
	commodity_id  INTEGER REFERENCES dim_commodity(commodity_id),
	entity_id     INTEGER REFERENCES dim_entity(entity_id),
	fin_type_id   INTEGER REFERENCES dim_fin_type(fin_type_id),
	period_id     INTEGER REFERENCES dim_period(period_id),
	volume_value  REAL
);

CREATE VIEW IF NOT EXISTS view_ebitda_margin AS
SELECT p.raw_label AS period,
       e.value / NULLIF(r.value, 0) AS ebitda_margin
FROM dim_period p
JOIN fact_pnl_annual e
  ON e.period_id = p.period_id
 AND e.account_id = (SELECT MIN(account_id) FROM dim_account WHERE canonical_name = 'EBITDA')
JOIN fact_pnl_annual r
  ON r.period_id = p.period_id
 AND r.account_id = (SELECT MIN(account_id) FROM dim_account WHERE canonical_name = 'Revenue from Operation');

CREATE VIEW IF NOT EXISTS view_roce AS
SELECT p.raw_label AS period,
       e.value / NULLIF(c.value, 0) AS roce
FROM dim_period p
JOIN fact_roce_external e
  ON e.period_id = p.period_id
 AND e.account_id = (SELECT MIN(account_id) FROM dim_account WHERE canonical_name = 'EBIT')
JOIN fact_roce_external c
  ON c.period_id = p.period_id
 AND c.account_id = (SELECT MIN(account_id) FROM dim_account WHERE canonical_name = 'Average capital employed');

CREATE VIEW IF NOT EXISTS view_port_ebit_volume AS
SELECT p.raw_label AS period,
       dp.port_name AS port_name,
       SUM(fri.value) / NULLIF((
           SELECT SUM(v.volume_value) FROM fact_volume v
           WHERE v.port_id = dp.port_id AND v.period_id = p.period_id
       ), 0) AS ebit_per_mmt
FROM fact_roce_internal fri
JOIN dim_account a ON a.account_id = fri.account_id AND a.canonical_name = 'EBIT'
JOIN dim_port dp ON dp.port_id = fri.port_id
JOIN dim_period p ON p.period_id = fri.period_id
GROUP BY p.period_id, p.raw_label, dp.port_id, dp.port_name;
`
