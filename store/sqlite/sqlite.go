/*
Package sqlite provides a SQLite-backed implementation of billing.TxStore.

PURPOSE:
  Production persistence for the billing engine. The same patterns apply to
  PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  gram_panchayats:  Tenant records
  villages:         Villages under a panchayat
  houses:           Metered connections (carry the advancing meter reading)
  tariffs:          One rate card per panchayat
  bills:            One row per house per period; UNIQUE(house_id, period)
  payments:         Append-only collection log

WRITE DISCIPLINE:
  - payments: INSERT only. No UPDATE, no DELETE.
  - bills: inserted once; only paid_amount/remaining_amount/status are ever
    updated afterwards (UpdateBillPayment).
  - houses.previous_reading advances inside the same transaction as the
    bill insert it derives from.

DECIMAL ENCODING:
  Monetary and volume columns are TEXT holding exact decimal strings.
  REAL would reintroduce the binary-fraction drift the engine exists to
  avoid.

CONCURRENCY:
  WithTx serializes under a mutex and runs a database transaction. That
  makes payment application a strict read-modify-write per bill: no lost
  increments under concurrent collections. SQLite is opened in WAL mode so
  readers don't block behind the writer.

USAGE:
  st, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer st.Close()

  gen := billing.NewBillGenerator(st, logger)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - billing/store.go: Interface definitions
  - billing/ledger.go: The use cases built on this store
  - billing/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/jaldhara/billing-engine/billing"
)

// Store implements billing.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes WithTx; see package comment
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows a single writer anyway, and a ":memory:"
	// database exists per connection, so a pool would silently shard it.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ billing.TxStore = (*Store)(nil)

// Reset drops all data. Used by demo scenario loading; not part of the
// Store contract.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM payments;
		DELETE FROM bills;
		DELETE FROM tariffs;
		DELETE FROM houses;
		DELETE FROM villages;
		DELETE FROM gram_panchayats;`)
	return err
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS gram_panchayats (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		district TEXT,
		state TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS villages (
		id TEXT PRIMARY KEY,
		panchayat_id TEXT NOT NULL REFERENCES gram_panchayats(id),
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_villages_panchayat ON villages(panchayat_id);

	CREATE TABLE IF NOT EXISTS houses (
		id TEXT PRIMARY KEY,
		village_id TEXT NOT NULL REFERENCES villages(id),
		panchayat_id TEXT NOT NULL REFERENCES gram_panchayats(id),
		owner_name TEXT NOT NULL,
		water_connection_no TEXT,
		usage_class TEXT NOT NULL,
		previous_reading TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_houses_village ON houses(village_id);
	CREATE INDEX IF NOT EXISTS idx_houses_panchayat ON houses(panchayat_id);

	CREATE TABLE IF NOT EXISTS tariffs (
		panchayat_id TEXT PRIMARY KEY REFERENCES gram_panchayats(id),
		domestic_rates_json TEXT NOT NULL,
		institutional TEXT NOT NULL,
		commercial TEXT NOT NULL,
		industrial TEXT NOT NULL,
		effective_from TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS bills (
		id TEXT PRIMARY KEY,
		house_id TEXT NOT NULL REFERENCES houses(id),
		period TEXT NOT NULL,
		previous_reading TEXT NOT NULL,
		current_reading TEXT NOT NULL,
		total_usage TEXT NOT NULL,
		current_demand TEXT NOT NULL,
		arrears TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		paid_amount TEXT NOT NULL,
		remaining_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		generated_at TEXT NOT NULL
	);

	-- One bill per house per billing period.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_bills_house_period
		ON bills(house_id, period);
	CREATE INDEX IF NOT EXISTS idx_bills_house ON bills(house_id);
	-- Arrears aggregation during generation (hot path).
	CREATE INDEX IF NOT EXISTS idx_bills_house_status ON bills(house_id, status);

	-- Append-only collection log.
	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		bill_id TEXT NOT NULL REFERENCES bills(id),
		amount TEXT NOT NULL,
		mode TEXT NOT NULL,
		transaction_ref TEXT,
		collected_by TEXT,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_payments_bill ON payments(bill_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// QUERIER - shared by *sql.DB and *sql.Tx paths
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ops implements every store operation against a querier, so the plain
// store and the in-transaction view share one set of SQL.
type ops struct {
	q querier
}

// =============================================================================
// STORE METHODS - delegate to ops on the bare connection
// =============================================================================

func (s *Store) SavePanchayat(ctx context.Context, gp billing.GramPanchayat) error {
	return ops{s.db}.SavePanchayat(ctx, gp)
}

func (s *Store) GetPanchayat(ctx context.Context, id billing.PanchayatID) (billing.GramPanchayat, error) {
	return ops{s.db}.GetPanchayat(ctx, id)
}

func (s *Store) ListPanchayats(ctx context.Context) ([]billing.GramPanchayat, error) {
	return ops{s.db}.ListPanchayats(ctx)
}

func (s *Store) SaveVillage(ctx context.Context, v billing.Village) error {
	return ops{s.db}.SaveVillage(ctx, v)
}

func (s *Store) GetVillage(ctx context.Context, id billing.VillageID) (billing.Village, error) {
	return ops{s.db}.GetVillage(ctx, id)
}

func (s *Store) VillagesByPanchayat(ctx context.Context, id billing.PanchayatID) ([]billing.Village, error) {
	return ops{s.db}.VillagesByPanchayat(ctx, id)
}

func (s *Store) SaveHouse(ctx context.Context, h billing.House) error {
	return ops{s.db}.SaveHouse(ctx, h)
}

func (s *Store) GetHouse(ctx context.Context, id billing.HouseID) (billing.House, error) {
	return ops{s.db}.GetHouse(ctx, id)
}

func (s *Store) HousesByVillage(ctx context.Context, id billing.VillageID) ([]billing.House, error) {
	return ops{s.db}.HousesByVillage(ctx, id)
}

func (s *Store) HousesByPanchayat(ctx context.Context, id billing.PanchayatID) ([]billing.House, error) {
	return ops{s.db}.HousesByPanchayat(ctx, id)
}

func (s *Store) SaveTariff(ctx context.Context, t billing.TariffSchedule) error {
	return ops{s.db}.SaveTariff(ctx, t)
}

func (s *Store) TariffByPanchayat(ctx context.Context, id billing.PanchayatID) (billing.TariffSchedule, error) {
	return ops{s.db}.TariffByPanchayat(ctx, id)
}

func (s *Store) InsertBill(ctx context.Context, b billing.Bill) error {
	return ops{s.db}.InsertBill(ctx, b)
}

func (s *Store) GetBill(ctx context.Context, id billing.BillID) (billing.Bill, error) {
	return ops{s.db}.GetBill(ctx, id)
}

func (s *Store) BillsByHouse(ctx context.Context, id billing.HouseID) ([]billing.Bill, error) {
	return ops{s.db}.BillsByHouse(ctx, id)
}

func (s *Store) BillsByPanchayat(ctx context.Context, id billing.PanchayatID) ([]billing.Bill, error) {
	return ops{s.db}.BillsByPanchayat(ctx, id)
}

func (s *Store) OutstandingBillsByHouse(ctx context.Context, id billing.HouseID) ([]billing.Bill, error) {
	return ops{s.db}.OutstandingBillsByHouse(ctx, id)
}

func (s *Store) UpdateBillPayment(ctx context.Context, b billing.Bill) error {
	return ops{s.db}.UpdateBillPayment(ctx, b)
}

func (s *Store) AppendPayment(ctx context.Context, p billing.Payment) error {
	return ops{s.db}.AppendPayment(ctx, p)
}

func (s *Store) PaymentsByBill(ctx context.Context, id billing.BillID) ([]billing.Payment, error) {
	return ops{s.db}.PaymentsByBill(ctx, id)
}

// WithTx runs fn inside a database transaction, serialized under the store
// mutex. Reads within fn observe its own writes; any error rolls everything
// back.
func (s *Store) WithTx(ctx context.Context, fn func(billing.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(txStore{ops{tx}}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// txStore adapts ops to billing.Store for use inside WithTx.
type txStore struct {
	ops
}

var _ billing.Store = txStore{}

// =============================================================================
// GRAM PANCHAYATS
// =============================================================================

func (o ops) SavePanchayat(ctx context.Context, gp billing.GramPanchayat) error {
	if gp.CreatedAt.IsZero() {
		gp.CreatedAt = time.Now().UTC()
	}
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO gram_panchayats (id, name, district, state, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name=excluded.name,
			district=excluded.district,
			state=excluded.state`,
		string(gp.ID), gp.Name, gp.District, gp.State, gp.CreatedAt.Format(time.RFC3339))
	return err
}

func (o ops) GetPanchayat(ctx context.Context, id billing.PanchayatID) (billing.GramPanchayat, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT id, name, district, state, created_at
		FROM gram_panchayats WHERE id = ?`, string(id))
	return scanPanchayat(row)
}

func (o ops) ListPanchayats(ctx context.Context) ([]billing.GramPanchayat, error) {
	rows, err := o.q.QueryContext(ctx, `
		SELECT id, name, district, state, created_at
		FROM gram_panchayats ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.GramPanchayat
	for rows.Next() {
		gp, err := scanPanchayat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, gp)
	}
	return result, rows.Err()
}

// =============================================================================
// VILLAGES
// =============================================================================

func (o ops) SaveVillage(ctx context.Context, v billing.Village) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO villages (id, panchayat_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name`,
		string(v.ID), string(v.PanchayatID), v.Name, v.CreatedAt.Format(time.RFC3339))
	return err
}

func (o ops) GetVillage(ctx context.Context, id billing.VillageID) (billing.Village, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT id, panchayat_id, name, created_at
		FROM villages WHERE id = ?`, string(id))
	return scanVillage(row)
}

func (o ops) VillagesByPanchayat(ctx context.Context, id billing.PanchayatID) ([]billing.Village, error) {
	rows, err := o.q.QueryContext(ctx, `
		SELECT id, panchayat_id, name, created_at
		FROM villages WHERE panchayat_id = ? ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.Village
	for rows.Next() {
		v, err := scanVillage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// =============================================================================
// HOUSES
// =============================================================================

func (o ops) SaveHouse(ctx context.Context, h billing.House) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO houses (id, village_id, panchayat_id, owner_name, water_connection_no, usage_class, previous_reading, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner_name=excluded.owner_name,
			water_connection_no=excluded.water_connection_no,
			usage_class=excluded.usage_class,
			previous_reading=excluded.previous_reading`,
		string(h.ID), string(h.VillageID), string(h.PanchayatID), h.OwnerName,
		h.WaterConnectionNo, string(h.UsageClass), h.PreviousMeterReading.Value.String(),
		h.CreatedAt.Format(time.RFC3339))
	return err
}

func (o ops) GetHouse(ctx context.Context, id billing.HouseID) (billing.House, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT id, village_id, panchayat_id, owner_name, water_connection_no, usage_class, previous_reading, created_at
		FROM houses WHERE id = ?`, string(id))
	return scanHouse(row)
}

func (o ops) HousesByVillage(ctx context.Context, id billing.VillageID) ([]billing.House, error) {
	return o.queryHouses(ctx, `WHERE village_id = ?`, string(id))
}

func (o ops) HousesByPanchayat(ctx context.Context, id billing.PanchayatID) ([]billing.House, error) {
	return o.queryHouses(ctx, `WHERE panchayat_id = ?`, string(id))
}

func (o ops) queryHouses(ctx context.Context, where string, args ...any) ([]billing.House, error) {
	rows, err := o.q.QueryContext(ctx, `
		SELECT id, village_id, panchayat_id, owner_name, water_connection_no, usage_class, previous_reading, created_at
		FROM houses `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.House
	for rows.Next() {
		h, err := scanHouse(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	return result, rows.Err()
}

// =============================================================================
// TARIFFS
// =============================================================================

func (o ops) SaveTariff(ctx context.Context, t billing.TariffSchedule) error {
	if err := t.Validate(); err != nil {
		return err
	}

	rates := make([]string, billing.DomesticSlabCount)
	for i, r := range t.Domestic {
		rates[i] = r.Value.String()
	}
	ratesJSON, err := json.Marshal(rates)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	effective := t.EffectiveFrom
	if effective.IsZero() {
		effective = now
	}

	_, err = o.q.ExecContext(ctx, `
		INSERT INTO tariffs (panchayat_id, domestic_rates_json, institutional, commercial, industrial, effective_from, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(panchayat_id) DO UPDATE SET
			domestic_rates_json=excluded.domestic_rates_json,
			institutional=excluded.institutional,
			commercial=excluded.commercial,
			industrial=excluded.industrial,
			effective_from=excluded.effective_from,
			updated_at=excluded.updated_at`,
		string(t.PanchayatID), string(ratesJSON),
		t.Institutional.Value.String(), t.Commercial.Value.String(), t.Industrial.Value.String(),
		effective.Format(time.RFC3339), now.Format(time.RFC3339))
	return err
}

func (o ops) TariffByPanchayat(ctx context.Context, id billing.PanchayatID) (billing.TariffSchedule, error) {
	row := o.q.QueryRowContext(ctx, `
		SELECT panchayat_id, domestic_rates_json, institutional, commercial, industrial, effective_from, updated_at
		FROM tariffs WHERE panchayat_id = ?`, string(id))

	var pid, ratesJSON, inst, comm, ind, effective, updated string
	if err := row.Scan(&pid, &ratesJSON, &inst, &comm, &ind, &effective, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.TariffSchedule{}, billing.ErrTariffNotFound
		}
		return billing.TariffSchedule{}, err
	}

	var rates []string
	if err := json.Unmarshal([]byte(ratesJSON), &rates); err != nil {
		return billing.TariffSchedule{}, fmt.Errorf("corrupt domestic rates for %s: %w", pid, err)
	}
	if len(rates) != billing.DomesticSlabCount {
		return billing.TariffSchedule{}, fmt.Errorf("corrupt domestic rates for %s: %d slabs", pid, len(rates))
	}

	t := billing.TariffSchedule{
		PanchayatID:   billing.PanchayatID(pid),
		Institutional: parseMoney(inst),
		Commercial:    parseMoney(comm),
		Industrial:    parseMoney(ind),
	}
	for i, r := range rates {
		t.Domestic[i] = parseMoney(r)
	}
	t.EffectiveFrom, _ = time.Parse(time.RFC3339, effective)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return t, nil
}

// =============================================================================
// BILLS
// =============================================================================

func (o ops) InsertBill(ctx context.Context, b billing.Bill) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO bills (id, house_id, period, previous_reading, current_reading, total_usage,
			current_demand, arrears, total_amount, paid_amount, remaining_amount, status, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(b.ID), string(b.HouseID), b.Period.String(),
		b.PreviousReading.Value.String(), b.CurrentReading.Value.String(), b.TotalUsage.Value.String(),
		b.CurrentDemand.Value.String(), b.Arrears.Value.String(), b.TotalAmount.Value.String(),
		b.PaidAmount.Value.String(), b.RemainingAmount.Value.String(),
		string(b.Status), b.GeneratedAt.UTC().Format(time.RFC3339))
	if err != nil {
		// Only the UNIQUE(house_id, period) index means "already billed".
		// Other constraint failures (foreign keys, primary key) surface as-is.
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			dup := &billing.DuplicateBillError{HouseID: b.HouseID, Period: b.Period}
			if existing, lookupErr := o.billIDForPeriod(ctx, b.HouseID, b.Period); lookupErr == nil {
				dup.ExistingID = existing
			}
			return dup
		}
		return err
	}
	return nil
}

func (o ops) billIDForPeriod(ctx context.Context, houseID billing.HouseID, period billing.BillingPeriod) (billing.BillID, error) {
	var id string
	err := o.q.QueryRowContext(ctx, `
		SELECT id FROM bills WHERE house_id = ? AND period = ?`,
		string(houseID), period.String()).Scan(&id)
	return billing.BillID(id), err
}

const billSelect = `
	SELECT id, house_id, period, previous_reading, current_reading, total_usage,
		current_demand, arrears, total_amount, paid_amount, remaining_amount, status, generated_at
	FROM bills`

func (o ops) GetBill(ctx context.Context, id billing.BillID) (billing.Bill, error) {
	row := o.q.QueryRowContext(ctx, billSelect+` WHERE id = ?`, string(id))
	b, err := scanBill(row)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Bill{}, billing.ErrBillNotFound
	}
	return b, err
}

func (o ops) BillsByHouse(ctx context.Context, id billing.HouseID) ([]billing.Bill, error) {
	return o.queryBills(ctx, `WHERE house_id = ? ORDER BY period`, string(id))
}

func (o ops) BillsByPanchayat(ctx context.Context, id billing.PanchayatID) ([]billing.Bill, error) {
	return o.queryBills(ctx, `
		WHERE house_id IN (SELECT id FROM houses WHERE panchayat_id = ?)
		ORDER BY house_id, period`, string(id))
}

func (o ops) OutstandingBillsByHouse(ctx context.Context, id billing.HouseID) ([]billing.Bill, error) {
	return o.queryBills(ctx, `
		WHERE house_id = ? AND status IN ('pending', 'partial')
		ORDER BY period`, string(id))
}

// UpdateBillPayment writes only the payment fields. Everything else on a
// bill row is immutable after insert.
func (o ops) UpdateBillPayment(ctx context.Context, b billing.Bill) error {
	res, err := o.q.ExecContext(ctx, `
		UPDATE bills SET paid_amount = ?, remaining_amount = ?, status = ?
		WHERE id = ?`,
		b.PaidAmount.Value.String(), b.RemainingAmount.Value.String(),
		string(b.Status), string(b.ID))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return billing.ErrBillNotFound
	}
	return nil
}

func (o ops) queryBills(ctx context.Context, tail string, args ...any) ([]billing.Bill, error) {
	rows, err := o.q.QueryContext(ctx, billSelect+" "+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// =============================================================================
// PAYMENTS (append-only)
// =============================================================================

func (o ops) AppendPayment(ctx context.Context, p billing.Payment) error {
	_, err := o.q.ExecContext(ctx, `
		INSERT INTO payments (id, bill_id, amount, mode, transaction_ref, collected_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(p.ID), string(p.BillID), p.Amount.Value.String(), string(p.Mode),
		nullable(p.TransactionRef), nullable(p.CollectedBy), p.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (o ops) PaymentsByBill(ctx context.Context, id billing.BillID) ([]billing.Payment, error) {
	rows, err := o.q.QueryContext(ctx, `
		SELECT id, bill_id, amount, mode, transaction_ref, collected_by, created_at
		FROM payments WHERE bill_id = ? ORDER BY created_at, id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []billing.Payment
	for rows.Next() {
		var (
			id, billID, amount, mode, created string
			ref, collectedBy                  sql.NullString
		)
		if err := rows.Scan(&id, &billID, &amount, &mode, &ref, &collectedBy, &created); err != nil {
			return nil, err
		}
		payment := billing.Payment{
			ID:             billing.PaymentID(id),
			BillID:         billing.BillID(billID),
			Amount:         parseMoney(amount),
			Mode:           billing.PaymentMode(mode),
			TransactionRef: ref.String,
			CollectedBy:    collectedBy.String,
		}
		payment.CreatedAt, _ = time.Parse(time.RFC3339, created)
		result = append(result, payment)
	}
	return result, rows.Err()
}

// =============================================================================
// ROW SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPanchayat(r rowScanner) (billing.GramPanchayat, error) {
	var (
		gp                billing.GramPanchayat
		id, name, created string
		district, state   sql.NullString
	)
	if err := r.Scan(&id, &name, &district, &state, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.GramPanchayat{}, billing.ErrPanchayatNotFound
		}
		return billing.GramPanchayat{}, err
	}
	gp.ID = billing.PanchayatID(id)
	gp.Name = name
	gp.District = district.String
	gp.State = state.String
	gp.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return gp, nil
}

func scanVillage(r rowScanner) (billing.Village, error) {
	var (
		v                      billing.Village
		id, pid, name, created string
	)
	if err := r.Scan(&id, &pid, &name, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.Village{}, billing.ErrVillageNotFound
		}
		return billing.Village{}, err
	}
	v.ID = billing.VillageID(id)
	v.PanchayatID = billing.PanchayatID(pid)
	v.Name = name
	v.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return v, nil
}

func scanHouse(r rowScanner) (billing.House, error) {
	var (
		h                                            billing.House
		id, vid, pid, owner, class, reading, created string
		connNo                                       sql.NullString
	)
	if err := r.Scan(&id, &vid, &pid, &owner, &connNo, &class, &reading, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.House{}, billing.ErrHouseNotFound
		}
		return billing.House{}, err
	}
	h.ID = billing.HouseID(id)
	h.VillageID = billing.VillageID(vid)
	h.PanchayatID = billing.PanchayatID(pid)
	h.OwnerName = owner
	h.WaterConnectionNo = connNo.String
	h.UsageClass = billing.UsageClass(class)
	h.PreviousMeterReading = parseVolume(reading)
	h.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return h, nil
}

func scanBill(r rowScanner) (billing.Bill, error) {
	var (
		b                                       billing.Bill
		id, houseID, period                     string
		prev, curr, usage                       string
		demand, arrears, total, paid, remaining string
		status, generated                       string
	)
	if err := r.Scan(&id, &houseID, &period, &prev, &curr, &usage,
		&demand, &arrears, &total, &paid, &remaining, &status, &generated); err != nil {
		return billing.Bill{}, err
	}
	b.ID = billing.BillID(id)
	b.HouseID = billing.HouseID(houseID)
	p, err := billing.ParsePeriod(period)
	if err != nil {
		return billing.Bill{}, fmt.Errorf("corrupt period on bill %s: %w", id, err)
	}
	b.Period = p
	b.PreviousReading = parseVolume(prev)
	b.CurrentReading = parseVolume(curr)
	b.TotalUsage = parseVolume(usage)
	b.CurrentDemand = parseMoney(demand)
	b.Arrears = parseMoney(arrears)
	b.TotalAmount = parseMoney(total)
	b.PaidAmount = parseMoney(paid)
	b.RemainingAmount = parseMoney(remaining)
	b.Status = billing.BillStatus(status)
	b.GeneratedAt, _ = time.Parse(time.RFC3339, generated)
	return b, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func parseMoney(s string) billing.Money {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return billing.ZeroMoney()
	}
	return billing.Money{Value: d}
}

func parseVolume(s string) billing.Volume {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return billing.ZeroVolume()
	}
	return billing.Volume{Value: d}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
