/*
store.go - Persistence interfaces for the billing engine

PURPOSE:
  Defines the contract between the engine and its storage. The engine itself
  performs no I/O; BillGenerator and PaymentLedger run entirely through these
  interfaces, so SQLite, PostgreSQL and in-memory stores are interchangeable.

WRITE DISCIPLINE:
  - Payments are APPEND-ONLY: no update, no delete. A bill's payment history
    is an immutable audit trail.
  - Bills are inserted once; afterwards only their payment fields
    (paid/remaining/status) may change, via UpdateBillPayment.
  - A house's stored meter reading advances only inside the same transaction
    that inserts the bill derived from it.

ATOMICITY:
  TxStore.WithTx gives the engine a transactional boundary. Within fn, every
  read observes the transaction's own writes; on error everything rolls back.
  Both engine use cases require it:
    - bill generation: insert bill + advance house reading
    - payment collection: re-read bill, update payment fields, append payment

IMPLEMENTATIONS:
  - store/sqlite: production store
  - billing/store: in-memory store for tests and dev

SEE ALSO:
  - ledger.go: The two use cases built on these interfaces
*/
package billing

import "context"

// =============================================================================
// STORE - Full persistence surface
// =============================================================================

// Store handles persistence for all billing entities.
type Store interface {
	// Gram Panchayats
	SavePanchayat(ctx context.Context, gp GramPanchayat) error
	GetPanchayat(ctx context.Context, id PanchayatID) (GramPanchayat, error)
	ListPanchayats(ctx context.Context) ([]GramPanchayat, error)

	// Villages
	SaveVillage(ctx context.Context, v Village) error
	GetVillage(ctx context.Context, id VillageID) (Village, error)
	VillagesByPanchayat(ctx context.Context, id PanchayatID) ([]Village, error)

	// Houses. SaveHouse both creates and updates; the reading advance during
	// bill generation goes through it inside WithTx.
	SaveHouse(ctx context.Context, h House) error
	GetHouse(ctx context.Context, id HouseID) (House, error)
	HousesByVillage(ctx context.Context, id VillageID) ([]House, error)
	HousesByPanchayat(ctx context.Context, id PanchayatID) ([]House, error)

	// Tariffs. One schedule per panchayat; SaveTariff upserts.
	SaveTariff(ctx context.Context, t TariffSchedule) error
	TariffByPanchayat(ctx context.Context, id PanchayatID) (TariffSchedule, error)

	// Bills. InsertBill fails with DuplicateBillError when the house already
	// has a bill for the period. UpdateBillPayment writes ONLY
	// paid/remaining/status; the rest of a bill is immutable.
	InsertBill(ctx context.Context, b Bill) error
	GetBill(ctx context.Context, id BillID) (Bill, error)
	BillsByHouse(ctx context.Context, id HouseID) ([]Bill, error)
	BillsByPanchayat(ctx context.Context, id PanchayatID) ([]Bill, error)
	OutstandingBillsByHouse(ctx context.Context, id HouseID) ([]Bill, error)
	UpdateBillPayment(ctx context.Context, b Bill) error

	// Payments (append-only).
	AppendPayment(ctx context.Context, p Payment) error
	PaymentsByBill(ctx context.Context, id BillID) ([]Payment, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn within a transaction: if fn returns an error the
// transaction rolls back, otherwise it commits. Implementations must also
// serialize concurrent WithTx calls touching the same bill, since the payment
// increment is a read-modify-write and is lost-update territory otherwise.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
