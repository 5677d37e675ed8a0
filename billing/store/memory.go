// Package store provides an in-memory billing.Store implementation
// for tests and development.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/jaldhara/billing-engine/billing"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements billing.TxStore entirely in memory.
//
// WithTx holds the write lock for the whole callback, which both simulates a
// transaction and serializes concurrent payment applications against the
// same bill, the same guarantee the SQLite store gets from its database
// transactions.
type Memory struct {
	mu sync.RWMutex

	panchayats map[billing.PanchayatID]billing.GramPanchayat
	villages   map[billing.VillageID]billing.Village
	houses     map[billing.HouseID]billing.House
	tariffs    map[billing.PanchayatID]billing.TariffSchedule
	bills      map[billing.BillID]billing.Bill
	billPeriod map[billPeriodKey]billing.BillID
	payments   map[billing.BillID][]billing.Payment
}

type billPeriodKey struct {
	HouseID billing.HouseID
	Period  string
}

func NewMemory() *Memory {
	return &Memory{
		panchayats: make(map[billing.PanchayatID]billing.GramPanchayat),
		villages:   make(map[billing.VillageID]billing.Village),
		houses:     make(map[billing.HouseID]billing.House),
		tariffs:    make(map[billing.PanchayatID]billing.TariffSchedule),
		bills:      make(map[billing.BillID]billing.Bill),
		billPeriod: make(map[billPeriodKey]billing.BillID),
		payments:   make(map[billing.BillID][]billing.Payment),
	}
}

var _ billing.TxStore = (*Memory)(nil)

// Reset drops all data. Used by demo scenario loading; not part of the
// Store contract.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panchayats = make(map[billing.PanchayatID]billing.GramPanchayat)
	m.villages = make(map[billing.VillageID]billing.Village)
	m.houses = make(map[billing.HouseID]billing.House)
	m.tariffs = make(map[billing.PanchayatID]billing.TariffSchedule)
	m.bills = make(map[billing.BillID]billing.Bill)
	m.billPeriod = make(map[billPeriodKey]billing.BillID)
	m.payments = make(map[billing.BillID][]billing.Payment)
	return nil
}

// =============================================================================
// GRAM PANCHAYATS
// =============================================================================

func (m *Memory) SavePanchayat(_ context.Context, gp billing.GramPanchayat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.panchayats[gp.ID] = gp
	return nil
}

func (m *Memory) GetPanchayat(_ context.Context, id billing.PanchayatID) (billing.GramPanchayat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	gp, ok := m.panchayats[id]
	if !ok {
		return billing.GramPanchayat{}, billing.ErrPanchayatNotFound
	}
	return gp, nil
}

func (m *Memory) ListPanchayats(_ context.Context) ([]billing.GramPanchayat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.GramPanchayat, 0, len(m.panchayats))
	for _, gp := range m.panchayats {
		result = append(result, gp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// VILLAGES
// =============================================================================

func (m *Memory) SaveVillage(_ context.Context, v billing.Village) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.villages[v.ID] = v
	return nil
}

func (m *Memory) GetVillage(_ context.Context, id billing.VillageID) (billing.Village, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.villages[id]
	if !ok {
		return billing.Village{}, billing.ErrVillageNotFound
	}
	return v, nil
}

func (m *Memory) VillagesByPanchayat(_ context.Context, id billing.PanchayatID) ([]billing.Village, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Village
	for _, v := range m.villages {
		if v.PanchayatID == id {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// HOUSES
// =============================================================================

func (m *Memory) SaveHouse(_ context.Context, h billing.House) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.houses[h.ID] = h
	return nil
}

func (m *Memory) GetHouse(_ context.Context, id billing.HouseID) (billing.House, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.houses[id]
	if !ok {
		return billing.House{}, billing.ErrHouseNotFound
	}
	return h, nil
}

func (m *Memory) HousesByVillage(_ context.Context, id billing.VillageID) ([]billing.House, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.House
	for _, h := range m.houses {
		if h.VillageID == id {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) HousesByPanchayat(_ context.Context, id billing.PanchayatID) ([]billing.House, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.House
	for _, h := range m.houses {
		if h.PanchayatID == id {
			result = append(result, h)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// TARIFFS
// =============================================================================

func (m *Memory) SaveTariff(_ context.Context, t billing.TariffSchedule) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tariffs[t.PanchayatID] = t
	return nil
}

func (m *Memory) TariffByPanchayat(_ context.Context, id billing.PanchayatID) (billing.TariffSchedule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tariffs[id]
	if !ok {
		return billing.TariffSchedule{}, billing.ErrTariffNotFound
	}
	return t, nil
}

// =============================================================================
// BILLS
// =============================================================================

func (m *Memory) InsertBill(_ context.Context, b billing.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertBillLocked(b)
}

func (m *Memory) insertBillLocked(b billing.Bill) error {
	k := billPeriodKey{HouseID: b.HouseID, Period: b.Period.String()}
	if existing, ok := m.billPeriod[k]; ok {
		return &billing.DuplicateBillError{HouseID: b.HouseID, Period: b.Period, ExistingID: existing}
	}
	m.bills[b.ID] = b
	m.billPeriod[k] = b.ID
	return nil
}

func (m *Memory) GetBill(_ context.Context, id billing.BillID) (billing.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bills[id]
	if !ok {
		return billing.Bill{}, billing.ErrBillNotFound
	}
	return b, nil
}

func (m *Memory) BillsByHouse(_ context.Context, id billing.HouseID) ([]billing.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.billsByHouseLocked(id), nil
}

func (m *Memory) billsByHouseLocked(id billing.HouseID) []billing.Bill {
	var result []billing.Bill
	for _, b := range m.bills {
		if b.HouseID == id {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Period.Before(result[j].Period) })
	return result
}

func (m *Memory) BillsByPanchayat(_ context.Context, id billing.PanchayatID) ([]billing.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Bill
	for _, b := range m.bills {
		if h, ok := m.houses[b.HouseID]; ok && h.PanchayatID == id {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].HouseID != result[j].HouseID {
			return result[i].HouseID < result[j].HouseID
		}
		return result[i].Period.Before(result[j].Period)
	})
	return result, nil
}

func (m *Memory) OutstandingBillsByHouse(_ context.Context, id billing.HouseID) ([]billing.Bill, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []billing.Bill
	for _, b := range m.billsByHouseLocked(id) {
		if b.Status.IsOutstanding() {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *Memory) UpdateBillPayment(_ context.Context, b billing.Bill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.bills[b.ID]
	if !ok {
		return billing.ErrBillNotFound
	}
	// Only payment fields move; everything else stays as inserted.
	existing.PaidAmount = b.PaidAmount
	existing.RemainingAmount = b.RemainingAmount
	existing.Status = b.Status
	m.bills[b.ID] = existing
	return nil
}

// =============================================================================
// PAYMENTS (append-only)
// =============================================================================

func (m *Memory) AppendPayment(_ context.Context, p billing.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.BillID] = append(m.payments[p.BillID], p)
	return nil
}

func (m *Memory) PaymentsByBill(_ context.Context, id billing.BillID) ([]billing.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.Payment, len(m.payments[id]))
	copy(result, m.payments[id])
	return result, nil
}

// =============================================================================
// TRANSACTIONS - snapshot + rollback under the write lock
// =============================================================================

// WithTx executes fn against an unlocked view while holding the write lock,
// restoring a snapshot if fn fails. Holding the lock across the callback is
// what serializes concurrent payment applications per bill.
func (m *Memory) WithTx(_ context.Context, fn func(billing.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	view := &txView{parent: m}
	if err := fn(view); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	panchayats map[billing.PanchayatID]billing.GramPanchayat
	villages   map[billing.VillageID]billing.Village
	houses     map[billing.HouseID]billing.House
	tariffs    map[billing.PanchayatID]billing.TariffSchedule
	bills      map[billing.BillID]billing.Bill
	billPeriod map[billPeriodKey]billing.BillID
	payments   map[billing.BillID][]billing.Payment
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		panchayats: make(map[billing.PanchayatID]billing.GramPanchayat, len(m.panchayats)),
		villages:   make(map[billing.VillageID]billing.Village, len(m.villages)),
		houses:     make(map[billing.HouseID]billing.House, len(m.houses)),
		tariffs:    make(map[billing.PanchayatID]billing.TariffSchedule, len(m.tariffs)),
		bills:      make(map[billing.BillID]billing.Bill, len(m.bills)),
		billPeriod: make(map[billPeriodKey]billing.BillID, len(m.billPeriod)),
		payments:   make(map[billing.BillID][]billing.Payment, len(m.payments)),
	}
	for k, v := range m.panchayats {
		s.panchayats[k] = v
	}
	for k, v := range m.villages {
		s.villages[k] = v
	}
	for k, v := range m.houses {
		s.houses[k] = v
	}
	for k, v := range m.tariffs {
		s.tariffs[k] = v
	}
	for k, v := range m.bills {
		s.bills[k] = v
	}
	for k, v := range m.billPeriod {
		s.billPeriod[k] = v
	}
	for k, v := range m.payments {
		s.payments[k] = append([]billing.Payment{}, v...)
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.panchayats = s.panchayats
	m.villages = s.villages
	m.houses = s.houses
	m.tariffs = s.tariffs
	m.bills = s.bills
	m.billPeriod = s.billPeriod
	m.payments = s.payments
}

// txView exposes the parent's maps without re-locking (the parent's write
// lock is already held for the duration of WithTx).
type txView struct {
	parent *Memory
}

var _ billing.Store = (*txView)(nil)

func (tv *txView) SavePanchayat(_ context.Context, gp billing.GramPanchayat) error {
	tv.parent.panchayats[gp.ID] = gp
	return nil
}

func (tv *txView) GetPanchayat(_ context.Context, id billing.PanchayatID) (billing.GramPanchayat, error) {
	gp, ok := tv.parent.panchayats[id]
	if !ok {
		return billing.GramPanchayat{}, billing.ErrPanchayatNotFound
	}
	return gp, nil
}

func (tv *txView) ListPanchayats(_ context.Context) ([]billing.GramPanchayat, error) {
	result := make([]billing.GramPanchayat, 0, len(tv.parent.panchayats))
	for _, gp := range tv.parent.panchayats {
		result = append(result, gp)
	}
	return result, nil
}

func (tv *txView) SaveVillage(_ context.Context, v billing.Village) error {
	tv.parent.villages[v.ID] = v
	return nil
}

func (tv *txView) GetVillage(_ context.Context, id billing.VillageID) (billing.Village, error) {
	v, ok := tv.parent.villages[id]
	if !ok {
		return billing.Village{}, billing.ErrVillageNotFound
	}
	return v, nil
}

func (tv *txView) VillagesByPanchayat(_ context.Context, id billing.PanchayatID) ([]billing.Village, error) {
	var result []billing.Village
	for _, v := range tv.parent.villages {
		if v.PanchayatID == id {
			result = append(result, v)
		}
	}
	return result, nil
}

func (tv *txView) SaveHouse(_ context.Context, h billing.House) error {
	tv.parent.houses[h.ID] = h
	return nil
}

func (tv *txView) GetHouse(_ context.Context, id billing.HouseID) (billing.House, error) {
	h, ok := tv.parent.houses[id]
	if !ok {
		return billing.House{}, billing.ErrHouseNotFound
	}
	return h, nil
}

func (tv *txView) HousesByVillage(_ context.Context, id billing.VillageID) ([]billing.House, error) {
	var result []billing.House
	for _, h := range tv.parent.houses {
		if h.VillageID == id {
			result = append(result, h)
		}
	}
	return result, nil
}

func (tv *txView) HousesByPanchayat(_ context.Context, id billing.PanchayatID) ([]billing.House, error) {
	var result []billing.House
	for _, h := range tv.parent.houses {
		if h.PanchayatID == id {
			result = append(result, h)
		}
	}
	return result, nil
}

func (tv *txView) SaveTariff(_ context.Context, t billing.TariffSchedule) error {
	if err := t.Validate(); err != nil {
		return err
	}
	tv.parent.tariffs[t.PanchayatID] = t
	return nil
}

func (tv *txView) TariffByPanchayat(_ context.Context, id billing.PanchayatID) (billing.TariffSchedule, error) {
	t, ok := tv.parent.tariffs[id]
	if !ok {
		return billing.TariffSchedule{}, billing.ErrTariffNotFound
	}
	return t, nil
}

func (tv *txView) InsertBill(_ context.Context, b billing.Bill) error {
	return tv.parent.insertBillLocked(b)
}

func (tv *txView) GetBill(_ context.Context, id billing.BillID) (billing.Bill, error) {
	b, ok := tv.parent.bills[id]
	if !ok {
		return billing.Bill{}, billing.ErrBillNotFound
	}
	return b, nil
}

func (tv *txView) BillsByHouse(_ context.Context, id billing.HouseID) ([]billing.Bill, error) {
	return tv.parent.billsByHouseLocked(id), nil
}

func (tv *txView) BillsByPanchayat(_ context.Context, id billing.PanchayatID) ([]billing.Bill, error) {
	var result []billing.Bill
	for _, b := range tv.parent.bills {
		if h, ok := tv.parent.houses[b.HouseID]; ok && h.PanchayatID == id {
			result = append(result, b)
		}
	}
	return result, nil
}

func (tv *txView) OutstandingBillsByHouse(_ context.Context, id billing.HouseID) ([]billing.Bill, error) {
	var result []billing.Bill
	for _, b := range tv.parent.billsByHouseLocked(id) {
		if b.Status.IsOutstanding() {
			result = append(result, b)
		}
	}
	return result, nil
}

func (tv *txView) UpdateBillPayment(_ context.Context, b billing.Bill) error {
	existing, ok := tv.parent.bills[b.ID]
	if !ok {
		return billing.ErrBillNotFound
	}
	existing.PaidAmount = b.PaidAmount
	existing.RemainingAmount = b.RemainingAmount
	existing.Status = b.Status
	tv.parent.bills[b.ID] = existing
	return nil
}

func (tv *txView) AppendPayment(_ context.Context, p billing.Payment) error {
	tv.parent.payments[p.BillID] = append(tv.parent.payments[p.BillID], p)
	return nil
}

func (tv *txView) PaymentsByBill(_ context.Context, id billing.BillID) ([]billing.Payment, error) {
	return tv.parent.payments[id], nil
}
