/*
report.go - Collection summaries derived from bills

PURPOSE:
  Read-model computations for the admin dashboards: how much was billed,
  how much came in, who still owes. Everything here is derived from bills
  on the fly and never persisted. The bills themselves are the source of
  truth, so there is no cached figure to drift out of sync.

SEE ALSO:
  - bill.go: The monetary fields these summaries fold over
*/
package billing

// CollectionSummary aggregates the monetary state of a set of bills.
type CollectionSummary struct {
	Bills        int
	PendingBills int
	PartialBills int
	PaidBills    int

	TotalBilled      Money // sum of TotalAmount
	TotalCollected   Money // sum of PaidAmount
	TotalOutstanding Money // sum of RemainingAmount
}

// Summarize folds a set of bills into a collection summary.
func Summarize(bills []Bill) CollectionSummary {
	s := CollectionSummary{
		TotalBilled:      ZeroMoney(),
		TotalCollected:   ZeroMoney(),
		TotalOutstanding: ZeroMoney(),
	}
	for _, b := range bills {
		s.Bills++
		switch b.Status {
		case StatusPending:
			s.PendingBills++
		case StatusPartial:
			s.PartialBills++
		case StatusPaid:
			s.PaidBills++
		}
		s.TotalBilled = s.TotalBilled.Add(b.TotalAmount)
		s.TotalCollected = s.TotalCollected.Add(b.PaidAmount)
		s.TotalOutstanding = s.TotalOutstanding.Add(b.RemainingAmount)
	}
	s.TotalBilled = RoundMoney(s.TotalBilled)
	s.TotalCollected = RoundMoney(s.TotalCollected)
	s.TotalOutstanding = RoundMoney(s.TotalOutstanding)
	return s
}

// Defaulter is a house with money outstanding across its bills.
type Defaulter struct {
	HouseID          HouseID
	OutstandingBills int
	Outstanding      Money
}

// Defaulters lists houses carrying outstanding bills, ordered by how much
// they owe (largest first). Houses fully paid up are omitted.
func Defaulters(bills []Bill) []Defaulter {
	byHouse := make(map[HouseID]*Defaulter)
	var order []HouseID

	for _, b := range bills {
		if !b.Status.IsOutstanding() {
			continue
		}
		d, ok := byHouse[b.HouseID]
		if !ok {
			d = &Defaulter{HouseID: b.HouseID, Outstanding: ZeroMoney()}
			byHouse[b.HouseID] = d
			order = append(order, b.HouseID)
		}
		d.OutstandingBills++
		d.Outstanding = d.Outstanding.Add(b.RemainingAmount)
	}

	result := make([]Defaulter, 0, len(order))
	for _, id := range order {
		d := byHouse[id]
		d.Outstanding = RoundMoney(d.Outstanding)
		result = append(result, *d)
	}

	// Insertion sort by outstanding desc; defaulter lists are small.
	for i := 1; i < len(result); i++ {
		for j := i; j > 0 && result[j].Outstanding.GreaterThan(result[j-1].Outstanding); j-- {
			result[j], result[j-1] = result[j-1], result[j]
		}
	}
	return result
}
