/*
arrears.go - Outstanding-amount aggregation

PURPOSE:
  When a new bill is generated, the house's unpaid history is folded into it
  as a single Arrears figure: the sum of RemainingAmount over every bill
  still pending or partial at that instant.

SNAPSHOT SEMANTICS:
  Arrears is frozen into the new bill at creation time. It is NOT a live
  reference: paying off an old bill later does not retroactively shrink a
  newer bill's arrears. Each generation recomputes from the bills
  outstanding at that moment, so the next bill reflects the payment.
  (This mirrors how collection ledgers are kept in the field: a printed
  bill's figures never change after it is handed over.)

SEE ALSO:
  - bill.go: The Arrears field this feeds
  - ledger.go: BillGenerator, which queries outstanding bills in-transaction
*/
package billing

// ComputeArrears sums a house's outstanding remainders. The pure form takes
// the already-fetched list so it stays decoupled from storage; returns 0
// for an empty list. Result is rounded to 2 decimal places.
func ComputeArrears(outstandingRemainders []Money) Money {
	total := ZeroMoney()
	for _, r := range outstandingRemainders {
		total = total.Add(r)
	}
	return RoundMoney(total)
}

// OutstandingRemainders extracts the remainders of bills still contributing
// to arrears (status pending or partial).
func OutstandingRemainders(bills []Bill) []Money {
	var remainders []Money
	for _, b := range bills {
		if b.Status.IsOutstanding() {
			remainders = append(remainders, b.RemainingAmount)
		}
	}
	return remainders
}
