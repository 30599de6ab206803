package match

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bankrec/internal/model"
)

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func txn(txID, checkNo, amount string, date civil.Date) model.Transaction {
	return model.Transaction{ID: txID, AccountID: 1010, CheckNo: checkNo, Amount: dec(amount), Date: date, Currency: "USD"}
}

func cand(candID, checkNo, amount string, date civil.Date) model.Candidate {
	return model.Candidate{ID: candID, AccountID: 1010, CheckNo: checkNo, Amount: dec(amount), Date: date}
}
