package economy

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/sahaproshurik/bazarcikpmbot/internal/features/tax"
	"github.com/sahaproshurik/bazarcikpmbot/internal/metrics"
)

// WealthReport — итог ежедневного налога на наличные.
type WealthReport struct {
	Accounts  int
	Collected int64
	Failed    int
}

// WealthTaxTick списывает с каждого аккаунта налог на наличные
// (tax.Wealth). Банк не облагается, баланс не уходит в минус.
func (s *Service) WealthTaxTick(ctx context.Context) (WealthReport, error) {
	var rep WealthReport
	failed, err := s.Sweep(ctx, func(tx *Tx, userID int64) error {
		due := tax.Wealth(tx.Account(userID).Cash)
		if due <= 0 {
			return nil
		}
		rep.Collected += tx.DebitUpTo(userID, due, TxWealthTax, "налог на наличные")
		rep.Accounts++
		return nil
	})
	rep.Failed = len(failed)
	if err != nil {
		return WealthReport{Failed: rep.Failed}, err
	}
	metrics.TaxCollected.WithLabelValues("wealth").Add(float64(rep.Collected))
	log.WithFields(log.Fields{
		"tick":      "wealth_tax",
		"accounts":  rep.Accounts,
		"collected": rep.Collected,
	}).Info("Налог на наличные списан")
	return rep, nil
}
