package services

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"github.com/vartik/vartikgpt/internal/models"
	"github.com/vartik/vartikgpt/internal/repositories"
	"gorm.io/datatypes"
)

const (
	OutcomeOK      = "ok"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
)

// auditor writes admin actions to the ledger. A ledger failure is logged and never fails the action.
type auditor struct {
	repo repositories.AuditRepository
	log  *logrus.Logger
}

func (a auditor) record(ctx context.Context, actor, action, target, outcome string, phases any, warnings []string) {
	if a.repo == nil {
		return
	}
	rec := &models.AuditRecord{
		Actor:    actor,
		Action:   action,
		Target:   target,
		Outcome:  outcome,
		Warnings: warnings,
	}
	if phases != nil {
		if b, err := json.Marshal(phases); err == nil {
			rec.Phases = datatypes.JSON(b)
		}
	}
	if err := a.repo.Record(context.WithoutCancel(ctx), rec); err != nil {
		a.log.WithFields(logrus.Fields{"action": action, "target": target}).WithError(err).Warn("audit record failed")
	}
}

// outcomeOf folds phase statuses: all fine is ok, all failed is failed, anything else partial.
func outcomeOf(phases ...models.PhaseStatus) string {
	failed := 0
	for _, p := range phases {
		if p == models.PhaseFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		return OutcomeOK
	case failed == len(phases):
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}
