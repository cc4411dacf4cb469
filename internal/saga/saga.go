// Package saga runs ordered multi-step workflows whose steps commit side
// effects independently. There is no cross-step transaction: when a step
// fails, the already-committed steps are unwound by running their
// compensations in reverse order.
package saga

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/theodoreromeos/account-management/internal/obs"
)

// Action performs one step's side effect. A returned error aborts the saga.
type Action func(ctx context.Context) error

// Compensation best-effort undoes a previously succeeded step. Errors are
// logged, never propagated: they must not mask the original step failure.
type Compensation func(ctx context.Context) error

type step struct {
	name       string
	action     Action
	compensate Compensation
}

// Orchestrator executes registered steps strictly in order and, on the first
// failure, compensations in strict reverse order. No retries, no parallelism.
type Orchestrator struct {
	workflow string
	log      *logrus.Logger
	steps    []step
}

// New creates an orchestrator for one workflow run. The workflow name only
// labels logs and metrics.
func New(workflow string, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{workflow: workflow, log: log}
}

// Step appends an action/compensation pair. A nil compensation marks the step
// as irreversible (nothing runs for it during unwind).
func (o *Orchestrator) Step(name string, action Action, compensate Compensation) *Orchestrator {
	o.steps = append(o.steps, step{name: name, action: action, compensate: compensate})
	return o
}

// Run executes the saga. On failure at step k it runs the compensations of
// steps k-1..1 in reverse order and returns the step error; the failed step's
// own compensation never runs since the step did not succeed. A nil return
// means every step succeeded and no compensation ran.
func (o *Orchestrator) Run(ctx context.Context) error {
	for i, st := range o.steps {
		if err := st.action(ctx); err != nil {
			obs.SagaStepsTotal.WithLabelValues(o.workflow, "failure").Inc()
			o.log.WithFields(logrus.Fields{
				"workflow": o.workflow,
				"step":     st.name,
			}).WithError(err).Warn("saga step failed, compensating")
			o.compensate(ctx, i-1)
			return fmt.Errorf("%s: step %s: %w", o.workflow, st.name, err)
		}
		obs.SagaStepsTotal.WithLabelValues(o.workflow, "success").Inc()
	}
	return nil
}

func (o *Orchestrator) compensate(ctx context.Context, from int) {
	for i := from; i >= 0; i-- {
		st := o.steps[i]
		if st.compensate == nil {
			continue
		}
		obs.SagaCompensationsTotal.WithLabelValues(o.workflow).Inc()
		if err := st.compensate(ctx); err != nil {
			o.log.WithFields(logrus.Fields{
				"workflow": o.workflow,
				"step":     st.name,
			}).WithError(err).Error("saga compensation failed")
		}
	}
}
