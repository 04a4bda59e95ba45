package provisioning

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jonathan/career-atoms/internal/store"
)

// Orchestrator drives the none → provisioning → ready state machine. Calls for the
// same principal are serialized; different principals proceed independently.
type Orchestrator struct {
	ledger   Ledger
	provider Provider
	logger   *zap.Logger
	group    singleflight.Group
}

// NewOrchestrator creates an orchestrator over a ledger and a store provider.
func NewOrchestrator(ledger Ledger, provider Provider, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{ledger: ledger, provider: provider, logger: logger}
}

// Status returns the principal's provisioning status, StatusNone if never seen.
func (o *Orchestrator) Status(ctx context.Context, principal string) (Status, error) {
	if principal == "" {
		return "", store.ErrAuthRequired
	}
	rec, err := o.ledger.Get(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("failed to read provisioning ledger: %w", err)
	}
	if rec == nil {
		return StatusNone, nil
	}
	return rec.Status, nil
}

// Ensure provisions the principal's store unless it is already ready and returns the
// ledger record. Concurrent calls for one principal share a single attempt.
func (o *Orchestrator) Ensure(ctx context.Context, principal string) (*Record, error) {
	if principal == "" {
		return nil, store.ErrAuthRequired
	}

	// The shared attempt must outlive any single caller's context.
	detached := context.WithoutCancel(ctx)
	ch := o.group.DoChan(principal, func() (any, error) {
		return o.provision(detached, principal)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		rec := *res.Val.(*Record)
		return &rec, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// OpenStore ensures the principal is provisioned and opens its store.
func (o *Orchestrator) OpenStore(ctx context.Context, principal string) (store.Store, error) {
	rec, err := o.Ensure(ctx, principal)
	if err != nil {
		return nil, err
	}
	s, err := o.provider.Open(ctx, rec.StoreRef)
	if err != nil {
		return nil, &ProvisionError{Principal: principal, Step: StepOpen, Cause: err}
	}
	return s, nil
}

func (o *Orchestrator) provision(ctx context.Context, principal string) (*Record, error) {
	log := o.logger.With(zap.String("principal", principal))

	rec, err := o.ledger.Get(ctx, principal)
	if err != nil {
		return nil, &ProvisionError{Principal: principal, Step: StepLedger, Cause: err}
	}
	if rec != nil && rec.Status == StatusReady {
		return rec, nil
	}

	if rec == nil {
		rec, err = o.ledger.Begin(ctx, principal, o.provider.StoreRef(principal))
		if err != nil {
			return nil, &ProvisionError{Principal: principal, Step: StepLedger, Cause: err}
		}
		if rec.Status == StatusReady {
			// Another process finished between our read and insert.
			return rec, nil
		}
	}
	if rec.Status != StatusProvisioning {
		if err := o.ledger.SetStatus(ctx, principal, StatusProvisioning, ""); err != nil {
			return nil, &ProvisionError{Principal: principal, Step: StepLedger, Cause: err}
		}
	}

	log.Info("provisioning remote store", zap.String("store_ref", rec.StoreRef))

	if err := o.provider.CreateStore(ctx, rec.StoreRef); err != nil {
		return nil, o.fail(ctx, principal, StepCreateStore, err)
	}
	if err := o.provider.ApplySchema(ctx, rec.StoreRef); err != nil {
		return nil, o.fail(ctx, principal, StepApplySchema, err)
	}
	if err := o.ledger.SetStatus(ctx, principal, StatusReady, ""); err != nil {
		return nil, &ProvisionError{Principal: principal, Step: StepLedger, Cause: err}
	}

	log.Info("remote store ready", zap.String("store_ref", rec.StoreRef))

	ready, err := o.ledger.Get(ctx, principal)
	if err != nil || ready == nil {
		rec.Status = StatusReady
		rec.Message = ""
		return rec, nil
	}
	return ready, nil
}

// fail records the error state and wraps cause.
func (o *Orchestrator) fail(ctx context.Context, principal, step string, cause error) error {
	perr := &ProvisionError{Principal: principal, Step: step, Cause: cause}
	if err := o.ledger.SetStatus(ctx, principal, StatusError, perr.Error()); err != nil {
		o.logger.Error("failed to record provisioning error",
			zap.String("principal", principal), zap.Error(err))
	}
	o.logger.Error("provisioning failed", zap.String("principal", principal),
		zap.String("step", step), zap.Error(cause))
	return perr
}
