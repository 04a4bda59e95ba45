package provisioning

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/career-atoms/internal/store"
)

// memoryLedger is an in-memory Ledger for tests.
type memoryLedger struct {
	mu      sync.Mutex
	records map[string]*Record
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{records: make(map[string]*Record)}
}

func (l *memoryLedger) Get(_ context.Context, principal string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[principal]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (l *memoryLedger) Begin(_ context.Context, principal, storeRef string) (*Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rec, ok := l.records[principal]; ok {
		cp := *rec
		return &cp, nil
	}
	now := time.Now()
	rec := &Record{PrincipalID: principal, StoreRef: storeRef, Status: StatusProvisioning, CreatedAt: now, UpdatedAt: now}
	l.records[principal] = rec
	cp := *rec
	return &cp, nil
}

func (l *memoryLedger) SetStatus(_ context.Context, principal string, status Status, message string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.records[principal]
	if !ok {
		return errors.New("no ledger entry")
	}
	rec.Status = status
	rec.Message = message
	rec.UpdatedAt = time.Now()
	return nil
}

// fakeProvider counts calls and can block or fail on demand.
type fakeProvider struct {
	mu        sync.Mutex
	created   map[string]int
	applied   map[string]int
	createErr error
	applyErr  error
	entered   chan string
	release   chan struct{}
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{created: map[string]int{}, applied: map[string]int{}}
}

func (p *fakeProvider) StoreRef(principal string) string { return "store_" + principal }

func (p *fakeProvider) CreateStore(_ context.Context, ref string) error {
	if p.entered != nil {
		p.entered <- ref
	}
	if p.release != nil {
		<-p.release
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created[ref]++
	return p.createErr
}

func (p *fakeProvider) ApplySchema(_ context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applied[ref]++
	return p.applyErr
}

func (p *fakeProvider) Open(_ context.Context, _ string) (store.Store, error) {
	return nil, errors.New("not supported in tests")
}

func (p *fakeProvider) createCount(ref string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created[ref]
}

func TestOrchestrator_ProvisionsOnce(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	provider := newFakeProvider()
	o := NewOrchestrator(ledger, provider, nil)

	status, err := o.Status(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusNone, status)

	rec, err := o.Ensure(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, rec.Status)
	assert.Equal(t, "store_alice", rec.StoreRef)

	// Re-entrant call while ready is a no-op.
	_, err = o.Ensure(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, provider.createCount("store_alice"))

	status, err = o.Status(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, status)
}

func TestOrchestrator_RequiresPrincipal(t *testing.T) {
	o := NewOrchestrator(newMemoryLedger(), newFakeProvider(), nil)

	_, err := o.Ensure(context.Background(), "")
	assert.ErrorIs(t, err, store.ErrAuthRequired)

	_, err = o.Status(context.Background(), "")
	assert.ErrorIs(t, err, store.ErrAuthRequired)
}

func TestOrchestrator_ConcurrentSamePrincipal(t *testing.T) {
	provider := newFakeProvider()
	provider.entered = make(chan string, 16)
	provider.release = make(chan struct{})
	o := NewOrchestrator(newMemoryLedger(), provider, nil)

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := o.Ensure(context.Background(), "bob")
			errs <- err
		}()
	}

	select {
	case <-provider.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("provisioning never started")
	}
	close(provider.release)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, 1, provider.createCount("store_bob"))
}

func TestOrchestrator_DifferentPrincipalsRunInParallel(t *testing.T) {
	provider := newFakeProvider()
	provider.entered = make(chan string, 2)
	provider.release = make(chan struct{})
	o := NewOrchestrator(newMemoryLedger(), provider, nil)

	var wg sync.WaitGroup
	for _, p := range []string{"carol", "dave"} {
		wg.Add(1)
		go func(principal string) {
			defer wg.Done()
			_, err := o.Ensure(context.Background(), principal)
			assert.NoError(t, err)
		}(p)
	}

	seen := map[string]bool{}
	for len(seen) < 2 {
		select {
		case ref := <-provider.entered:
			seen[ref] = true
		case <-time.After(2 * time.Second):
			t.Fatal("principals did not provision concurrently")
		}
	}
	close(provider.release)
	wg.Wait()

	assert.Equal(t, 1, provider.createCount("store_carol"))
	assert.Equal(t, 1, provider.createCount("store_dave"))
}

func TestOrchestrator_FailureMarksErrorAndRetries(t *testing.T) {
	ctx := context.Background()
	ledger := newMemoryLedger()
	provider := newFakeProvider()
	provider.applyErr = errors.New("schema boom")
	o := NewOrchestrator(ledger, provider, nil)

	_, err := o.Ensure(ctx, "erin")
	var perr *ProvisionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StepApplySchema, perr.Step)

	status, err := o.Status(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, StatusError, status)

	provider.mu.Lock()
	provider.applyErr = nil
	provider.mu.Unlock()

	rec, err := o.Ensure(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, rec.Status)
	assert.Equal(t, 2, provider.createCount("store_erin"))
}

func TestOrchestrator_OpenStoreWrapsOpenFailure(t *testing.T) {
	o := NewOrchestrator(newMemoryLedger(), newFakeProvider(), nil)

	_, err := o.OpenStore(context.Background(), "frank")
	var perr *ProvisionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, StepOpen, perr.Step)
}
