package tally

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yaksetig/votex-sub001/log"
	"github.com/yaksetig/votex-sub001/storage"
	"github.com/yaksetig/votex-sub001/types"
)

// Finalizer moves elections whose voting period is over into the ended
// state. It never touches ciphertexts or results: the tally still requires
// the authority private key, which is held offline and supplied per run.
//
// Elections are picked up in two ways: pushed on the OndemandCh channel, or
// found by a periodic sweep over the stored elections.
type Finalizer struct {
	store      *storage.Storage
	OndemandCh chan types.HexBytes
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewFinalizer creates a Finalizer on the given storage. The ondemand
// channel is buffered so producers do not block on a busy finalizer.
func NewFinalizer(store *storage.Storage) *Finalizer {
	return &Finalizer{
		store:      store,
		OndemandCh: make(chan types.HexBytes, 10),
	}
}

// Start launches the finalizer goroutines: one serving the ondemand channel
// and, when monitorInterval is positive, one sweeping the stored elections
// on every tick.
func (f *Finalizer) Start(ctx context.Context, monitorInterval time.Duration) {
	f.ctx, f.cancel = context.WithCancel(ctx)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		for {
			select {
			case electionID := <-f.OndemandCh:
				if err := f.end(electionID); err != nil {
					log.Errorw(err, fmt.Sprintf("ending election %s", electionID.String()))
				}
			case <-f.ctx.Done():
				return
			}
		}
	}()

	if monitorInterval > 0 {
		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			ticker := time.NewTicker(monitorInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					f.endByDate(time.Now())
				case <-f.ctx.Done():
					return
				}
			}
		}()
	}

	log.Infow("finalizer started", "monitorInterval", monitorInterval.String())
}

// Close stops the finalizer, drains pending ondemand requests and waits for
// the goroutines to exit. Call it before closing the storage.
func (f *Finalizer) Close() {
	if f.cancel == nil {
		return
	}
	f.cancel()
	f.cancel = nil

	drained := make(chan struct{})
	go func() {
		for {
			select {
			case <-f.OndemandCh:
				// discard pending requests
			case <-time.After(100 * time.Millisecond):
				close(drained)
				return
			}
		}
	}()
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		log.Warnw("timeout while draining finalizer channel")
	}

	waitCh := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(waitCh)
	}()
	select {
	case <-waitCh:
		log.Infow("finalizer closed")
	case <-time.After(5 * time.Second):
		log.Warnw("some finalizer goroutines did not exit cleanly")
	}
}

// endByDate pushes every open election whose end date lies before the given
// date onto the ondemand channel.
func (f *Finalizer) endByDate(date time.Time) {
	ids, err := f.store.ListElections()
	if err != nil {
		log.Errorw(err, "could not list elections")
		return
	}
	for _, id := range ids {
		election, err := f.store.Election(id)
		if err != nil {
			log.Errorw(err, fmt.Sprintf("could not retrieve election %s", id.String()))
			continue
		}
		if election.Status == types.ElectionStatusOpen && election.EndDate.Before(date) {
			log.Debugw("found election to end by date", "electionId", id.String())
			f.OndemandCh <- id
		}
	}
}

// end moves one election past its voting period into the ended state.
// Elections already ended are left untouched; elections whose voting period
// is still running are not ended early.
func (f *Finalizer) end(electionID types.HexBytes) error {
	election, err := f.store.Election(electionID)
	if err != nil {
		return err
	}
	if election.Status != types.ElectionStatusOpen {
		return nil
	}
	if election.EndDate.After(time.Now()) {
		return fmt.Errorf("voting period of election %s is not over", electionID.String())
	}
	if err := f.store.UpdateElection(electionID,
		storage.ElectionUpdateCallbackStatus(types.ElectionStatusEnded)); err != nil {
		return fmt.Errorf("could not end election %s: %w", electionID.String(), err)
	}
	log.Infow("election ended", "electionId", electionID.String())
	return nil
}

// WaitUntilEnded blocks until the election leaves the open state. Without a
// deadline on the context a default timeout of one minute applies.
func (f *Finalizer) WaitUntilEnded(ctx context.Context, electionID types.HexBytes) error {
	waitCtx := ctx
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, time.Minute)
		defer cancel()
	}

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			election, err := f.store.Election(electionID)
			if err != nil {
				return fmt.Errorf("could not retrieve election %s: %w", electionID.String(), err)
			}
			if election.Status != types.ElectionStatusOpen {
				return nil
			}
		case <-waitCtx.Done():
			return fmt.Errorf("timeout waiting for election %s to end: %w",
				electionID.String(), waitCtx.Err())
		case <-f.ctx.Done():
			return fmt.Errorf("finalizer is shutting down")
		}
	}
}
