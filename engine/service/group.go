// Package service runs the long-lived parts of the rank engine side by side.
package service

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/xerrors"
)

// Service describes a service hosted by the rank engine.
type Service interface {
	// Name returns the service name.
	Name() string

	// Run executes the service and blocks until the context gets cancelled
	// or an error occurs.
	Run(ctx context.Context) error
}

// Group is a list of Service instances that can execute in parallel.
type Group []Service

// Run executes every service in the group with a shared context and blocks
// until all of them have returned. A failing service cancels the context
// seen by the others. The returned error aggregates every reported failure.
func (g Group) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancelFn := context.WithCancel(ctx)
	defer cancelFn()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	wg.Add(len(g))
	for _, s := range g {
		go func(s Service) {
			defer wg.Done()
			if err := s.Run(runCtx); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, xerrors.Errorf("%s: %w", s.Name(), err))
				mu.Unlock()
				cancelFn()
			}
		}(s)
	}

	wg.Wait()
	return errs
}
