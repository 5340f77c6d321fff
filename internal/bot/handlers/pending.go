package handlers

import "sync"

// Pending tracks question goroutines so shutdown can wait for answers in flight.
type Pending struct {
	wg sync.WaitGroup
}

// Go runs f in a new tracked goroutine.
func (p *Pending) Go(f func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		f()
	}()
}

// Wait blocks until every goroutine started with Go has returned.
func (p *Pending) Wait() {
	p.wg.Wait()
}
