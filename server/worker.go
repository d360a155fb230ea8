package server

import (
	"errors"
	"fmt"
)

var errWorkerStopped = errors.New("worker stopped")

// Workspace keeps, per open document, the most recent analysis that
// produced a universe, so hover and completion keep working while the
// document is broken. It is only touched from the worker goroutine.
type Workspace struct {
	lastGood map[string]*Analysis
}

func newWorkspace() *Workspace {
	return &Workspace{lastGood: make(map[string]*Analysis)}
}

// Update records an analysis for uri. Analyses without a universe leave
// the previous good one in place.
func (ws *Workspace) Update(uri string, a *Analysis) {
	if a.Universe != nil {
		ws.lastGood[uri] = a
	}
}

// Remove forgets uri.
func (ws *Workspace) Remove(uri string) {
	delete(ws.lastGood, uri)
}

// Good returns the latest analysis of uri that has a universe.
func (ws *Workspace) Good(uri string) *Analysis {
	return ws.lastGood[uri]
}

// workRequest represents a unit of work to be executed on the worker goroutine.
type workRequest struct {
	fn   func(*Workspace) any
	done chan workResult
}

// workResult holds the return value from a workspace operation.
type workResult struct {
	value any
	err   error
}

// Worker serializes all workspace access through a single goroutine.
// Document analyses run in order of arrival, so diagnostics for a later
// edit never get overwritten by an earlier one.
type Worker struct {
	ws       *Workspace
	requests chan workRequest
	quit     chan struct{}
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker() *Worker {
	w := &Worker{
		ws:       newWorkspace(),
		requests: make(chan workRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the workspace, recovering from panics.
func (w *Worker) execute(fn func(*Workspace) any) workResult {
	var result workResult
	func() {
		defer func() {
			if r := recover(); r != nil {
				result.err = fmt.Errorf("%v", r)
			}
		}()
		result.value = fn(w.ws)
	}()
	return result
}

// Do submits a function for execution on the worker goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*Workspace) any) (any, error) {
	select {
	case <-w.quit:
		return nil, errWorkerStopped
	default:
	}

	req := workRequest{
		fn:   fn,
		done: make(chan workResult, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stop shuts down the worker goroutine.
func (w *Worker) Stop() {
	select {
	case <-w.quit:
	default:
		close(w.quit)
	}
}
