package sdk

import "fmt"

type callOutcome struct {
	value interface{}
	err   error
}

// dispatcher is the session mailbox: a buffered task queue drained by one
// goroutine. Session state is only ever mutated from that goroutine, so the
// operations themselves need no locking discipline even though UI bindings
// invoke them from arbitrary goroutines.
type dispatcher struct {
	tasks chan func()
}

func newDispatcher(queueSize int) *dispatcher {
	if queueSize <= 0 {
		queueSize = defaultDispatcherQueueSize
	}
	d := &dispatcher{tasks: make(chan func(), queueSize)}
	go d.run()
	return d
}

func (d *dispatcher) run() {
	for task := range d.tasks {
		if task != nil {
			task()
		}
	}
}

// do enqueues fire-and-forget work.
func (d *dispatcher) do(task func()) error {
	if d == nil {
		return fmt.Errorf("dispatcher not initialized")
	}
	if task == nil {
		return nil
	}
	d.tasks <- task
	return nil
}

// call enqueues an operation and blocks the caller until it has run,
// returning its result.
func (d *dispatcher) call(op func() (interface{}, error)) (interface{}, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher not initialized")
	}
	if op == nil {
		return nil, nil
	}
	done := make(chan callOutcome, 1)
	d.tasks <- func() {
		value, err := op()
		done <- callOutcome{value: value, err: err}
	}
	out := <-done
	return out.value, out.err
}
