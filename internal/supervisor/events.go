package supervisor

import "sync"

// notifier is the supervisor's subscription registry. Handlers are
// dispatched synchronously on the goroutine that raises the event, so
// subscribers observe lifecycle transitions in the order they happen.
type notifier struct {
	mu sync.Mutex

	nextID     int
	starting   map[int]func()
	restarted  map[int]func()
	message    map[int]func(line string)
	stopped    map[int]func(status ExitStatus)
	startError map[int]func(err error)
}

func newNotifier() *notifier {
	return &notifier{
		starting:   make(map[int]func()),
		restarted:  make(map[int]func()),
		message:    make(map[int]func(string)),
		stopped:    make(map[int]func(ExitStatus)),
		startError: make(map[int]func(error)),
	}
}

// Subscription identifies a registered handler and can cancel it.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the handler. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s != nil && s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// OnStarting registers a handler invoked before each process launch,
// including implicit restarts. This is the pre-start hook: it runs
// before the binary is executed.
func (n *notifier) OnStarting(fn func()) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.starting[id] = fn
	return &Subscription{cancel: func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.starting, id)
	}}
}

// OnRestarted registers a handler invoked when the supervisor relaunches
// syncthing after a restart-flavoured exit.
func (n *notifier) OnRestarted(fn func()) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.restarted[id] = fn
	return &Subscription{cancel: func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.restarted, id)
	}}
}

// OnMessage registers a handler for each filtered output line.
func (n *notifier) OnMessage(fn func(line string)) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.message[id] = fn
	return &Subscription{cancel: func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.message, id)
	}}
}

// OnStopped registers a handler invoked when the process exits without
// an implicit restart, carrying the interpreted exit status.
func (n *notifier) OnStopped(fn func(status ExitStatus)) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.stopped[id] = fn
	return &Subscription{cancel: func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.stopped, id)
	}}
}

// OnStartError registers a handler invoked when a launch attempt fails.
func (n *notifier) OnStartError(fn func(err error)) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	id := n.nextID
	n.nextID++
	n.startError[id] = fn
	return &Subscription{cancel: func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.startError, id)
	}}
}

func (n *notifier) emitStarting() {
	for _, fn := range n.snapshotStarting() {
		fn()
	}
}

func (n *notifier) emitRestarted() {
	n.mu.Lock()
	handlers := make([]func(), 0, len(n.restarted))
	for _, fn := range n.restarted {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()
	for _, fn := range handlers {
		fn()
	}
}

func (n *notifier) emitMessage(line string) {
	n.mu.Lock()
	handlers := make([]func(string), 0, len(n.message))
	for _, fn := range n.message {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()
	for _, fn := range handlers {
		fn(line)
	}
}

func (n *notifier) emitStopped(status ExitStatus) {
	n.mu.Lock()
	handlers := make([]func(ExitStatus), 0, len(n.stopped))
	for _, fn := range n.stopped {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()
	for _, fn := range handlers {
		fn(status)
	}
}

func (n *notifier) emitStartError(err error) {
	n.mu.Lock()
	handlers := make([]func(error), 0, len(n.startError))
	for _, fn := range n.startError {
		handlers = append(handlers, fn)
	}
	n.mu.Unlock()
	for _, fn := range handlers {
		fn(err)
	}
}

// snapshotStarting copies handlers out so dispatch happens without the
// registry lock held; a handler may subscribe or unsubscribe freely.
func (n *notifier) snapshotStarting() []func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	handlers := make([]func(), 0, len(n.starting))
	for _, fn := range n.starting {
		handlers = append(handlers, fn)
	}
	return handlers
}
