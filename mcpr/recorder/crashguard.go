package recorder

import (
	"os"
	"os/signal"
	"sync"
)

// crashGuard finishes a recording when the process is asked to terminate
// before the host stopped it. After the handler returns the signal is
// delivered again with the guard deregistered, so the process goes on to
// terminate as it would have without a guard.
type crashGuard struct {
	sigs    []os.Signal
	ch      chan os.Signal
	quit    chan struct{}
	once    sync.Once
	handler func(os.Signal)

	notify func(chan<- os.Signal, ...os.Signal)
	stop   func(chan<- os.Signal)
	raise  func(os.Signal)
}

func newCrashGuard(sigs []os.Signal, handler func(os.Signal)) *crashGuard {
	return &crashGuard{
		sigs:    sigs,
		ch:      make(chan os.Signal, 1),
		quit:    make(chan struct{}),
		handler: handler,
		notify:  signal.Notify,
		stop:    signal.Stop,
		raise:   raiseSignal,
	}
}

func (g *crashGuard) register() {
	g.notify(g.ch, g.sigs...)
	go g.watch()
}

func (g *crashGuard) watch() {
	select {
	case sig := <-g.ch:
		g.handler(sig)
		g.deregister()
		g.raise(sig)
	case <-g.quit:
	}
}

// deregister stops signal delivery. Safe to call more than once.
func (g *crashGuard) deregister() {
	g.once.Do(func() {
		g.stop(g.ch)
		close(g.quit)
	})
}

func raiseSignal(sig os.Signal) {
	p, err := os.FindProcess(os.Getpid())
	if err == nil {
		err = p.Signal(sig)
	}
	if err != nil {
		os.Exit(1)
	}
}
