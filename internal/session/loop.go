package session

import "sync"

// Loop runs posted functions one at a time on its own goroutine.
type Loop struct {
	ch   chan func()
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewLoop() *Loop {
	l := &Loop{ch: make(chan func(), 64), done: make(chan struct{})}
	l.wg.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.wg.Done()
	for {
		select {
		case fn := <-l.ch:
			fn()
		case <-l.done:
			// drain what was queued before Close
			for {
				select {
				case fn := <-l.ch:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Post queues fn. It returns false once the loop is closed.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.ch <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Close stops the loop after queued functions have run.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.done) })
	l.wg.Wait()
}
