package controller

import "sync"

// Mailbox is a FIFO of tasks posted from any goroutine and run by whoever
// drains it. The controller drains its mailbox on its own goroutine, so
// tasks never run concurrently with each other.
type Mailbox struct {
	mu     sync.Mutex
	tasks  []func()
	ready  chan struct{}
	closed bool
}

// NewMailbox creates an empty mailbox.
func NewMailbox() *Mailbox {
	return &Mailbox{ready: make(chan struct{}, 1)}
}

// Post queues task. It returns false once the mailbox is closed.
func (m *Mailbox) Post(task func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.tasks = append(m.tasks, task)
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return true
}

// Ready is signalled after a Post. One signal may cover several tasks.
func (m *Mailbox) Ready() <-chan struct{} {
	return m.ready
}

// Drain runs every queued task in order, including tasks posted by the
// tasks themselves, and returns how many ran.
func (m *Mailbox) Drain() int {
	ran := 0
	for {
		m.mu.Lock()
		tasks := m.tasks
		m.tasks = nil
		m.mu.Unlock()

		if len(tasks) == 0 {
			return ran
		}
		for _, task := range tasks {
			task()
			ran++
		}
	}
}

// Len returns the number of queued tasks.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Close rejects further posts. Queued tasks are dropped.
func (m *Mailbox) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.tasks = nil
}
