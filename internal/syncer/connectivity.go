package syncer

import "sync"

// Connectivity tracks whether the process believes it is online. The runtime
// (or a health probe) feeds transitions in; the scheduler and UI watch them.
type Connectivity struct {
	mu       sync.Mutex
	online   bool
	watchers map[int]chan bool
	nextID   int
}

// NewConnectivity starts in the given state.
func NewConnectivity(online bool) *Connectivity {
	return &Connectivity{online: online, watchers: map[int]chan bool{}}
}

func (c *Connectivity) IsOnline() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.online
}

// SetOnline records a state change. Watchers are only notified on actual
// transitions; repeated sets of the same state are silent.
func (c *Connectivity) SetOnline(online bool) {
	c.mu.Lock()
	if c.online == online {
		c.mu.Unlock()
		return
	}
	c.online = online
	for _, ch := range c.watchers {
		// Coalesce: drop the stale value if the watcher hasn't consumed it.
		select {
		case <-ch:
		default:
		}
		ch <- online
	}
	c.mu.Unlock()
}

// Watch returns a channel receiving transition states and an unsubscribe
// function. The channel is buffered and coalesces to the latest transition.
func (c *Connectivity) Watch() (<-chan bool, func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	ch := make(chan bool, 1)
	c.watchers[id] = ch
	c.mu.Unlock()

	return ch, func() {
		c.mu.Lock()
		delete(c.watchers, id)
		c.mu.Unlock()
	}
}
