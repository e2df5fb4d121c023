package access

import (
	"context"
	"fmt"
	"sync"
)

// StaticDirectory is an in-memory Directory for tests and local runs.
type StaticDirectory struct {
	mu     sync.RWMutex
	actors map[int64]Actor
}

func NewStaticDirectory(actors ...Actor) *StaticDirectory {
	d := &StaticDirectory{actors: make(map[int64]Actor)}
	for _, a := range actors {
		d.actors[a.ID] = a
	}
	return d
}

func (d *StaticDirectory) Put(a Actor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.actors[a.ID] = a
}

func (d *StaticDirectory) Actor(_ context.Context, id int64) (Actor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.actors[id]
	if !ok {
		return Actor{}, fmt.Errorf("%w: %d", ErrUnknownActor, id)
	}
	return a, nil
}
