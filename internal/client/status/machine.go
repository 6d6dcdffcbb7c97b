// Package status tracks the synchronization status of root entities.
//
//	create_local  NEW            -> DIRTY
//	edit_local    NEW|DIRTY|SYNC -> DIRTY
//	save_remote   NEW|SYNC       -> SYNC   (never for a local id)
//	synchronized  DIRTY          -> SYNC
//
// NEW is the empty status of an entity that was never saved. There is no
// conflict state: the last writer wins at root level.
package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/dmitrijs2005/fieldsync/internal/models"
)

const (
	EventCreateLocal  = "create_local"
	EventEditLocal    = "edit_local"
	EventSaveRemote   = "save_remote"
	EventSynchronized = "synchronized"
)

const stateNew = "NEW"

var ErrInvalidTransition = errors.New("invalid status transition")

type Machine struct {
	events fsm.Events
}

func NewMachine() *Machine {
	dirty, sync := string(models.StatusDirty), string(models.StatusSync)
	return &Machine{events: fsm.Events{
		{Name: EventCreateLocal, Src: []string{stateNew}, Dst: dirty},
		{Name: EventEditLocal, Src: []string{stateNew, dirty, sync}, Dst: dirty},
		{Name: EventSaveRemote, Src: []string{stateNew, sync}, Dst: sync},
		{Name: EventSynchronized, Src: []string{dirty}, Dst: sync},
	}}
}

func stateOf(c *models.Calendar) string {
	if c.SynchronizationStatus == "" {
		return stateNew
	}
	return string(c.SynchronizationStatus)
}

// Can reports whether event is allowed for c in its current status.
func (m *Machine) Can(c *models.Calendar, event string) bool {
	if event == EventSaveRemote && c.IsLocal() {
		return false
	}
	return fsm.NewFSM(stateOf(c), m.events, nil).Can(event)
}

// Apply fires event on c and writes the resulting status onto it. A
// transition to the current state is accepted as a no-op.
func (m *Machine) Apply(ctx context.Context, c *models.Calendar, event string) error {
	from := stateOf(c)
	if event == EventSaveRemote && c.IsLocal() {
		return fmt.Errorf("%w: %s on local id %d", ErrInvalidTransition, event, c.ID)
	}

	f := fsm.NewFSM(from, m.events, nil)
	if err := f.Event(ctx, event); err != nil {
		var same fsm.NoTransitionError
		if !errors.As(err, &same) {
			return fmt.Errorf("%w: %s from %s: %v", ErrInvalidTransition, event, from, err)
		}
	}

	c.SynchronizationStatus = models.SyncStatus(f.Current())
	return nil
}
