package checkpoint

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/ambulance-tracker/internal/models"
)

// Checkpointer saves the most recent snapshot it has observed. Snapshots that
// arrive while a save is in flight are coalesced; only the latest is written.
type Checkpointer struct {
	store   Store
	key     string
	timeout time.Duration

	mu      sync.Mutex
	latest  *models.Snapshot
	savedAt uint64
	signal  chan struct{}
}

func NewCheckpointer(store Store, key string) *Checkpointer {
	return &Checkpointer{
		store:   store,
		key:     key,
		timeout: 5 * time.Second,
		signal:  make(chan struct{}, 1),
	}
}

// Observe records snap for the next save. It never blocks.
func (c *Checkpointer) Observe(snap models.Snapshot) {
	c.mu.Lock()
	c.latest = &snap
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Run writes pending snapshots until ctx is done, then flushes once more.
func (c *Checkpointer) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := c.Flush(context.Background()); err != nil {
				log.WithError(err).Warn("Final checkpoint failed")
			}
			return
		case <-c.signal:
			if err := c.Flush(ctx); err != nil {
				log.WithError(err).Warn("Checkpoint failed")
			}
		}
	}
}

// Flush saves the latest observed snapshot if it has not been saved yet.
func (c *Checkpointer) Flush(ctx context.Context) error {
	c.mu.Lock()
	snap := c.latest
	saved := c.savedAt
	c.mu.Unlock()
	if snap == nil || (saved != 0 && snap.Sequence <= saved) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Save(ctx, c.key, *snap); err != nil {
		return err
	}

	c.mu.Lock()
	if snap.Sequence > c.savedAt {
		c.savedAt = snap.Sequence
	}
	c.mu.Unlock()
	log.WithField("sequence", snap.Sequence).Debug("Fleet checkpoint saved")
	return nil
}

// Restore loads the saved snapshot. ok is false when there is none.
func (c *Checkpointer) Restore(ctx context.Context) (snap models.Snapshot, ok bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	snap, err = c.store.Load(ctx, c.key)
	if errors.Is(err, ErrNotFound) {
		return snap, false, nil
	}
	if err != nil {
		return snap, false, err
	}
	return snap, len(snap.Vehicles) > 0, nil
}
