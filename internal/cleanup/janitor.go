package cleanup

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// OrphanPurger is satisfied by the membership repository.
type OrphanPurger interface {
	PurgeOrphans(ctx context.Context) (int64, error)
}

// Janitor periodically sweeps membership rows left behind by user and
// project deletes, which do not cascade.
type Janitor struct {
	purger OrphanPurger
	cron   *cron.Cron
}

func NewJanitor(purger OrphanPurger) *Janitor {
	return &Janitor{purger: purger}
}

// Start schedules the sweep with the given cron spec (seconds field
// included, e.g. "0 0 3 * * *" for 3AM nightly) and begins running it.
func (j *Janitor) Start(spec string) error {
	c := cron.New(cron.WithSeconds())

	if _, err := c.AddFunc(spec, j.sweep); err != nil {
		return err
	}

	j.cron = c
	c.Start()
	log.Printf("[info] operation=janitor.Start spec=%q", spec)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (j *Janitor) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := j.purger.PurgeOrphans(ctx); err != nil {
		log.Printf("[error] operation=janitor.sweep error=%v", err)
	}
}
