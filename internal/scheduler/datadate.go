package scheduler

import (
	"time"

	"github.com/aristath/stratbacktest/internal/respcache"
)

// DataDateBumpJob drops every cached response older than the current
// dataset date, so the next request for a bot recomputes against fresh
// bars instead of serving a stale cached payload. This is the nightly job
// that bumps the dataset's date and invalidates the entries it outdates.
type DataDateBumpJob struct {
	cache  *respcache.Cache
	botIDs []string
	now    func() time.Time
}

// NewDataDateBumpJob builds a job that invalidates cache entries for every
// bot id in botIDs whose data_date is older than now().
func NewDataDateBumpJob(cache *respcache.Cache, botIDs []string, now func() time.Time) *DataDateBumpJob {
	return &DataDateBumpJob{cache: cache, botIDs: botIDs, now: now}
}

// Name identifies this job in scheduler logs.
func (j *DataDateBumpJob) Name() string { return "data_date_bump" }

// Run invalidates stale cache entries for every tracked bot.
func (j *DataDateBumpJob) Run() error {
	cutoff := j.now().UTC().Format("2006-01-02")
	for _, botID := range j.botIDs {
		if err := j.cache.Invalidate(botID, cutoff); err != nil {
			return err
		}
	}
	return nil
}
