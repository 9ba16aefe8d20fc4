// Package scheduler runs periodic catalog maintenance. The only job today
// is the cover sweep: cover downloads are not transactional, so a write
// that rolls back after a successful download leaves a file no row points
// at. The sweeper reclaims those.
package scheduler

import (
	"log"

	"github.com/robfig/cron/v3"

	"github.com/LastNyx/JAVault/internal/covers"
)

// CoverLister is the slice of the video store the sweeper needs.
type CoverLister interface {
	AllLocalCovers() ([]string, error)
}

type Sweeper struct {
	videos CoverLister
	covers *covers.Store
	cron   *cron.Cron
}

func NewSweeper(videos CoverLister, coverStore *covers.Store) *Sweeper {
	return &Sweeper{videos: videos, covers: coverStore, cron: cron.New()}
}

func (s *Sweeper) Start(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.Sweep); err != nil {
		return err
	}
	s.cron.Start()
	log.Printf("[sweeper] started (schedule=%s)", schedule)
	return nil
}

func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	log.Println("[sweeper] stopped")
}

// Sweep removes cover files no video row references.
func (s *Sweeper) Sweep() {
	paths, err := s.videos.AllLocalCovers()
	if err != nil {
		log.Printf("[sweeper] list covers: %v", err)
		return
	}
	live := make(map[string]bool, len(paths))
	for _, p := range paths {
		live[p] = true
	}

	orphans, err := s.covers.Orphans(live)
	if err != nil {
		log.Printf("[sweeper] scan covers dir: %v", err)
		return
	}
	for _, name := range orphans {
		s.covers.Retire(name)
	}
	if len(orphans) > 0 {
		log.Printf("[sweeper] removed %d orphaned cover(s)", len(orphans))
	}
}
