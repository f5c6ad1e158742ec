package main

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jasonlvhit/gocron"
)

// exportJanitor periodically removes export files nobody will reuse
type exportJanitor struct {
	cache     *exportCache
	interval  time.Duration
	age       time.Duration
	scheduler *gocron.Scheduler
	stop      chan bool
}

func newExportJanitor(cache *exportCache, interval, age time.Duration) *exportJanitor {
	return &exportJanitor{
		cache:    cache,
		interval: interval,
		age:      age,
	}
}

func (j *exportJanitor) start() {
	minutes := uint64(j.interval / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	j.scheduler = gocron.NewScheduler()
	j.scheduler.Every(minutes).Minutes().Do(j.sweep)

	j.cache.logger.Infof("[CACHE] export janitor scheduled every %d minute(s), max age %s", minutes, j.age)

	j.stop = j.scheduler.Start()
}

func (j *exportJanitor) shutdown() {
	if j.scheduler == nil {
		return
	}

	j.scheduler.Clear()
	close(j.stop)
}

func (j *exportJanitor) sweep() {
	removed, err := j.cache.removeOlderThan(j.age)
	if err != nil {
		j.cache.logger.Warnf("[CACHE] export sweep error: %s", err.Error())
	}

	j.cache.logger.Infof("[CACHE] export sweep removed %d file(s)", removed)
}

// removeOlderThan deletes cached exports (and abandoned temp files) last
// modified more than age ago
func (e *exportCache) removeOlderThan(age time.Duration) (int, error) {
	cutoff := e.now().Add(-age)
	removed := 0

	err := filepath.WalkDir(e.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}

		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if strings.HasSuffix(name, exportFileSuffix) == false && strings.HasPrefix(name, exportTempFilePref) == false {
			return nil
		}

		info, err := d.Info()
		if err != nil || info.ModTime().After(cutoff) {
			return nil
		}

		if err := os.Remove(path); err != nil && os.IsNotExist(err) == false {
			e.logger.Warnf("[CACHE] unable to remove %s: %s", path, err.Error())
			return nil
		}

		removed++
		exportJanitorRemoved.Inc()

		return nil
	})

	return removed, err
}

// purge removes every cached export regardless of age
func (e *exportCache) purge() (int, error) {
	return e.removeOlderThan(-time.Hour)
}
