package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"power_schedule/internal/logger"
	"power_schedule/internal/matrix"
	"power_schedule/internal/metrics"
	"power_schedule/internal/models"
	"power_schedule/internal/repository"
)

// PowerMonitor evaluates every schedule on a fixed tick and records power
// transitions in the audit log.
type PowerMonitor struct {
	schedules repository.ScheduleRepo
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	timezones *TimeZoneService
	metrics   *metrics.Metrics
	log       *logger.Logger // may be nil

	// last known power per schedule id; nil until the first tick
	last map[int]bool
}

func NewPowerMonitor(schedules repository.ScheduleRepo, stateRepo repository.StateRepo,
	eventRepo repository.EventRepo, tz *TimeZoneService, m *metrics.Metrics, log *logger.Logger) *PowerMonitor {
	return &PowerMonitor{
		schedules: schedules,
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		timezones: tz,
		metrics:   m,
		log:       log,
	}
}

// Run ticks at the given interval until ctx is canceled.
func (s *PowerMonitor) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			// a failed tick is retried on the next one
			if err := s.tick(ctx, now); err != nil && ctx.Err() == nil && s.log != nil {
				s.log.Errorw("monitor_tick_failed", "err", err, "at", now.UTC())
			}
		}
	}
}

func (s *PowerMonitor) tick(ctx context.Context, now time.Time) error {
	if s.last == nil {
		saved, err := s.stateRepo.LoadAll(ctx)
		if err != nil {
			return err
		}
		s.last = make(map[int]bool, len(saved))
		for id, st := range saved {
			s.last[id] = st.On
		}
	}

	list, err := s.schedules.List(ctx, true)
	if err != nil {
		return err
	}

	var errs []error
	seen := make(map[int]struct{}, len(list))
	for _, sched := range list {
		seen[sched.ID] = struct{}{}
		if err := s.observe(ctx, sched, now); err != nil {
			errs = append(errs, fmt.Errorf("schedule %d: %w", sched.ID, err))
		}
	}
	for id := range s.last {
		if _, ok := seen[id]; !ok {
			delete(s.last, id)
			s.metrics.ForgetSchedule(id)
		}
	}
	return errors.Join(errs...)
}

// observe records the current power of sched. The first observation of a
// schedule is stored without an event.
func (s *PowerMonitor) observe(ctx context.Context, sched models.Schedule, now time.Time) error {
	m, err := matrix.Deserialize(sched.Matrix)
	if err != nil {
		return err
	}
	loc, err := s.timezones.Location(ctx, sched.TimeZone)
	if err != nil {
		return err
	}

	st := evaluate(sched.ID, m, now, loc)
	s.metrics.SetPowered(sched.ID, st.On)

	prev, known := s.last[sched.ID]
	if known && prev == st.On {
		return nil
	}

	if err := s.stateRepo.Save(ctx, models.PowerState{
		ScheduleID: sched.ID,
		On:         st.On,
		Day:        st.Day,
		Slot:       st.Slot,
		UpdatedAt:  now.UTC(),
	}); err != nil {
		return err
	}
	s.last[sched.ID] = st.On
	if !known {
		return nil
	}

	typ, msg := models.EventPowerOff, "Power switched off"
	if st.On {
		typ, msg = models.EventPowerOn, "Power switched on"
	}
	return s.eventRepo.Append(ctx, models.ScheduleEvent{
		OccurredAt:  now.UTC(),
		Type:        typ,
		ScheduleID:  sched.ID,
		Description: msg,
		Metadata: map[string]any{
			"name":  sched.Name,
			"day":   st.Day,
			"slot":  st.Slot,
			"label": st.Label,
		},
	})
}
