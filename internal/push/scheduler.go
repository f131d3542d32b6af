package push

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ebenavides/ekklesia/internal/model"
	"github.com/ebenavides/ekklesia/internal/store"
	"github.com/ebenavides/ekklesia/internal/tenant"
)

// Scheduler periodically checks for notifications to send.
type Scheduler struct {
	mu        sync.RWMutex
	service   *Service
	push      *store.PushStore
	events    *store.EventStore
	schedules *store.ScheduleStore
	interval  time.Duration
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewScheduler creates a notification scheduler.
func NewScheduler(svc *Service, pushStore *store.PushStore, eventStore *store.EventStore, scheduleStore *store.ScheduleStore) *Scheduler {
	return &Scheduler{
		service:   svc,
		push:      pushStore,
		events:    eventStore,
		schedules: scheduleStore,
		interval:  60 * time.Second,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Scheduler) tick() {
	s.checkEventReminders()
	s.checkServicesToday()
}

// checkEventReminders sends a reminder for each event whose reminder lead
// time falls inside the current tick window, at most once per event.
func (s *Scheduler) checkEventReminders() {
	now := time.Now().UTC()
	windowEnd := now.Add(60 * time.Second)

	events, err := s.events.ListUpcomingWithReminders(now, windowEnd)
	if err != nil {
		log.Printf("push scheduler: event reminders: %v", err)
		return
	}

	for _, event := range events {
		if event.ReminderMinutes == nil {
			continue
		}
		leadTime := *event.ReminderMinutes
		refID := fmt.Sprintf("event-%d", event.ID)

		sent, err := s.push.WasSent(event.ChurchID, model.NotifTypeEventReminder, refID, leadTime)
		if err != nil {
			log.Printf("push scheduler: check sent: %v", err)
			continue
		}
		if sent {
			continue
		}

		s.broadcast(event.ChurchID, model.NotifTypeEventReminder, EventReminderPayload(event.ID, event.Title, leadTime))
		s.push.RecordSent(event.ChurchID, model.NotifTypeEventReminder, refID, leadTime)
	}
}

// checkServicesToday sends one morning digest per church on days that have
// a recurring service scheduled.
func (s *Scheduler) checkServicesToday() {
	now := time.Now().UTC()

	// Runs once, in the 8:00 UTC tick.
	if now.Hour() != 8 || now.Minute() != 0 {
		return
	}

	churchIDs, err := s.push.ListChurchIDs()
	if err != nil {
		log.Printf("push scheduler: list churches: %v", err)
		return
	}

	for _, churchID := range churchIDs {
		refID := fmt.Sprintf("services-%s", now.Format("2006-01-02"))
		sent, err := s.push.WasSent(churchID, model.NotifTypeServiceToday, refID, 0)
		if err != nil || sent {
			continue
		}

		schedules, err := s.schedules.List(tenant.ForChurch(churchID), true)
		if err != nil {
			log.Printf("push scheduler: list schedules: %v", err)
			continue
		}

		var today []model.ServiceSchedule
		for _, sched := range schedules {
			if sched.Weekday == int(now.Weekday()) {
				today = append(today, sched)
			}
		}
		if len(today) == 0 {
			continue
		}

		s.broadcast(churchID, model.NotifTypeServiceToday, ServicesTodayPayload(today))
		s.push.RecordSent(churchID, model.NotifTypeServiceToday, refID, 0)
	}
}

// broadcast delivers a payload to every subscribed device in the church
// whose owner has the notification type enabled. Expired subscriptions are
// pruned as they surface.
func (s *Scheduler) broadcast(churchID int64, notifType string, payload Payload) {
	subs, err := s.push.ListByChurch(churchID)
	if err != nil {
		log.Printf("push scheduler: list subscriptions: %v", err)
		return
	}

	for _, sub := range subs {
		enabled, _ := s.push.IsPreferenceEnabled(sub.UserID, notifType)
		if !enabled {
			continue
		}

		if err := s.service.Send(&sub, payload); err != nil {
			if errors.Is(err, ErrExpired) {
				s.push.DeleteByEndpoint(sub.Endpoint)
			} else {
				log.Printf("push scheduler: send: %v", err)
			}
		}
	}
}

// NotifyStatsRefreshed tells church subscribers that the derived counters
// changed. Called after a manual recalculation, not from the loop.
func (s *Scheduler) NotifyStatsRefreshed(churchID int64) {
	s.broadcast(churchID, model.NotifTypeStatsRefreshed, StatsRefreshedPayload())
}
