package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/melnik909-create/wechselmodell/custody"
	"github.com/melnik909-create/wechselmodell/internal/dateutil"
)

const defaultRunTimeout = 2 * time.Minute

// Calendar is the part of the calendar service the reminder needs
type Calendar interface {
	Today() time.Time
	Location() *time.Location
	ActiveFamilies(ctx context.Context) ([]uuid.UUID, error)
	Handovers(ctx context.Context, familyID uuid.UUID, start, end time.Time) ([]custody.Handover, error)
}

// Notifier delivers handover reminders to the parents of a family
type Notifier interface {
	NotifyHandover(ctx context.Context, familyID uuid.UUID, h custody.Handover) error
}

// HandoverScheduler checks every evening whether custody changes tomorrow
type HandoverScheduler struct {
	cronEngine *cron.Cron
	calendar   Calendar
	notifier   Notifier
	logger     logrus.FieldLogger
	cronSpec   string
	timeout    time.Duration
}

func NewHandoverScheduler(calendar Calendar, notifier Notifier, logger logrus.FieldLogger, cronSpec string) *HandoverScheduler {
	return &HandoverScheduler{
		cronEngine: cron.New(cron.WithLocation(calendar.Location())),
		calendar:   calendar,
		notifier:   notifier,
		logger:     logger,
		cronSpec:   cronSpec, // e.g. "0 18 * * *" (6 PM daily)
		timeout:    defaultRunTimeout,
	}
}

// Start registers the job and starts the cron engine. It fails on an invalid cron expression.
func (s *HandoverScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for handover reminders.")
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.WithError(err).Error("Error during handover reminder processing")
		}
	})
	if err != nil {
		return fmt.Errorf("could not add handover cron job %q: %w", s.cronSpec, err)
	}

	s.cronEngine.Start()
	s.logger.WithField("cron_spec", s.cronSpec).Info("Handover scheduler started.")
	return nil
}

// Stop stops the cron engine and waits for a running job to finish or ctx to end.
func (s *HandoverScheduler) Stop(ctx context.Context) {
	done := s.cronEngine.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn("Handover scheduler stopped before the running job finished.")
	}
}

// RunOnce notifies every family whose custody changes tomorrow and returns the
// number of reminders sent. Failures of single families are logged and skipped.
func (s *HandoverScheduler) RunOnce(ctx context.Context) (int, error) {
	tomorrow := dateutil.AddDays(s.calendar.Today(), 1)

	families, err := s.calendar.ActiveFamilies(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list families: %w", err)
	}

	sent := 0
	for _, familyID := range families {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		entry := s.logger.WithFields(logrus.Fields{
			"family_id": familyID,
			"date":      dateutil.FormatDate(tomorrow),
		})

		handovers, err := s.calendar.Handovers(ctx, familyID, tomorrow, tomorrow)
		if err != nil {
			entry.WithError(err).Warn("Failed to compute handovers, skipping family.")
			continue
		}
		for _, h := range handovers {
			if err := s.notifier.NotifyHandover(ctx, familyID, h); err != nil {
				entry.WithError(err).Warn("Failed to deliver handover reminder.")
				continue
			}
			sent++
		}
	}

	s.logger.WithFields(logrus.Fields{"families": len(families), "sent": sent}).Info("Handover reminders processed.")
	return sent, nil
}

// LogNotifier writes reminders to the log. Push delivery plugs in through Notifier.
type LogNotifier struct {
	logger logrus.FieldLogger
	names  map[custody.Parent]string
}

func NewLogNotifier(logger logrus.FieldLogger, names map[custody.Parent]string) *LogNotifier {
	return &LogNotifier{logger: logger, names: names}
}

func (n *LogNotifier) name(p custody.Parent) string {
	if name, ok := n.names[p]; ok && name != "" {
		return name
	}
	return string(p)
}

func (n *LogNotifier) NotifyHandover(_ context.Context, familyID uuid.UUID, h custody.Handover) error {
	n.logger.WithFields(logrus.Fields{
		"family_id":    familyID,
		"date":         dateutil.FormatDate(h.Date),
		"from":         h.From,
		"to":           h.To,
		"is_exception": h.IsException,
	}).Infof("Handover tomorrow: %s hands over to %s", n.name(h.From), n.name(h.To))
	return nil
}
