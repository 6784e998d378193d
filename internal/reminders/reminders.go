package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nexo_bot/internal/config"
	"nexo_bot/internal/shop"
	"nexo_bot/internal/telegram"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markup *telegram.InlineKeyboardMarkup) (telegram.Message, error)
}

// Sweeper scans debts whose due date is past or close and pushes one summary
// per owner. Overlapping runs are not deduplicated.
type Sweeper struct {
	shop      *shop.Shop
	sender    Sender
	owners    []int64
	daysAhead int
	timeout   time.Duration
	logger    *zap.Logger
}

func NewSweeper(s *shop.Shop, sender Sender, owners []int64, daysAhead int, logger *zap.Logger) *Sweeper {
	if daysAhead < 0 {
		daysAhead = 0
	}
	return &Sweeper{
		shop:      s,
		sender:    sender,
		owners:    owners,
		daysAhead: daysAhead,
		timeout:   time.Minute,
		logger:    logger.Named("reminders"),
	}
}

// Run performs one sweep and returns how many debts were reported.
func (s *Sweeper) Run(ctx context.Context) (int, error) {
	debts, err := s.shop.Payments.AllDebts(ctx)
	if err != nil {
		return 0, fmt.Errorf("loading debts: %w", err)
	}
	now := s.shop.Clock()
	overdue, upcoming := Due(debts, now, s.daysAhead)
	if len(overdue)+len(upcoming) == 0 {
		s.logger.Debug("no debts due")
		return 0, nil
	}

	text := FormatReminder(overdue, upcoming, now)
	for _, owner := range s.owners {
		if _, err := s.sender.SendMessage(ctx, owner, text, nil); err != nil {
			s.logger.Warn("sending reminder", zap.Int64("owner", owner), zap.Error(err))
		}
	}
	s.logger.Info("reminders sent",
		zap.Int("overdue", len(overdue)),
		zap.Int("upcoming", len(upcoming)),
		zap.Int("owners", len(s.owners)),
	)
	return len(overdue) + len(upcoming), nil
}

func (s *Sweeper) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if _, err := s.Run(ctx); err != nil {
		s.logger.Error("reminder sweep failed", zap.Error(err))
	}
}

// Due splits debts with a due date into overdue ones and those due within
// daysAhead days, today included.
func Due(debts []shop.ClientDebt, now time.Time, daysAhead int) (overdue, upcoming []shop.ClientDebt) {
	today := now.Format(shop.DateLayout)
	limit := now.AddDate(0, 0, daysAhead).Format(shop.DateLayout)
	for _, d := range debts {
		switch {
		case d.DueDate == "":
		case d.DueDate < today:
			overdue = append(overdue, d)
		case d.DueDate <= limit:
			upcoming = append(upcoming, d)
		}
	}
	return overdue, upcoming
}

func FormatReminder(overdue, upcoming []shop.ClientDebt, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔔 Recordatorio de cobros (%s)", now.Format("02/01"))
	if len(overdue) > 0 {
		b.WriteString("\n\n🔴 Vencidas:")
		for _, d := range overdue {
			fmt.Fprintf(&b, "\n• %s: %s (venció %s)", d.Client.Name, shop.FormatPrice(d.Amount), d.DueDate)
		}
	}
	if len(upcoming) > 0 {
		b.WriteString("\n\n🟡 Por vencer:")
		for _, d := range upcoming {
			fmt.Fprintf(&b, "\n• %s: %s (vence %s)", d.Client.Name, shop.FormatPrice(d.Amount), d.DueDate)
		}
	}
	b.WriteString("\n\nPedime \"recordatorio por WhatsApp a <cliente>\" para avisarle.")
	return b.String()
}

// Scheduler runs the sweeper on a cron schedule with seconds.
type Scheduler struct {
	cron    *cron.Cron
	sweeper *Sweeper
	spec    string
	logger  *zap.Logger
}

func NewScheduler(cfg config.Config, sweeper *Sweeper, logger *zap.Logger) (*Scheduler, error) {
	spec := strings.TrimSpace(cfg.ReminderSchedule)
	if _, err := cron.Parse(spec); err != nil {
		return nil, fmt.Errorf("parsing reminder schedule %q: %w", spec, err)
	}
	c := cron.NewWithLocation(cfg.Location())
	if err := c.AddFunc(spec, sweeper.tick); err != nil {
		return nil, fmt.Errorf("scheduling reminders: %w", err)
	}
	return &Scheduler{cron: c, sweeper: sweeper, spec: spec, logger: logger.Named("reminders")}, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("reminder schedule started", zap.String("spec", s.spec))
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}
