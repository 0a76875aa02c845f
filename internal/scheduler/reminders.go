// Package scheduler runs the periodic loan reminder job.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/entities"
)

// dueSoonWindow is how far ahead of the due date patrons get a heads-up.
const dueSoonWindow = 48 * time.Hour

// Sender delivers a reminder text to a chat. Satisfied by the Telegram bot.
type Sender interface {
	SendMessage(chatID, text string) error
}

// ReminderScheduler periodically notifies patrons about loans that are due
// soon or overdue. Patrons without a linked chat are skipped.
type ReminderScheduler struct {
	engine   *circulation.Engine
	sender   Sender
	schedule string

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSending  bool
	cancelFunc context.CancelFunc
}

func NewReminderScheduler(engine *circulation.Engine, sender Sender, schedule string) *ReminderScheduler {
	return &ReminderScheduler{
		engine:   engine,
		sender:   sender,
		schedule: schedule,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
	}
}

// Start begins the scheduler. It is a no-op when no sender is configured.
func (s *ReminderScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if s.sender == nil {
		log.Printf("Reminder scheduler: no sender configured, skipping")
		return nil
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.runReminders()
	})
	if err != nil {
		return fmt.Errorf("invalid reminder schedule '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	log.Printf("Reminder scheduler: started with schedule '%s'", s.schedule)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler and waits for a running job.
func (s *ReminderScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.isRunning = false
	s.cancelFunc = nil

	log.Printf("Reminder scheduler: stopped")
}

// RunNow triggers an immediate reminder pass.
func (s *ReminderScheduler) RunNow() {
	go s.runReminders()
}

// IsRunning returns whether the scheduler is active.
func (s *ReminderScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next reminder pass will occur.
func (s *ReminderScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *ReminderScheduler) runReminders() {
	s.mu.Lock()
	if s.isSending {
		s.mu.Unlock()
		log.Printf("Reminders: skipped (previous pass still running)")
		return
	}
	s.isSending = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSending = false
		s.mu.Unlock()
	}()

	now := time.Now().UTC()
	startTime := now

	overdue, err := s.engine.OverdueLoans(now)
	if err != nil {
		log.Printf("Reminders: failed to load overdue loans: %v", err)
		return
	}
	dueSoon, err := s.engine.DueSoonLoans(now, dueSoonWindow)
	if err != nil {
		log.Printf("Reminders: failed to load due loans: %v", err)
		return
	}

	var sent, skipped int
	for _, loan := range overdue {
		if s.notify(loan, overdueMessage(loan)) {
			sent++
		} else {
			skipped++
		}
	}
	for _, loan := range dueSoon {
		if s.notify(loan, dueSoonMessage(loan)) {
			sent++
		} else {
			skipped++
		}
	}

	log.Printf("Reminders: sent %d, skipped %d in %v",
		sent, skipped, time.Since(startTime).Round(time.Millisecond))
}

func (s *ReminderScheduler) notify(loan entities.Loan, text string) bool {
	if loan.User.TelegramChatID == nil {
		return false
	}
	if err := s.sender.SendMessage(*loan.User.TelegramChatID, text); err != nil {
		log.Printf("Reminders: failed to notify chat %s: %v", *loan.User.TelegramChatID, err)
		return false
	}
	return true
}

func overdueMessage(loan entities.Loan) string {
	return fmt.Sprintf("Your loan of %q by %s was due on %s. Please return it to the library.",
		loan.Book.Title, loan.Book.Author, loan.DueDate.Format("2006-01-02"))
}

func dueSoonMessage(loan entities.Loan) string {
	return fmt.Sprintf("Reminder: %q by %s is due on %s.",
		loan.Book.Title, loan.Book.Author, loan.DueDate.Format("2006-01-02"))
}
