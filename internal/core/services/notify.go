package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lunavision/facesink/internal/core/domain"
	"github.com/lunavision/facesink/internal/core/ports/driven"
)

// MatchNotifier sends one formatted message per matched person. Delivery is
// per-recipient independent: one failure never blocks the others.
type MatchNotifier struct {
	notifier  driven.Notifier
	directory driven.PersonDirectory
	logger    *slog.Logger
}

// NewMatchNotifier creates a new MatchNotifier.
func NewMatchNotifier(notifier driven.Notifier, directory driven.PersonDirectory, logger *slog.Logger) *MatchNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchNotifier{
		notifier:  notifier,
		directory: directory,
		logger:    logger,
	}
}

// NotifyRecipients sends a notification to each tuple. Tuples carrying only
// a person id are resolved through the person directory first; ids the
// directory does not know are reported as failed outcomes.
func (n *MatchNotifier) NotifyRecipients(ctx context.Context, recipients []domain.Recipient) ([]domain.NotifyOutcome, error) {
	resolved, err := n.resolve(ctx, recipients)
	if err != nil {
		return nil, err
	}

	outcomes := make([]domain.NotifyOutcome, 0, len(resolved))
	for _, r := range resolved {
		outcome := domain.NotifyOutcome{PersonID: r.PersonID, Email: r.Email}

		if r.Email == "" {
			outcome.Error = "no email address on record"
			outcomes = append(outcomes, outcome)
			continue
		}

		if n.notifier == nil {
			outcome.Error = "notification delivery not configured"
			outcomes = append(outcomes, outcome)
			continue
		}

		if err := n.notifier.Send(ctx, r); err != nil {
			n.logger.Error("notification failed",
				"person_id", r.PersonID, "email", r.Email, "error", err)
			outcome.Error = err.Error()
			outcomes = append(outcomes, outcome)
			continue
		}

		n.logger.Info("notification sent", "person_id", r.PersonID, "email", r.Email)
		outcome.Sent = true
		outcomes = append(outcomes, outcome)
	}

	return outcomes, nil
}

// resolve fills in missing email/name from the person directory with a
// single IN-list lookup over the unresolved ids.
func (n *MatchNotifier) resolve(ctx context.Context, recipients []domain.Recipient) ([]domain.Recipient, error) {
	var missing []string
	for _, r := range recipients {
		if r.Email == "" && r.PersonID != "" {
			missing = append(missing, r.PersonID)
		}
	}

	if len(missing) == 0 || n.directory == nil {
		return recipients, nil
	}

	known, err := n.directory.LookupPersons(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("lookup persons: %w", err)
	}

	byID := make(map[string]domain.Recipient, len(known))
	for _, r := range known {
		byID[r.PersonID] = r
	}

	resolved := make([]domain.Recipient, len(recipients))
	for i, r := range recipients {
		if r.Email == "" {
			if match, ok := byID[r.PersonID]; ok {
				r.Email = match.Email
				if r.Name == "" {
					r.Name = match.Name
				}
			}
		}
		resolved[i] = r
	}

	return resolved, nil
}
