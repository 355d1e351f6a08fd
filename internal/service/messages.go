package service

import (
	"fmt"
	"time"

	"github.com/mtlprog/kindroute/internal/domain"
)

// Notification builders. Titles and messages are plain text; rendering for a
// particular channel is the dispatcher's business.

func newTaskNotification(task *domain.Task, a *domain.Assignment, now time.Time) *domain.Notification {
	return domain.NewNotification(
		a.Assignee(), domain.ChannelInApp, domain.NotificationNewTask,
		fmt.Sprintf("New %s: %s", task.Kind, task.Category),
		fmt.Sprintf("A %s priority %s was offered to you: %s", task.Priority, task.Kind, task.Description),
		a.ID, now,
	)
}

func responseNotification(a *domain.Assignment, action domain.ResponseAction, now time.Time) *domain.Notification {
	typ := domain.NotificationAssignmentAccepted
	verb := "accepted"
	if action == domain.ResponseReject {
		typ = domain.NotificationAssignmentRejected
		verb = "declined"
	}
	return domain.NewNotification(
		a.Requester(), domain.ChannelInApp, typ,
		fmt.Sprintf("Your %s was %s", a.TaskKind, verb),
		fmt.Sprintf("Organization %s %s your %s.", a.CandidateID, verb, a.TaskKind),
		a.ID, now,
	)
}

func scheduledNotification(a *domain.Assignment, now time.Time) *domain.Notification {
	d := a.Schedule
	msg := fmt.Sprintf("%s (%s) will handle your %s on %s at %s.",
		d.VolunteerName, d.VolunteerContact, a.TaskKind, d.Date, d.Time)
	if d.Notes != "" {
		msg += " Notes: " + d.Notes
	}
	return domain.NewNotification(
		a.Requester(), domain.ChannelInApp, domain.NotificationAssignmentScheduled,
		fmt.Sprintf("Your %s is scheduled", a.TaskKind),
		msg, a.ID, now,
	)
}

func completedNotification(a *domain.Assignment, now time.Time) *domain.Notification {
	return domain.NewNotification(
		a.Requester(), domain.ChannelInApp, domain.NotificationAssignmentCompleted,
		fmt.Sprintf("Your %s is complete", a.TaskKind),
		fmt.Sprintf("Organization %s marked your %s as completed. Please leave feedback.", a.CandidateID, a.TaskKind),
		a.ID, now,
	)
}

func receiptNotification(a *domain.Assignment, now time.Time) *domain.Notification {
	return domain.NewNotification(
		a.Assignee(), domain.ChannelInApp, domain.NotificationReceiptConfirmed,
		"Receipt confirmed",
		fmt.Sprintf("The requester confirmed receipt for %s %s.", a.TaskKind, a.TaskID),
		a.ID, now,
	)
}

func feedbackNotification(a *domain.Assignment, now time.Time) *domain.Notification {
	return domain.NewNotification(
		a.Assignee(), domain.ChannelInApp, domain.NotificationFeedbackReceived,
		"New feedback",
		fmt.Sprintf("You received a %d/5 rating for %s %s.", a.Feedback.Rating, a.TaskKind, a.TaskID),
		a.ID, now,
	)
}

// badgeNotifications yields the in-app notice and the email for one badge.
func badgeNotifications(ref domain.EntityRef, badge, referenceID string, now time.Time) []*domain.Notification {
	title := "Badge unlocked: " + badge
	msg := fmt.Sprintf("Congratulations! You earned the %s badge.", badge)
	return []*domain.Notification{
		domain.NewNotification(ref, domain.ChannelInApp, domain.NotificationBadgeUnlocked, title, msg, referenceID, now),
		domain.NewNotification(ref, domain.ChannelEmail, domain.NotificationBadgeUnlocked, title, msg, referenceID, now),
	}
}
