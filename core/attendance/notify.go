package attendance

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core"
)

type NotificationKind string

const (
	NotifyAttendanceWarning NotificationKind = "attendance_warning"
	NotifyClassReminder     NotificationKind = "class_reminder"
	NotifyExcuseReceived    NotificationKind = "excuse_received"
)

// Channels are the delivery channels a notification goes through.
type Channels struct {
	Email bool
	SMS   bool
	Push  bool
}

type Notification struct {
	Kind      NotificationKind
	Recipient core.Identity
	Channels  Channels
	Subject   string
	Message   string      // plain text used by SMS and push
	Template  string      // email template name
	Data      interface{} // email template data

	// email only
	Cc          []mail.Address
	Bcc         []mail.Address
	Attachments []Document
}

// Notifier delivers notifications to the student.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type WarningData struct {
	CourseCode  string
	CourseName  string
	Percentage  float64
	Level       string
	Requirement string
}

type ReminderData struct {
	CourseCode  string
	SessionType string
	StartTime   string
	Location    string
}

type ExcuseData struct {
	CourseCode string
	Date       string
}

// notify sends n through the channels enabled in settings. Failures are logged only.
func (svc *service) notify(ctx context.Context, settings Settings, n Notification) {
	if svc.notifier == nil || !settings.AnyNotifications() {
		return
	}
	n.Recipient = svc.opts.Student
	n.Channels = Channels{
		Email: settings.EmailNotifications,
		SMS:   settings.SMSNotifications,
		Push:  settings.PushNotifications,
	}
	if err := svc.notifier.Notify(ctx, n); err != nil {
		svc.logger.Error(fmt.Sprintf("sending %s notification: %v", n.Kind, err), err, svc.opts.Student)
	}
}
