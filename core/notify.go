package core

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	NotifyWarning NotificationKind = "warning"
	NotifyInfo    NotificationKind = "info"
)

// Notification is a user-facing toast/alert message.
type Notification struct {
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Kind    NotificationKind `json:"kind"`
}

// Notifier is any service that can surface notifications to the user.
// Notify is fire-and-forget; its outcome is never consumed.
type Notifier interface {
	Notify(n Notification)
}
