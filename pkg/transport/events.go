package transport

// Inbound event names pushed by the notification server.
const (
	EventNotification      = "notification"
	EventNotificationCount = "notificationCount"
	EventNotificationsRead = "notificationsRead"
)

// Outbound event names sent by the client.
const (
	EventUserJoin    = "user:join"
	EventMarkRead    = "notification:read"
	EventMarkAllRead = "notifications:readAll"
)
