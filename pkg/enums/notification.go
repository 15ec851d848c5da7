package enums

// NotificationType labels in-app notification rows.
type NotificationType string

const (
	NotificationTypeOrderPaid      NotificationType = "order_paid"
	NotificationTypeOrderCancelled NotificationType = "order_cancelled"
	NotificationTypeOrderRefunded  NotificationType = "order_refunded"
	NotificationTypeOrderCompleted NotificationType = "order_completed"
)

func (t NotificationType) String() string {
	return string(t)
}
