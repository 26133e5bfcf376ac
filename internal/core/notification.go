package core

import "fmt"

const (
	NotifySocialLike    NotificationType = "social_like"
	NotifySocialComment NotificationType = "social_comment"
	NotifyOfferNearby   NotificationType = "offer_nearby"
	NotifySystemAlert   NotificationType = "system_alert"
)

const (
	RelatedTransaction RelatedKind = "transaction"
	RelatedOffer       RelatedKind = "offer"
)

type (
	NotificationType string
	RelatedKind      string

	// Related links a notification to the entity it talks about.
	Related struct {
		Kind RelatedKind `json:"type"`
		ID   string      `json:"id"`
	}

	NotificationItem struct {
		ID      string           `json:"id"`
		Type    NotificationType `json:"type"`
		Title   string           `json:"title"`
		Message string           `json:"message"`
		TimeAgo string           `json:"timeAgo"`
		IsRead  bool             `json:"isRead"`
		Related *Related         `json:"related,omitempty"`
	}
)

func (t NotificationType) Validate() error {
	switch t {
	case NotifySocialLike, NotifySocialComment, NotifyOfferNearby, NotifySystemAlert:
		return nil
	default:
		return fmt.Errorf("unknown notification type %q", string(t))
	}
}

// Icon names the glyph the client draws for the notification type.
func (t NotificationType) Icon() string {
	switch t {
	case NotifySocialLike:
		return "heart"
	case NotifySocialComment:
		return "message"
	case NotifyOfferNearby:
		return "gift"
	case NotifySystemAlert:
		return "alert"
	default:
		return "bell"
	}
}

func (k RelatedKind) Validate() error {
	switch k {
	case RelatedTransaction, RelatedOffer:
		return nil
	default:
		return fmt.Errorf("unknown related kind %q", string(k))
	}
}

func (n NotificationItem) Validate() error {
	if err := n.Type.Validate(); err != nil {
		return err
	}
	if n.Related != nil {
		return n.Related.Kind.Validate()
	}
	return nil
}

// UnreadCount counts notifications not yet marked read.
func UnreadCount(items []NotificationItem) int {
	n := 0
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}
