package dto

// NotificationQuery mirrors supported inbox filters.
type NotificationQuery struct {
	UnreadOnly bool
	Page       int
	PageSize   int
}

// UnreadCountResponse reports the unread badge value.
type UnreadCountResponse struct {
	Unread int `json:"unread"`
}
