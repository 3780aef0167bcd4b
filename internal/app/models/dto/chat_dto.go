package dto

// SendMessageRequest is the REST fallback for sending a chat message
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiverId" binding:"required,min=1"`
	Content    string `json:"content" binding:"required,notblank"`
}

// MarkReadResponse reports how many messages were flipped to read
type MarkReadResponse struct {
	Updated int64 `json:"updated" example:"3"`
}

// PresenceResponse reports whether a user has a live connection
type PresenceResponse struct {
	UserID int64 `json:"userId"`
	Online bool  `json:"online"`
}
