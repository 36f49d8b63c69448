package domain

import "time"

// ChatMessage is one live-chat comment persisted for the avatar frontend.
type ChatMessage struct {
	VideoID        string    `json:"video_id"`
	MessageID      string    `json:"message_id"`
	MessageText    string    `json:"message_text"`
	AuthorName     string    `json:"author_name"`
	AuthorImageURL string    `json:"author_image_url"`
	CreatedAt      time.Time `json:"created_at"`
}

// ChatMessageCursor marks the last message already handed to a reader, so
// each poll only returns unread messages.
type ChatMessageCursor struct {
	VideoID   string `json:"video_id"`
	MessageID string `json:"message_id"`
}

// CommentBatch is a window of raw comments handed to the classification
// worker in one piece.
type CommentBatch struct {
	VideoID  string        `json:"video_id"`
	Messages []ChatMessage `json:"messages"`
}
