package notifications

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// wireRecord is the shape the notification server pushes.
type wireRecord struct {
	ID        string     `json:"id"`
	ObjectID  string     `json:"_id"`
	Type      string     `json:"type"`
	Category  string     `json:"category"`
	Title     string     `json:"title"`
	TitleAr   string     `json:"titleAr"`
	Message   string     `json:"message"`
	MessageAr string     `json:"messageAr"`
	Body      string     `json:"body"`
	BodyAr    string     `json:"bodyAr"`
	Link      string     `json:"link"`
	Icon      string     `json:"icon"`
	Read      bool       `json:"read"`
	CreatedAt *time.Time `json:"createdAt"`
}

// Decode parses a pushed notification payload and validates it.
// Any failure wraps ErrMalformedRecord.
func Decode(raw []byte) (Record, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Record{}, fmt.Errorf("%w: empty payload", ErrMalformedRecord)
	}

	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return Record{}, errors.Join(ErrMalformedRecord, err)
	}

	rec := Record{
		ID:       firstNonEmpty(w.ID, w.ObjectID),
		Title:    LocalizedText{Primary: w.Title, Secondary: w.TitleAr},
		Body:     LocalizedText{Primary: firstNonEmpty(w.Message, w.Body), Secondary: firstNonEmpty(w.MessageAr, w.BodyAr)},
		Category: ParseCategory(firstNonEmpty(w.Category, w.Type)),
		Link:     w.Link,
		Icon:     w.Icon,
		Read:     w.Read,
	}
	if w.CreatedAt != nil {
		rec.CreatedAt = *w.CreatedAt
	}

	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// DecodeCount parses an unread count payload. Both a bare integer and an
// object carrying "count" or "unreadCount" are accepted.
func DecodeCount(raw []byte) (int, error) {
	raw = bytes.TrimSpace(raw)

	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return checkCount(n)
	}

	var obj struct {
		Count       *int `json:"count"`
		UnreadCount *int `json:"unreadCount"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return 0, errors.Join(ErrMalformedCount, err)
	}
	switch {
	case obj.UnreadCount != nil:
		return checkCount(*obj.UnreadCount)
	case obj.Count != nil:
		return checkCount(*obj.Count)
	}
	return 0, fmt.Errorf("%w: no count field", ErrMalformedCount)
}

func checkCount(n int) (int, error) {
	if n < 0 {
		return 0, ErrNegativeCount
	}
	return n, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
