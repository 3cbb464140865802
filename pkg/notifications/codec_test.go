package notifications_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifysync/pkg/notifications"
)

func TestDecode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    notifications.Record
		wantErr error
	}{
		{
			name: "server payload with mongo id",
			payload: `{"_id":"65f0c1","type":"hearing_reminder","title":"Hearing tomorrow","titleAr":"جلسة غدا",
				"message":"Case 12 at 10:00","messageAr":"القضية 12","link":"/cases/12","icon":"gavel",
				"read":false,"createdAt":"2026-03-01T09:00:00Z"}`,
			want: notifications.Record{
				ID:        "65f0c1",
				Title:     notifications.LocalizedText{Primary: "Hearing tomorrow", Secondary: "جلسة غدا"},
				Body:      notifications.LocalizedText{Primary: "Case 12 at 10:00", Secondary: "القضية 12"},
				Category:  notifications.CategoryHearingReminder,
				Link:      "/cases/12",
				Icon:      "gavel",
				CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			},
		},
		{
			name:    "unknown server type maps to general",
			payload: `{"id":"n2","type":"invoice_approved","title":"Invoice approved","read":true}`,
			want: notifications.Record{
				ID:       "n2",
				Title:    notifications.LocalizedText{Primary: "Invoice approved"},
				Category: notifications.CategoryGeneral,
				Read:     true,
			},
		},
		{
			name:    "body fields as fallback",
			payload: `{"id":"n3","category":"payment","title":"Paid","body":"Received","bodyAr":"تم"}`,
			want: notifications.Record{
				ID:       "n3",
				Title:    notifications.LocalizedText{Primary: "Paid"},
				Body:     notifications.LocalizedText{Primary: "Received", Secondary: "تم"},
				Category: notifications.CategoryPayment,
			},
		},
		{name: "missing id", payload: `{"title":"x"}`, wantErr: notifications.ErrMalformedRecord},
		{name: "missing title", payload: `{"id":"n4"}`, wantErr: notifications.ErrMalformedRecord},
		{name: "not json", payload: `{"id":`, wantErr: notifications.ErrMalformedRecord},
		{name: "null", payload: `null`, wantErr: notifications.ErrMalformedRecord},
		{name: "wrong type", payload: `{"id":42,"title":"x"}`, wantErr: notifications.ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := notifications.Decode([]byte(tt.payload))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		payload string
		want    int
		wantErr error
	}{
		{payload: `7`, want: 7},
		{payload: ` 0 `, want: 0},
		{payload: `{"count":3}`, want: 3},
		{payload: `{"unreadCount":4}`, want: 4},
		{payload: `-1`, wantErr: notifications.ErrNegativeCount},
		{payload: `{"unreadCount":-2}`, wantErr: notifications.ErrNegativeCount},
		{payload: `"five"`, wantErr: notifications.ErrMalformedCount},
		{payload: `{}`, wantErr: notifications.ErrMalformedCount},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := notifications.DecodeCount([]byte(tt.payload))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCategory(t *testing.T) {
	t.Parallel()

	assert.Equal(t, notifications.CategoryTaskReminder, notifications.ParseCategory("TASK_REMINDER"))
	assert.Equal(t, notifications.CategoryMessage, notifications.ParseCategory(" message "))
	assert.Equal(t, notifications.CategoryGeneral, notifications.ParseCategory("chatter"))
	assert.Equal(t, notifications.CategoryGeneral, notifications.ParseCategory(""))
}
