// Package notifications holds the client-side notification model and the
// per-session inbox that keeps it in sync with the server.
//
// # Records
//
// Record is one notification. Only Read changes after creation. Titles and
// bodies are LocalizedText values carrying a primary and a secondary
// language variant; Languages.Pick chooses between them for a reader's
// language preferences using golang.org/x/text/language matching.
//
// Decode turns a pushed payload into a validated Record. The server payload
// uses "_id"/"id", "title"/"titleAr", "message"/"messageAr", "type", "link",
// "icon", "read" and "createdAt". Server types outside the known categories
// map to CategoryGeneral. Payloads without an id or a title are rejected with
// ErrMalformedRecord and never reach a Store.
//
// # Store
//
// Store keeps records newest first with unique IDs and an unread counter:
//
//	store := notifications.NewStore()
//	store.ApplyServerPush(rec)     // insert if new, count if unread
//	store.ApplyServerCount(10)     // authoritative count replaces local value
//	store.MarkOneRead(rec.ID)      // local delta, never below zero
//	store.MarkAllRead()            // every record read, count zero
//	store.ClearAll()               // local only, server is not told
//
// Subscribe exposes a change feed so renderers can refresh when the inbox
// changes instead of polling List and UnreadCount.
package notifications
