// Package types provides shared type definitions used across respondo packages.
// This package exists so the extractor, bridge, reply client and controller can agree
// on wire shapes without importing each other.
// Types in this package should be foundational data structures with no complex dependencies.
package types

import (
	"sort"
	"time"
)

// =============================================================================
// MESSAGE RECORDS (page context -> UI)
// =============================================================================

// Role is the conversational role derived from a message's direction.
type Role string

const (
	RoleUser      Role = "user"      // counterparty
	RoleAssistant Role = "assistant" // the operator
)

// RoleFor derives the role from the outgoing flag.
func RoleFor(isOutgoing bool) Role {
	if isOutgoing {
		return RoleAssistant
	}
	return RoleUser
}

// DisplayDateLayout renders epoch timestamps the way the chat page shows them.
const DisplayDateLayout = "02.01.2006, 15:04:05"

// MessageRecord is one chat message scraped from a page.
type MessageRecord struct {
	ID         string `json:"id,omitempty"`
	Timestamp  *int64 `json:"timestamp,omitempty"` // epoch seconds
	Date       string `json:"date,omitempty"`
	IsOutgoing bool   `json:"isOutgoing"`
	PeerID     string `json:"peerId,omitempty"`
	Text       string `json:"text"`
	Role       Role   `json:"role"`
}

// NewMessageRecord builds a record with the derived fields (role, display date) filled in.
func NewMessageRecord(id string, ts *int64, isOutgoing bool, peerID, text string) MessageRecord {
	rec := MessageRecord{
		ID:         id,
		Timestamp:  ts,
		IsOutgoing: isOutgoing,
		PeerID:     peerID,
		Text:       text,
		Role:       RoleFor(isOutgoing),
	}
	if ts != nil {
		rec.Date = time.Unix(*ts, 0).Local().Format(DisplayDateLayout)
	}
	return rec
}

// EpochSeconds returns the timestamp or zero when absent.
func (m MessageRecord) EpochSeconds() int64 {
	if m.Timestamp == nil {
		return 0
	}
	return *m.Timestamp
}

// SortByTimestamp orders records by timestamp in place. Missing timestamps sort as zero
// and ties keep their extraction order.
func SortByTimestamp(records []MessageRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].EpochSeconds() < records[j].EpochSeconds()
	})
}

// =============================================================================
// REMOTE SERVICE SHAPES (UI -> reply endpoint)
// =============================================================================

// Author labels expected by the reply service.
const (
	AuthorCounterparty = "Клиент"
	AuthorOperator     = "Вы"
)

// AuthorFor maps a role onto the service's author label.
func AuthorFor(role Role) string {
	if role == RoleAssistant {
		return AuthorOperator
	}
	return AuthorCounterparty
}

// ConversationTurn is one message in the shape the reply service expects.
type ConversationTurn struct {
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Content   string `json:"content"`
}

// TurnFromRecord reshapes a record. The timestamp prefers the display date and falls
// back to ISO-8601 of the epoch seconds.
func TurnFromRecord(m MessageRecord) ConversationTurn {
	ts := m.Date
	if ts == "" && m.Timestamp != nil {
		ts = time.Unix(*m.Timestamp, 0).UTC().Format(time.RFC3339)
	}
	return ConversationTurn{
		Author:    AuthorFor(m.Role),
		Timestamp: ts,
		Content:   m.Text,
	}
}

// TurnsFromRecords reshapes records 1:1, preserving order.
func TurnsFromRecords(records []MessageRecord) []ConversationTurn {
	turns := make([]ConversationTurn, 0, len(records))
	for _, r := range records {
		turns = append(turns, TurnFromRecord(r))
	}
	return turns
}

// SuggestReplyRequest is the body of POST /api/suggest-reply.
type SuggestReplyRequest struct {
	Messages []ConversationTurn `json:"messages"`
	Context  string             `json:"context"`
}

// SuggestReplyResult is what the UI gets back from the reply client.
type SuggestReplyResult struct {
	SuggestedReply        string
	ProcessingTimeSeconds *float64
}

// TestDialogResult is the body returned by POST /api/test (no model call).
type TestDialogResult struct {
	FormattedDialog string `json:"formatted_dialog"`
	MessageCount    int    `json:"message_count"`
	TestReply       string `json:"test_reply"`
}
