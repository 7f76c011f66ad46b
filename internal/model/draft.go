package model

import (
	"time"

	"draftly/internal/apperror"
)

// DraftStatus is the persisted lifecycle state of a ReplyDraft.
type DraftStatus string

const (
	DraftStatusGenerated DraftStatus = "GENERATED"
	DraftStatusSent      DraftStatus = "SENT"
)

// DraftEvent is a lifecycle operation applied to an existing draft.
type DraftEvent string

const (
	EventRegenerate DraftEvent = "regenerate"
	EventApprove    DraftEvent = "approve"
	EventReject     DraftEvent = "reject"
)

type transitionKey struct {
	from  DraftStatus
	event DraftEvent
}

// Rejection keeps the status; the record itself is removed afterwards.
var transitions = map[transitionKey]DraftStatus{
	{DraftStatusGenerated, EventRegenerate}: DraftStatusGenerated,
	{DraftStatusGenerated, EventApprove}:    DraftStatusSent,
	{DraftStatusGenerated, EventReject}:     DraftStatusGenerated,
}

// ParseDraftStatus validates a stored status value.
func ParseDraftStatus(s string) (DraftStatus, error) {
	switch DraftStatus(s) {
	case DraftStatusGenerated, DraftStatusSent:
		return DraftStatus(s), nil
	default:
		return "", apperror.Unexpected("unknown draft status "+s, nil)
	}
}

// Next returns the status reached by applying event, or a StateConflict
// error when the pair is not a defined transition.
func (s DraftStatus) Next(event DraftEvent) (DraftStatus, error) {
	next, ok := transitions[transitionKey{s, event}]
	if !ok {
		return s, apperror.StateConflict("cannot %s a draft in %s state", event, s)
	}
	return next, nil
}

// ReplyDraft is a locally persisted AI reply for an email thread.
type ReplyDraft struct {
	ID            string      `json:"id" db:"id"`
	ThreadID      string      `json:"threadId" db:"thread_id"`
	MessageID     string      `json:"messageId" db:"message_id"`
	FromEmail     string      `json:"fromEmail" db:"from_email"`
	ToEmail       string      `json:"toEmail" db:"to_email"`
	ReplyMessage  string      `json:"replyMessage" db:"reply_message"`
	Status        DraftStatus `json:"status" db:"status"`
	RemoteDraftID string      `json:"remoteDraftId,omitempty" db:"remote_draft_id"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time   `json:"updatedAt" db:"updated_at"`
	Deleted       bool        `json:"-" db:"deleted"`
}

// NewReplyDraft builds a GENERATED draft. The ID is assigned by the store.
func NewReplyDraft(threadID, messageID, fromEmail, toEmail, replyMessage, remoteDraftID string) *ReplyDraft {
	now := time.Now()
	return &ReplyDraft{
		ThreadID:      threadID,
		MessageID:     messageID,
		FromEmail:     fromEmail,
		ToEmail:       toEmail,
		ReplyMessage:  replyMessage,
		Status:        DraftStatusGenerated,
		RemoteDraftID: remoteDraftID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Apply moves the draft through event and stamps UpdatedAt.
func (d *ReplyDraft) Apply(event DraftEvent) error {
	next, err := d.Status.Next(event)
	if err != nil {
		return err
	}
	d.Status = next
	d.UpdatedAt = time.Now()
	return nil
}

func (d *ReplyDraft) HasRemoteDraft() bool {
	return d.RemoteDraftID != ""
}
