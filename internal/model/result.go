package model

import (
	"net/http"

	"draftly/internal/apperror"
)

// ResultStatus tags the variant carried by an Outcome.
type ResultStatus string

const (
	StatusDraftCreated    ResultStatus = "DRAFT_CREATED"
	StatusNoReplyRequired ResultStatus = "NO_REPLY_REQUIRED"
	StatusFailed          ResultStatus = "FAILED"
	StatusSuccess         ResultStatus = "SUCCESS"
	StatusError           ResultStatus = "ERROR"
)

// Outcome is the common shape of every lifecycle result.
type Outcome struct {
	Status     ResultStatus `json:"status"`
	Message    string       `json:"message"`
	ThreadID   string       `json:"threadId"`
	StatusCode int          `json:"statusCode"`
	ErrorKind  string       `json:"errorKind,omitempty"`
}

func (o Outcome) Failed() bool {
	return o.Status == StatusFailed || o.Status == StatusError
}

func failureOutcome(status ResultStatus, threadID, prefix string, err error) Outcome {
	return Outcome{
		Status:     status,
		Message:    prefix + err.Error(),
		ThreadID:   threadID,
		StatusCode: apperror.HTTPStatus(err),
		ErrorKind:  apperror.Detail(err),
	}
}

// ReplyDraftResult is returned by generate and regenerate.
type ReplyDraftResult struct {
	Outcome
	DraftID      string `json:"draftId,omitempty"`
	ReplyMessage string `json:"replyMessage,omitempty"`
}

func NewDraftCreatedResult(draftID, threadID, replyMessage string) *ReplyDraftResult {
	return &ReplyDraftResult{
		Outcome: Outcome{
			Status:     StatusDraftCreated,
			Message:    "Reply draft created successfully",
			ThreadID:   threadID,
			StatusCode: http.StatusOK,
		},
		DraftID:      draftID,
		ReplyMessage: replyMessage,
	}
}

func NewNoReplyResult(threadID string) *ReplyDraftResult {
	return &ReplyDraftResult{
		Outcome: Outcome{
			Status:     StatusNoReplyRequired,
			Message:    "This email does not require a reply",
			ThreadID:   threadID,
			StatusCode: http.StatusOK,
		},
	}
}

func NewDraftFailedResult(threadID, prefix string, err error) *ReplyDraftResult {
	return &ReplyDraftResult{Outcome: failureOutcome(StatusFailed, threadID, prefix, err)}
}

// ActionResult is returned by approve and reject.
type ActionResult struct {
	Outcome
}

func NewActionSuccess(threadID, message string) *ActionResult {
	return &ActionResult{Outcome: Outcome{
		Status:     StatusSuccess,
		Message:    message,
		ThreadID:   threadID,
		StatusCode: http.StatusOK,
	}}
}

func NewActionFailure(threadID, prefix string, err error) *ActionResult {
	return &ActionResult{Outcome: failureOutcome(StatusError, threadID, prefix, err)}
}

// DraftBodyResult is the read-only view of a thread's latest draft.
type DraftBodyResult struct {
	Outcome
	MessageID   string      `json:"messageId,omitempty"`
	From        string      `json:"from,omitempty"`
	To          string      `json:"to,omitempty"`
	Subject     string      `json:"subject"`
	Body        string      `json:"body,omitempty"`
	DraftStatus DraftStatus `json:"draftStatus,omitempty"`
}

func NewDraftBodyResult(draft *ReplyDraft) *DraftBodyResult {
	return &DraftBodyResult{
		Outcome: Outcome{
			Status:     StatusSuccess,
			Message:    "Draft retrieved successfully",
			ThreadID:   draft.ThreadID,
			StatusCode: http.StatusOK,
		},
		MessageID:   draft.MessageID,
		From:        draft.FromEmail,
		To:          draft.ToEmail,
		Body:        draft.ReplyMessage,
		DraftStatus: draft.Status,
	}
}

func NewDraftBodyFailure(threadID string, err error) *DraftBodyResult {
	return &DraftBodyResult{Outcome: failureOutcome(StatusError, threadID, "", err)}
}
