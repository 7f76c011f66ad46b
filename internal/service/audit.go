package service

import (
	"draftly/internal/apperror"
	"draftly/internal/logger"
)

// ActionType names a step of the reply draft lifecycle in the audit log.
type ActionType string

const (
	ActionAIGenerationStarted   ActionType = "AI_GENERATION_STARTED"
	ActionAIGenerationCompleted ActionType = "AI_GENERATION_COMPLETED"
	ActionDraftCreated          ActionType = "DRAFT_CREATED"
	ActionDraftEdited           ActionType = "DRAFT_EDITED"
	ActionDraftRegenerated      ActionType = "DRAFT_REGENERATED"
	ActionGmailDraftUpdated     ActionType = "GMAIL_DRAFT_UPDATED"
	ActionGmailDraftDeleted     ActionType = "GMAIL_DRAFT_DELETED"
	ActionDraftApproved         ActionType = "DRAFT_APPROVED"
	ActionEmailSent             ActionType = "EMAIL_SENT"
	ActionDraftRejected         ActionType = "DRAFT_REJECTED"
)

type auditRecord struct {
	action   ActionType
	userID   string
	threadID string
	draftID  string
	message  string
	err      error
	extra    logger.Fields
}

func (s *draftService) audit(success bool, rec auditRecord) {
	outcome := "SUCCESS"
	if !success {
		outcome = "FAILURE"
	}
	fields := logger.Fields{
		"actionType": string(rec.action),
		"userId":     rec.userID,
		"threadId":   rec.threadID,
		"draftId":    rec.draftID,
		"outcome":    outcome,
		"message":    rec.message,
	}
	if rec.err != nil {
		fields["errorKind"] = apperror.Detail(rec.err)
		fields["statusCode"] = apperror.HTTPStatus(rec.err)
	}
	for k, v := range rec.extra {
		fields[k] = v
	}
	s.logger.Audit(success, fields)
}
