package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"draftly/internal/address"
	"draftly/internal/apperror"
	"draftly/internal/composer"
	"draftly/internal/logger"
	"draftly/internal/model"
	"draftly/internal/repository"
	"draftly/internal/retry"
)

const fallbackSubject = "Re: Email"

// Lifecycle events published to the user's live sessions.
const (
	EventDraftCreated     = "draft_created"
	EventDraftRegenerated = "draft_regenerated"
	EventDraftSent        = "draft_sent"
	EventDraftRejected    = "draft_rejected"
)

type draftService struct {
	draftRepo     repository.DraftRepository
	mailClient    MailClient
	completion    CompletionClient
	sender        *retry.Sender
	publisher     EventPublisher
	exemplarFetch int
	locks         *threadLocks
	logger        *logger.Logger
}

// NewDraftService wires the reply draft lifecycle. publisher may be nil.
func NewDraftService(
	draftRepo repository.DraftRepository,
	mailClient MailClient,
	completion CompletionClient,
	sender *retry.Sender,
	publisher EventPublisher,
	exemplarFetch int,
	logger *logger.Logger,
) DraftService {
	return &draftService{
		draftRepo:     draftRepo,
		mailClient:    mailClient,
		completion:    completion,
		sender:        sender,
		publisher:     publisher,
		exemplarFetch: exemplarFetch,
		locks:         newThreadLocks(),
		logger:        logger,
	}
}

func (s *draftService) GenerateReplyDraft(ctx context.Context, userID string, req *model.GenerateRequest) *model.ReplyDraftResult {
	const failurePrefix = "Unable to generate reply draft: "

	if req == nil || strings.TrimSpace(req.ThreadID) == "" {
		return model.NewDraftFailedResult("", failurePrefix, apperror.Validation("threadId cannot be empty"))
	}

	unlock := s.locks.Lock(req.ThreadID)
	defer unlock()

	s.audit(true, auditRecord{
		action:   ActionAIGenerationStarted,
		userID:   userID,
		threadID: req.ThreadID,
		message:  "Starting AI reply generation",
	})

	if address.IsNoReply(req.From) {
		s.audit(false, auditRecord{
			action:   ActionDraftCreated,
			userID:   userID,
			threadID: req.ThreadID,
			message:  "No-reply email detected, skipping draft creation",
		})
		return model.NewNoReplyResult(req.ThreadID)
	}

	draft, err := s.generate(ctx, userID, req)
	if err != nil {
		s.audit(false, auditRecord{
			action:   ActionDraftCreated,
			userID:   userID,
			threadID: req.ThreadID,
			message:  "Failed to generate reply draft: " + err.Error(),
			err:      err,
		})
		return model.NewDraftFailedResult(req.ThreadID, failurePrefix, err)
	}

	s.publish(userID, EventDraftCreated, draft)
	return model.NewDraftCreatedResult(draft.RemoteDraftID, draft.ThreadID, draft.ReplyMessage)
}

func (s *draftService) generate(ctx context.Context, userID string, req *model.GenerateRequest) (*model.ReplyDraft, error) {
	recipient, err := address.ExtractRecipient(req.From)
	if err != nil {
		return nil, err
	}

	aiReply, err := s.composeReply(ctx, userID, composer.Original{
		From:    req.From,
		Subject: req.Subject,
		Body:    req.Body,
	}, req.Tone)
	if err != nil {
		return nil, err
	}
	s.audit(true, auditRecord{
		action:   ActionAIGenerationCompleted,
		userID:   userID,
		threadID: req.ThreadID,
		message:  "AI reply generation completed successfully",
	})

	remoteDraftID, err := s.mailClient.CreateDraft(ctx, userID, &model.OutgoingReply{
		To:        recipient,
		Subject:   req.Subject,
		Body:      aiReply,
		ThreadID:  req.ThreadID,
		InReplyTo: req.MessageID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail draft: %w", err)
	}

	draft := model.NewReplyDraft(req.ThreadID, req.MessageID, req.From, recipient, aiReply, remoteDraftID)
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save reply draft: %w", err)
	}

	s.audit(true, auditRecord{
		action:   ActionDraftCreated,
		userID:   userID,
		threadID: draft.ThreadID,
		draftID:  draft.ID,
		message:  "Reply draft created and saved to database",
		extra:    logger.Fields{"remoteDraftId": remoteDraftID},
	})
	return draft, nil
}

// composeReply fetches style exemplars and asks the completion service for a reply.
func (s *draftService) composeReply(ctx context.Context, userID string, original composer.Original, tone model.Tone) (string, error) {
	exemplars, err := s.mailClient.ListSentBodies(ctx, userID, s.exemplarFetch)
	if err != nil {
		return "", fmt.Errorf("failed to fetch sent emails: %w", err)
	}

	prompt := composer.Compose(exemplars, tone, original)
	reply, err := s.completion.Generate(ctx, prompt.System, prompt.User)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	return reply, nil
}

func (s *draftService) RegenerateReplyDraft(ctx context.Context, userID, threadID string, tone model.Tone) *model.ReplyDraftResult {
	const failurePrefix = "Unable to regenerate reply draft: "

	if strings.TrimSpace(threadID) == "" {
		return model.NewDraftFailedResult(threadID, failurePrefix, apperror.Validation("threadId cannot be empty"))
	}

	unlock := s.locks.Lock(threadID)
	defer unlock()

	s.audit(true, auditRecord{
		action:   ActionDraftEdited,
		userID:   userID,
		threadID: threadID,
		message:  "Starting draft regeneration",
	})

	draft, err := s.draftRepo.FindLatestByThread(ctx, threadID)
	if errors.Is(err, repository.ErrDraftNotFound) {
		notFound := apperror.NotFound("Reply draft not found for threadId: %s", threadID)
		s.audit(false, auditRecord{
			action:   ActionDraftRegenerated,
			userID:   userID,
			threadID: threadID,
			message:  notFound.Error(),
			err:      notFound,
		})
		return model.NewDraftFailedResult(threadID, "", notFound)
	}
	if err == nil {
		err = s.regenerate(ctx, userID, draft, tone)
	} else {
		err = fmt.Errorf("failed to load reply draft: %w", err)
	}
	if err != nil {
		var draftID string
		if draft != nil {
			draftID = draft.ID
		}
		s.audit(false, auditRecord{
			action:   ActionDraftRegenerated,
			userID:   userID,
			threadID: threadID,
			draftID:  draftID,
			message:  "Failed to regenerate reply draft: " + err.Error(),
			err:      err,
		})
		return model.NewDraftFailedResult(threadID, failurePrefix, err)
	}

	s.publish(userID, EventDraftRegenerated, draft)
	return model.NewDraftCreatedResult(draft.RemoteDraftID, threadID, draft.ReplyMessage)
}

func (s *draftService) regenerate(ctx context.Context, userID string, draft *model.ReplyDraft, tone model.Tone) error {
	if _, err := draft.Status.Next(model.EventRegenerate); err != nil {
		return err
	}

	original, err := s.mailClient.FetchMessage(ctx, userID, draft.MessageID)
	if err != nil {
		return fmt.Errorf("failed to fetch original email: %w", err)
	}
	subject := original.Subject
	if strings.TrimSpace(subject) == "" {
		subject = fallbackSubject
	}

	aiReply, err := s.composeReply(ctx, userID, composer.Original{
		From:    draft.FromEmail,
		Subject: subject,
		Body:    original.Body,
	}, tone.OrDefault(model.ToneFriendly))
	if err != nil {
		return err
	}
	s.audit(true, auditRecord{
		action:   ActionAIGenerationCompleted,
		userID:   userID,
		threadID: draft.ThreadID,
		draftID:  draft.ID,
		message:  "AI reply regeneration completed successfully",
	})

	remoteDraftID, err := s.replaceRemoteDraft(ctx, userID, draft, &model.OutgoingReply{
		To:        draft.ToEmail,
		Subject:   subject,
		Body:      aiReply,
		ThreadID:  draft.ThreadID,
		InReplyTo: draft.MessageID,
	})
	if err != nil {
		return err
	}

	if err := draft.Apply(model.EventRegenerate); err != nil {
		return err
	}
	draft.ReplyMessage = aiReply
	draft.RemoteDraftID = remoteDraftID
	if err := s.draftRepo.Save(ctx, draft); err != nil {
		return fmt.Errorf("failed to save reply draft: %w", err)
	}

	s.audit(true, auditRecord{
		action:   ActionDraftRegenerated,
		userID:   userID,
		threadID: draft.ThreadID,
		draftID:  draft.ID,
		message:  "Reply draft regenerated and updated in database",
		extra:    logger.Fields{"remoteDraftId": remoteDraftID},
	})
	return nil
}

// replaceRemoteDraft updates the existing remote draft, creating a new one
// when there is none or the update fails.
func (s *draftService) replaceRemoteDraft(ctx context.Context, userID string, draft *model.ReplyDraft, reply *model.OutgoingReply) (string, error) {
	if draft.HasRemoteDraft() {
		remoteDraftID, err := s.mailClient.UpdateDraft(ctx, userID, draft.RemoteDraftID, reply)
		if err == nil {
			s.audit(true, auditRecord{
				action:   ActionGmailDraftUpdated,
				userID:   userID,
				threadID: draft.ThreadID,
				draftID:  draft.ID,
				message:  "Gmail draft updated",
			})
			return remoteDraftID, nil
		}
		s.audit(false, auditRecord{
			action:   ActionGmailDraftUpdated,
			userID:   userID,
			threadID: draft.ThreadID,
			draftID:  draft.ID,
			message:  "Failed to update Gmail draft, creating new one: " + err.Error(),
			err:      err,
		})
	}

	remoteDraftID, err := s.mailClient.CreateDraft(ctx, userID, reply)
	if err != nil {
		return "", fmt.Errorf("failed to create Gmail draft: %w", err)
	}
	return remoteDraftID, nil
}

func (s *draftService) ApproveReplyDraft(ctx context.Context, userID, threadID, replyMessage string) *model.ActionResult {
	if strings.TrimSpace(threadID) == "" {
		return actionFailure(threadID, "Failed to send reply: ", apperror.Validation("threadId cannot be empty"))
	}

	unlock := s.locks.Lock(threadID)
	defer unlock()

	s.audit(true, auditRecord{
		action:   ActionDraftApproved,
		userID:   userID,
		threadID: threadID,
		message:  "Starting draft approval process",
	})

	draft, err := s.approve(ctx, userID, threadID, replyMessage)
	if err != nil {
		var draftID string
		if draft != nil {
			draftID = draft.ID
		}
		s.audit(false, auditRecord{
			action:   ActionDraftApproved,
			userID:   userID,
			threadID: threadID,
			draftID:  draftID,
			message:  "Failed to approve reply draft: " + err.Error(),
			err:      err,
		})
		return actionFailure(threadID, "Failed to send reply: ", err)
	}

	message := "Reply sent successfully to " + draft.ToEmail
	s.audit(true, auditRecord{
		action:   ActionEmailSent,
		userID:   userID,
		threadID: threadID,
		draftID:  draft.ID,
		message:  message,
	})
	s.publish(userID, EventDraftSent, draft)
	return model.NewActionSuccess(threadID, message)
}

// approve returns the draft it selected, if any, alongside any error so
// failures can still be attributed to a record.
func (s *draftService) approve(ctx context.Context, userID, threadID, replyMessage string) (*model.ReplyDraft, error) {
	draft, err := s.findGenerated(ctx, threadID, func(status model.DraftStatus) error {
		return apperror.StateConflict("Draft is not in GENERATED state. Current status: %s", status)
	})
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(replyMessage) == "" {
		return draft, apperror.Validation("Reply message cannot be empty")
	}

	subject, err := s.originalSubject(ctx, userID, draft)
	if err != nil {
		return draft, err
	}

	reply := &model.OutgoingReply{
		To:        draft.ToEmail,
		Subject:   subject,
		Body:      replyMessage,
		ThreadID:  draft.ThreadID,
		InReplyTo: draft.MessageID,
	}
	err = s.sender.Do(ctx, "send reply", func(ctx context.Context) error {
		return s.mailClient.SendReply(ctx, userID, reply)
	}, s.sendObserver(userID, draft))
	if err != nil {
		return draft, err
	}

	if err := draft.Apply(model.EventApprove); err != nil {
		return draft, err
	}
	draft.ReplyMessage = replyMessage
	err = s.draftRepo.CompareAndSave(ctx, draft, model.DraftStatusGenerated)
	if errors.Is(err, repository.ErrStatusConflict) || errors.Is(err, repository.ErrDraftNotFound) {
		return draft, apperror.StateConflict("Draft changed while the reply was being sent")
	}
	if err != nil {
		return draft, fmt.Errorf("failed to save reply draft: %w", err)
	}
	return draft, nil
}

// originalSubject re-reads the subject of the message being answered. A
// message without a subject gets a generic one.
func (s *draftService) originalSubject(ctx context.Context, userID string, draft *model.ReplyDraft) (string, error) {
	original, err := s.mailClient.FetchMessage(ctx, userID, draft.MessageID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch original email: %w", err)
	}
	if strings.TrimSpace(original.Subject) == "" {
		return fallbackSubject, nil
	}
	return original.Subject, nil
}

func (s *draftService) sendObserver(userID string, draft *model.ReplyDraft) func(retry.Attempt) {
	return func(a retry.Attempt) {
		rec := auditRecord{
			action:   ActionEmailSent,
			userID:   userID,
			threadID: draft.ThreadID,
			draftID:  draft.ID,
			err:      a.Err,
			extra: logger.Fields{
				"attempt":    a.Number,
				"maxRetries": a.Max,
				"retryable":  a.Retryable,
			},
		}
		switch {
		case a.Succeeded():
			if a.Number == 1 {
				return
			}
			rec.message = fmt.Sprintf("Reply sent successfully after %d attempt(s)", a.Number)
			s.audit(true, rec)
			return
		case !a.Retryable:
			rec.message = "Failed to send email (non-retryable error): " + a.Err.Error()
		case a.Delay > 0:
			rec.message = fmt.Sprintf("Failed to send email (attempt %d/%d), retrying in %dms: %v",
				a.Number, a.Max, a.Delay.Milliseconds(), a.Err)
		default:
			rec.message = fmt.Sprintf("Failed to send email after %d attempts", a.Max)
		}
		s.audit(false, rec)
	}
}

func (s *draftService) RejectReplyDraft(ctx context.Context, userID, threadID string) *model.ActionResult {
	if strings.TrimSpace(threadID) == "" {
		return actionFailure(threadID, "Failed to reject reply draft: ", apperror.Validation("threadId cannot be empty"))
	}

	unlock := s.locks.Lock(threadID)
	defer unlock()

	s.audit(true, auditRecord{
		action:   ActionDraftRejected,
		userID:   userID,
		threadID: threadID,
		message:  "Starting draft rejection process",
	})

	draft, err := s.reject(ctx, userID, threadID)
	if err != nil {
		var draftID string
		if draft != nil {
			draftID = draft.ID
		}
		s.audit(false, auditRecord{
			action:   ActionDraftRejected,
			userID:   userID,
			threadID: threadID,
			draftID:  draftID,
			message:  "Failed to reject reply draft: " + err.Error(),
			err:      err,
		})
		return actionFailure(threadID, "Failed to reject reply draft: ", err)
	}

	const message = "Reply draft rejected and deleted successfully"
	s.audit(true, auditRecord{
		action:   ActionDraftRejected,
		userID:   userID,
		threadID: threadID,
		draftID:  draft.ID,
		message:  message,
	})
	s.publish(userID, EventDraftRejected, draft)
	return model.NewActionSuccess(threadID, message)
}

func (s *draftService) reject(ctx context.Context, userID, threadID string) (*model.ReplyDraft, error) {
	draft, err := s.findGenerated(ctx, threadID, func(status model.DraftStatus) error {
		return apperror.StateConflict("No GENERATED drafts found for threadId: %s. Current status: %s", threadID, status)
	})
	if err != nil {
		return nil, err
	}
	if err := draft.Apply(model.EventReject); err != nil {
		return draft, err
	}

	if draft.HasRemoteDraft() {
		s.deleteRemoteDraft(ctx, userID, draft)
	}

	if err := s.draftRepo.Delete(ctx, draft.ID); err != nil {
		return draft, fmt.Errorf("failed to delete reply draft: %w", err)
	}
	return draft, nil
}

// deleteRemoteDraft never fails the rejection; a draft already gone from
// the mailbox counts as deleted.
func (s *draftService) deleteRemoteDraft(ctx context.Context, userID string, draft *model.ReplyDraft) {
	err := s.mailClient.DeleteDraft(ctx, userID, draft.RemoteDraftID)
	if err != nil && !apperror.IsRemoteNotFound(err) {
		s.audit(false, auditRecord{
			action:   ActionGmailDraftDeleted,
			userID:   userID,
			threadID: draft.ThreadID,
			draftID:  draft.ID,
			message:  "Failed to delete Gmail draft, continuing with database deletion: " + err.Error(),
			err:      err,
		})
		return
	}
	s.audit(true, auditRecord{
		action:   ActionGmailDraftDeleted,
		userID:   userID,
		threadID: draft.ThreadID,
		draftID:  draft.ID,
		message:  "Gmail draft deleted",
		extra:    logger.Fields{"remoteDraftId": draft.RemoteDraftID},
	})
}

// findGenerated selects the newest GENERATED draft of the thread. When the
// thread only has drafts in other states, conflict builds the error.
func (s *draftService) findGenerated(ctx context.Context, threadID string, conflict func(model.DraftStatus) error) (*model.ReplyDraft, error) {
	draft, err := s.draftRepo.FindLatestByThreadAndStatus(ctx, threadID, model.DraftStatusGenerated)
	if err == nil {
		return draft, nil
	}
	if !errors.Is(err, repository.ErrDraftNotFound) {
		return nil, fmt.Errorf("failed to load reply draft: %w", err)
	}

	latest, err := s.draftRepo.FindLatestByThread(ctx, threadID)
	if errors.Is(err, repository.ErrDraftNotFound) {
		return nil, apperror.NotFound("Reply draft not found for threadId: %s", threadID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load reply draft: %w", err)
	}
	return nil, conflict(latest.Status)
}

func (s *draftService) GetDraftBody(ctx context.Context, threadID string) *model.DraftBodyResult {
	draft, err := s.draftRepo.FindLatestByThread(ctx, threadID)
	if errors.Is(err, repository.ErrDraftNotFound) {
		return model.NewDraftBodyFailure(threadID, apperror.NotFound("Reply draft not found for threadId: %s", threadID))
	}
	if err != nil {
		s.logger.Error("Failed to fetch draft body:", err)
		return model.NewDraftBodyFailure(threadID, apperror.Unexpected("Failed to fetch email body", err))
	}
	return model.NewDraftBodyResult(draft)
}

func (s *draftService) publish(userID, eventType string, draft *model.ReplyDraft) {
	if s.publisher == nil {
		return
	}
	s.publisher.BroadcastToUser(userID, eventType, map[string]interface{}{
		"threadId":      draft.ThreadID,
		"draftId":       draft.ID,
		"remoteDraftId": draft.RemoteDraftID,
		"status":        draft.Status,
	})
}

// actionFailure maps err onto the approve/reject result. Validation and
// state errors carry their own message; unexpected ones get a generic prefix.
func actionFailure(threadID, prefix string, err error) *model.ActionResult {
	switch apperror.KindOf(err) {
	case apperror.KindValidation, apperror.KindStateConflict:
		prefix = ""
	case apperror.KindUnexpected:
		prefix = "An unexpected error occurred: "
	}
	return model.NewActionFailure(threadID, prefix, err)
}
