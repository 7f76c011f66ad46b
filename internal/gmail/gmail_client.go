package gmail

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"draftly/internal/apperror"
	"draftly/internal/logger"
	"draftly/internal/model"
)

const (
	serviceName = "gmail"
	// "me" refers to the authenticated user
	me = "me"

	fetchConcurrency = 5
)

// Mailbox is a Gmail API session for one authenticated account.
type Mailbox struct {
	client *gmail.Service
	logger *logger.Logger
}

func NewMailbox(ctx context.Context, logger *logger.Logger, opts ...option.ClientOption) (*Mailbox, error) {
	gmailService, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Mailbox{
		client: gmailService,
		logger: logger,
	}, nil
}

// remoteError converts a Gmail API failure into the status-coded error the
// draft engine classifies.
func remoteError(operation string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apperror.NewRemoteError(serviceName, apiErr.Code, operation, apiErr.Body, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperror.NewRemoteError(serviceName, 0, operation, "", err)
}

func (m *Mailbox) FetchMessage(ctx context.Context, messageID string) (*model.MessageData, error) {
	msg, err := m.client.Users.Messages.Get(me, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, remoteError("fetch message", err)
	}
	return toMessageData(msg)
}

func (m *Mailbox) FetchThread(ctx context.Context, threadID string) (*model.ThreadData, error) {
	thread, err := m.client.Users.Threads.Get(me, threadID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, remoteError("fetch thread", err)
	}

	data := &model.ThreadData{ID: thread.Id}
	for _, msg := range thread.Messages {
		message, err := toMessageData(msg)
		if err != nil {
			return nil, err
		}
		data.Messages = append(data.Messages, message)
	}
	return data, nil
}

// listMessages returns up to max messages carrying label, fetched
// concurrently and kept in the order the API listed them.
func (m *Mailbox) listMessages(ctx context.Context, label string, max int) ([]*model.MessageData, error) {
	list, err := m.client.Users.Messages.List(me).LabelIds(label).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, remoteError("list "+label+" messages", err)
	}

	messages := make([]*model.MessageData, len(list.Messages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, ref := range list.Messages {
		i, id := i, ref.Id
		g.Go(func() error {
			message, err := m.FetchMessage(gctx, id)
			if err != nil {
				return err
			}
			messages[i] = message
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	m.logger.Debugf("Fetched %d %s messages from Gmail", len(messages), label)
	return messages, nil
}

func (m *Mailbox) ListSentBodies(ctx context.Context, max int) ([]string, error) {
	messages, err := m.listMessages(ctx, "SENT", max)
	if err != nil {
		return nil, err
	}
	bodies := make([]string, len(messages))
	for i, msg := range messages {
		bodies[i] = msg.Body
	}
	return bodies, nil
}

func (m *Mailbox) ListInbox(ctx context.Context, max int) ([]*model.MessageData, error) {
	return m.listMessages(ctx, "INBOX", max)
}

func (m *Mailbox) CreateDraft(ctx context.Context, reply *model.OutgoingReply) (string, error) {
	msg, err := newReplyMessage(reply)
	if err != nil {
		return "", err
	}
	draft, err := m.client.Users.Drafts.Create(me, &gmail.Draft{Message: msg}).Context(ctx).Do()
	if err != nil {
		return "", remoteError("create draft", err)
	}
	m.logger.Info("Created Gmail draft:", draft.Id)
	return draft.Id, nil
}

func (m *Mailbox) UpdateDraft(ctx context.Context, remoteDraftID string, reply *model.OutgoingReply) (string, error) {
	msg, err := newReplyMessage(reply)
	if err != nil {
		return "", err
	}
	draft, err := m.client.Users.Drafts.Update(me, remoteDraftID, &gmail.Draft{Id: remoteDraftID, Message: msg}).Context(ctx).Do()
	if err != nil {
		return "", remoteError("update draft", err)
	}
	m.logger.Info("Updated Gmail draft:", draft.Id)
	return draft.Id, nil
}

func (m *Mailbox) DeleteDraft(ctx context.Context, remoteDraftID string) error {
	err := m.client.Users.Drafts.Delete(me, remoteDraftID).Context(ctx).Do()
	if err != nil {
		err = remoteError("delete draft", err)
		if apperror.IsRemoteNotFound(err) {
			m.logger.Info("Gmail draft already deleted:", remoteDraftID)
			return nil
		}
		return err
	}
	m.logger.Info("Deleted Gmail draft:", remoteDraftID)
	return nil
}

func (m *Mailbox) SendReply(ctx context.Context, reply *model.OutgoingReply) error {
	msg, err := newReplyMessage(reply)
	if err != nil {
		return err
	}
	sent, err := m.client.Users.Messages.Send(me, msg).Context(ctx).Do()
	if err != nil {
		return remoteError("send reply", err)
	}
	m.logger.Info("Sent reply message:", sent.Id)
	return nil
}
