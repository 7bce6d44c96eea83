package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"vcanchor/contracts/holder"
	"vcanchor/internal/verification/models"
	dErrors "vcanchor/pkg/domain-errors"
	"vcanchor/pkg/requestcontext"
)

const defaultHandleTimeout = 10 * time.Second

// Presenter applies a holder's answer to a session.
type Presenter interface {
	Present(ctx context.Context, sessionID, credID string, approve bool) (*models.Session, error)
}

// QueueSubscriber is the slice of *nats.Conn used to receive holder answers.
type QueueSubscriber interface {
	QueueSubscribe(subj, queue string, cb nats.MsgHandler) (*nats.Subscription, error)
}

// Responder turns holder.Response messages into Present calls. Instances
// share a queue group so each answer is applied by exactly one node.
type Responder struct {
	presenter Presenter
	logger    *slog.Logger
	timeout   time.Duration
}

type ResponderOption func(*Responder)

func WithHandleTimeout(d time.Duration) ResponderOption {
	return func(r *Responder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewResponder(presenter Presenter, logger *slog.Logger, opts ...ResponderOption) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Responder{presenter: presenter, logger: logger, timeout: defaultHandleTimeout}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Responder) Subscribe(sub QueueSubscriber, subject, queue string) (*nats.Subscription, error) {
	s, err := sub.QueueSubscribe(subject, queue, r.handleMsg)
	if err != nil {
		return nil, err
	}
	r.logger.Info("subscribed to holder responses", "subject", subject, "queue", queue)
	return s, nil
}

func (r *Responder) handleMsg(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if rid := msg.Header.Get(headerRequestID); rid != "" {
		ctx = requestcontext.WithRequestID(ctx, rid)
	}
	ctx = requestcontext.WithTime(ctx, time.Now())

	ack := r.Handle(ctx, msg.Data)
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(ack)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to marshal holder ack", "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		r.logger.WarnContext(ctx, "failed to reply to holder", "session_id", ack.SessionID, "error", err)
	}
}

// Handle decodes one holder.Response and applies it. The returned Ack is
// sent back when the message carries a reply subject.
func (r *Responder) Handle(ctx context.Context, data []byte) holder.Ack {
	var resp holder.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		r.logger.WarnContext(ctx, "dropping malformed holder response", "error", err)
		return holder.Ack{Error: string(dErrors.CodeBadRequest)}
	}
	if resp.SessionID == "" {
		r.logger.WarnContext(ctx, "dropping holder response without session id")
		return holder.Ack{Error: string(dErrors.CodeBadRequest)}
	}

	session, err := r.presenter.Present(ctx, resp.SessionID, resp.CredentialID, resp.Approve)
	if err != nil {
		code := dErrors.CodeOf(err)
		if code == dErrors.CodeInternal {
			r.logger.ErrorContext(ctx, "failed to apply holder response", "session_id", resp.SessionID, "error", err)
		} else {
			r.logger.WarnContext(ctx, "holder response rejected", "session_id", resp.SessionID, "code", code)
		}
		return holder.Ack{SessionID: resp.SessionID, Error: string(code)}
	}
	result := session.CurrentResult()
	return holder.Ack{
		SessionID: session.ID,
		State:     string(session.State),
		Result:    &holder.Result{Valid: result.Valid, Reason: string(result.Reason)},
	}
}
