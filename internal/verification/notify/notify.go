// Package notify carries the out-of-band leg of a verification: it asks the
// holder's device for consent over NATS and feeds the device's answer back
// into the session.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"vcanchor/contracts/holder"
	"vcanchor/internal/verification/models"
	"vcanchor/pkg/requestcontext"
)

const (
	headerMsgID     = "Nats-Msg-Id"
	headerRequestID = "X-Request-ID"
)

// Publisher is the slice of *nats.Conn used to send holder requests.
type Publisher interface {
	PublishMsg(m *nats.Msg) error
}

// NATSNotifier publishes a HolderRequest per begun session.
type NATSNotifier struct {
	pub     Publisher
	subject string
	logger  *slog.Logger
}

func NewNATS(pub Publisher, subject string, logger *slog.Logger) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{pub: pub, subject: subject, logger: logger}
}

func (n *NATSNotifier) NotifyHolder(ctx context.Context, req models.HolderRequest) error {
	data, err := json.Marshal(toContract(req))
	if err != nil {
		return fmt.Errorf("marshal holder request: %w", err)
	}
	msg := nats.NewMsg(n.subject)
	msg.Data = data
	msg.Header.Set(headerMsgID, req.SessionID)
	if rid := requestcontext.RequestID(ctx); rid != "" {
		msg.Header.Set(headerRequestID, rid)
	}
	if err := n.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish holder request: %w", err)
	}
	n.logger.InfoContext(ctx, "holder request published",
		"session_id", req.SessionID,
		"subject", n.subject,
	)
	return nil
}

func toContract(req models.HolderRequest) holder.Request {
	return holder.Request{
		Version:      holder.ContractVersion,
		SessionID:    req.SessionID,
		CredentialID: req.CredentialID,
		Verifier: holder.Verifier{
			Org:     req.Verifier.Org,
			Contact: req.Verifier.Contact,
			Purpose: req.Verifier.Purpose,
		},
		RequestedAt: req.RequestedAt.UTC().Format(time.RFC3339),
		ExpiresAt:   req.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// LogNotifier stands in when no NATS server is configured. Holders then
// answer through the HTTP present endpoint only.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyHolder(ctx context.Context, req models.HolderRequest) error {
	n.logger.InfoContext(ctx, "holder request not delivered, no message bus configured",
		"session_id", req.SessionID,
		"verifier_org", req.Verifier.Org,
	)
	return nil
}
