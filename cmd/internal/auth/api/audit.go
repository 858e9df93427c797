package authapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEvent is one security-relevant console action.
type AuditEvent struct {
	Action     string
	AccountID  *int
	TokenFP    string
	IP         net.IP
	UserAgent  string
	Meta       map[string]any
	OccurredAt time.Time
}

// AuditSink records audit events. Implementations must not block the caller for long
// and must swallow their own failures.
type AuditSink interface {
	Record(ctx context.Context, ev AuditEvent)
}

// LogAudit writes audit events to a logger.
type LogAudit struct {
	Log *slog.Logger
}

// Record implements AuditSink.
func (a LogAudit) Record(ctx context.Context, ev AuditEvent) {
	log := a.Log
	if log == nil {
		log = slog.Default()
	}
	attrs := []any{"action", ev.Action}
	if ev.AccountID != nil {
		attrs = append(attrs, "account_id", *ev.AccountID)
	}
	if ev.TokenFP != "" {
		attrs = append(attrs, "token_fp", ev.TokenFP)
	}
	if ev.IP != nil {
		attrs = append(attrs, "ip", ev.IP.String())
	}
	for k, v := range ev.Meta {
		attrs = append(attrs, k, v)
	}
	log.InfoContext(ctx, "audit", attrs...)
}

// PostgresAudit inserts audit events into methodius.audit_log.
type PostgresAudit struct {
	Pool *pgxpool.Pool
	Log  *slog.Logger
}

// AuditSchema creates the audit table. It is idempotent.
const AuditSchema = `
CREATE SCHEMA IF NOT EXISTS methodius;
CREATE TABLE IF NOT EXISTS methodius.audit_log (
	id          bigserial PRIMARY KEY,
	action      text        NOT NULL,
	account_id  integer,
	token_fp    text,
	created_at  timestamptz NOT NULL DEFAULT now(),
	ip          inet,
	user_agent  text,
	meta        jsonb
);
CREATE INDEX IF NOT EXISTS audit_log_action_created_at_idx ON methodius.audit_log (action, created_at);
`

// Record implements AuditSink.
func (a PostgresAudit) Record(ctx context.Context, ev AuditEvent) {
	if a.Pool == nil {
		return
	}
	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return
	}

	var ipVal any
	if ev.IP != nil {
		ipVal = ev.IP.String()
	}

	var metaVal *string
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			s := string(b)
			metaVal = &s
		}
	}

	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	_, err := a.Pool.Exec(ctx, `
		INSERT INTO methodius.audit_log (
			action, account_id, token_fp, created_at, ip, user_agent, meta
		) VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb)
	`, action, ev.AccountID, trimOrNil(ev.TokenFP), at, ipVal, trimOrNil(ev.UserAgent), metaVal)
	if err != nil && a.Log != nil {
		a.Log.Error("auth.audit.insert.fail", "err", err, "action", action)
	}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}

func (h *Handler) audit(ctx context.Context, r requestMeta, action string, accountID *int, tokenFP string, meta map[string]any) {
	if h.auditSink == nil {
		return
	}
	h.auditSink.Record(ctx, AuditEvent{
		Action:     action,
		AccountID:  accountID,
		TokenFP:    tokenFP,
		IP:         r.ip,
		UserAgent:  r.userAgent,
		Meta:       meta,
		OccurredAt: time.Now().UTC(),
	})
}
