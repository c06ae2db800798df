package pg

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/mfakit/pkg/audit"
)

const insertAuditEventSQL = `INSERT INTO mfa_audit_events
	(id, user_id, action, method, ip, user_agent, request_id, metadata, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const auditEventColumns = `id, user_id, action, method, ip, user_agent, request_id, metadata, created_at`

// AuditStorage persists audit events in mfa_audit_events. It implements
// audit.Storage, audit.BatchWriter, audit.StorageQuerier and audit.StorageCounter.
type AuditStorage struct {
	db DB
}

func NewAuditStorage(db DB) *AuditStorage {
	return &AuditStorage{db: db}
}

func (s *AuditStorage) Store(ctx context.Context, event audit.Event) error {
	args, err := auditEventArgs(event)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, insertAuditEventSQL, args...); err != nil {
		return fmt.Errorf("pg: store audit event: %w", err)
	}
	return nil
}

// StoreBatch inserts events in one round trip. The batch runs in an implicit
// transaction, so either all events are stored or none.
func (s *AuditStorage) StoreBatch(ctx context.Context, events []audit.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range events {
		args, err := auditEventArgs(e)
		if err != nil {
			return err
		}
		batch.Queue(insertAuditEventSQL, args...)
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("pg: store audit batch: %w", err)
	}
	return nil
}

func (s *AuditStorage) Query(ctx context.Context, criteria audit.Criteria) ([]audit.Event, error) {
	query, args := buildAuditQuery(criteria)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pg: query audit events: %w", err)
	}
	events, err := pgx.CollectRows(rows, scanAuditEvent)
	if err != nil {
		return nil, fmt.Errorf("pg: scan audit events: %w", err)
	}
	return events, nil
}

func (s *AuditStorage) Count(ctx context.Context, criteria audit.Criteria) (int64, error) {
	where, args := buildAuditWhere(criteria)
	var n int64
	if err := s.db.QueryRow(ctx, "SELECT count(*) FROM mfa_audit_events"+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("pg: count audit events: %w", err)
	}
	return n, nil
}

func auditEventArgs(e audit.Event) ([]any, error) {
	id, err := uuid.Parse(e.ID)
	if err != nil {
		return nil, fmt.Errorf("pg: audit event id %q: %w", e.ID, err)
	}
	var metadata any
	if len(e.Metadata) > 0 {
		metadata = e.Metadata
	}
	return []any{
		id, e.UserID, string(e.Action), string(e.Method),
		e.IP, e.UserAgent, e.RequestID, metadata, e.CreatedAt.UTC(),
	}, nil
}

func scanAuditEvent(row pgx.CollectableRow) (audit.Event, error) {
	var (
		e              audit.Event
		id             uuid.UUID
		action, method string
	)
	err := row.Scan(&id, &e.UserID, &action, &method, &e.IP, &e.UserAgent, &e.RequestID, &e.Metadata, &e.CreatedAt)
	e.ID = id.String()
	e.Action = audit.Action(action)
	e.Method = audit.Method(method)
	return e, err
}

// buildAuditQuery renders criteria as a SELECT, newest first.
func buildAuditQuery(c audit.Criteria) (string, []any) {
	where, args := buildAuditWhere(c)

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(auditEventColumns)
	b.WriteString(" FROM mfa_audit_events")
	b.WriteString(where)
	b.WriteString(" ORDER BY created_at DESC, id DESC")
	if c.Limit > 0 {
		args = append(args, c.Limit)
		b.WriteString(" LIMIT $" + strconv.Itoa(len(args)))
	}
	if c.Offset > 0 {
		args = append(args, c.Offset)
		b.WriteString(" OFFSET $" + strconv.Itoa(len(args)))
	}
	return b.String(), args
}

// buildAuditWhere returns the WHERE clause for the filter part of c, or an
// empty string when nothing filters.
func buildAuditWhere(c audit.Criteria) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if c.UserID != "" {
		add("user_id = $%d", c.UserID)
	}
	if len(c.Actions) > 0 {
		add("action = ANY($%d)", c.ActionStrings())
	}
	if c.Method != audit.MethodNone {
		add("method = $%d", string(c.Method))
	}
	if !c.From.IsZero() {
		add("created_at >= $%d", c.From.UTC())
	}
	if !c.To.IsZero() {
		add("created_at < $%d", c.To.UTC())
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

var (
	_ audit.Storage        = (*AuditStorage)(nil)
	_ audit.BatchWriter    = (*AuditStorage)(nil)
	_ audit.StorageQuerier = (*AuditStorage)(nil)
	_ audit.StorageCounter = (*AuditStorage)(nil)
)
