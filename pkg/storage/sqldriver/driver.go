// Package sqldriver implements storage.Driver on ent's SQL dialect layer.
// Queries are built with entgo.io/ent/dialect/sql and the schema is migrated
// with entgo.io/ent/dialect/sql/schema; the sqlite and postgres packages open
// the connection and embed Driver.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	"github.com/papercomputeco/consolechat/pkg/storage"
)

// Driver provides conversation storage over an ent SQL driver.
type Driver struct {
	drv *entsql.Driver

	now func() time.Time
}

// New wraps drv. Call Migrate before first use.
func New(drv *entsql.Driver) *Driver {
	return &Driver{drv: drv, now: func() time.Time { return time.Now().UTC() }}
}

// Open wraps an open *sql.DB for the given ent dialect and migrates the
// schema. The database is closed when migration fails.
func Open(ctx context.Context, dialectName string, db *sql.DB) (*Driver, error) {
	d := New(entsql.OpenDB(dialectName, db))
	if err := d.Migrate(ctx); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Migrate creates or updates the tables and indexes.
func (d *Driver) Migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(d.drv)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// DB returns the underlying database handle.
func (d *Driver) DB() *sql.DB {
	return d.drv.DB()
}

func (d *Driver) builder() *entsql.DialectBuilder {
	return entsql.Dialect(d.drv.Dialect())
}

// insert runs an INSERT and returns the new row id. PostgreSQL reports it
// through RETURNING, SQLite through LastInsertId.
func (d *Driver) insert(ctx context.Context, eq dialect.ExecQuerier, ins *entsql.InsertBuilder) (int64, error) {
	if d.drv.Dialect() == dialect.Postgres {
		query, args := ins.Returning(colID).Query()
		var rows entsql.Rows
		if err := eq.Query(ctx, query, args, &rows); err != nil {
			return 0, err
		}
		defer rows.Close()

		if !rows.Next() {
			if err := rows.Err(); err != nil {
				return 0, err
			}
			return 0, errors.New("insert returned no id")
		}
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		return id, rows.Err()
	}

	query, args := ins.Query()
	var res sql.Result
	if err := eq.Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// update runs an UPDATE and reports NotFoundError when no row matched id.
func (d *Driver) update(ctx context.Context, eq dialect.ExecQuerier, upd *entsql.UpdateBuilder, id int64) error {
	query, args := upd.Query()
	var res sql.Result
	if err := eq.Exec(ctx, query, args, &res); err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return storage.NotFoundError{ConversationID: id}
	}
	return nil
}

func (d *Driver) CreateConversation(ctx context.Context, conv *storage.Conversation) (*storage.Conversation, error) {
	if conv == nil {
		return nil, storage.ErrNilRecord
	}

	out := *conv
	out.Title = storage.TruncateTitle(out.Title)
	out.CreateTime = d.now()
	out.UpdateTime = out.CreateTime

	ins := d.builder().Insert(conversationTable).
		Columns(colUserID, colTitle, colPlatform, colModel, colSystemMessage, colCreateTime, colUpdateTime).
		Values(out.UserID, out.Title, out.Platform, out.Model, out.SystemMessage, out.CreateTime, out.UpdateTime)

	id, err := d.insert(ctx, d.drv, ins)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	out.ID = id

	return &out, nil
}

func (d *Driver) conversationSelector() *entsql.Selector {
	return d.builder().
		Select(colID, colUserID, colTitle, colPlatform, colModel, colSystemMessage, colCreateTime, colUpdateTime).
		From(entsql.Table(conversationTable))
}

func scanConversation(rows *entsql.Rows, conv *storage.Conversation) error {
	return rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.Platform, &conv.Model,
		&conv.SystemMessage, &conv.CreateTime, &conv.UpdateTime)
}

func (d *Driver) GetConversation(ctx context.Context, id int64) (*storage.Conversation, error) {
	query, args := d.conversationSelector().Where(entsql.EQ(colID, id)).Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("getting conversation %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("getting conversation %d: %w", id, err)
		}
		return nil, storage.NotFoundError{ConversationID: id}
	}

	conv := &storage.Conversation{}
	if err := scanConversation(&rows, conv); err != nil {
		return nil, fmt.Errorf("scanning conversation: %w", err)
	}

	return conv, nil
}

func (d *Driver) ListConversations(ctx context.Context, userID int64) ([]*storage.ConversationSummary, error) {
	query, args := d.conversationSelector().
		Where(entsql.EQ(colUserID, userID)).
		OrderBy(entsql.Desc(colUpdateTime), entsql.Desc(colID)).
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}

	result := []*storage.ConversationSummary{}
	for rows.Next() {
		s := &storage.ConversationSummary{}
		if err := scanConversation(&rows, &s.Conversation); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	rows.Close()

	for _, s := range result {
		last, err := d.lastMessage(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		s.LastMessage = last
	}

	return result, nil
}

// lastMessage returns the content of the newest message in a conversation,
// or "" when it has none.
func (d *Driver) lastMessage(ctx context.Context, conversationID int64) (string, error) {
	query, args := d.builder().
		Select(colContent).
		From(entsql.Table(messageTable)).
		Where(entsql.EQ(colConversationID, conversationID)).
		OrderBy(entsql.Desc(colID)).
		Limit(1).
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return "", fmt.Errorf("getting last message: %w", err)
	}
	defer rows.Close()

	var content string
	if rows.Next() {
		if err := rows.Scan(&content); err != nil {
			return "", fmt.Errorf("scanning last message: %w", err)
		}
	}
	return content, rows.Err()
}

func (d *Driver) UpdateConversationTitle(ctx context.Context, id int64, title string) error {
	upd := d.builder().Update(conversationTable).
		Set(colTitle, storage.TruncateTitle(title)).
		Where(entsql.EQ(colID, id))

	if err := d.update(ctx, d.drv, upd, id); err != nil {
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			return err
		}
		return fmt.Errorf("updating conversation title: %w", err)
	}
	return nil
}

func (d *Driver) AddMessage(ctx context.Context, msg *storage.Message) (*storage.Message, error) {
	if msg == nil {
		return nil, storage.ErrNilRecord
	}

	out := *msg
	out.CreateTime = d.now()

	tx, err := d.drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}

	touch := d.builder().Update(conversationTable).
		Set(colUpdateTime, out.CreateTime).
		Where(entsql.EQ(colID, out.ConversationID))
	if err := d.update(ctx, tx, touch, out.ConversationID); err != nil {
		_ = tx.Rollback()
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			return nil, err
		}
		return nil, fmt.Errorf("touching conversation: %w", err)
	}

	ins := d.builder().Insert(messageTable).
		Columns(colConversationID, colUserID, colType, colModel, colContent, colCreateTime).
		Values(out.ConversationID, out.UserID, out.Type, out.Model, out.Content, out.CreateTime)
	id, err := d.insert(ctx, tx, ins)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	out.ID = id

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing message: %w", err)
	}

	return &out, nil
}

func (d *Driver) History(ctx context.Context, conversationID int64) ([]*storage.Message, error) {
	if _, err := d.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	return d.messages(ctx, conversationID)
}

func (d *Driver) ListMessages(ctx context.Context, conversationID, userID int64) ([]*storage.Message, error) {
	conv, err := d.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, storage.NotFoundError{ConversationID: conversationID}
	}
	return d.messages(ctx, conversationID)
}

func (d *Driver) messages(ctx context.Context, conversationID int64) ([]*storage.Message, error) {
	query, args := d.builder().
		Select(colID, colConversationID, colUserID, colType, colModel, colContent, colCreateTime).
		From(entsql.Table(messageTable)).
		Where(entsql.EQ(colConversationID, conversationID)).
		OrderBy(colID).
		Query()

	var rows entsql.Rows
	if err := d.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer rows.Close()

	result := []*storage.Message{}
	for rows.Next() {
		m := &storage.Message{}
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &m.Type, &m.Model, &m.Content, &m.CreateTime); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		result = append(result, m)
	}

	return result, rows.Err()
}

func (d *Driver) Close() error {
	return d.drv.Close()
}
