// Copyright 2025 AI Redefined Inc. <dev+slipscan@ai-r.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite implements slip storage on a single file SQLite database,
// with schema migrations applied at startup.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/slipscan/slipscan/services/api/backend"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

type sqliteBackend struct {
	db *sqlx.DB
}

// dbSlip is a backend.Slip as stored in the database, optional fields mapped
// to sql.Null* types.
type dbSlip struct {
	ID          string         `db:"id"`
	Source      string         `db:"source"`
	Amount      sql.NullString `db:"amount"`
	Timestamp   sql.NullTime   `db:"date_time"`
	ReferenceNo sql.NullString `db:"reference_no"`
	RawText     string         `db:"raw_text"`
	ImageHash   sql.NullString `db:"image_hash"`
	MediaType   sql.NullString `db:"media_type"`
	CreatedAt   time.Time      `db:"created_at"`
}

func fromSlip(slip *backend.Slip) *dbSlip {
	stored := &dbSlip{
		ID:        slip.ID,
		Source:    string(slip.Source),
		RawText:   slip.RawText,
		CreatedAt: slip.CreatedAt,
	}
	if slip.Amount != nil {
		stored.Amount = sql.NullString{String: slip.Amount.String(), Valid: true}
	}
	if slip.Timestamp != nil {
		stored.Timestamp = sql.NullTime{Time: *slip.Timestamp, Valid: true}
	}
	if slip.Reference != nil {
		stored.ReferenceNo = sql.NullString{String: *slip.Reference, Valid: true}
	}
	if slip.ImageHash != "" {
		stored.ImageHash = sql.NullString{String: slip.ImageHash, Valid: true}
	}
	if slip.MediaType != "" {
		stored.MediaType = sql.NullString{String: slip.MediaType, Valid: true}
	}
	return stored
}

func toSlip(stored *dbSlip) (*backend.Slip, error) {
	slip := &backend.Slip{
		ID:        stored.ID,
		Source:    backend.Source(stored.Source),
		RawText:   stored.RawText,
		ImageHash: stored.ImageHash.String,
		MediaType: stored.MediaType.String,
		CreatedAt: stored.CreatedAt,
	}
	if stored.Amount.Valid {
		amount, err := decimal.NewFromString(stored.Amount.String)
		if err != nil {
			return nil, fmt.Errorf("invalid stored amount for slip %q: %w", stored.ID, err)
		}
		slip.Amount = &amount
	}
	if stored.Timestamp.Valid {
		timestamp := stored.Timestamp.Time
		slip.Timestamp = &timestamp
	}
	if stored.ReferenceNo.Valid {
		reference := stored.ReferenceNo.String
		slip.Reference = &reference
	}
	return slip, nil
}

// CreateSQLiteBackend opens the database file at the given path, creating it
// if needed, and applies pending migrations.
func CreateSQLiteBackend(path string) (backend.Backend, error) {
	db, err := sqlx.Connect("sqlite", fmt.Sprintf("%s?_journal=WAL&_timeout=5000&_fk=true", path))
	if err != nil {
		return nil, fmt.Errorf("unable to open the slip database: %w", err)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to enable foreign keys: %w", err)
	}

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to configure the migrations: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to migrate the slip database: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Destroy() {
	_ = b.db.Close()
}

func (b *sqliteBackend) AddSlip(ctx context.Context, slip *backend.Slip) error {
	_, err := b.db.NamedExecContext(
		ctx,
		`INSERT INTO slips (id, source, amount, date_time, reference_no, raw_text, image_hash, media_type, created_at)
		VALUES (:id, :source, :amount, :date_time, :reference_no, :raw_text, :image_hash, :media_type, :created_at)
		ON CONFLICT (id) DO UPDATE SET
			source = excluded.source,
			amount = excluded.amount,
			date_time = excluded.date_time,
			reference_no = excluded.reference_no,
			raw_text = excluded.raw_text,
			image_hash = excluded.image_hash,
			media_type = excluded.media_type`,
		fromSlip(slip),
	)
	if err != nil {
		return fmt.Errorf("unable to insert the slip: %w", err)
	}
	return nil
}

func (b *sqliteBackend) GetSlip(ctx context.Context, slipID string) (*backend.Slip, error) {
	stored := dbSlip{}
	err := b.db.GetContext(ctx, &stored, `SELECT * FROM slips WHERE id = ?`, slipID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &backend.UnknownSlipError{SlipID: slipID}
	}
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve the slip: %w", err)
	}
	return toSlip(&stored)
}

func (b *sqliteBackend) ListSlips(ctx context.Context, filter backend.Filter) ([]*backend.Slip, error) {
	query := `SELECT * FROM slips`
	conditions := []string{}
	args := []interface{}{}
	if filter.Reference != "" {
		conditions = append(conditions, `reference_no = ?`)
		args = append(args, filter.Reference)
	}
	if filter.Source != "" {
		conditions = append(conditions, `source = ?`)
		args = append(args, string(filter.Source))
	}
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, ` AND `)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// sqlite requires a LIMIT clause to accept an OFFSET
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	stored := []dbSlip{}
	if err := b.db.SelectContext(ctx, &stored, query, args...); err != nil {
		return nil, fmt.Errorf("unable to list the slips: %w", err)
	}

	slips := make([]*backend.Slip, 0, len(stored))
	for storedIdx := range stored {
		slip, err := toSlip(&stored[storedIdx])
		if err != nil {
			return nil, err
		}
		slips = append(slips, slip)
	}
	return slips, nil
}

func (b *sqliteBackend) DeleteSlip(ctx context.Context, slipID string) error {
	result, err := b.db.ExecContext(ctx, `DELETE FROM slips WHERE id = ?`, slipID)
	if err != nil {
		return fmt.Errorf("unable to delete the slip: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to check the deletion result: %w", err)
	}
	if deleted == 0 {
		return &backend.UnknownSlipError{SlipID: slipID}
	}
	return nil
}

func (b *sqliteBackend) CountByReference(ctx context.Context, reference string) (int, error) {
	count := 0
	err := b.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM slips WHERE reference_no = ?`, reference)
	if err != nil {
		return 0, fmt.Errorf("unable to count the slips: %w", err)
	}
	return count, nil
}
