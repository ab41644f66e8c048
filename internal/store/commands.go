// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

// InsertCommand appends a command to the mailbox table and returns it with its
// id set. History is retained for auditing; consumers only ever read the
// newest row.
func (s *Store) InsertCommand(ctx context.Context, c domain.Command) (domain.Command, error) {
	now := time.Now()
	var params any
	if c.Params != nil {
		params = *c.Params
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comandos (comando, parametros, usuario, criado_em) VALUES (?, ?, ?, ?)`,
		string(c.Name), params, c.IssuedBy, fmtTime(now))
	if err != nil {
		return domain.Command{}, fmt.Errorf("insert command: %w", err)
	}
	c.ID, _ = res.LastInsertId()
	c.CreatedAt = now
	return c, nil
}

// LatestCommand returns the single most recent command, or ErrNotFound when
// the mailbox is empty. The depth-1 mailbox contract lives in this query.
func (s *Store) LatestCommand(ctx context.Context) (domain.Command, error) {
	var (
		c       domain.Command
		params  sql.NullString
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, comando, parametros, usuario, criado_em FROM comandos ORDER BY id DESC LIMIT 1`).
		Scan(&c.ID, &c.Name, &params, &c.IssuedBy, &created)
	if err == sql.ErrNoRows {
		return domain.Command{}, ErrNotFound
	}
	if err != nil {
		return domain.Command{}, fmt.Errorf("select latest command: %w", err)
	}
	if params.Valid {
		v := params.String
		c.Params = &v
	}
	c.CreatedAt = parseTime(created)
	return c, nil
}
