// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

const announcementCols = `id, titulo, mensagem, tipo, localidade_id, ativo,
	data_inicio, data_fim, horario_inicio, horario_fim, dias_semana,
	prioridade, repeticoes, intervalo_ms, criado_em, atualizado_em`

func scanAnnouncement(row interface{ Scan(...any) error }) (domain.Announcement, error) {
	var (
		a          domain.Announcement
		locID      sql.NullInt64
		active     int
		start, end sql.NullString
		weekdays   string
		created    string
		updated    string
	)
	err := row.Scan(&a.ID, &a.Title, &a.Message, &a.Type, &locID, &active,
		&start, &end, &a.StartClock, &a.EndClock, &weekdays,
		&a.Priority, &a.Repetitions, &a.RepeatEvery, &created, &updated)
	if err != nil {
		return domain.Announcement{}, err
	}
	a.LocalityID = scanNullID(locID)
	a.Active = active != 0
	a.StartDate = parseDate(start)
	a.EndDate = parseDate(end)
	a.Weekdays, _ = domain.ParseWeekdaySet(weekdays)
	a.CreatedAt = parseTime(created)
	a.UpdatedAt = parseTime(updated)
	return a, nil
}

// CreateAnnouncement inserts a new announcement and returns it with its id and
// timestamps filled in.
func (s *Store) CreateAnnouncement(ctx context.Context, a domain.Announcement) (domain.Announcement, error) {
	if err := a.Validate(); err != nil {
		return domain.Announcement{}, err
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `INSERT INTO avisos
		(titulo, mensagem, tipo, localidade_id, ativo, data_inicio, data_fim,
		 horario_inicio, horario_fim, dias_semana, prioridade, repeticoes, intervalo_ms,
		 criado_em, atualizado_em)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, a.Message, string(a.Type), nullID(a.LocalityID), boolInt(a.Active),
		fmtDate(a.StartDate), fmtDate(a.EndDate), a.StartClock, a.EndClock,
		a.Weekdays.String(), a.Priority, a.Repetitions, a.RepeatEvery,
		fmtTime(now), fmtTime(now))
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("insert announcement: %w", err)
	}
	a.ID, _ = res.LastInsertId()
	a.CreatedAt = now
	a.UpdatedAt = now
	return a, nil
}

// UpdateAnnouncement rewrites all mutable fields of an existing announcement.
func (s *Store) UpdateAnnouncement(ctx context.Context, a domain.Announcement) error {
	if err := a.Validate(); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `UPDATE avisos SET
		titulo=?, mensagem=?, tipo=?, localidade_id=?, ativo=?, data_inicio=?, data_fim=?,
		horario_inicio=?, horario_fim=?, dias_semana=?, prioridade=?, repeticoes=?,
		intervalo_ms=?, atualizado_em=? WHERE id=?`,
		a.Title, a.Message, string(a.Type), nullID(a.LocalityID), boolInt(a.Active),
		fmtDate(a.StartDate), fmtDate(a.EndDate), a.StartClock, a.EndClock,
		a.Weekdays.String(), a.Priority, a.Repetitions, a.RepeatEvery,
		fmtTime(time.Now()), a.ID)
	if err != nil {
		return fmt.Errorf("update announcement %d: %w", a.ID, err)
	}
	return requireRow(res, a.ID)
}

// DeactivateAnnouncement soft-deletes by flipping the active flag.
func (s *Store) DeactivateAnnouncement(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE avisos SET ativo=0, atualizado_em=? WHERE id=?`, fmtTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("deactivate announcement %d: %w", id, err)
	}
	return requireRow(res, id)
}

// DeleteAnnouncement removes the row entirely.
func (s *Store) DeleteAnnouncement(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM avisos WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete announcement %d: %w", id, err)
	}
	return requireRow(res, id)
}

// Announcement fetches a single announcement by id.
func (s *Store) Announcement(ctx context.Context, id int64) (domain.Announcement, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+announcementCols+` FROM avisos WHERE id=?`, id)
	a, err := scanAnnouncement(row)
	if err == sql.ErrNoRows {
		return domain.Announcement{}, ErrNotFound
	}
	if err != nil {
		return domain.Announcement{}, fmt.Errorf("select announcement %d: %w", id, err)
	}
	return a, nil
}

// ActiveAnnouncements returns active rows ordered by descending priority then
// descending creation time, optionally scoped to one locality (global rows are
// always included). Time-window eligibility is evaluated by the caller so the
// predicate lives in exactly one place.
func (s *Store) ActiveAnnouncements(ctx context.Context, localityID *int64) ([]domain.Announcement, error) {
	query := `SELECT ` + announcementCols + ` FROM avisos WHERE ativo=1`
	args := []any{}
	if localityID != nil {
		query += ` AND (localidade_id IS NULL OR localidade_id=?)`
		args = append(args, *localityID)
	}
	query += ` ORDER BY prioridade DESC, criado_em DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select active announcements: %w", err)
	}
	defer rows.Close()

	var out []domain.Announcement
	for rows.Next() {
		a, err := scanAnnouncement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan announcement: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertExhibition appends one exhibition audit record.
func (s *Store) InsertExhibition(ctx context.Context, e domain.Exhibition) error {
	shownAt := e.ShownAt
	if shownAt.IsZero() {
		shownAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO avisos_log (aviso_id, localidade_id, duracao_ms, exibido_em) VALUES (?, ?, ?, ?)`,
		e.AnnouncementID, nullID(e.LocalityID), e.DurationMS, fmtTime(shownAt))
	if err != nil {
		return fmt.Errorf("insert exhibition: %w", err)
	}
	return nil
}

// ExhibitionReport aggregates the exhibition log per announcement since the
// given instant.
func (s *Store) ExhibitionReport(ctx context.Context, since time.Time) ([]domain.ExhibitionReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.aviso_id, COALESCE(a.titulo, ''), COUNT(*), COALESCE(SUM(l.duracao_ms), 0)
		FROM avisos_log l LEFT JOIN avisos a ON a.id = l.aviso_id
		WHERE l.exibido_em >= ?
		GROUP BY l.aviso_id, a.titulo
		ORDER BY COUNT(*) DESC`, fmtTime(since))
	if err != nil {
		return nil, fmt.Errorf("exhibition report: %w", err)
	}
	defer rows.Close()

	var out []domain.ExhibitionReportRow
	for rows.Next() {
		var r domain.ExhibitionReportRow
		if err := rows.Scan(&r.AnnouncementID, &r.Title, &r.Count, &r.TotalDurationMS); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("announcement %d: %w", id, ErrNotFound)
	}
	return nil
}
