// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ubsdigital/tvsaude/internal/domain"
)

// CreateLocality inserts a locality and returns it with its id set.
func (s *Store) CreateLocality(ctx context.Context, l domain.Locality) (domain.Locality, error) {
	now := time.Now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO localidades (nome, descricao, ativo, criado_em) VALUES (?, ?, ?, ?)`,
		l.Name, l.Description, boolInt(l.Active), fmtTime(now))
	if err != nil {
		return domain.Locality{}, fmt.Errorf("insert locality: %w", err)
	}
	l.ID, _ = res.LastInsertId()
	l.CreatedAt = now
	return l, nil
}

// Locality fetches one locality by id.
func (s *Store) Locality(ctx context.Context, id int64) (domain.Locality, error) {
	var (
		l       domain.Locality
		active  int
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nome, descricao, ativo, criado_em FROM localidades WHERE id=?`, id).
		Scan(&l.ID, &l.Name, &l.Description, &active, &created)
	if err == sql.ErrNoRows {
		return domain.Locality{}, ErrNotFound
	}
	if err != nil {
		return domain.Locality{}, fmt.Errorf("select locality %d: %w", id, err)
	}
	l.Active = active != 0
	l.CreatedAt = parseTime(created)
	return l, nil
}

// AddLocalityIP attaches an IP rule (exact, CIDR or range) to a locality.
func (s *Store) AddLocalityIP(ctx context.Context, localityID int64, rule string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO localidade_ips (localidade_id, regra) VALUES (?, ?)`, localityID, rule)
	if err != nil {
		return fmt.Errorf("insert locality ip: %w", err)
	}
	return nil
}

// LocalityIPRules returns every IP rule for active localities.
func (s *Store) LocalityIPRules(ctx context.Context) ([]domain.LocalityIP, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.localidade_id, i.regra
		FROM localidade_ips i JOIN localidades l ON l.id = i.localidade_id
		WHERE l.ativo = 1`)
	if err != nil {
		return nil, fmt.Errorf("select locality ip rules: %w", err)
	}
	defer rows.Close()

	var out []domain.LocalityIP
	for rows.Next() {
		var r domain.LocalityIP
		if err := rows.Scan(&r.ID, &r.LocalityID, &r.Rule); err != nil {
			return nil, fmt.Errorf("scan ip rule: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CreateVideo inserts a video and returns it with its id set.
func (s *Store) CreateVideo(ctx context.Context, v domain.Video) (domain.Video, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO videos
		(titulo, descricao, categoria, arquivo, youtube_url, duracao_s, ativo, ordem)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		v.Title, v.Description, v.Category, v.FilePath, v.YouTubeURL,
		v.DurationSec, boolInt(v.Active), v.Order)
	if err != nil {
		return domain.Video{}, fmt.Errorf("insert video: %w", err)
	}
	v.ID, _ = res.LastInsertId()
	return v, nil
}

const videoCols = `id, titulo, descricao, categoria, arquivo, youtube_url, duracao_s, ativo, ordem`

func scanVideo(row interface{ Scan(...any) error }) (domain.Video, error) {
	var (
		v      domain.Video
		active int
	)
	err := row.Scan(&v.ID, &v.Title, &v.Description, &v.Category, &v.FilePath,
		&v.YouTubeURL, &v.DurationSec, &active, &v.Order)
	if err != nil {
		return domain.Video{}, err
	}
	v.Active = active != 0
	return v, nil
}

func (s *Store) collectVideos(rows *sql.Rows) ([]domain.Video, error) {
	defer rows.Close()
	var out []domain.Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ActiveVideos returns every active video ordered for display. This is the
// resolver's fallback of last resort.
func (s *Store) ActiveVideos(ctx context.Context) ([]domain.Video, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+videoCols+` FROM videos WHERE ativo=1 ORDER BY ordem ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select active videos: %w", err)
	}
	return s.collectVideos(rows)
}

// CreatePlaylist inserts a playlist and returns it with its id set.
func (s *Store) CreatePlaylist(ctx context.Context, p domain.Playlist) (domain.Playlist, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO playlists (nome, ativo) VALUES (?, ?)`, p.Name, boolInt(p.Active))
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("insert playlist: %w", err)
	}
	p.ID, _ = res.LastInsertId()
	return p, nil
}

// SetActivePlaylist activates one playlist and deactivates every other in a
// single transaction; "at most one active playlist" is an application rule,
// not a schema constraint.
func (s *Store) SetActivePlaylist(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate playlist: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE playlists SET ativo=0 WHERE id<>?`, id); err != nil {
		return fmt.Errorf("deactivate playlists: %w", err)
	}
	res, err := tx.ExecContext(ctx, `UPDATE playlists SET ativo=1 WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("activate playlist %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
	}
	return tx.Commit()
}

// ActivePlaylist returns the globally active playlist, or ErrNotFound when
// none is active.
func (s *Store) ActivePlaylist(ctx context.Context) (domain.Playlist, error) {
	var (
		p      domain.Playlist
		active int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, nome, ativo FROM playlists WHERE ativo=1 ORDER BY id LIMIT 1`).
		Scan(&p.ID, &p.Name, &active)
	if err == sql.ErrNoRows {
		return domain.Playlist{}, ErrNotFound
	}
	if err != nil {
		return domain.Playlist{}, fmt.Errorf("select active playlist: %w", err)
	}
	p.Active = active != 0
	return p, nil
}

// AddPlaylistVideo appends a video to a playlist at the given position.
func (s *Store) AddPlaylistVideo(ctx context.Context, playlistID, videoID int64, position int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO playlist_videos (playlist_id, video_id, posicao) VALUES (?, ?, ?)`,
		playlistID, videoID, position)
	if err != nil {
		return fmt.Errorf("insert playlist video: %w", err)
	}
	return nil
}

// PlaylistVideos returns the active videos of a playlist in playlist order.
func (s *Store) PlaylistVideos(ctx context.Context, playlistID int64) ([]domain.Video, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.titulo, v.descricao, v.categoria, v.arquivo, v.youtube_url,
		       v.duracao_s, v.ativo, v.ordem
		FROM playlist_videos pv JOIN videos v ON v.id = pv.video_id
		WHERE pv.playlist_id = ? AND v.ativo = 1
		ORDER BY pv.posicao ASC, v.id ASC`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("select playlist videos: %w", err)
	}
	return s.collectVideos(rows)
}

// LinkedVideo is a video attached directly to a locality with a priority weight.
type LinkedVideo struct {
	Video    domain.Video
	Priority int
}

// LinkedPlaylist is a playlist attached to a locality with a priority weight.
type LinkedPlaylist struct {
	Playlist domain.Playlist
	Priority int
}

// LinkLocalityVideo attaches a video directly to a locality.
func (s *Store) LinkLocalityVideo(ctx context.Context, localityID, videoID int64, priority int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO localidade_videos (localidade_id, video_id, prioridade) VALUES (?, ?, ?)`,
		localityID, videoID, priority)
	if err != nil {
		return fmt.Errorf("link locality video: %w", err)
	}
	return nil
}

// LinkLocalityPlaylist attaches a playlist to a locality.
func (s *Store) LinkLocalityPlaylist(ctx context.Context, localityID, playlistID int64, priority int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO localidade_playlists (localidade_id, playlist_id, prioridade) VALUES (?, ?, ?)`,
		localityID, playlistID, priority)
	if err != nil {
		return fmt.Errorf("link locality playlist: %w", err)
	}
	return nil
}

// LocalityVideos returns the active videos attached directly to a locality.
func (s *Store) LocalityVideos(ctx context.Context, localityID int64) ([]LinkedVideo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT v.id, v.titulo, v.descricao, v.categoria, v.arquivo, v.youtube_url,
		       v.duracao_s, v.ativo, v.ordem, lv.prioridade
		FROM localidade_videos lv JOIN videos v ON v.id = lv.video_id
		WHERE lv.localidade_id = ? AND v.ativo = 1`, localityID)
	if err != nil {
		return nil, fmt.Errorf("select locality videos: %w", err)
	}
	defer rows.Close()

	var out []LinkedVideo
	for rows.Next() {
		var (
			lv     LinkedVideo
			active int
		)
		v := &lv.Video
		err := rows.Scan(&v.ID, &v.Title, &v.Description, &v.Category, &v.FilePath,
			&v.YouTubeURL, &v.DurationSec, &active, &v.Order, &lv.Priority)
		if err != nil {
			return nil, fmt.Errorf("scan locality video: %w", err)
		}
		v.Active = active != 0
		out = append(out, lv)
	}
	return out, rows.Err()
}

// LocalityPlaylists returns the active playlists attached to a locality.
func (s *Store) LocalityPlaylists(ctx context.Context, localityID int64) ([]LinkedPlaylist, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.nome, p.ativo, lp.prioridade
		FROM localidade_playlists lp JOIN playlists p ON p.id = lp.playlist_id
		WHERE lp.localidade_id = ? AND p.ativo = 1`, localityID)
	if err != nil {
		return nil, fmt.Errorf("select locality playlists: %w", err)
	}
	defer rows.Close()

	var out []LinkedPlaylist
	for rows.Next() {
		var (
			lp     LinkedPlaylist
			active int
		)
		if err := rows.Scan(&lp.Playlist.ID, &lp.Playlist.Name, &active, &lp.Priority); err != nil {
			return nil, fmt.Errorf("scan locality playlist: %w", err)
		}
		lp.Playlist.Active = active != 0
		out = append(out, lp)
	}
	return out, rows.Err()
}

// CreateImage inserts a slideshow image and returns it with its id set.
func (s *Store) CreateImage(ctx context.Context, img domain.Image) (domain.Image, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO imagens
		(titulo, descricao, arquivo, duracao_ms, ordem, ativo) VALUES (?, ?, ?, ?, ?, ?)`,
		img.Title, img.Description, img.FilePath, img.DurationMS, img.Order, boolInt(img.Active))
	if err != nil {
		return domain.Image{}, fmt.Errorf("insert image: %w", err)
	}
	img.ID, _ = res.LastInsertId()
	return img, nil
}

// ActiveImages returns the active slideshow images in display order.
func (s *Store) ActiveImages(ctx context.Context) ([]domain.Image, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, titulo, descricao, arquivo, duracao_ms, ordem, ativo
		FROM imagens WHERE ativo=1 ORDER BY ordem ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select active images: %w", err)
	}
	defer rows.Close()

	var out []domain.Image
	for rows.Next() {
		var (
			img    domain.Image
			active int
		)
		err := rows.Scan(&img.ID, &img.Title, &img.Description, &img.FilePath,
			&img.DurationMS, &img.Order, &active)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		img.Active = active != 0
		out = append(out, img)
	}
	return out, rows.Err()
}

// CreateMessage inserts a ticker message and returns it with its id set.
func (s *Store) CreateMessage(ctx context.Context, m domain.TickerMessage) (domain.TickerMessage, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO mensagens (texto, ordem, ativo) VALUES (?, ?, ?)`,
		m.Text, m.Order, boolInt(m.Active))
	if err != nil {
		return domain.TickerMessage{}, fmt.Errorf("insert message: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return m, nil
}

// ActiveMessages returns the active ticker messages in display order.
func (s *Store) ActiveMessages(ctx context.Context) ([]domain.TickerMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, texto, ordem, ativo FROM mensagens WHERE ativo=1 ORDER BY ordem ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select active messages: %w", err)
	}
	defer rows.Close()

	var out []domain.TickerMessage
	for rows.Next() {
		var (
			m      domain.TickerMessage
			active int
		)
		if err := rows.Scan(&m.ID, &m.Text, &m.Order, &active); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Active = active != 0
		out = append(out, m)
	}
	return out, rows.Err()
}
