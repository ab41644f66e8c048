// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"fmt"
)

// schema is applied idempotently at startup. Dates are stored as "2006-01-02"
// strings, timestamps as RFC3339, weekday sets as comma-separated digits.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS localidades (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		nome      TEXT NOT NULL,
		descricao TEXT NOT NULL DEFAULT '',
		ativo     INTEGER NOT NULL DEFAULT 1,
		criado_em TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS localidade_ips (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		localidade_id INTEGER NOT NULL REFERENCES localidades(id) ON DELETE CASCADE,
		regra         TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS videos (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		titulo      TEXT NOT NULL,
		descricao   TEXT NOT NULL DEFAULT '',
		categoria   TEXT NOT NULL DEFAULT '',
		arquivo     TEXT NOT NULL DEFAULT '',
		youtube_url TEXT NOT NULL DEFAULT '',
		duracao_s   INTEGER NOT NULL DEFAULT 0,
		ativo       INTEGER NOT NULL DEFAULT 1,
		ordem       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS playlists (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		nome  TEXT NOT NULL,
		ativo INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_videos (
		playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		video_id    INTEGER NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		posicao     INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (playlist_id, video_id)
	)`,
	`CREATE TABLE IF NOT EXISTS localidade_videos (
		localidade_id INTEGER NOT NULL REFERENCES localidades(id) ON DELETE CASCADE,
		video_id      INTEGER NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		prioridade    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (localidade_id, video_id)
	)`,
	`CREATE TABLE IF NOT EXISTS localidade_playlists (
		localidade_id INTEGER NOT NULL REFERENCES localidades(id) ON DELETE CASCADE,
		playlist_id   INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		prioridade    INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (localidade_id, playlist_id)
	)`,
	`CREATE TABLE IF NOT EXISTS imagens (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		titulo     TEXT NOT NULL,
		descricao  TEXT NOT NULL DEFAULT '',
		arquivo    TEXT NOT NULL,
		duracao_ms INTEGER NOT NULL DEFAULT 10000,
		ordem      INTEGER NOT NULL DEFAULT 0,
		ativo      INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS mensagens (
		id    INTEGER PRIMARY KEY AUTOINCREMENT,
		texto TEXT NOT NULL,
		ordem INTEGER NOT NULL DEFAULT 0,
		ativo INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS avisos (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		titulo         TEXT NOT NULL,
		mensagem       TEXT NOT NULL DEFAULT '',
		tipo           TEXT NOT NULL,
		localidade_id  INTEGER REFERENCES localidades(id) ON DELETE SET NULL,
		ativo          INTEGER NOT NULL DEFAULT 1,
		data_inicio    TEXT,
		data_fim       TEXT,
		horario_inicio TEXT NOT NULL DEFAULT '',
		horario_fim    TEXT NOT NULL DEFAULT '',
		dias_semana    TEXT NOT NULL DEFAULT '',
		prioridade     INTEGER NOT NULL DEFAULT 0,
		repeticoes     INTEGER NOT NULL DEFAULT 0,
		intervalo_ms   INTEGER NOT NULL DEFAULT 0,
		criado_em      TEXT NOT NULL,
		atualizado_em  TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS avisos_log (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		aviso_id      INTEGER NOT NULL,
		localidade_id INTEGER,
		duracao_ms    INTEGER NOT NULL DEFAULT 0,
		exibido_em    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS comandos (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		comando    TEXT NOT NULL,
		parametros TEXT,
		usuario    TEXT NOT NULL DEFAULT '',
		criado_em  TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_avisos_ativo ON avisos(ativo, prioridade)`,
	`CREATE INDEX IF NOT EXISTS idx_avisos_log_aviso ON avisos_log(aviso_id)`,
	`CREATE INDEX IF NOT EXISTS idx_localidade_ips_loc ON localidade_ips(localidade_id)`,
}

// Bootstrap creates all tables and indexes if they do not exist.
func (s *Store) Bootstrap(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap schema: %w", err)
		}
	}
	return nil
}
