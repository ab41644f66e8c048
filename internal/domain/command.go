// SPDX-License-Identifier: MIT

package domain

import "time"

// CommandName identifies a remote-control action for a display.
type CommandName string

const (
	CmdPlay           CommandName = "play"
	CmdPause          CommandName = "pause"
	CmdNext           CommandName = "next"
	CmdPrevious       CommandName = "previous"
	CmdRestart        CommandName = "restart"
	CmdReloadPlaylist CommandName = "reload_playlist"
	CmdEmergencyStop  CommandName = "emergency_stop"
	CmdVolumeUp       CommandName = "volume_up"
	CmdVolumeDown     CommandName = "volume_down"
	CmdMute           CommandName = "mute"
	CmdBGAudioPlay    CommandName = "bg_audio_play"
	CmdBGAudioPause   CommandName = "bg_audio_pause"
	CmdRefresh        CommandName = "refresh"
)

// Valid reports whether n is a known command name.
func (n CommandName) Valid() bool {
	switch n {
	case CmdPlay, CmdPause, CmdNext, CmdPrevious, CmdRestart, CmdReloadPlaylist,
		CmdEmergencyStop, CmdVolumeUp, CmdVolumeDown, CmdMute,
		CmdBGAudioPlay, CmdBGAudioPause, CmdRefresh:
		return true
	}
	return false
}

// Command is one entry in the remote command mailbox. Only the most recent row
// is ever served to a display; earlier rows are history for auditing.
type Command struct {
	ID        int64       `json:"id"`
	Name      CommandName `json:"comando"`
	Params    *string     `json:"parametros,omitempty"` // raw JSON blob, nil when absent
	IssuedBy  string      `json:"usuario,omitempty"`
	CreatedAt time.Time   `json:"criado_em"`
}
