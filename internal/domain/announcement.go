// SPDX-License-Identifier: MIT

// Package domain holds the core content types shared by the API, the stores,
// the sync bridge and the display client.
package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AnnouncementType classifies an announcement. The values are domain terms used
// by clinic staff and are kept in Portuguese on the wire.
type AnnouncementType string

const (
	TypeConsulta    AnnouncementType = "consulta"
	TypeMedicacao   AnnouncementType = "medicacao"
	TypeCampanha    AnnouncementType = "campanha"
	TypeUrgencia    AnnouncementType = "urgencia"
	TypeInformativo AnnouncementType = "informativo"
	TypeHorario     AnnouncementType = "horario"
	TypeEvento      AnnouncementType = "evento"
)

// Valid reports whether t is a known announcement type.
func (t AnnouncementType) Valid() bool {
	switch t {
	case TypeConsulta, TypeMedicacao, TypeCampanha, TypeUrgencia, TypeInformativo, TypeHorario, TypeEvento:
		return true
	}
	return false
}

// WeekdaySet restricts an announcement to a set of weekdays (0=Sunday..6=Saturday).
// An empty set means no restriction.
type WeekdaySet []time.Weekday

// Contains reports whether the set allows d. Empty sets allow every day.
func (s WeekdaySet) Contains(d time.Weekday) bool {
	if len(s) == 0 {
		return true
	}
	for _, w := range s {
		if w == d {
			return true
		}
	}
	return false
}

// String renders the set as a comma-separated list ("1,2,3"), the storage format.
func (s WeekdaySet) String() string {
	if len(s) == 0 {
		return ""
	}
	parts := make([]string, 0, len(s))
	for _, w := range s {
		parts = append(parts, strconv.Itoa(int(w)))
	}
	return strings.Join(parts, ",")
}

// ParseWeekdaySet parses a comma-separated weekday list. Empty input yields an
// empty (unrestricted) set.
func ParseWeekdaySet(raw string) (WeekdaySet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	set := make(WeekdaySet, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > 6 {
			return nil, fmt.Errorf("invalid weekday %q", p)
		}
		set = append(set, time.Weekday(n))
	}
	return set, nil
}

// Announcement is a timed, typed notice shown on clinic displays.
// Date and time-of-day bounds are open-ended when empty.
type Announcement struct {
	ID           int64            `json:"id"`
	Title        string           `json:"titulo"`
	Message      string           `json:"mensagem"`
	Type         AnnouncementType `json:"tipo"`
	LocalityID   *int64           `json:"localidade_id,omitempty"` // nil targets every locality
	Active       bool             `json:"ativo"`
	StartDate    *time.Time       `json:"data_inicio,omitempty"`
	EndDate      *time.Time       `json:"data_fim,omitempty"`
	StartClock   string           `json:"horario_inicio,omitempty"` // "HH:MM"
	EndClock     string           `json:"horario_fim,omitempty"`    // "HH:MM"
	Weekdays     WeekdaySet       `json:"dias_semana,omitempty"`
	Priority     int              `json:"prioridade"`
	Repetitions  int              `json:"repeticoes"`
	RepeatEvery  int64            `json:"intervalo_ms"`
	CreatedAt    time.Time        `json:"criado_em"`
	UpdatedAt    time.Time        `json:"atualizado_em"`
}

// ParseClock converts an "HH:MM" string to minutes since midnight.
func ParseClock(raw string) (int, error) {
	parts := strings.SplitN(raw, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q", raw)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", raw)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", raw)
	}
	return h*60 + m, nil
}

// EligibleAt reports whether the announcement may be shown at instant t.
// An announcement is eligible when it is active, t's date falls inside
// [StartDate, EndDate] (inclusive, open-ended when unset), t's time of day falls
// inside [StartClock, EndClock] (open-ended when unset) and t's weekday is in
// Weekdays (empty set allows all days).
func (a Announcement) EligibleAt(t time.Time) bool {
	if !a.Active {
		return false
	}

	day := dateOnly(t)
	if a.StartDate != nil && day.Before(dateOnly(*a.StartDate)) {
		return false
	}
	if a.EndDate != nil && day.After(dateOnly(*a.EndDate)) {
		return false
	}

	minutes := t.Hour()*60 + t.Minute()
	if a.StartClock != "" {
		if start, err := ParseClock(a.StartClock); err == nil && minutes < start {
			return false
		}
	}
	if a.EndClock != "" {
		if end, err := ParseClock(a.EndClock); err == nil && minutes > end {
			return false
		}
	}

	return a.Weekdays.Contains(t.Weekday())
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Urgent reports whether the announcement qualifies for the tight urgent sync
// cycle: highest-severity type or priority at or above the threshold.
func (a Announcement) Urgent(priorityThreshold int) bool {
	return a.Type == TypeUrgencia || a.Priority >= priorityThreshold
}

// Validate checks fields that cannot be enforced by the schema.
func (a Announcement) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return fmt.Errorf("announcement title is empty")
	}
	if !a.Type.Valid() {
		return fmt.Errorf("unknown announcement type %q", a.Type)
	}
	if a.StartClock != "" {
		if _, err := ParseClock(a.StartClock); err != nil {
			return err
		}
	}
	if a.EndClock != "" {
		if _, err := ParseClock(a.EndClock); err != nil {
			return err
		}
	}
	if a.StartDate != nil && a.EndDate != nil && a.EndDate.Before(*a.StartDate) {
		return fmt.Errorf("announcement ends before it starts")
	}
	return nil
}
