// Package stage tracks a mentee's way through the mentoring stages: which
// unlock notification to show next and which stages are complete.
package stage

import (
	"errors"
	"fmt"
)

const (
	// FirstStage and LastStage bound the valid stage numbers.
	FirstStage = 1
	LastStage  = 7
)

// ErrInvalidStage is returned for stage numbers outside FirstStage..LastStage.
var ErrInvalidStage = errors.New("invalid stage")

// Validate returns ErrInvalidStage when n is not a mentoring stage.
func Validate(n int) error {
	if n < FirstStage || n > LastStage {
		return fmt.Errorf("%w: %d", ErrInvalidStage, n)
	}
	return nil
}

// Notification is the banner shown when a stage becomes available.
type Notification struct {
	Stage   int    `json:"stage"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// Catalog holds the notification for every stage that announces its unlock.
var Catalog = map[int]Notification{
	1: {
		Stage:   1,
		Title:   "LinkedIn Pronto! 🎉",
		Message: "Seu novo LinkedIn está pronto, clique aqui para iniciarmos a Etapa 1 da Mentoria",
		Path:    "/etapa/1",
	},
	2: {
		Stage:   2,
		Title:   "Etapa 2 Liberada! 📄",
		Message: "Você já pode criar seu currículo estratégico na Etapa 2",
		Path:    "/cv",
	},
	3: {
		Stage:   3,
		Title:   "Funil Pronto! 🎯",
		Message: "Seu funil de oportunidades está pronto, clique aqui para ver sua estratégia personalizada",
		Path:    "/etapa/3",
	},
	5: {
		Stage:   5,
		Title:   "Etapa 5 Liberada! 💼",
		Message: "Você já pode criar sua apresentação para convencer o gestor",
		Path:    "/etapa/5",
	},
}

// Priority is the order in which unlocked stages are announced.
var Priority = []int{5, 3, 2, 1}

// Unlocks are the facts about a mentee that open stages.
type Unlocks struct {
	LinkedInDiagnosticPublished bool `json:"linkedin_diagnostic_published" query:"linkedin_diagnostic_published"`
	Stage2Unlocked              bool `json:"stage2_unlocked" query:"stage2_unlocked"`
	OpportunityFunnelPublished  bool `json:"opportunity_funnel_published" query:"opportunity_funnel_published"`
	HasInterviewHistory         bool `json:"has_interview_history" query:"has_interview_history"`
}

// Unlocked reports whether stage n is open.
func (u Unlocks) Unlocked(n int) bool {
	switch n {
	case 1:
		return u.LinkedInDiagnosticPublished
	case 2:
		return u.Stage2Unlocked
	case 3:
		return u.OpportunityFunnelPublished
	case 5:
		return u.HasInterviewHistory
	default:
		return false
	}
}
