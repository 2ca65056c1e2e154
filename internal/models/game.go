package models

import (
	"slices"
	"time"
)

// Verdict is the secret ground truth of a case.
type Verdict string

const (
	VerdictGuilty   Verdict = "guilty"
	VerdictInnocent Verdict = "innocent"
)

func (v Verdict) Valid() bool {
	return v == VerdictGuilty || v == VerdictInnocent
}

// Stage marks how far a game has progressed.
type Stage string

const (
	StagePrelude       Stage = "prelude"
	StageInterrogation Stage = "interrogation"
	StageDeliberation  Stage = "deliberation"
	StageClosed        Stage = "closed"
)

// stageTransitions lists the stages reachable from each stage.
var stageTransitions = map[Stage][]Stage{
	StagePrelude:       {StageInterrogation},
	StageInterrogation: {StageDeliberation},
	StageDeliberation:  {StageClosed},
	StageClosed:        nil,
}

func (s Stage) Valid() bool {
	_, ok := stageTransitions[s]
	return ok
}

// CanTransitionTo reports whether next directly follows s.
func (s Stage) CanTransitionTo(next Stage) bool {
	return slices.Contains(stageTransitions[s], next)
}

// CaseFacts is the hidden, omniscient account of a case. It is only ever used as generation context.
type CaseFacts struct {
	TrueVerdict    Verdict `json:"trueVerdict"`
	ObjectiveFacts string  `json:"objectiveFacts"`
}

// DefendantIdentity identifies the defendant's conversation thread in the history service.
type DefendantIdentity struct {
	AppID     string `json:"appId"`
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
}

// GameState is the persisted record of one game. It is written once at creation.
type GameState struct {
	ID        string            `json:"id"`
	StartTime time.Time         `json:"startTime"`
	Defendant DefendantIdentity `json:"honchoDefendant"`
	CaseFacts CaseFacts         `json:"caseFacts"`
	Dossier   string            `json:"dossier"`
	Stage     Stage             `json:"gameStage"`
}

// Turn is one message in a defendant's conversation thread.
type Turn struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"isUser"`
	CreatedAt time.Time `json:"createdAt"`
}
