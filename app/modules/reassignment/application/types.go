package reassignmentservice

import (
	"encoding/json"
	"time"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/shopspring/decimal"
)

const (
	TaskTypeReassignment     = "VENUE_REASSIGNMENT"
	TaskTypeBulkReassignment = "BULK_VENUE_REASSIGNMENT"
	TaskTypeAssignment       = "VENUE_ASSIGNMENT"
	TargetTypeGame           = "GAME"
)

// GameData is the snapshot of the game carried with a reassignment.
type GameData struct {
	GameStartDateTime time.Time           `json:"gameStartDateTime"`
	BuyIn             decimal.Decimal     `json:"buyIn"`
	Rake              decimal.Decimal     `json:"rake"`
	ParentGameID      *sharedtypes.GameID `json:"parentGameId,omitempty"`
}

// ReassignmentRequest moves a game and its player records to a new venue/entity.
type ReassignmentRequest struct {
	GameID      sharedtypes.GameID   `json:"gameId"`
	OldVenueID  sharedtypes.VenueRef `json:"oldVenueId"`
	NewVenueID  sharedtypes.VenueID  `json:"newVenueId"`
	OldEntityID sharedtypes.EntityID `json:"oldEntityId"`
	NewEntityID sharedtypes.EntityID `json:"newEntityId"`
	GameData    GameData             `json:"gameData"`
}

// QueueMessage is the body of a queued reassignment.
type QueueMessage struct {
	ReassignmentRequest
	TaskID sharedtypes.TaskID `json:"taskId,omitempty"`
}

// GroupKey scopes ordering: messages for one game are processed one at a time.
func (m QueueMessage) GroupKey() string {
	return m.GameID.String()
}

// DedupKey is taskId (or "x") + gameId + timestamp.
func (m QueueMessage) DedupKey(at time.Time) string {
	task := "x"
	if m.TaskID != "" {
		task = m.TaskID.String()
	}
	return task + m.GameID.String() + at.UTC().Format("20060102150405.000000000")
}

// QueueJob is handed to the Enqueuer.
type QueueJob struct {
	GroupKey string
	DedupKey string
	Message  QueueMessage
}

// QueueRecord is one delivered message. Body holds a QueueMessage.
// RetriesRemaining is set when a failure will be redelivered, so it is not
// yet reported against the message's task.
type QueueRecord struct {
	MessageID        string          `json:"messageId"`
	Body             json.RawMessage `json:"body"`
	RetriesRemaining bool            `json:"retriesRemaining,omitempty"`
}

// ConsumeResult lists the records that should be redelivered.
type ConsumeResult struct {
	Processed        int      `json:"processed"`
	FailedMessageIDs []string `json:"failedMessageIds"`
}

// Stage names one step of the reassignment pipeline.
type Stage string

const (
	StageGameUpdate    Stage = "game_update"
	StageEntries       Stage = "player_entries"
	StageResults       Stage = "player_results"
	StageTransactions  Stage = "player_transactions"
	StagePlayerVenues  Stage = "player_venues"
	StageSummaries     Stage = "player_summaries"
	StageRegistrations Stage = "player_registrations"
)

// PipelineStats counts the work done by each stage.
type PipelineStats struct {
	GameUpdated          bool `json:"gameUpdated"`
	ParentGameUpdated    bool `json:"parentGameUpdated"`
	EntriesUpdated       int  `json:"entriesUpdated"`
	ResultsUpdated       int  `json:"resultsUpdated"`
	TransactionsUpdated  int  `json:"transactionsUpdated"`
	PlayersAffected      int  `json:"playersAffected"`
	PlayerVenuesCreated  int  `json:"playerVenuesCreated"`
	PlayerVenuesUpdated  int  `json:"playerVenuesUpdated"`
	PlayerVenuesDeleted  int  `json:"playerVenuesDeleted"`
	SummariesIncremented int  `json:"summariesIncremented"`
	SummariesDecremented int  `json:"summariesDecremented"`
	SummaryWarnings      int  `json:"summaryWarnings"`
	RegistrationsUpdated int  `json:"registrationsUpdated"`
}

// PipelineResult is the outcome of ProcessReassignment. Stats reflect every
// stage that completed, including on failure.
type PipelineResult struct {
	Success     bool          `json:"success"`
	Message     string        `json:"message"`
	FailedStage Stage         `json:"failedStage,omitempty"`
	Stats       PipelineStats `json:"stats"`
}

// DispatchStatus is the caller-visible result of a reassignment request.
type DispatchStatus string

const (
	StatusFailed    DispatchStatus = "FAILED"
	StatusNoChange  DispatchStatus = "NO_CHANGE"
	StatusQueued    DispatchStatus = "QUEUED"
	StatusCompleted DispatchStatus = "COMPLETED"
)

// ReassignGameVenueInput requests a single game move.
type ReassignGameVenueInput struct {
	GameID         sharedtypes.GameID  `json:"gameId"`
	NewVenueID     sharedtypes.VenueID `json:"newVenueId"`
	ReassignEntity bool                `json:"reassignEntity"`
	InitiatedBy    string              `json:"initiatedBy,omitempty"`
}

// ReassignmentOutcome is returned by the single-game dispatch operations.
type ReassignmentOutcome struct {
	Status      DispatchStatus       `json:"status"`
	Message     string               `json:"message"`
	GameID      sharedtypes.GameID   `json:"gameId"`
	TaskID      sharedtypes.TaskID   `json:"taskId,omitempty"`
	OldVenueID  sharedtypes.VenueRef `json:"oldVenueId"`
	NewVenueID  sharedtypes.VenueID  `json:"newVenueId,omitempty"`
	OldEntityID sharedtypes.EntityID `json:"oldEntityId,omitempty"`
	NewEntityID sharedtypes.EntityID `json:"newEntityId,omitempty"`
	VenueCloned bool                 `json:"venueCloned"`
	Result      *PipelineResult      `json:"result,omitempty"`
}

// BulkReassignInput moves many games to one venue. A non-empty EntityID
// restricts the batch to games of that entity.
type BulkReassignInput struct {
	GameIDs        []sharedtypes.GameID `json:"gameIds"`
	NewVenueID     sharedtypes.VenueID  `json:"newVenueId"`
	EntityID       sharedtypes.EntityID `json:"entityId,omitempty"`
	ReassignEntity bool                 `json:"reassignEntity"`
	InitiatedBy    string               `json:"initiatedBy,omitempty"`
}

// SkippedGame explains why a game was left out of a bulk batch.
type SkippedGame struct {
	GameID sharedtypes.GameID `json:"gameId"`
	Reason string             `json:"reason"`
}

// BulkReassignOutcome summarises a bulk dispatch.
type BulkReassignOutcome struct {
	Status          DispatchStatus       `json:"status"`
	Message         string               `json:"message"`
	TaskID          sharedtypes.TaskID   `json:"taskId,omitempty"`
	QueuedGameIDs   []sharedtypes.GameID `json:"queuedGameIds"`
	Skipped         []SkippedGame        `json:"skipped"`
	NotFound        []sharedtypes.GameID `json:"notFound"`
	FailedToEnqueue []sharedtypes.GameID `json:"failedToEnqueue,omitempty"`
}

// AssignVenueInput assigns a venue of the game's own entity.
type AssignVenueInput struct {
	GameID      sharedtypes.GameID  `json:"gameId"`
	VenueID     sharedtypes.VenueID `json:"venueId"`
	InitiatedBy string              `json:"initiatedBy,omitempty"`
}

// BatchAssignFailure is one failed assignment of a batch.
type BatchAssignFailure struct {
	GameID  sharedtypes.GameID   `json:"gameId"`
	Error   string               `json:"error"`
	Outcome *ReassignmentOutcome `json:"outcome,omitempty"`
}

// BatchAssignOutcome partitions a batch into successful and failed assignments.
type BatchAssignOutcome struct {
	Successful []ReassignmentOutcome `json:"successful"`
	Failed     []BatchAssignFailure  `json:"failed"`
}

// ListGamesNeedingVenueInput pages games that still need a venue. StartedAfter
// accepts RFC3339 or phrases such as "2 weeks ago".
type ListGamesNeedingVenueInput struct {
	EntityID     sharedtypes.EntityID `json:"entityId,omitempty"`
	Limit        int                  `json:"limit,omitempty"`
	NextToken    string               `json:"nextToken,omitempty"`
	StartedAfter string               `json:"startedAfter,omitempty"`
}

// GamesPage is one page of games. An empty NextToken means no more pages.
type GamesPage struct {
	Items     []gamedb.Game `json:"items"`
	NextToken string        `json:"nextToken,omitempty"`
}

// VenueAssignmentSummary counts games by assignment status.
type VenueAssignmentSummary struct {
	EntityID      sharedtypes.EntityID `json:"entityId,omitempty"`
	TotalGames    int                  `json:"totalGames"`
	NeedingVenue  int                  `json:"needingVenue"`
	ByStatus      []gamedb.StatusCount `json:"byStatus"`
	AssignedRatio float64              `json:"assignedRatio"`
}

// VenueClones is the canonical venue and its entity-scoped copies.
type VenueClones struct {
	CanonicalVenueID sharedtypes.VenueID `json:"canonicalVenueId"`
	Venues           []venuedb.Venue     `json:"venues"`
}
