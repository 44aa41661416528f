package reassignmenthandlers

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

const (
	summarySheet = "Summary"
	gamesSheet   = "Needing Venue"
	// maxExportGames bounds the games sheet; larger backlogs are paged through the RPC.
	maxExportGames = 2000
)

func collectGamesNeedingVenue(ctx context.Context, svc reassignmentservice.Service, entityID sharedtypes.EntityID) ([]gamedb.Game, error) {
	var games []gamedb.Game
	input := reassignmentservice.ListGamesNeedingVenueInput{EntityID: entityID, Limit: 200}
	for len(games) < maxExportGames {
		page, err := svc.ListGamesNeedingVenue(ctx, input)
		if err != nil {
			return nil, err
		}
		games = append(games, page.Items...)
		if page.NextToken == "" {
			break
		}
		input.NextToken = page.NextToken
	}
	if len(games) > maxExportGames {
		games = games[:maxExportGames]
	}
	return games, nil
}

func buildSummaryWorkbook(summary reassignmentservice.VenueAssignmentSummary, games []gamedb.Game) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	entity := string(summary.EntityID)
	if entity == "" {
		entity = "all entities"
	}
	rows := [][]any{
		{"Entity", entity},
		{"Total games", summary.TotalGames},
		{"Needing venue", summary.NeedingVenue},
		{"Assigned ratio", summary.AssignedRatio},
		{},
		{"Status", "Count"},
	}
	for _, c := range summary.ByStatus {
		rows = append(rows, []any{string(c.Status), c.Count})
	}
	if err := writeRows(f, summarySheet, rows); err != nil {
		f.Close()
		return nil, err
	}

	if _, err := f.NewSheet(gamesSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	rows = [][]any{{"Game ID", "Name", "Entity ID", "Venue ID", "Status", "Start", "Players"}}
	for _, g := range games {
		rows = append(rows, []any{
			g.ID.String(),
			g.Name,
			string(g.EntityID),
			g.VenueID.String(),
			string(g.VenueAssignmentStatus),
			g.GameStartDateTime.UTC().Format("2006-01-02 15:04"),
			g.PlayerCount(),
		})
	}
	if err := writeRows(f, gamesSheet, rows); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
