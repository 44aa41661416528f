package reassignmenthandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// Command runs one named operation against the reassignment service.
type Command func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error)

// commandSpec registers a command under its name and legacy aliases.
type commandSpec struct {
	name    string
	aliases []string
	run     Command
}

type batchAssignArgs struct {
	Assignments []reassignmentservice.AssignVenueInput `json:"assignments"`
}

type summaryArgs struct {
	EntityID sharedtypes.EntityID `json:"entityId"`
}

type statusArgs struct {
	TaskID sharedtypes.TaskID `json:"taskId"`
}

type venueArgs struct {
	CanonicalVenueID sharedtypes.VenueID  `json:"canonicalVenueId"`
	EntityID         sharedtypes.EntityID `json:"entityId"`
}

func defaultCommands() []commandSpec {
	return []commandSpec{
		{
			name:    "reassignGameVenue",
			aliases: []string{"reassign"},
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in reassignmentservice.ReassignGameVenueInput
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				stampCaller(&in.InitiatedBy, inv)
				return svc.ReassignGameVenue(ctx, in)
			},
		},
		{
			name:    "bulkReassignGameVenues",
			aliases: []string{"bulkReassign"},
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in reassignmentservice.BulkReassignInput
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				stampCaller(&in.InitiatedBy, inv)
				return svc.BulkReassignGameVenues(ctx, in)
			},
		},
		{
			name:    "assignVenueToGame",
			aliases: []string{"assignVenue"},
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in reassignmentservice.AssignVenueInput
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				stampCaller(&in.InitiatedBy, inv)
				return svc.AssignVenueToGame(ctx, in)
			},
		},
		{
			name:    "batchAssignVenues",
			aliases: []string{"batchAssign"},
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in batchAssignArgs
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				for i := range in.Assignments {
					stampCaller(&in.Assignments[i].InitiatedBy, inv)
				}
				return svc.BatchAssignVenues(ctx, in.Assignments)
			},
		},
		{
			name:    "listGamesNeedingVenue",
			aliases: []string{"getGamesNeedingVenue"},
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in reassignmentservice.ListGamesNeedingVenueInput
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				return svc.ListGamesNeedingVenue(ctx, in)
			},
		},
		{
			name:    "getVenueAssignmentSummary",
			aliases: []string{"getSummary"},
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in summaryArgs
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				return svc.GetVenueAssignmentSummary(ctx, in.EntityID)
			},
		},
		{
			name: "getReassignmentStatus",
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in statusArgs
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				if in.TaskID == "" {
					return nil, fmt.Errorf("%w: taskId is required", ErrInvalidArguments)
				}
				return svc.GetReassignmentStatus(ctx, in.TaskID)
			},
		},
		{
			name: "getVenueClones",
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in venueArgs
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				if in.CanonicalVenueID == "" {
					return nil, fmt.Errorf("%w: canonicalVenueId is required", ErrInvalidArguments)
				}
				return svc.GetVenueClones(ctx, in.CanonicalVenueID)
			},
		},
		{
			name: "findVenueForEntity",
			run: func(ctx context.Context, svc reassignmentservice.Service, inv Invocation) (any, error) {
				var in venueArgs
				if err := decodeArgs(inv.Arguments, &in); err != nil {
					return nil, err
				}
				if in.CanonicalVenueID == "" || in.EntityID == "" {
					return nil, fmt.Errorf("%w: canonicalVenueId and entityId are required", ErrInvalidArguments)
				}
				return svc.FindVenueForEntity(ctx, in.CanonicalVenueID, in.EntityID)
			},
		},
	}
}

// buildRegistry indexes specs by name and alias. Duplicate or empty names are
// rejected so a typo cannot silently shadow another operation.
func buildRegistry(specs []commandSpec) (map[string]Command, error) {
	registry := make(map[string]Command, len(specs)*2)
	for _, spec := range specs {
		if spec.run == nil {
			return nil, fmt.Errorf("command %q has no handler", spec.name)
		}
		for _, name := range append([]string{spec.name}, spec.aliases...) {
			if name == "" {
				return nil, fmt.Errorf("command registered with an empty name")
			}
			if _, exists := registry[name]; exists {
				return nil, fmt.Errorf("command %q registered twice", name)
			}
			registry[name] = spec.run
		}
	}
	return registry, nil
}

// stampCaller attributes the operation to the authenticated caller. A caller
// identity always replaces whatever the arguments claim.
func stampCaller(initiatedBy *string, inv Invocation) {
	if inv.InitiatedBy != "" {
		*initiatedBy = inv.InitiatedBy
	}
}

func decodeArgs(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
