package tools

import (
	"context"

	"github.com/otherjamesbrown/granola-mcp/pkg/logging"
)

type refresh struct{ base }

// RefreshResult reports the snapshot swap.
type RefreshResult struct {
	Status             string  `json:"status"`
	PreviousCount      int     `json:"previous_count"`
	NewCount           int     `json:"new_count"`
	MeetingsAdded      int     `json:"meetings_added"`
	LatestMeetingDate  *string `json:"latest_meeting_date"`
	LatestMeetingTitle *string `json:"latest_meeting_title"`
	DroppedRecords     int     `json:"dropped_records"`
	DeletedRecords     int     `json:"deleted_records"`
	LoadedAt           string  `json:"loaded_at"`
}

func newRefresh() *refresh {
	return &refresh{base{
		name:        "refresh",
		description: "Re-read the archive file. Use when the recorder has synced meetings that queries do not show yet.",
		schema:      Schema{},
	}}
}

func (t *refresh) loadsSnapshot() bool { return true }

func (t *refresh) Validate(args Args) (any, error) {
	_, err := t.schema.Bind(args)
	return nil, err
}

func (t *refresh) Execute(ctx context.Context, env *Env, _ any) (any, error) {
	previous := env.Store.Current().Len()
	snap, err := env.Store.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	res := RefreshResult{
		Status:         "refreshed",
		PreviousCount:  previous,
		NewCount:       snap.Len(),
		MeetingsAdded:  snap.Len() - previous,
		DroppedRecords: snap.Stats.Dropped,
		DeletedRecords: snap.Stats.Deleted,
		LoadedAt:       env.instant(snap.LoadedAt),
	}
	if latest := snap.Latest(); latest != nil {
		date := env.instant(latest.Start)
		title := latest.DisplayTitle()
		res.LatestMeetingDate, res.LatestMeetingTitle = &date, &title
	}
	env.Logger.Info("archive refreshed",
		logging.F("previous", previous),
		logging.F("current", snap.Len()),
	)
	return res, nil
}
