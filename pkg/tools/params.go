package tools

import (
	"github.com/otherjamesbrown/granola-mcp/pkg/query"
	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
)

func idParam(what string) Param {
	return Param{Name: "id", Type: TypeString, Required: true, Description: "Meeting ID " + what}
}

func dateParams() []Param {
	return []Param{
		{Name: "from", Type: TypeString, Description: "Start: relative (3d, 24h, 1w, 2m, 1y) or YYYY-MM-DD[ HH:MM:SS]"},
		{Name: "to", Type: TypeString, Description: "End: relative or absolute; a bare date includes that whole day"},
	}
}

func sortParams() []Param {
	keys := make([]string, len(query.SortKeys))
	for i, k := range query.SortKeys {
		keys[i] = k.String()
	}
	return []Param{
		{Name: "limit", Type: TypeInteger, Minimum: intPtr(0), Description: "Maximum results; 0 or omitted returns all"},
		{Name: "sort", Type: TypeString, Enum: keys, Default: string(query.SortStart), Description: "Sort key"},
		{Name: "reverse", Type: TypeBoolean, Default: false, Description: "Reverse the sort key"},
	}
}

// dates holds validated but unresolved date expressions. Resolution waits
// for execution so relative offsets use the call's clock.
type dates struct {
	From string
	To   string
}

func bindDates(v Values) (dates, error) {
	d := dates{From: v.String("from"), To: v.String("to")}
	for _, expr := range []string{d.From, d.To} {
		if expr == "" {
			continue
		}
		if err := timeutil.Validate(expr); err != nil {
			return dates{}, err
		}
	}
	return d, nil
}

// required resolves the range, applying the default lookback when both
// bounds are omitted.
func (d dates) required(ts *timeutil.Service) (*timeutil.Range, error) {
	r, err := ts.Range(d.From, d.To)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// optional resolves the range only when a bound was given.
func (d dates) optional(ts *timeutil.Service) (*timeutil.Range, error) {
	return ts.OptionalRange(d.From, d.To)
}

func (d dates) filters(env *Env, r *timeutil.Range) map[string]any {
	return map[string]any{
		"from":       nilIfEmpty(d.From),
		"to":         nilIfEmpty(d.To),
		"date_range": env.rangeInfo(r),
	}
}

func bindSort(v Values) (query.SortSpec, error) {
	key, err := query.ParseSortKey(v.String("sort"))
	if err != nil {
		return query.SortSpec{}, err
	}
	return query.SortSpec{Key: key, Reverse: v.Bool("reverse")}, nil
}

func concat(groups ...[]Param) Schema {
	var s Schema
	for _, g := range groups {
		s = append(s, g...)
	}
	return s
}
