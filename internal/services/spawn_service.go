package services

import (
	"fmt"
	"sort"
	"time"

	"backoffice/internal/domain"
	"backoffice/internal/domain/models"
	"backoffice/internal/repositories"
	"backoffice/internal/utils"
)

// SpawnService converts an order's quote-line tree into missions, exactly
// once per line. Re-invoking it after a crash or a duplicate trigger only
// creates missions for lines that are still unspawned; the final bulk
// insert skips rows a concurrent run already wrote.
type SpawnService struct {
	Orders    repositories.OrderRepo
	Missions  repositories.MissionRepo
	RequestID string
	Now       func() time.Time

	// Test seams, default to the repositories above.
	FetchTree    func(orderID, orgID int64) (models.Order, error)
	FetchSpawned func(orderID int64) (map[int64]bool, error)
	Persist      func(missions []models.Mission) ([]models.Mission, error)
}

// spawnCandidate is one mission-to-be. dedupeLineID is the quote line id the
// uniqueness guard keys on; every day of an expanded date-range group shares
// the group's own id, so the group spawns or skips as a unit.
type spawnCandidate struct {
	quote        models.Quote
	line         models.QuoteLine
	overrides    models.LineOverrides
	dedupeLineID int64
	groupLineID  *int64
	dayIndex     int
	totalDays    int
	rangeDay     *time.Time
	pickupAt     time.Time
}

// Execute runs the full spawn for one order. Returns only the missions
// created (or won by a concurrent run) for the candidates of this
// invocation, ordered by start time. An empty result means every eligible
// line already had a mission.
func (s SpawnService) Execute(orderID, orgID int64) ([]models.Mission, error) {
	utils.LogEvent(s.RequestID, "spawn", "execute", fmt.Sprintf("order_id=%d", orderID))

	order, err := s.fetchTree(orderID, orgID)
	if err != nil {
		return nil, err
	}
	spawned, err := s.fetchSpawned(orderID)
	if err != nil {
		return nil, err
	}

	candidates := s.collect(order, spawned)
	if len(candidates) == 0 {
		utils.LogEvent(s.RequestID, "spawn", "no_candidates", fmt.Sprintf("order_id=%d", orderID))
		return []models.Mission{}, nil
	}

	for i := range candidates {
		candidates[i].pickupAt = s.extractPickup(candidates[i])
	}
	// Stable: ties keep collection order, so refs are deterministic for
	// identical input.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].pickupAt.Before(candidates[j].pickupAt)
	})

	missions := make([]models.Mission, 0, len(candidates))
	for i, c := range candidates {
		ref := fmt.Sprintf("%s-%02d", order.Reference, i+1)
		m, err := buildMission(order, c, ref)
		if err != nil {
			return nil, domain.InternalError{Msg: "failed to build mission snapshot", Err: err}
		}
		missions = append(missions, m)
	}

	created, err := s.persist(missions)
	if err != nil {
		return nil, err
	}
	for _, m := range created {
		utils.LogEvent(s.RequestID, "spawn", "mission_created",
			fmt.Sprintf("order_id=%d ref=%s line_id=%d", m.OrderID, m.Ref, derefInt64(m.QuoteLineID)))
	}
	return created, nil
}

// collect walks every eligible quote's line tree and flattens it into spawn
// candidates, honoring the already-spawned set.
func (s SpawnService) collect(order models.Order, spawned map[int64]bool) []spawnCandidate {
	out := []spawnCandidate{}
	for _, q := range order.Quotes {
		for _, l := range q.Lines {
			s.collectLine(q, l, nil, 0, spawned, &out)
		}
	}
	return out
}

func (s SpawnService) collectLine(q models.Quote, l models.QuoteLine, groupID *int64, depth int, spawned map[int64]bool, out *[]spawnCandidate) {
	if spawned[l.ID] || !l.Dispatchable {
		return
	}

	switch l.Type {
	case models.LineCalculated:
		o, err := l.Overrides()
		if err != nil {
			utils.LogEvent(s.RequestID, "spawn", "line_overrides_invalid",
				fmt.Sprintf("line_id=%d err=%v", l.ID, err))
			o = models.LineOverrides{}
		}
		*out = append(*out, spawnCandidate{
			quote:        q,
			line:         l,
			overrides:    o,
			dedupeLineID: l.ID,
			groupLineID:  groupID,
		})

	case models.LineGroup:
		if len(l.Children) > 0 {
			if depth >= 2 {
				utils.LogEvent(s.RequestID, "spawn", "group_depth_exceeded",
					fmt.Sprintf("line_id=%d depth=%d", l.ID, depth))
				return
			}
			gid := l.ID
			for _, child := range l.Children {
				s.collectLine(q, child, &gid, depth+1, spawned, out)
			}
			return
		}
		s.expandDateRange(q, l, out)
	}
	// MANUAL lines never materialize.
}

// expandDateRange turns a childless GROUP carrying a {start_date, end_date}
// range into one candidate per calendar day, inclusive. A malformed range
// abandons this group only; the rest of the batch proceeds.
func (s SpawnService) expandDateRange(q models.Quote, l models.QuoteLine, out *[]spawnCandidate) {
	o, err := l.Overrides()
	if err != nil {
		utils.LogEvent(s.RequestID, "spawn", "group_range_invalid",
			fmt.Sprintf("line_id=%d err=%v", l.ID, err))
		return
	}
	start, end, ok, err := o.DateRange()
	if err != nil {
		utils.LogEvent(s.RequestID, "spawn", "group_range_invalid",
			fmt.Sprintf("line_id=%d err=%v", l.ID, err))
		return
	}
	if !ok {
		utils.LogEvent(s.RequestID, "spawn", "group_without_range",
			fmt.Sprintf("line_id=%d", l.ID))
		return
	}

	total := utils.DaysInclusive(start, end)
	gid := l.ID
	for i := 0; i < total; i++ {
		day := utils.DayStart(start.AddDate(0, 0, i))
		*out = append(*out, spawnCandidate{
			quote:        q,
			line:         l,
			overrides:    o,
			dedupeLineID: l.ID,
			groupLineID:  &gid,
			dayIndex:     i + 1,
			totalDays:    total,
			rangeDay:     &day,
		})
	}
}

// extractPickup resolves the timestamp the sorter and the ref generator key
// on: the candidate's own override, then the quote default, then now.
// Range-day candidates are pinned to their day start.
func (s SpawnService) extractPickup(c spawnCandidate) time.Time {
	if c.rangeDay != nil {
		return *c.rangeDay
	}
	if t, err := c.overrides.PickupTime(); err == nil && t != nil {
		return *t
	}
	if c.quote.PickupAt != nil {
		return *c.quote.PickupAt
	}
	return s.now()
}

func (s SpawnService) fetchTree(orderID, orgID int64) (models.Order, error) {
	if s.FetchTree != nil {
		return s.FetchTree(orderID, orgID)
	}
	return s.Orders.TreeByID(orderID, orgID)
}

func (s SpawnService) fetchSpawned(orderID int64) (map[int64]bool, error) {
	if s.FetchSpawned != nil {
		return s.FetchSpawned(orderID)
	}
	return s.Missions.SpawnedLineIDs(orderID)
}

func (s SpawnService) persist(missions []models.Mission) ([]models.Mission, error) {
	if s.Persist != nil {
		return s.Persist(missions)
	}
	return s.Missions.InsertBatch(missions)
}

func (s SpawnService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return utils.NowUTC()
}

func derefInt64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
