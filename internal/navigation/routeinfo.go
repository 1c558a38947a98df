package navigation

import (
	"fmt"
	"math"
	"strings"
)

type TurnType string

const (
	// TurnUnknown means the engine only gave a free-text instruction.
	TurnUnknown  TurnType = ""
	TurnStraight TurnType = "straight"
	TurnLeft     TurnType = "left"
	TurnRight    TurnType = "right"
	TurnUTurn    TurnType = "uturn"
)

const (
	NoTurnText           = "No upcoming turn"
	DistancePlaceholder  = "--"
	RemainingPlaceholder = "Calculating route..."
	NoRouteText          = "No route found"
)

type RouteStatus string

const (
	RouteNone        RouteStatus = ""
	RouteCalculating RouteStatus = "calculating"
	RouteReady       RouteStatus = "ready"
	RouteFailed      RouteStatus = "failed"
)

// RouteInfo is the turn-by-turn panel. Status tells a route still being
// computed apart from one that could not be found while the panel is hidden.
type RouteInfo struct {
	Visible     bool        `json:"visible"`
	Status      RouteStatus `json:"status,omitempty"`
	Icon        TurnType    `json:"icon,omitempty"`
	Instruction string      `json:"instruction,omitempty"`
	NextTurn    string      `json:"next_turn,omitempty"`
	Remaining   string      `json:"remaining,omitempty"`
}

// Checked in order: "make a u-turn to the left" is a u-turn, not a left.
var turnKeywords = []struct {
	turn     TurnType
	keywords []string
}{
	{TurnUTurn, []string{"u-turn", "uturn", "u turn", "quay đầu"}},
	{TurnLeft, []string{"left", "rẽ trái", "quẹo trái"}},
	{TurnRight, []string{"right", "rẽ phải", "quẹo phải"}},
	{TurnStraight, []string{"straight", "continue", "thẳng", "tiếp tục"}},
}

// IconFromInstruction classifies a free-text instruction, defaulting to straight.
func IconFromInstruction(instruction string) TurnType {
	lower := strings.ToLower(instruction)
	for _, tk := range turnKeywords {
		for _, kw := range tk.keywords {
			if strings.Contains(lower, kw) {
				return tk.turn
			}
		}
	}
	return TurnStraight
}

// Icon prefers the structured turn type and falls back to the instruction text.
func (t Turn) Icon() TurnType {
	if t.Type != TurnUnknown {
		return t.Type
	}
	return IconFromInstruction(t.Instruction)
}

// DeriveRouteInfo builds the panel from the session state and the engine's
// current route. It is hidden unless navigating with a calculated route.
func DeriveRouteInfo(state State, engine RouteEngine, f Formatter) RouteInfo {
	if state != StateNavigating {
		return RouteInfo{}
	}
	if !engine.IsRouteCalculated() {
		return RouteInfo{Status: RouteCalculating, Remaining: RemainingPlaceholder}
	}

	info := RouteInfo{Visible: true, Status: RouteReady}
	if turn, ok := engine.NextTurn(); ok {
		info.Icon = turn.Icon()
		info.NextTurn = fmt.Sprintf("In %s", f.Distance(math.Max(turn.Distance, 0)))
		info.Instruction = turn.Instruction
		if info.Instruction == "" {
			info.Instruction = NoTurnText
		}
	} else {
		info.Icon = TurnStraight
		info.NextTurn = DistancePlaceholder
		info.Instruction = NoTurnText
	}

	if rem := engine.Remaining(); rem.Distance > 0 {
		info.Remaining = fmt.Sprintf("%s, %s", f.Distance(rem.Distance), f.Duration(rem.Time))
	} else {
		info.Remaining = RemainingPlaceholder
	}
	return info
}

// failedRouteInfo is the hidden panel shown after a computation found no route.
func failedRouteInfo() RouteInfo {
	return RouteInfo{Status: RouteFailed, NextTurn: DistancePlaceholder, Remaining: NoRouteText}
}
