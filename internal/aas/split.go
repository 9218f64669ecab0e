package aas

import (
	"slices"

	"github.com/hailam/aaschess/internal/board"
)

// Subspace names.
const (
	Tactical   = "tactical"
	KingSide   = "kingside"
	QueenSide  = "queenside"
	Positional = "positional"
)

// tacticalBoost lifts the tactical group above quiet groups of similar value.
const tacticalBoost = 1.5

// Subspace is a group of root moves that can be searched on its own.
type Subspace struct {
	Name  string
	Moves []board.Move
	// Priority is the mean branch value of the moves, boosted for tactics.
	Priority float64
	// BranchShare is the fraction of the legal moves in this group.
	BranchShare float64
	// DependsOn names groups whose results this group can overturn, so it
	// is searched after them. Only the order depends on it.
	DependsOn []string
}

// MultiAgentSplit partitions the legal moves of pos into forcing moves and
// quiet moves by destination wing (files f-h, a-c and the d/e center files).
// Every legal move lands in exactly one group. Empty groups are dropped and
// the rest are sorted by priority, highest first.
func MultiAgentSplit(pos *board.Position, w Weights) []Subspace {
	moves := pos.LegalMoves()
	return split(rankMoves(pos, moves, w))
}

func split(ranked []scoredMove) []Subspace {
	if len(ranked) == 0 {
		return nil
	}
	groups := map[string]*Subspace{}
	order := []string{Tactical, KingSide, QueenSide, Positional}
	for _, name := range order {
		groups[name] = &Subspace{Name: name}
	}

	for _, sm := range ranked {
		var name string
		switch to := board.SquareBB(sm.move.To); {
		case sm.features.Tactical():
			name = Tactical
		case to&board.KingSide != 0:
			name = KingSide
		case to&board.QueenSide != 0:
			name = QueenSide
		default:
			name = Positional
		}
		g := groups[name]
		g.Moves = append(g.Moves, sm.move)
		g.Priority += sm.value
	}

	out := make([]Subspace, 0, len(order))
	for _, name := range order {
		g := groups[name]
		if len(g.Moves) == 0 {
			continue
		}
		g.Priority /= float64(len(g.Moves))
		g.BranchShare = float64(len(g.Moves)) / float64(len(ranked))
		out = append(out, *g)
	}

	// The tactical group can refute conclusions drawn on either wing.
	for i := range out {
		if out[i].Name != Tactical {
			continue
		}
		out[i].Priority *= tacticalBoost
		for _, dep := range []string{KingSide, QueenSide} {
			if groups[dep].Moves != nil {
				out[i].DependsOn = append(out[i].DependsOn, dep)
			}
		}
	}

	slices.SortStableFunc(out, func(a, b Subspace) int {
		switch {
		case a.Priority > b.Priority:
			return -1
		case a.Priority < b.Priority:
			return 1
		}
		return 0
	})
	return out
}
