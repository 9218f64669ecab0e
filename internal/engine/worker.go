package engine

import (
	"slices"
	"time"

	"github.com/hailam/aaschess/internal/board"
)

// timeCheckMask sets how often the deadline is read, in nodes.
const timeCheckMask = 255

// stopped reports whether the search must unwind. It also trips the stop
// flag when the node limit or the deadline is reached.
func (s *Searcher) stopped() bool {
	if s.stopFlag.Load() {
		return true
	}
	if s.nodeLimit > 0 && s.nodes >= s.nodeLimit {
		s.stopFlag.Store(true)
		return true
	}
	if s.nodes&timeCheckMask == 0 && !s.deadline.IsZero() && time.Now().After(s.deadline) {
		s.stopFlag.Store(true)
		return true
	}
	return false
}

// isDraw checks the fifty-move rule, insufficient material and
// repetition. Inside the tree a single repetition is scored as a draw.
func isDraw(pos *board.Position) bool {
	return pos.HalfMoveClock >= 100 || pos.IsInsufficientMaterial() || pos.IsRepetition(2)
}

// negamax implements the negamax algorithm with alpha-beta pruning.
func (s *Searcher) negamax(pos *board.Position, depth, ply int, alpha, beta int) int {
	s.pv.length[ply] = 0
	// Use MaxPly-1 because we access pv.length[ply+1] inside this function
	if ply >= MaxPly-1 {
		return s.eval.Evaluate(pos)
	}
	if s.stopped() {
		return 0
	}
	s.nodes++
	s.selDepth = max(s.selDepth, ply)

	if ply > 0 && isDraw(pos) {
		return 0
	}

	// Probe transposition table. The root never takes a cutoff so it always
	// produces a move.
	var ttMove board.Move
	if entry, found := s.tt.Probe(pos.Hash); found {
		ttMove = entry.BestMove
		if ply > 0 && entry.Depth >= depth {
			score := AdjustScoreFromTT(entry.Score, ply)
			switch entry.Flag {
			case TTExact:
				return score
			case TTLowerBound:
				alpha = max(alpha, score)
			case TTUpperBound:
				beta = min(beta, score)
			}
			if alpha >= beta {
				return score
			}
		}
	}

	inCheck := pos.InCheck()

	// Check extension
	if inCheck {
		depth++
	}

	if depth <= 0 {
		return s.quiescence(pos, ply, 0, alpha, beta)
	}

	var moves []board.Move
	if ply == 0 {
		moves = slices.Clone(s.rootMoves)
	} else {
		moves = pos.LegalMoves()
	}

	// Checkmate or stalemate
	if len(moves) == 0 {
		if inCheck {
			return -MateScore + ply
		}
		return 0
	}

	scores := s.orderer.ScoreMoves(pos, moves, ply, ttMove)

	bestScore := -Infinity
	bestMove := board.NoMove
	flag := TTUpperBound

	for i := range moves {
		PickMove(moves, scores, i)
		move := moves[i]
		child := pos.Apply(move)
		quiet := !pos.IsCapture(move) && !move.IsPromotion()

		var score int
		if s.opts.EnableLMR && i >= s.fullMoves && depth >= s.opts.LMRMinDepth &&
			quiet && !inCheck && !child.InCheck() {
			// Reduced null-window probe, re-searched at full depth when it
			// beats alpha.
			score = -s.negamax(child, depth-2, ply+1, -alpha-1, -alpha)
			if score > alpha {
				score = -s.negamax(child, depth-1, ply+1, -beta, -alpha)
			}
		} else {
			score = -s.negamax(child, depth-1, ply+1, -beta, -alpha)
		}

		if s.IsStopped() {
			return 0
		}

		if score > bestScore {
			bestScore = score
			bestMove = move
		}
		if score > alpha {
			alpha = score
			flag = TTExact
			s.updatePV(ply, move)
		}
		if alpha >= beta {
			flag = TTLowerBound
			if quiet {
				s.orderer.UpdateKillers(move, ply)
				s.orderer.UpdateHistory(move, depth)
			}
			break
		}
	}

	s.tt.Store(pos.Hash, depth, AdjustScoreToTT(bestScore, ply), flag, bestMove)
	return bestScore
}

// quiescence searches captures and promotions to avoid horizon effect. In
// check every evasion is searched and stand pat is not allowed.
func (s *Searcher) quiescence(pos *board.Position, ply, qPly int, alpha, beta int) int {
	s.pv.length[ply] = 0
	if ply >= MaxPly-1 || qPly >= s.opts.QuiescenceDepth {
		return s.eval.Evaluate(pos)
	}
	if s.stopped() {
		return 0
	}
	s.nodes++
	s.selDepth = max(s.selDepth, ply)

	inCheck := pos.InCheck()
	bestScore := -Infinity
	var moves []board.Move
	if inCheck {
		moves = pos.LegalMoves()
		if len(moves) == 0 {
			return -MateScore + ply
		}
	} else {
		// Stand pat
		standPat := s.eval.Evaluate(pos)
		if standPat >= beta {
			return standPat
		}
		alpha = max(alpha, standPat)
		bestScore = standPat
		moves = pos.Captures()
	}

	scores := s.orderer.ScoreMoves(pos, moves, ply, board.NoMove)
	for i := range moves {
		PickMove(moves, scores, i)
		score := -s.quiescence(pos.Apply(moves[i]), ply+1, qPly+1, -beta, -alpha)
		if s.IsStopped() {
			return 0
		}
		if score > bestScore {
			bestScore = score
		}
		if score > alpha {
			alpha = score
			s.updatePV(ply, moves[i])
		}
		if alpha >= beta {
			break
		}
	}
	return bestScore
}

// updatePV prepends move to the child's line at ply.
func (s *Searcher) updatePV(ply int, move board.Move) {
	s.pv.moves[ply][0] = move
	n := s.pv.length[ply+1]
	copy(s.pv.moves[ply][1:1+n], s.pv.moves[ply+1][:n])
	s.pv.length[ply] = n + 1
}
