package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

// ResultRepository implements game.ResultRepository.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// SaveResult stores a finished game. Saving the same game twice keeps the
// first record; rematches in one session are separate games.
func (r *ResultRepository) SaveResult(ctx context.Context, res *game.GameResult) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO game_results (game_id, session_id, winner_id, turns, started_at, ended_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (game_id) DO NOTHING
		`, res.GameID, res.SessionID, res.Winner, res.Turns, res.StartedAt, res.EndedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		batch := &pgx.Batch{}
		for i, s := range res.Seats {
			batch.Queue(`
				INSERT INTO game_result_seats
				(game_id, session_id, seat_index, player_id, name, bot, coins, influence,
				 actions, challenges_won, challenges_lost, blocks, bluffs_caught, eliminated_at_turn)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
			`, res.GameID, res.SessionID, i, s.PlayerID, s.Name, s.Bot, s.Coins, s.Influence,
				s.Stats.Actions, s.Stats.ChallengesWon, s.Stats.ChallengesLost,
				s.Stats.Blocks, s.Stats.BluffsCaught, s.Stats.EliminatedAtTurn)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert seats: %w", err)
		}
		return nil
	})
}

// ListResults returns finished games, newest first.
func (r *ResultRepository) ListResults(ctx context.Context, limit, offset int) ([]*game.GameResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT game_id, session_id, winner_id, turns, started_at, ended_at
		FROM game_results
		ORDER BY ended_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []*game.GameResult{}
	byID := map[uuid.UUID]*game.GameResult{}
	ids := []uuid.UUID{}
	for rows.Next() {
		res := &game.GameResult{Seats: []game.SeatResult{}}
		if err := rows.Scan(&res.GameID, &res.SessionID, &res.Winner, &res.Turns, &res.StartedAt, &res.EndedAt); err != nil {
			return nil, err
		}
		results = append(results, res)
		byID[res.GameID] = res
		ids = append(ids, res.GameID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return results, nil
	}

	seatRows, err := r.pool.Query(ctx, `
		SELECT game_id, player_id, name, bot, coins, influence,
		       actions, challenges_won, challenges_lost, blocks, bluffs_caught, eliminated_at_turn
		FROM game_result_seats
		WHERE game_id = ANY($1)
		ORDER BY game_id, seat_index
	`, ids)
	if err != nil {
		return nil, err
	}
	defer seatRows.Close()
	for seatRows.Next() {
		var gameID uuid.UUID
		var s game.SeatResult
		if err := seatRows.Scan(&gameID, &s.PlayerID, &s.Name, &s.Bot, &s.Coins, &s.Influence,
			&s.Stats.Actions, &s.Stats.ChallengesWon, &s.Stats.ChallengesLost,
			&s.Stats.Blocks, &s.Stats.BluffsCaught, &s.Stats.EliminatedAtTurn); err != nil {
			return nil, err
		}
		if res, ok := byID[gameID]; ok {
			res.Seats = append(res.Seats, s)
		}
	}
	return results, seatRows.Err()
}
