package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bluff-table/bluff-table/internal/domain/game"
)

const maxNameLength = 24

// Seating identifies a seat handed out by CreateSession, Join or AddBot.
type Seating struct {
	SessionID uuid.UUID `json:"sessionId"`
	PlayerID  uuid.UUID `json:"playerId"`
}

// CreateSession opens a new table with the caller as host. A nil playerID
// gets a fresh identity.
func (s *Service) CreateSession(ctx context.Context, playerID uuid.UUID, name string, cfg game.SessionConfig) (*Seating, error) {
	if playerID == uuid.Nil {
		playerID = uuid.New()
	}
	if err := s.ensureFree(playerID, uuid.Nil); err != nil {
		return nil, err
	}
	now := s.now()
	session := game.NewSession(playerID, cfg, now)
	session.Seats = append(session.Seats, &game.Seat{
		PlayerID:  playerID,
		Name:      cleanName(name, 1),
		Connected: true,
	})
	session.Logf(now, "%s opened the table", session.Seats[0].Name)
	deck := game.NewDeck(game.CopiesPerRole)
	if err := s.repo.Create(&game.Table{Session: session, Deck: deck}); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.repo.SetHand(playerID, nil)
	s.notifier.PublishSnapshot(game.NewSnapshot(session, deck.Len()))
	s.logger.Info().
		Str("session_id", session.ID.String()).
		Str("host_id", playerID.String()).
		Msg("session created")
	return &Seating{SessionID: session.ID, PlayerID: playerID}, nil
}

// Join seats playerID at an unstarted table. Joining a table the player already
// sits at re-attaches to the existing seat, even mid-game.
func (s *Service) Join(ctx context.Context, sessionID, playerID uuid.UUID, name string) (*Seating, error) {
	if playerID == uuid.Nil {
		playerID = uuid.New()
	}
	if err := s.ensureFree(playerID, sessionID); err != nil {
		return nil, err
	}
	err := s.mutate(ctx, sessionID, "join", func(tx *txn) error {
		session := tx.session
		if seat := session.Seat(playerID); seat != nil {
			if seat.Connected {
				return errNoChange
			}
			seat.Connected = true
			tx.touch(playerID)
			tx.logf("%s reconnected", seat.Name)
			return nil
		}
		if session.Started {
			return game.ErrGameAlreadyStarted
		}
		if len(session.Seats) >= session.Config.MaxSeats {
			return game.ErrSessionFull
		}
		seat := &game.Seat{
			PlayerID:  playerID,
			Name:      cleanName(name, len(session.Seats)+1),
			Connected: true,
		}
		session.Seats = append(session.Seats, seat)
		tx.setHand(playerID, nil)
		tx.logf("%s joined", seat.Name)
		return nil
	})
	if err != nil && !errors.Is(err, errNoChange) {
		return nil, err
	}
	s.repo.Bind(playerID, sessionID)
	return &Seating{SessionID: sessionID, PlayerID: playerID}, nil
}

// AddBot seats an autonomous player. Only the host may add bots.
func (s *Service) AddBot(ctx context.Context, sessionID, hostID uuid.UUID, name, personality string) (*Seating, error) {
	botID := uuid.New()
	err := s.mutate(ctx, sessionID, "add_bot", func(tx *txn) error {
		session := tx.session
		if session.HostID != hostID {
			return game.ErrNotHost
		}
		if session.Started {
			return game.ErrGameAlreadyStarted
		}
		if len(session.Seats) >= session.Config.MaxSeats {
			return game.ErrSessionFull
		}
		if strings.TrimSpace(name) == "" {
			name = fmt.Sprintf("Bot %d", len(session.Seats)+1)
		}
		seat := &game.Seat{
			PlayerID:    botID,
			Name:        cleanName(name, len(session.Seats)+1),
			Connected:   true,
			Bot:         true,
			Personality: personality,
		}
		session.Seats = append(session.Seats, seat)
		tx.setHand(botID, nil)
		tx.logf("%s (bot) joined", seat.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.repo.Bind(botID, sessionID)
	return &Seating{SessionID: sessionID, PlayerID: botID}, nil
}

// Start deals the first game. Only the host may start.
func (s *Service) Start(ctx context.Context, sessionID, hostID uuid.UUID) error {
	return s.mutate(ctx, sessionID, "start", func(tx *txn) error {
		if tx.session.HostID != hostID {
			return game.ErrNotHost
		}
		if tx.session.Started {
			return game.ErrGameAlreadyStarted
		}
		return tx.deal()
	})
}

// Rematch resets an ended game into a fresh one with the same seats. Seats whose
// player has since joined another table are dropped.
func (s *Service) Rematch(ctx context.Context, sessionID, hostID uuid.UUID) error {
	return s.mutate(ctx, sessionID, "rematch", func(tx *txn) error {
		session := tx.session
		if session.HostID != hostID {
			return game.ErrNotHost
		}
		if !session.Ended {
			return game.ErrWrongPhase
		}
		kept := session.Seats[:0:0]
		for _, seat := range session.Seats {
			if id, ok := s.repo.SessionOf(seat.PlayerID); ok && id == session.ID {
				kept = append(kept, seat)
			}
		}
		session.Seats = kept
		session.Ended = false
		session.Winner = nil
		session.EndedAt = time.Time{}
		tx.logf("rematch")
		return tx.deal()
	})
}

// SetConnected flips a seat's connectivity flag. Unknown sessions and seats
// are ignored.
func (s *Service) SetConnected(ctx context.Context, sessionID, playerID uuid.UUID, connected bool) error {
	err := s.mutate(ctx, sessionID, "set_connected", func(tx *txn) error {
		seat := tx.session.Seat(playerID)
		if seat == nil || seat.Connected == connected {
			return errNoChange
		}
		seat.Connected = connected
		if connected {
			tx.touch(playerID)
			tx.logf("%s reconnected", seat.Name)
		} else {
			tx.logf("%s disconnected", seat.Name)
		}
		return nil
	})
	if errors.Is(err, errNoChange) || errors.Is(err, game.ErrSessionNotFound) {
		return nil
	}
	return err
}

// deal builds a fresh deck and hands out starting holdings.
func (tx *txn) deal() error {
	session := tx.session
	if len(session.Seats) < game.MinSeats {
		return game.ErrNotEnoughPlayers
	}
	cfg := session.Config
	deck := game.NewDeck(game.CopiesPerRole)
	deck.Shuffle(tx.svc.rng)
	for _, seat := range session.Seats {
		hand, err := deck.Draw(cfg.StartingInfluence)
		if err != nil {
			return err
		}
		seat.Coins = cfg.StartingCoins
		seat.Revealed = nil
		tx.setHand(seat.PlayerID, hand)
	}
	tx.deck = deck
	session.Stats = make(map[uuid.UUID]*game.SeatStats, len(session.Seats))
	for _, seat := range session.Seats {
		session.StatsFor(seat.PlayerID)
	}
	session.GameID = uuid.New()
	session.Pending = nil
	session.PendingLoss = nil
	session.Started = true
	session.StartedAt = tx.now
	session.TurnStartedAt = tx.now
	session.Turn = 1
	session.CurrentTurn = tx.svc.rng.IntN(len(session.Seats))
	tx.logf("game started, %s goes first", session.Seats[session.CurrentTurn].Name)
	return nil
}

// ensureFree rejects players who hold a seat in another game still in play.
func (s *Service) ensureFree(playerID, sessionID uuid.UUID) error {
	other, ok := s.repo.SessionOf(playerID)
	if !ok || other == sessionID {
		return nil
	}
	table, release, err := s.repo.Acquire(other)
	if err != nil {
		return nil
	}
	defer release()
	if table.Session.Ended || table.Session.Seat(playerID) == nil {
		return nil
	}
	return game.ErrSeatedElsewhere
}

func cleanName(name string, n int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("Player %d", n)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		name = string([]rune(name)[:maxNameLength])
	}
	return name
}
