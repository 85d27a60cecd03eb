package entity

import (
	"time"

	"github.com/rocketscienceinc/ozxo-backend/internal/apperror"
)

const (
	StateWaiting = "waiting"
	StatePlaying = "playing"
	StateDone    = "done"

	RoleOwner    = "owner"
	RoleOpponent = "opponent"
	RoleViewer   = "view"

	MarkOwner    = "X"
	MarkOpponent = "O"

	WinnerDraw = "draw"

	EmptyCell = ""
)

type Game struct {
	Token          string    `json:"token"`
	Size           int       `json:"size"`
	Board          []string  `json:"board"`
	Turn           string    `json:"turn"`
	State          string    `json:"state"`
	Winner         string    `json:"winner,omitempty"`
	OwnerName      string    `json:"owner_name"`
	OpponentName   string    `json:"opponent_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

func NewGame(token, ownerName string, size int, now time.Time) *Game {
	return &Game{
		Token:          token,
		Size:           size,
		Board:          make([]string, size*size),
		Turn:           RoleOwner,
		State:          StateWaiting,
		OwnerName:      ownerName,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// Join - assigns the opponent role and starts the game. The joining
// player always gets the first move.
func (that *Game) Join(name string) error {
	if !that.IsWaiting() || that.OpponentName != "" {
		return apperror.ErrGameFull
	}

	if name == that.OwnerName {
		return apperror.ErrNameTaken
	}

	that.OpponentName = name
	that.State = StatePlaying
	that.Turn = RoleOpponent

	return nil
}

// Step - places the role's mark at (row, col) and re-evaluates the
// game result. The board is left untouched on any failure.
func (that *Game) Step(role string, row, col int) error {
	if row < 0 || row >= that.Size || col < 0 || col >= that.Size {
		return apperror.ErrOutOfBounds
	}

	if that.IsDone() {
		return apperror.ErrGameFinished
	}

	if !that.IsPlaying() || that.Turn != role {
		return apperror.ErrNotYourTurn
	}

	cell := row*that.Size + col
	if that.Board[cell] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	that.Board[cell] = MarkOf(role)
	that.updateResult()

	if !that.IsDone() {
		that.Turn = toggleRole(role)
	}

	return nil
}

// updateResult - scans the board and moves the game to its terminal
// state when a winning line or a draw is found.
func (that *Game) updateResult() {
	switch winner := that.DetermineResult(); winner {
	case MarkOwner:
		that.finish(RoleOwner)
	case MarkOpponent:
		that.finish(RoleOpponent)
	case WinnerDraw:
		that.finish(WinnerDraw)
	}
}

func (that *Game) finish(winner string) {
	that.Winner = winner
	that.State = StateDone
	that.Turn = ""
}

// DetermineResult - returns the winning mark, WinnerDraw on a full
// board without a winner, or an empty string while the game goes on.
// A step places exactly one mark, so a whole-board scan finds at most
// one fresh winning line.
func (that *Game) DetermineResult() string {
	size := that.Size

	for row := 0; row < size; row++ {
		if mark := that.lineHolder(row*size, 1); mark != EmptyCell {
			return mark
		}
	}

	for col := 0; col < size; col++ {
		if mark := that.lineHolder(col, size); mark != EmptyCell {
			return mark
		}
	}

	if mark := that.lineHolder(0, size+1); mark != EmptyCell {
		return mark
	}

	if mark := that.lineHolder(size-1, size-1); mark != EmptyCell {
		return mark
	}

	for _, cell := range that.Board {
		if cell == EmptyCell {
			return EmptyCell
		}
	}

	return WinnerDraw
}

// lineHolder - returns the mark holding the whole line that starts at
// offset and advances by stride, or an empty string.
func (that *Game) lineHolder(offset, stride int) string {
	first := that.Board[offset]
	if first == EmptyCell {
		return EmptyCell
	}

	for i := 1; i < that.Size; i++ {
		if that.Board[offset+i*stride] != first {
			return EmptyCell
		}
	}

	return first
}

// Field - the board as rows, the shape state reads return it in.
func (that *Game) Field() [][]string {
	field := make([][]string, that.Size)
	for row := 0; row < that.Size; row++ {
		field[row] = that.Board[row*that.Size : (row+1)*that.Size]
	}

	return field
}

func (that *Game) Touch(now time.Time) {
	that.LastActivityAt = now
}

func (that *Game) IsStale(now time.Time, ttl time.Duration) bool {
	return now.Sub(that.LastActivityAt) > ttl
}

func (that *Game) IsDone() bool {
	return that.State == StateDone
}

func (that *Game) IsPlaying() bool {
	return that.State == StatePlaying
}

func (that *Game) IsWaiting() bool {
	return that.State == StateWaiting
}

// MarkOf - the board mark a role plays with.
func MarkOf(role string) string {
	if role == RoleOwner {
		return MarkOwner
	}
	return MarkOpponent
}

func toggleRole(role string) string {
	if role == RoleOwner {
		return RoleOpponent
	}
	return RoleOwner
}
