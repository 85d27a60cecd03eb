package apperror

import "errors"

var (
	ErrGameNotFound  = errors.New("game not found")
	ErrGameFull      = errors.New("game is already full")
	ErrGameFinished  = errors.New("game is already finished")
	ErrNotYourTurn   = errors.New("it's not your turn")
	ErrCellOccupied  = errors.New("cell is already occupied")
	ErrOutOfBounds   = errors.New("cell is out of bounds")
	ErrInvalidSize   = errors.New("unsupported board size")
	ErrNameTaken     = errors.New("name is already taken in this game")
	ErrDuplicateRole = errors.New("role is already occupied")
	ErrUnauthorized  = errors.New("no live session for this token and name")
	ErrRefreshDenied = errors.New("refresh token not found")
	ErrBadInput      = errors.New("malformed input")
)

// Wire codes are an external contract: clients branch on them, so the
// mapping is fixed here once and never reused for another condition.
const (
	CodeOK             = 0
	CodeStorage        = 1
	CodeRefreshStorage = 2
	CodeUnauthorized   = 5
	CodeGameNotFound   = 10
	CodeGameFull       = 11
	CodeDuplicateRole  = 12
	CodeNameTaken      = 13
	CodeGameFinished   = 14
	CodeNotYourTurn    = 15
	CodeOutOfBounds    = 16
	CodeCellOccupied   = 17
	CodeBadInput       = 50
	CodeRefreshDenied  = 60
)

var wireCodes = map[error]int{
	ErrGameNotFound:  CodeGameNotFound,
	ErrGameFull:      CodeGameFull,
	ErrDuplicateRole: CodeDuplicateRole,
	ErrNameTaken:     CodeNameTaken,
	ErrGameFinished:  CodeGameFinished,
	ErrNotYourTurn:   CodeNotYourTurn,
	ErrOutOfBounds:   CodeOutOfBounds,
	ErrCellOccupied:  CodeCellOccupied,
	ErrInvalidSize:   CodeBadInput,
	ErrBadInput:      CodeBadInput,
	ErrUnauthorized:  CodeUnauthorized,
	ErrRefreshDenied: CodeRefreshDenied,
}

// WireCode - maps an error chain to its stable numeric code.
// Anything unclassified is reported as a generic storage error.
func WireCode(err error) int {
	if err == nil {
		return CodeOK
	}

	for sentinel, code := range wireCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	return CodeStorage
}
