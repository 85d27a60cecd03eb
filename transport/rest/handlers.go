package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rocketscienceinc/ozxo-backend/internal/apperror"
	"github.com/rocketscienceinc/ozxo-backend/internal/entity"
	"github.com/rocketscienceinc/ozxo-backend/internal/service"
)

// Every response carries the {status, code, message} envelope merged
// with operation fields; transport status is always 200 and clients
// branch on the numeric code.
type envelope map[string]any

var codeMessages = map[int]string{
	apperror.CodeStorage:        "Storage error",
	apperror.CodeRefreshStorage: "Error while checking refresh token",
	apperror.CodeUnauthorized:   "Not found user with this token",
	apperror.CodeGameNotFound:   "Not found game with this token",
	apperror.CodeGameFull:       "Game is already full",
	apperror.CodeDuplicateRole:  "Role is already occupied",
	apperror.CodeNameTaken:      "Name is already taken in this game",
	apperror.CodeGameFinished:   "Game is already finished",
	apperror.CodeNotYourTurn:    "It's not your turn",
	apperror.CodeOutOfBounds:    "Wrong row or col",
	apperror.CodeCellOccupied:   "Cell is already occupied",
	apperror.CodeBadInput:       "Wrong row or col",
	apperror.CodeRefreshDenied:  "Not found user with this refresh token",
}

func (that *Server) handlePing(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("pong")); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
}

func (that *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Size *int   `json:"size"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Size == nil {
		that.writeError(w, fmt.Errorf("%w: bad create body", apperror.ErrBadInput))
		return
	}

	game, session, err := that.game.CreateGame(r.Context(), body.Name, *body.Size)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeOK(w, envelope{
		"gameToken":    game.Token,
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	})
}

func (that *Server) handleList(w http.ResponseWriter, r *http.Request) {
	games, err := that.game.ListGames(r.Context())
	if err != nil {
		that.writeError(w, err)
		return
	}

	list := make([]envelope, 0, len(games))
	for _, game := range games {
		list = append(list, envelope{
			"gameToken": game.Token,
			"size":      game.Size,
			"state":     game.State,
		})
	}

	that.writeOK(w, envelope{"games": list})
}

func (that *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name      string `json:"name"`
		GameToken string `json:"gameToken"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		that.writeError(w, fmt.Errorf("%w: bad join body", apperror.ErrBadInput))
		return
	}

	session, err := that.game.JoinGame(r.Context(), body.GameToken, body.Name)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeOK(w, envelope{
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	})
}

func (that *Server) handleStep(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
		Row  *int   `json:"row"`
		Col  *int   `json:"col"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Row == nil || body.Col == nil {
		that.writeError(w, fmt.Errorf("%w: row and col must be integers", apperror.ErrBadInput))
		return
	}

	snapshot, err := that.game.Step(r.Context(), r.Header.Get("accessToken"), body.Name, *body.Row, *body.Col)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeOK(w, snapshotFields(snapshot))
}

func (that *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snapshot, err := that.game.GameState(
		r.Context(),
		r.Header.Get("accessToken"),
		r.Header.Get("name"),
		r.Header.Get("gameToken"),
	)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeOK(w, snapshotFields(snapshot))
}

func (that *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		that.writeError(w, fmt.Errorf("%w: bad refresh body", apperror.ErrBadInput))
		return
	}

	session, err := that.game.Refresh(r.Context(), r.Header.Get("refreshToken"), body.Name)
	if err != nil {
		that.writeError(w, err)
		return
	}

	that.writeOK(w, envelope{
		"accessToken":  session.AccessToken,
		"refreshToken": session.RefreshToken,
	})
}

func (that *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := that.game.Clear(r.Context()); err != nil {
		that.writeError(w, err)
		return
	}

	that.writeOK(w, nil)
}

func snapshotFields(snapshot *service.Snapshot) envelope {
	fields := envelope{
		"field": snapshot.Field,
		"state": snapshot.State,
	}

	if snapshot.Winner != entity.EmptyCell {
		fields["winner"] = snapshot.Winner
	}

	if snapshot.YouTurn != nil {
		fields["youTurn"] = *snapshot.YouTurn
	}

	return fields
}

func (that *Server) writeOK(w http.ResponseWriter, fields envelope) {
	response := envelope{
		"status":  "ok",
		"code":    apperror.CodeOK,
		"message": "ok",
	}
	for key, value := range fields {
		response[key] = value
	}

	that.writeJSON(w, response)
}

func (that *Server) writeError(w http.ResponseWriter, err error) {
	code := apperror.WireCode(err)

	message, ok := codeMessages[code]
	if !ok {
		message = "Unexpected error"
	}

	that.logger.Debug("request failed", "code", code, "error", err)

	that.writeJSON(w, envelope{
		"status":  "error",
		"code":    code,
		"message": message,
	})
}

func (that *Server) writeJSON(w http.ResponseWriter, response envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		that.logger.Error("failed to encode response", "error", err)
	}
}
