package lobby

import "errors"

var (
	ErrLobbyNotFound    = errors.New("lobby not found")
	ErrLobbyClosed      = errors.New("lobby closed")
	ErrNoCodesAvailable = errors.New("no lobby codes available")
	ErrGameInProgress   = errors.New("game already in progress")
	ErrNotHost          = errors.New("only the host can start the game")
	ErrNotEnoughPlayers = errors.New("not enough players")
)
