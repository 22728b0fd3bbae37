package lobby

// Game is the running match attached to a lobby. It is defined here so the
// lobby can route input and stop a game without importing the game package.
type Game interface {
	HandleInput(p *Player, raw string)
	Stop()
}
