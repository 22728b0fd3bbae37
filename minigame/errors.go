package minigame

import "errors"

var ErrUnknownMinigame = errors.New("unknown minigame")
