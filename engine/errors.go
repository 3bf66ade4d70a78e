package engine

import "errors"

// Sentinel errors recognized by the kernel (spec.md §4.1, §7).
var (
	ErrUnknownSnake = errors.New("engine: unknown snake")
	ErrGameComplete = errors.New("engine: game already complete")
	ErrUnknownEvent = errors.New("engine: unknown event kind")
)
