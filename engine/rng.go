package engine

import "math/rand"

// newTickRNG derives a deterministic generator for a single tick's random
// choices (food spawn placement) from the game and tick identity, per
// spec.md §4.1: "RNG ... via a seeded generator derived from
// (game_id, tick)". Two nodes computing the same tick for the same game
// always pick the same cell.
func newTickRNG(gameID uint64, tick uint64) *rand.Rand {
	seed := mix64(gameID) ^ mix64(tick+0x9e3779b97f4a7c15)
	return rand.New(rand.NewSource(int64(seed)))
}

// mix64 is splitmix64, used only to spread the (game_id, tick) pair across
// the seed space; not cryptographic.
func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
