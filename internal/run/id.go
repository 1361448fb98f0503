package run

import "math/rand/v2"

// idAlphabet leaves out 0, O, I, l and o so run ids survive being read
// aloud or retyped from a CI console.
const idAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ123456789"

const idLength = 16

// NewID returns a fresh run id of the form build_xxxxxxxxxxxxxxxx.
func NewID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return "build_" + string(b)
}
