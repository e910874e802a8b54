package render

// Key is a keyboard key the visualizer reacts to.
type Key int

const (
	KeyUnknown Key = iota
	KeySpace
	KeyEscape
	Key1
	Key2
	Key3
	Key4
	KeyM
	KeyR
	KeyC
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
)

// Keys lists every bound key, for surfaces that poll.
var Keys = []Key{
	KeySpace, KeyEscape, Key1, Key2, Key3, Key4,
	KeyM, KeyR, KeyC, KeyLeft, KeyRight, KeyUp, KeyDown,
}
