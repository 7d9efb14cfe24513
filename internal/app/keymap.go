package app

// Key binding constants used in the views' handleKey.
const (
	KeyQuit      = "q"
	KeyQuitUpper = "Q"
	KeyCtrlC     = "ctrl+c"
	KeySpace     = " "
	KeyUp        = "up"
	KeyDown      = "down"
	KeyLeft      = "left"
	KeyRight     = "right"
	KeyWordPrev  = "shift+left"
	KeyWordNext  = "shift+right"
	KeyJ         = "j"
	KeyK         = "k"
	KeyEnter     = "enter"
	KeyStop      = "s"
	KeyHome      = "home"
	KeyEnd       = "end"
)
