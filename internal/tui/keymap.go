package tui

// Key binding constants used in handleKey.
const (
	KeyQuit          = "q"
	KeyCtrlC         = "ctrl+c"
	KeyStart         = "s"
	KeyPause         = " "
	KeyNext          = "n"
	KeyRight         = "right"
	KeyPrevious      = "p"
	KeyLeft          = "left"
	KeyStop          = "x"
	KeyRestart       = "r"
	KeyRetryRecorder = "R"
	KeyVideo         = "v"
	KeyAudio         = "a"
	KeyTips          = "t"
	KeyConfirm       = "y"
)
