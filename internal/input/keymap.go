package input

// keyNames maps web-standard physical key identifiers
// (KeyboardEvent.code) to robotgo key names. Keys a browser can emit
// that are missing here are rejected rather than guessed at.
var keyNames = map[string]string{
	"Enter":       "enter",
	"NumpadEnter": "enter",
	"Escape":      "esc",
	"Backspace":   "backspace",
	"Tab":         "tab",
	"Space":       "space",
	"Delete":      "delete",
	"Insert":      "insert",
	"Home":        "home",
	"End":         "end",
	"PageUp":      "pageup",
	"PageDown":    "pagedown",
	"CapsLock":    "capslock",

	"ArrowUp":    "up",
	"ArrowDown":  "down",
	"ArrowLeft":  "left",
	"ArrowRight": "right",

	"ShiftLeft":    "shift",
	"ShiftRight":   "shift",
	"ControlLeft":  "ctrl",
	"ControlRight": "ctrl",
	"AltLeft":      "alt",
	"AltRight":     "alt",
	"MetaLeft":     "cmd",
	"MetaRight":    "cmd",

	"F1":  "f1",
	"F2":  "f2",
	"F3":  "f3",
	"F4":  "f4",
	"F5":  "f5",
	"F6":  "f6",
	"F7":  "f7",
	"F8":  "f8",
	"F9":  "f9",
	"F10": "f10",
	"F11": "f11",
	"F12": "f12",

	"KeyA": "a",
	"KeyB": "b",
	"KeyC": "c",
	"KeyD": "d",
	"KeyE": "e",
	"KeyF": "f",
	"KeyG": "g",
	"KeyH": "h",
	"KeyI": "i",
	"KeyJ": "j",
	"KeyK": "k",
	"KeyL": "l",
	"KeyM": "m",
	"KeyN": "n",
	"KeyO": "o",
	"KeyP": "p",
	"KeyQ": "q",
	"KeyR": "r",
	"KeyS": "s",
	"KeyT": "t",
	"KeyU": "u",
	"KeyV": "v",
	"KeyW": "w",
	"KeyX": "x",
	"KeyY": "y",
	"KeyZ": "z",

	"Digit0": "0",
	"Digit1": "1",
	"Digit2": "2",
	"Digit3": "3",
	"Digit4": "4",
	"Digit5": "5",
	"Digit6": "6",
	"Digit7": "7",
	"Digit8": "8",
	"Digit9": "9",

	"Numpad0": "0",
	"Numpad1": "1",
	"Numpad2": "2",
	"Numpad3": "3",
	"Numpad4": "4",
	"Numpad5": "5",
	"Numpad6": "6",
	"Numpad7": "7",
	"Numpad8": "8",
	"Numpad9": "9",

	"Minus":        "-",
	"Equal":        "=",
	"BracketLeft":  "[",
	"BracketRight": "]",
	"Backslash":    "\\",
	"Semicolon":    ";",
	"Quote":        "'",
	"Backquote":    "`",
	"Comma":        ",",
	"Period":       ".",
	"Slash":        "/",
}
