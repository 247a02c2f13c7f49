package input

import "github.com/go-vgo/robotgo"

// RobotPort injects input through robotgo.
type RobotPort struct{}

func NewRobotPort() RobotPort { return RobotPort{} }

func (RobotPort) Move(x, y int) {
	robotgo.Move(x, y)
}

func (RobotPort) Toggle(button, direction string) error {
	return robotgo.Toggle(button, direction)
}

func (RobotPort) Scroll(dx, dy int) {
	robotgo.Scroll(dx, dy)
}

func (RobotPort) KeyTap(key string, mods []string) error {
	return robotgo.KeyTap(key, toArgs(mods)...)
}

func (RobotPort) KeyToggle(key, direction string, mods []string) error {
	args := append([]interface{}{direction}, toArgs(mods)...)
	return robotgo.KeyToggle(key, args...)
}

func (RobotPort) ReadClipboard() (string, error) {
	return robotgo.ReadAll()
}

func (RobotPort) WriteClipboard(text string) error {
	return robotgo.WriteAll(text)
}

func (RobotPort) Activate(pid int) error {
	return robotgo.ActivePid(pid)
}

func toArgs(mods []string) []interface{} {
	args := make([]interface{}, len(mods))
	for i, m := range mods {
		args[i] = m
	}
	return args
}
