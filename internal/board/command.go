package board

// Command is one of the five logical inputs.
type Command uint8

const (
	CmdLeft Command = iota + 1
	CmdRight
	CmdSoftDrop
	CmdRotate
	CmdHardDrop
)

// Commands lists every command in wire order.
var Commands = [...]Command{CmdLeft, CmdRight, CmdSoftDrop, CmdRotate, CmdHardDrop}

var commandNames = map[Command]string{
	CmdLeft:     "left",
	CmdRight:    "right",
	CmdSoftDrop: "down",
	CmdRotate:   "rotate",
	CmdHardDrop: "drop",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// ParseCommand maps a wire name to a Command.
func ParseCommand(name string) (Command, bool) {
	for c, n := range commandNames {
		if n == name {
			return c, true
		}
	}
	return 0, false
}
