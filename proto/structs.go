package proto

type Operation string

const (
	Set    Operation = "set"
	Delete Operation = "delete"
	Noop   Operation = "noop"
)

type Command struct {
	Op  Operation
	Key string
	Val []byte
}

type LogEntry struct {
	Term  int
	Index int
	Cmd   Command
}
