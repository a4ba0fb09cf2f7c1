package app

// Command is the mode the binary runs in.
type Command string

const (
	// CommandRPC serves shell calls over stdin/stdout.
	CommandRPC Command = "rpc"
	// CommandUser administers credentials.
	CommandUser Command = "user"
	// CommandEncrypt copies a plaintext database into a keyed one.
	CommandEncrypt Command = "encrypt"
	// CommandPrune deletes unreferenced status and origin labels.
	CommandPrune Command = "prune"
	// CommandMigrate applies pending migrations and reports versions.
	CommandMigrate Command = "migrate"
	// CommandUnknown is anything else.
	CommandUnknown Command = ""
)

// ParseCommand picks the subcommand from the arguments. No arguments
// means rpc.
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandRPC
	}

	switch args[0] {
	case "rpc":
		return CommandRPC
	case "user":
		return CommandUser
	case "encrypt":
		return CommandEncrypt
	case "prune":
		return CommandPrune
	case "migrate":
		return CommandMigrate
	default:
		return CommandUnknown
	}
}
