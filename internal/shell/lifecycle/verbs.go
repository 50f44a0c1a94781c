package lifecycle

// Verb is one lifecycle command recognized by the dispatcher.
type Verb string

const (
	VerbStart   Verb = "start"
	VerbStop    Verb = "stop"
	VerbRestart Verb = "restart"
	VerbStatus  Verb = "status"
	VerbLogs    Verb = "logs"
	VerbPull    Verb = "pull"
	VerbUpdate  Verb = "update"
	VerbShell   Verb = "shell"
	VerbConfig  Verb = "config"
	VerbHistory Verb = "history"
	VerbVersion Verb = "version"
	VerbHelp    Verb = "help"
)

// ParseVerb resolves a command-line argument to a Verb, applying the
// documented aliases. An empty argument means help. ok is false for
// unrecognized input.
func ParseVerb(arg string) (Verb, bool) {
	switch arg {
	case "":
		return VerbHelp, true
	case "start", "up":
		return VerbStart, true
	case "stop", "down":
		return VerbStop, true
	case "restart":
		return VerbRestart, true
	case "status":
		return VerbStatus, true
	case "logs":
		return VerbLogs, true
	case "pull":
		return VerbPull, true
	case "update":
		return VerbUpdate, true
	case "shell", "sh":
		return VerbShell, true
	case "config":
		return VerbConfig, true
	case "history":
		return VerbHistory, true
	case "version":
		return VerbVersion, true
	case "help":
		return VerbHelp, true
	default:
		return "", false
	}
}

// ParseArgs resolves the positional arguments to a single Verb. More than
// one positional argument is rejected.
func ParseArgs(args []string) (Verb, bool) {
	if len(args) > 1 {
		return "", false
	}
	if len(args) == 0 {
		return VerbHelp, true
	}
	return ParseVerb(args[0])
}

// Usage is the full help text, printed for the help verb and after an
// unknown verb.
const Usage = `Usage: fusionctl <command>

Commands:
  start    (up)   Sync the deployment definition and bring the service up
  stop     (down) Tear the service down, waiting for graceful shutdown
  restart         Stop then start; picks up configuration changes
  status          Show the engine's process table and probe service health
  logs            Follow the service log stream (Ctrl-C to detach)
  pull            Fetch the configured image without restarting
  update          Pull the image, then restart the service
  shell    (sh)   Open an interactive shell inside the running service
  config          Print the rendered compose definition
  history         Show recent lifecycle actions
  version         Print version and build information
  help            Show this text
`
