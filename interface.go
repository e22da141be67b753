package rollogr

//go:generate mockgen -destination=mocks/notifier.go -package=mocks github.com/agentdiag/rollogr Notifier

// Notifier receives out-of-band events from the rollogr packages. The sweeper
// reports its progress through this interface instead of a specific logging
// sink. Wire it to your own logger, metrics, or nothing at all.
type Notifier interface {
	// Info is called with free-text progress events, such as a sweep
	// starting or a summary of a finished sweep.
	Info(msg string)
	// Deleted is called with the path of each file removed by a cleanup pass.
	Deleted(fileName string)
}

// Nop returns a Notifier that discards every event.
func Nop() Notifier {
	return &nopNotifier{}
}

type nopNotifier struct{}

func (*nopNotifier) Info(string)    {}
func (*nopNotifier) Deleted(string) {}

// Printf returns a Notifier that formats events through a printf-style
// procedure, such as log.Printf.
func Printf(printf func(msg string, v ...any)) Notifier {
	return &printfNotifier{printf: printf}
}

type printfNotifier struct {
	printf func(msg string, v ...any)
}

func (n *printfNotifier) Info(msg string) {
	n.printf("%s", msg)
}

func (n *printfNotifier) Deleted(fileName string) {
	n.printf("deleted: %s", fileName)
}
