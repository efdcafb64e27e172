package executor

/*
flagCache memoizes flag queries of expressions that may reach themselves, such
as recursive functions. Each flag moves through three states: unknown, then
provisional while it is being computed, then resolved. A query that arrives
while the flag is provisional reads false, which terminates the recursion; the
outer query then resolves the flag with its computed value.
*/

////////////////////////////////////////////////////////////////////////////////

type flagState uint8

const (
	flagUnknown flagState = iota
	flagProvisional
	flagResolved
)

type flagEntry struct {
	state flagState
	value bool
}

type flagCache [numFlags]flagEntry

// lookup returns the value of a flag, computing it with compute if unknown.
func (fc *flagCache) lookup(flag Flag, compute func() bool) bool {
	entry := &fc[flag]
	switch entry.state {
	case flagProvisional, flagResolved:
		return entry.value
	}
	entry.state = flagProvisional
	entry.value = false
	result := compute()
	entry.state = flagResolved
	entry.value = result
	return result
}

// state returns the state of a flag.
func (fc *flagCache) state(flag Flag) flagState {
	return fc[flag].state
}

// reset forgets all resolved flags. It is called when the expression the
// flags describe has been rewritten.
func (fc *flagCache) reset() {
	for i := range fc {
		if fc[i].state == flagResolved {
			fc[i] = flagEntry{}
		}
	}
}
