package redisserver

// newCommandTable builds the command registry keyed by lower-case name.
func newCommandTable() map[string]*Command {
	cmds := []*Command{
		// connection
		{Name: "ping", MinArgs: 1, MaxArgs: 2, Flags: FlagFast, Handler: cmdPing},
		{Name: "echo", MinArgs: 2, MaxArgs: 2, Flags: FlagFast, Handler: cmdEcho},
		{Name: "quit", MinArgs: 1, MaxArgs: -1, Flags: FlagFast | FlagNoAuth, Handler: cmdQuit},
		{Name: "auth", MinArgs: 2, MaxArgs: 3, Flags: FlagFast | FlagNoAuth, Handler: cmdAuth},
		{Name: "select", MinArgs: 2, MaxArgs: 2, Flags: FlagFast, Handler: cmdSelect},
		{Name: "client", MinArgs: 2, MaxArgs: -1, Flags: FlagAdmin, Handler: cmdClient},

		// strings
		{Name: "get", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly | FlagFast, Handler: cmdGet, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "set", MinArgs: 3, MaxArgs: -1, Flags: FlagWrite, Handler: cmdSet, FirstKey: 1, LastKey: 1, KeyStep: 1},

		// keys
		{Name: "del", MinArgs: 2, MaxArgs: -1, Flags: FlagWrite, Handler: cmdDel, FirstKey: 1, LastKey: -1, KeyStep: 1},
		{Name: "exists", MinArgs: 2, MaxArgs: -1, Flags: FlagReadOnly | FlagFast, Handler: cmdExists, FirstKey: 1, LastKey: -1, KeyStep: 1},
		{Name: "expire", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite | FlagFast, Handler: cmdExpire, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "pexpire", MinArgs: 3, MaxArgs: 3, Flags: FlagWrite | FlagFast, Handler: cmdPExpire, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "ttl", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly | FlagFast, Handler: cmdTTL, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "pttl", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly | FlagFast, Handler: cmdPTTL, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "persist", MinArgs: 2, MaxArgs: 2, Flags: FlagWrite | FlagFast, Handler: cmdPersist, FirstKey: 1, LastKey: 1, KeyStep: 1},
		{Name: "keys", MinArgs: 2, MaxArgs: 2, Flags: FlagReadOnly, Handler: cmdKeys},

		// server
		{Name: "dbsize", MinArgs: 1, MaxArgs: 1, Flags: FlagReadOnly | FlagFast, Handler: cmdDBSize},
		{Name: "flushdb", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Handler: cmdFlushDB},
		{Name: "flushall", MinArgs: 1, MaxArgs: 2, Flags: FlagWrite, Handler: cmdFlushAll},
		{Name: "command", MinArgs: 1, MaxArgs: -1, Handler: cmdCommand},
		{Name: "info", MinArgs: 1, MaxArgs: 2, Handler: cmdInfo},
	}

	table := make(map[string]*Command, len(cmds))
	for _, c := range cmds {
		table[c.Name] = c
	}
	return table
}
