package redisserver

import (
	"errors"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/internal/protocol/resp"
	"github.com/yndnr/respkv/internal/storage"
)

// PING [message]
func cmdPing(_ *Context, args [][]byte) resp.Value {
	if len(args) == 2 {
		return resp.Bulk(args[1])
	}
	return resp.Pong()
}

// ECHO message
func cmdEcho(_ *Context, args [][]byte) resp.Value {
	return resp.Bulk(args[1])
}

// QUIT
func cmdQuit(ctx *Context, _ [][]byte) resp.Value {
	ctx.client.closeAfterReply = true
	return resp.OK()
}

// AUTH [username] password
func cmdAuth(ctx *Context, args [][]byte) resp.Value {
	srv := ctx.srv
	if srv.auth == nil {
		return resp.Error("ERR AUTH <password> called without any password configured for the default user. Are you sure your configuration is correct?")
	}

	password := args[len(args)-1]
	if len(args) == 3 && string(args[1]) != defaultUser {
		ctx.Logger().Warn("authentication failed", "reason", "unknown user")
		return resp.Error(errWrongPass)
	}
	if !srv.auth.check(password) {
		ctx.Logger().Warn("authentication failed", "reason", "wrong password")
		return resp.Error(errWrongPass)
	}

	ctx.client.authenticated = true
	return resp.OK()
}

// SELECT index
func cmdSelect(ctx *Context, args [][]byte) resp.Value {
	index, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return resp.Error(errNotInteger)
	}

	ks, err := ctx.srv.engine.Select(index)
	if errors.Is(err, storage.ErrDBIndex) {
		return resp.Error(errDBOutOfRange)
	}
	if err != nil {
		return ctx.storageError(err)
	}

	ctx.client.selectDB(index, ks)
	return resp.OK()
}

// CLIENT ID | GETNAME | SETNAME name | LIST | SETINFO attr value
func cmdClient(ctx *Context, args [][]byte) resp.Value {
	sub := strings.ToLower(string(args[1]))

	switch {
	case sub == "id" && len(args) == 2:
		return resp.Integer(ctx.client.id)

	case sub == "getname" && len(args) == 2:
		name := ctx.client.getName()
		if name == "" {
			return resp.NullBulk()
		}
		return resp.BulkString(name)

	case sub == "setname" && len(args) == 3:
		name := string(args[2])
		if !validClientName(name) {
			return resp.Error("ERR Client names cannot contain spaces, newlines or special characters.")
		}
		ctx.client.setName(name)
		return resp.OK()

	case sub == "list" && len(args) == 2:
		return resp.BulkString(ctx.srv.clientList())

	case sub == "setinfo" && len(args) == 4:
		// Client libraries announce their name and version; nothing is kept.
		return resp.OK()

	case sub == "id", sub == "getname", sub == "setname", sub == "list", sub == "setinfo":
		return resp.Errorf("ERR wrong number of arguments for 'client|%s' command", sub)

	default:
		return resp.Errorf("ERR unknown subcommand '%s'. Try CLIENT HELP.", args[1])
	}
}

// validClientName accepts printable ASCII without spaces, as Redis does.
func validClientName(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] < '!' || name[i] > '~' {
			return false
		}
	}
	return true
}
