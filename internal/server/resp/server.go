package respserver

import (
	"context"
	"errors"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/redcon"

	"github.com/gauthamkulal77/audio-pipeline/internal/storage"
	logpkg "github.com/gauthamkulal77/audio-pipeline/pkg/log"
)

const errInvalidID = "ERR Invalid stream ID specified as stream command argument"

type Server struct {
	store   storage.Store
	logger  logpkg.Logger
	timeout time.Duration
}

func New(store storage.Store, logger logpkg.Logger) *Server {
	return &Server{store: store, logger: logger.WithComponent("resp"), timeout: 5 * time.Second}
}

// Serve handles connections on ln until it is closed.
func (s *Server) Serve(ln net.Listener) error {
	return redcon.Serve(ln, s.handle, s.accept, s.closed)
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.logger.Info("resp listening", logpkg.Str("addr", ln.Addr().String()))
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ln) }()
	select {
	case <-ctx.Done():
		_ = ln.Close()
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) accept(conn redcon.Conn) bool {
	s.logger.Debug("client connected", logpkg.Str("remote", conn.RemoteAddr()))
	return true
}

func (s *Server) closed(conn redcon.Conn, err error) {
	if err != nil {
		s.logger.Debug("client closed", logpkg.Str("remote", conn.RemoteAddr()), logpkg.Err(err))
	}
}

func (s *Server) handle(conn redcon.Conn, cmd redcon.Command) {
	name := strings.ToUpper(string(cmd.Args[0]))
	switch name {
	case "PING":
		if len(cmd.Args) > 1 {
			conn.WriteBulk(cmd.Args[1])
			return
		}
		conn.WriteString("PONG")
	case "QUIT":
		conn.WriteString("OK")
		_ = conn.Close()
	case "SELECT":
		conn.WriteString("OK")
	case "XADD":
		s.xadd(conn, cmd.Args)
	case "XRANGE", "XREVRANGE":
		s.xrange(conn, cmd.Args, name == "XREVRANGE")
	case "XDEL":
		s.xdel(conn, cmd.Args)
	case "XLEN":
		s.xlen(conn, cmd.Args)
	case "XTRIM":
		s.xtrim(conn, cmd.Args)
	default:
		conn.WriteError("ERR unknown command '" + string(cmd.Args[0]) + "'")
	}
}

func (s *Server) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Server) writeErr(conn redcon.Conn, err error) {
	if errors.Is(err, storage.ErrInvalidID) {
		conn.WriteError(errInvalidID)
		return
	}
	s.logger.Warn("store command failed", logpkg.Err(err))
	conn.WriteError("ERR " + err.Error())
}

func wrongArgs(conn redcon.Conn, name string) {
	conn.WriteError("ERR wrong number of arguments for '" + strings.ToLower(name) + "' command")
}

// parseTrim reads "MAXLEN|MINID [=|~] threshold [LIMIT n]" at args[i]. ok is
// false when args[i] does not start a trim clause.
func parseTrim(args [][]byte, i int) (trim storage.Trim, next int, ok bool, err error) {
	strategy := strings.ToUpper(string(args[i]))
	if strategy != "MAXLEN" && strategy != "MINID" {
		return trim, i, false, nil
	}
	i++
	if i < len(args) {
		switch string(args[i]) {
		case "~":
			trim.Approx = true
			i++
		case "=":
			i++
		}
	}
	if i >= len(args) {
		return trim, i, true, errors.New("ERR syntax error")
	}
	if strategy == "MAXLEN" {
		n, perr := strconv.ParseInt(string(args[i]), 10, 64)
		if perr != nil || n <= 0 {
			return trim, i, true, errors.New("ERR The MAXLEN argument must be a positive integer")
		}
		trim.MaxLen = n
	} else {
		trim.MinID = string(args[i])
	}
	i++
	if i+1 < len(args) && strings.EqualFold(string(args[i]), "LIMIT") {
		i += 2
	}
	return trim, i, true, nil
}

// XADD key [NOMKSTREAM] [MAXLEN|MINID [=|~] threshold [LIMIT n]] * field value [field value ...]
func (s *Server) xadd(conn redcon.Conn, args [][]byte) {
	if len(args) < 5 {
		wrongArgs(conn, "XADD")
		return
	}
	key := string(args[1])
	i := 2
	if strings.EqualFold(string(args[i]), "NOMKSTREAM") {
		i++
	}
	trim, i, _, err := parseTrim(args, i)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	if i >= len(args) {
		wrongArgs(conn, "XADD")
		return
	}
	if string(args[i]) != "*" {
		conn.WriteError("ERR only auto-generated ids (*) are supported")
		return
	}
	pairs := args[i+1:]
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		wrongArgs(conn, "XADD")
		return
	}
	fields := make(map[string]string, len(pairs)/2)
	for j := 0; j < len(pairs); j += 2 {
		fields[string(pairs[j])] = string(pairs[j+1])
	}
	ctx, cancel := s.ctx()
	defer cancel()
	newID, err := s.store.Append(ctx, key, fields, trim)
	if err != nil {
		s.writeErr(conn, err)
		return
	}
	conn.WriteBulkString(newID)
}

// XRANGE key start end [COUNT n], XREVRANGE key end start [COUNT n]
func (s *Server) xrange(conn redcon.Conn, args [][]byte, reverse bool) {
	if len(args) != 4 && len(args) != 6 {
		wrongArgs(conn, string(args[0]))
		return
	}
	count := 0
	if len(args) == 6 {
		if !strings.EqualFold(string(args[4]), "COUNT") {
			conn.WriteError("ERR syntax error")
			return
		}
		n, err := strconv.Atoi(string(args[5]))
		if err != nil {
			conn.WriteError("ERR value is not an integer or out of range")
			return
		}
		if n <= 0 {
			conn.WriteArray(0)
			return
		}
		count = n
	}
	ctx, cancel := s.ctx()
	defer cancel()
	var (
		entries []storage.Entry
		err     error
	)
	if reverse {
		entries, err = s.store.RevRange(ctx, string(args[1]), string(args[2]), string(args[3]), count)
	} else {
		entries, err = s.store.Range(ctx, string(args[1]), string(args[2]), string(args[3]), count)
	}
	if err != nil {
		s.writeErr(conn, err)
		return
	}
	conn.WriteArray(len(entries))
	for _, e := range entries {
		conn.WriteArray(2)
		conn.WriteBulkString(e.ID)
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		conn.WriteArray(len(keys) * 2)
		for _, k := range keys {
			conn.WriteBulkString(k)
			conn.WriteBulkString(e.Fields[k])
		}
	}
}

// XDEL key id [id ...]
func (s *Server) xdel(conn redcon.Conn, args [][]byte) {
	if len(args) < 3 {
		wrongArgs(conn, "XDEL")
		return
	}
	ids := make([]string, 0, len(args)-2)
	for _, a := range args[2:] {
		ids = append(ids, string(a))
	}
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.store.Del(ctx, string(args[1]), ids)
	if err != nil {
		s.writeErr(conn, err)
		return
	}
	conn.WriteInt(n)
}

// XLEN key
func (s *Server) xlen(conn redcon.Conn, args [][]byte) {
	if len(args) != 2 {
		wrongArgs(conn, "XLEN")
		return
	}
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.store.Len(ctx, string(args[1]))
	if err != nil {
		s.writeErr(conn, err)
		return
	}
	conn.WriteInt64(n)
}

// XTRIM key MAXLEN|MINID [=|~] threshold [LIMIT n]
func (s *Server) xtrim(conn redcon.Conn, args [][]byte) {
	if len(args) < 4 {
		wrongArgs(conn, "XTRIM")
		return
	}
	trim, next, ok, err := parseTrim(args, 2)
	if err != nil {
		conn.WriteError(err.Error())
		return
	}
	if !ok || next != len(args) {
		conn.WriteError("ERR syntax error")
		return
	}
	ctx, cancel := s.ctx()
	defer cancel()
	n, err := s.store.TrimStream(ctx, string(args[1]), trim)
	if err != nil {
		s.writeErr(conn, err)
		return
	}
	conn.WriteInt(n)
}
