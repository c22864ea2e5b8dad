package arena

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/cheese-connect4/internal/match"
	"github.com/park285/cheese-connect4/pkg/wire"
)

// Dispatch decodes one inbound frame from conn and routes it. Every failure
// is answered with a rejected frame on conn.
func (s *Service) Dispatch(conn match.ConnID, raw []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch_panic", zap.String("conn", string(conn)), zap.Any("panic", r))
			err = fmt.Errorf("%w: internal error", ErrInvalidRequest)
			s.reject(conn, err, nil)
		}
	}()

	cmd, err := wire.DecodeCommand(raw)
	if err != nil {
		s.reject(conn, err, nil)
		return err
	}
	switch cmd.Type {
	case wire.TypeJoin:
		return s.Join(conn, cmd.Name)
	case wire.TypeMove:
		return s.Move(conn, *cmd.Column)
	case wire.TypeReconnect:
		return s.Reconnect(conn, cmd.Name, cmd.MatchID)
	}
	return nil
}
