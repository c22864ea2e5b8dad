package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-connect4/internal/board"
	"github.com/park285/cheese-connect4/internal/msgcat"
	"github.com/park285/cheese-connect4/internal/opponent"
	"github.com/park285/cheese-connect4/pkg/wire"
)

// c4check joins the server as one participant and plays with the built-in
// heuristic until the match ends.
func main() {
	wsURL := os.Getenv("C4_WS_URL")
	if wsURL == "" {
		wsURL = "ws://localhost:8080/ws"
	}
	name := os.Getenv("C4_NAME")
	if name == "" {
		name = fmt.Sprintf("check-%d", time.Now().Unix()%10000)
	}
	cat := msgcat.MustDefault()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		log.Fatalf("dial %s: %v", wsURL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "done")

	if err := wsjson.Write(ctx, conn, wire.Join(name)); err != nil {
		log.Fatalf("join: %v", err)
	}

	var mySide board.Side
	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			log.Fatalf("read: %v", err)
		}
		typ, err := wire.PeekType(raw)
		if err != nil {
			log.Printf("skip frame: %v", err)
			continue
		}
		switch typ {
		case wire.TypeWaiting:
			var m wire.Waiting
			_ = json.Unmarshal(raw, &m)
			say(cat, "client.waiting", map[string]any{"seconds": m.Seconds})
		case wire.TypeCountdownTick:
			var m wire.CountdownTick
			_ = json.Unmarshal(raw, &m)
			fmt.Printf("  %ds\n", m.Seconds)
		case wire.TypeMatchStarted, wire.TypeMatchResumed:
			var m wire.MatchState
			if err := json.Unmarshal(raw, &m); err != nil {
				log.Fatalf("decode %s: %v", typ, err)
			}
			mySide = board.Side(m.YourSide)
			key := "client.started"
			if typ == wire.TypeMatchResumed {
				key = "client.resumed"
			}
			say(cat, key, map[string]any{"matchId": m.MatchID, "opponent": m.OpponentName, "side": m.YourSide})
			play(ctx, conn, m.Board, board.Side(m.Turn), mySide)
		case wire.TypeBoardUpdated:
			var m wire.BoardUpdated
			if err := json.Unmarshal(raw, &m); err != nil {
				log.Fatalf("decode %s: %v", typ, err)
			}
			play(ctx, conn, m.Board, board.Side(m.Turn), mySide)
		case wire.TypeOpponentDisconnected:
			var m wire.OpponentDisconnected
			_ = json.Unmarshal(raw, &m)
			say(cat, "client.opponentAway", map[string]any{"seconds": m.Seconds})
		case wire.TypeOpponentReconnected:
			say(cat, "client.opponentBack", nil)
		case wire.TypeRejected:
			var m wire.Rejected
			_ = json.Unmarshal(raw, &m)
			fmt.Printf("rejected: %s %s\n", m.Reason, m.Message)
		case wire.TypeMatchEnded:
			var m wire.MatchEnded
			if err := json.Unmarshal(raw, &m); err != nil {
				log.Fatalf("decode %s: %v", typ, err)
			}
			if b, err := board.FromCells(m.Board); err == nil {
				fmt.Println(b.String())
			}
			switch {
			case m.Winner != nil:
				say(cat, "client.won", map[string]any{"winner": *m.Winner, "reason": m.Reason})
			case m.Draw:
				say(cat, "client.draw", nil)
			default:
				say(cat, "client.abandoned", nil)
			}
			return
		}
	}
}

func play(ctx context.Context, conn *websocket.Conn, cells [][]int, turn, mySide board.Side) {
	if turn != mySide {
		return
	}
	b, err := board.FromCells(cells)
	if err != nil {
		log.Fatalf("board: %v", err)
	}
	col, err := opponent.ChooseColumn(b, mySide)
	if err != nil {
		log.Fatalf("choose: %v", err)
	}
	if err := wsjson.Write(ctx, conn, wire.Move(col)); err != nil {
		log.Fatalf("move: %v", err)
	}
}

func say(cat *msgcat.Catalog, key string, data map[string]any) {
	if data == nil {
		data = map[string]any{}
	}
	s, err := cat.Render(key, data)
	if err != nil {
		s = key
	}
	fmt.Println(s)
}
