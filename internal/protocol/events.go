// Package protocol defines the typed session events exchanged with the
// game server. Every frame is a JSON envelope {type, payload}; payloads
// stay raw until the type is known.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Kind string

const (
	KindAuth         Kind = "auth"
	KindInitGame     Kind = "init_game"
	KindMove         Kind = "move"
	KindGameOver     Kind = "game_over"
	KindPlayerLeft   Kind = "player_left"
	KindReconnect    Kind = "reconnect"
	KindJoinGameRoom Kind = "join_game_room"
)

var ErrUnknownKind = errors.New("unknown event kind")

// Envelope is the generic wire frame.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MoveBody is the structured move carried by both directions.
type MoveBody struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}

type authPayload struct {
	Token string `json:"token"`
}

type initGamePayload struct {
	GameID string `json:"gameId"`
	Color  string `json:"color"`
}

type movePayload struct {
	Move MoveBody `json:"move"`
}

type gameOverPayload struct {
	Result string `json:"result"`
}

type reconnectPayload struct {
	Color    string `json:"color"`
	Position string `json:"position"`
}

type joinGameRoomPayload struct {
	GameID string `json:"gameId"`
}

// Event is one decoded inbound frame. Only the fields relevant to its
// Kind are populated; the consumer switches on Kind.
type Event struct {
	Kind     Kind
	GameID   string
	Side     string
	Move     MoveBody
	Result   string
	Position string
}

// Decode parses a raw inbound frame into an Event.
func Decode(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	return DecodeEnvelope(env)
}

// DecodeEnvelope parses an already-unwrapped envelope.
func DecodeEnvelope(env Envelope) (Event, error) {
	ev := Event{Kind: env.Type}
	switch env.Type {
	case KindInitGame:
		var p initGamePayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Event{}, err
		}
		ev.GameID = p.GameID
		ev.Side = p.Color
	case KindMove:
		var p movePayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Event{}, err
		}
		ev.Move = p.Move
	case KindGameOver:
		var p gameOverPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Event{}, err
		}
		ev.Result = p.Result
	case KindReconnect:
		var p reconnectPayload
		if err := unmarshalPayload(env.Payload, &p); err != nil {
			return Event{}, err
		}
		ev.Side = p.Color
		ev.Position = p.Position
	case KindPlayerLeft:
		// no payload
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownKind, env.Type)
	}
	return ev, nil
}

func unmarshalPayload(raw json.RawMessage, out any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}

// Outbound constructors. Payload marshalling cannot fail for these
// concrete types, so the helpers return envelopes directly.

func Auth(token string) Envelope {
	return mustEnvelope(KindAuth, authPayload{Token: token})
}

// FindMatch requests matchmaking; it carries no payload.
func FindMatch() Envelope {
	return Envelope{Type: KindInitGame}
}

func MoveMade(mv MoveBody) Envelope {
	return mustEnvelope(KindMove, movePayload{Move: mv})
}

func JoinGameRoom(gameID string) Envelope {
	return mustEnvelope(KindJoinGameRoom, joinGameRoomPayload{GameID: gameID})
}

func mustEnvelope(kind Kind, payload any) Envelope {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("marshal %s payload: %v", kind, err))
	}
	return Envelope{Type: kind, Payload: raw}
}
