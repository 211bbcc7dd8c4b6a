package http

import (
	"encoding/json"
	"fmt"

	"github.com/vovakirdan/rapidchat-server/internal/core"
	"github.com/vovakirdan/rapidchat-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeAuthenticate:
		var data proto.AuthenticateData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandAuthenticate, Token: data.Token}, nil
	case proto.InboundTypeSendMessage:
		var data proto.SendMessageData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandSendMessage, Text: data.Text}, nil
	case proto.InboundTypeSetDisplayName:
		var data proto.SetDisplayNameData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, badRequest(err)
		}
		return &core.Command{Kind: core.CommandSetDisplayName, Text: data.Name}, nil
	case proto.InboundTypeTypingStarted:
		return &core.Command{Kind: core.CommandTypingStarted}, nil
	case proto.InboundTypeTypingStopped:
		return &core.Command{Kind: core.CommandTypingStopped}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}
	}
}

// decodeData treats a missing payload as an empty object.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func badRequest(err error) *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: fmt.Sprintf("invalid payload: %v", err)}
}

func identityToProto(identity core.Identity) proto.Identity {
	return proto.Identity{ID: identity.ID, Name: identity.DisplayName}
}

func messageToProto(msg core.Message) proto.Message {
	return proto.Message{
		ID:     msg.ID,
		Text:   msg.Body,
		Author: identityToProto(msg.Author),
		TS:     msg.CreatedAt.Unix(),
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessageAdded:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessageAdded,
			Data:  proto.EventMessageAdded{Message: messageToProto(event.Message)},
		}
	case core.EventDisplayNameChanged:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameDisplayNameChanged,
			Data: proto.EventDisplayNameChanged{
				Name:     event.Identity.DisplayName,
				Identity: identityToProto(event.Identity),
			},
		}
	case core.EventTypingStarted:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameTypingStarted,
			Data:  proto.EventIdentity{Identity: identityToProto(event.Identity)},
		}
	case core.EventTypingStopped:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameTypingStopped,
			Data:  proto.EventIdentity{Identity: identityToProto(event.Identity)},
		}
	case core.EventAuthSucceeded:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameAuthSucceeded,
			Data:  proto.EventIdentity{Identity: identityToProto(event.Identity)},
		}
	case core.EventHistory:
		messages := make([]proto.Message, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, messageToProto(msg))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameHistorySnapshot,
			Data: proto.EventHistorySnapshot{
				Identity: identityToProto(event.Identity),
				Messages: messages,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}
