package protocol

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// Reserved topics. Matching is case-sensitive.
const (
	TopicHeartbeat  = "_Heartbeat"
	TopicListen     = "_Listen"
	TopicUnlisten   = "_Unlisten"
	TopicDisconnect = "_Disconnect"

	// TopicGetClients asks the broker for the names of connected clients.
	TopicGetClients = "Messenger:GetClients"
	// TopicClients is the broker's reply to TopicGetClients.
	TopicClients = "Messenger:Clients"
	// TopicEvent carries broker lifecycle events such as client connects.
	TopicEvent = "Messenger:Event"
)

// Command is the decoded intent of an inbound message.
// The set of implementations is closed: Heartbeat, Listen, Unlisten,
// Disconnect, GetClients and Publish.
type Command interface {
	command()
}

type (
	// Heartbeat requests a liveness echo.
	Heartbeat struct{}

	// Listen subscribes the connection to Topic (a leading "*" marks a prefix match).
	Listen struct{ Topic string }

	// Unlisten removes a subscription added by Listen.
	Unlisten struct{ Topic string }

	// Disconnect requests a graceful close.
	Disconnect struct{}

	// GetClients requests the list of connected client names. The request is
	// still published to listeners of its topic.
	GetClients struct{}

	// Publish fans Message out to every subscriber.
	Publish struct{ Message Message }
)

func (Heartbeat) command()  {}
func (Listen) command()     {}
func (Unlisten) command()   {}
func (Disconnect) command() {}
func (GetClients) command() {}
func (Publish) command()    {}

// Parse classifies msg by its topic.
// Any non-reserved topic becomes Publish. An unreadable _Listen or _Unlisten
// payload yields ErrMalformedControl.
func Parse(msg Message) (Command, error) {
	switch msg.Topic {
	case TopicHeartbeat:
		return Heartbeat{}, nil
	case TopicListen:
		topic, err := controlTopic(msg)
		if err != nil {
			return nil, err
		}
		return Listen{Topic: topic}, nil
	case TopicUnlisten:
		topic, err := controlTopic(msg)
		if err != nil {
			return nil, err
		}
		return Unlisten{Topic: topic}, nil
	case TopicDisconnect:
		return Disconnect{}, nil
	case TopicGetClients:
		return GetClients{}, nil
	default:
		return Publish{Message: msg}, nil
	}
}

func controlTopic(msg Message) (string, error) {
	topic, _, err := UnpackString(msg.Payload)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrMalformedControl, msg.Topic, err)
	}
	return topic, nil
}

// HeartbeatMessage returns the heartbeat frame content: the heartbeat topic with no payload.
func HeartbeatMessage() Message {
	return Message{Topic: TopicHeartbeat, Payload: []byte{}}
}

// ListenMessage builds a _Listen control message for topic.
func ListenMessage(topic string) (Message, error) {
	payload, err := PackString(topic)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: TopicListen, Payload: payload}, nil
}

// UnlistenMessage builds an _Unlisten control message for topic.
func UnlistenMessage(topic string) (Message, error) {
	payload, err := PackString(topic)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: TopicUnlisten, Payload: payload}, nil
}

// DisconnectMessage builds a _Disconnect control message.
func DisconnectMessage() Message {
	return Message{Topic: TopicDisconnect, Payload: []byte{}}
}

// ClientsMessage builds the reply to GetClients: [u16 count] followed by
// count [u16 len][name] strings. Names are sorted; the list is truncated
// if it does not fit the count field.
func ClientsMessage(names []string) (Message, error) {
	names = slices.Sorted(slices.Values(names))
	if len(names) > MaxTopicLen {
		names = names[:MaxTopicLen]
	}

	payload := binary.BigEndian.AppendUint16(nil, uint16(len(names)))
	for _, name := range names {
		var err error
		if payload, err = AppendString(payload, name); err != nil {
			return Message{}, err
		}
	}
	return Message{Topic: TopicClients, Payload: payload}, nil
}

// ParseClients decodes a TopicClients payload.
func ParseClients(payload []byte) ([]string, error) {
	if len(payload) < topicLenSize {
		return nil, fmt.Errorf("%w: clients list: %w", ErrMalformedControl, ErrIncomplete)
	}
	count := int(binary.BigEndian.Uint16(payload))
	payload = payload[topicLenSize:]

	names := make([]string, 0, count)
	for range count {
		name, n, err := UnpackString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: clients list: %w", ErrMalformedControl, err)
		}
		names = append(names, name)
		payload = payload[n:]
	}
	return names, nil
}

// EventMessage builds a TopicEvent message carrying text as a simple string.
func EventMessage(text string) (Message, error) {
	payload, err := PackString(text)
	if err != nil {
		return Message{}, err
	}
	return Message{Topic: TopicEvent, Payload: payload}, nil
}
