// Package broker implements the MQTT messaging layer: connection
// lifecycle, topic routing, presence, room membership, and
// request/response plumbing for history and memory queries.
package broker

import "strings"

// Kind classifies an inbound topic.
type Kind int

const (
	KindUnknown Kind = iota
	KindChat
	KindRoomHistory
	KindSenderHistory
	KindMemoryFind
	KindRoomList
	KindMembers
)

func (k Kind) String() string {
	switch k {
	case KindChat:
		return "chat"
	case KindRoomHistory:
		return "room_history"
	case KindSenderHistory:
		return "sender_history"
	case KindMemoryFind:
		return "memory_find"
	case KindRoomList:
		return "room_list"
	case KindMembers:
		return "members"
	}
	return "unknown"
}

// Match is the result of classifying a topic. Identifier fields are set
// only when the matched pattern binds them.
type Match struct {
	Kind      Kind
	RoomID    string
	AgentID   string
	RequestID string
}

// Placeholder segments bind topic path components to Match fields.
const (
	segRoom    = ":room"
	segAgent   = ":agent"
	segRequest = ":request"
)

// patterns are tried in order, most specific first, so a literal segment
// always wins over a wildcard binding at the same position.
var patterns = []struct {
	kind Kind
	segs []string
}{
	{KindRoomHistory, []string{"rooms", segRoom, "history", "response", segRequest}},
	{KindSenderHistory, []string{"senders", "history", "response", segRequest}},
	{KindMemoryFind, []string{"agents", segAgent, "memory", "find", "response", segRequest}},
	{KindChat, []string{"rooms", segRoom, "chat", "out"}},
	{KindMembers, []string{"rooms", segRoom, "members"}},
	{KindRoomList, []string{"rooms", "state"}},
}

// Classify matches a concrete topic against the protocol's topic table.
// Topics that match nothing return a Match with KindUnknown; this keeps
// old clients forward-compatible with new topics.
func Classify(topic string) Match {
	segs := strings.Split(topic, "/")

next:
	for _, p := range patterns {
		if len(segs) != len(p.segs) {
			continue
		}
		m := Match{Kind: p.kind}
		for i, want := range p.segs {
			got := segs[i]
			switch want {
			case segRoom:
				m.RoomID = got
			case segAgent:
				m.AgentID = got
			case segRequest:
				m.RequestID = got
			default:
				if got != want {
					continue next
				}
			}
		}
		return m
	}
	return Match{Kind: KindUnknown}
}

// Subscription filters for the base topic set.
func subscriptionTopics(agentID string) []string {
	return []string{
		"rooms/state",
		"rooms/+/members",
		"rooms/+/chat/out",
		"rooms/+/history/response/+",
		"senders/history/response/+",
		"agents/" + agentID + "/memory/find/response/+",
	}
}

// Publication topic builders.

func statusTopic(agentID string) string    { return "agents/" + agentID + "/status" }
func heartbeatTopic(agentID string) string { return "agents/" + agentID + "/heartbeat" }
func joinTopic(roomID string) string       { return "rooms/" + roomID + "/join" }
func leaveTopic(roomID string) string      { return "rooms/" + roomID + "/leave" }
func chatInTopic(roomID string) string     { return "rooms/" + roomID + "/chat/in" }

func roomHistoryRequestTopic(roomID string) string { return "rooms/" + roomID + "/history/request" }

const senderHistoryRequestTopic = "senders/history/request"

func memoryFindRequestTopic(agentID string) string {
	return "agents/" + agentID + "/memory/find/request"
}
