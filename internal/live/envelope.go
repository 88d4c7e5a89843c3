package live

import "encoding/json"

// Envelope is the JSON frame exchanged on the live channel.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event names on the live channel. The server has shipped two spellings
// for the inbound message and proof events; both are accepted.
const (
	EventJoinRoom    = "joinRoom"
	EventSendMessage = "sendMessage"
	EventSendProof   = "sendProof"

	EventUserList       = "userList"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventReceiveMessage = "receiveMessage"
	EventNewMessage     = "newMessage"
	EventReceiveProof   = "receiveProof"
	EventNewProof       = "newProof"
)

// JoinPayload is the first frame sent after the socket opens.
type JoinPayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

// decodeName accepts both a bare JSON string and a {"name": ...} object,
// which is how join and leave notifications have been delivered.
func decodeName(raw json.RawMessage) (string, bool) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil && name != "" {
		return name, true
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Name != "" {
		return obj.Name, true
	}
	return "", false
}
