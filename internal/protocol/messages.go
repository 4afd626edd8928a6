package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket envelope variants exchanged between the
// orchestrator and a connected client over the course of one interview.
type MessageType string

const (
	// Server -> client.
	TypeSystem         MessageType = "system"
	TypeSpeech         MessageType = "speech"
	TypeQuestion       MessageType = "question"
	TypeStartListening MessageType = "start_listening"
	TypeAnswer         MessageType = "answer"
	TypeHeartbeat      MessageType = "heartbeat"
	TypeTerminate      MessageType = "terminate"
	TypeComplete       MessageType = "complete"
	TypeErrorEvent     MessageType = "error_event"

	// Client -> server.
	TypeAudioPlaybackCompleted MessageType = "audio_playback_completed"
	TypeAudioPlaybackError     MessageType = "audio_playback_error"
	TypeEndSession             MessageType = "end_session"
)

// ErrUnsupportedType is returned by ParseClientMessage for any type the
// server does not accept from a client.
var ErrUnsupportedType = errors.New("unsupported message type")

// Envelope is the minimal shape shared by every message, useful for
// inspecting a type before unmarshaling the full payload.
type Envelope struct {
	Type MessageType `json:"type"`
}

// System carries an informational lifecycle notice, emitted once by the
// supervisor when a session opens.
type System struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
	Text      string      `json:"text"`
}

// SpeechType distinguishes why the Audio Coordinator is speaking, so a
// client can vary its UI treatment (e.g. dim the mic indicator during a
// termination notice).
type SpeechType string

const (
	SpeechSystem      SpeechType = "system"
	SpeechTransition  SpeechType = "transition"
	SpeechModeration  SpeechType = "moderation"
	SpeechRetry       SpeechType = "retry"
	SpeechSkip        SpeechType = "skip"
	SpeechTermination SpeechType = "termination"
	SpeechCompletion  SpeechType = "completion"
)

// Speech carries a narration line unrelated to a specific interview
// question: a transition, a moderation response, a retry or skip notice,
// a termination notice, or the closing remarks. A client must play the audio (when
// present) and ack with AudioPlaybackCompleted tagged with MessageID before
// the server proceeds.
type Speech struct {
	Type        MessageType `json:"type"`
	MessageID   string      `json:"message_id"`
	Text        string      `json:"text"`
	SpeechType  SpeechType  `json:"speech_type"`
	AudioData   string      `json:"audio_data,omitempty"`
	Format      string      `json:"format,omitempty"`
}

// Question carries an interview question: the introduction prompt, the
// main question for a new topic, or a generated follow-up. Like Speech, it requires
// an AudioPlaybackCompleted ack (tagged with MessageID) before the server
// opens the listen gate.
type Question struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
	Text      string      `json:"text"`
	Topic     string      `json:"topic,omitempty"`
	AudioData string      `json:"audio_data,omitempty"`
	Format    string      `json:"format,omitempty"`
}

// StartListening tells the client the server is now ready to receive the
// candidate's spoken reply; sent only after the preceding Speech or
// Question's playback has been acknowledged or timed out.
type StartListening struct {
	Type MessageType `json:"type"`
}

// Answer echoes the STT transcript of the candidate's reply back to the
// client, for on-screen display. Emitted by the Audio Coordinator, not
// sent by the client.
type Answer struct {
	Type MessageType `json:"type"`
	Text string      `json:"text"`
}

// Heartbeat is a periodic keepalive, letting the client render a
// session-time indicator.
type Heartbeat struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
}

// Terminate ends the connection early: abusive/malicious moderation
// verdicts or a duplicate-session rejection.
type Terminate struct {
	Type   MessageType `json:"type"`
	Reason string      `json:"reason"`
}

// Complete signals the interview finished its normal course (minimum topic
// count satisfied or the duration limit reached).
type Complete struct {
	Type      MessageType `json:"type"`
	SessionID string      `json:"session_id"`
}

// ErrorEvent reports a recoverable problem (a malformed client envelope)
// without ending the session.
type ErrorEvent struct {
	Type      MessageType `json:"type"`
	Code      string      `json:"code"`
	Source    string      `json:"source"`
	Retryable bool        `json:"retryable"`
	Detail    string      `json:"detail"`
}

// AudioPlaybackCompleted acknowledges that the client finished playing the
// utterance tagged with MessageID.
type AudioPlaybackCompleted struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
	Error     string      `json:"error,omitempty"`
}

// AudioPlaybackError reports that client-side playback of MessageID
// failed; treated as playback-complete for handshake purposes.
type AudioPlaybackError struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
	Error     string      `json:"error"`
}

// EndSession is a voluntary early-termination request from the candidate.
type EndSession struct {
	Type MessageType `json:"type"`
}

// clientInbound is a superset struct wide enough to decode any message a
// client may legitimately send; ParseClientMessage narrows it by Type.
type clientInbound struct {
	Type      MessageType `json:"type"`
	MessageID string      `json:"message_id"`
	Error     string      `json:"error"`
}

// ParseClientMessage decodes a raw websocket frame into one of the
// client-originated message types, or returns ErrUnsupportedType for any
// type not accepted from clients (including every server-origin type).
func ParseClientMessage(raw []byte) (any, error) {
	var inbound clientInbound
	if err := json.Unmarshal(raw, &inbound); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}

	switch inbound.Type {
	case TypeAudioPlaybackCompleted:
		if inbound.MessageID == "" {
			return nil, errors.New("invalid audio_playback_completed: missing message_id")
		}
		return AudioPlaybackCompleted{
			Type:      TypeAudioPlaybackCompleted,
			MessageID: inbound.MessageID,
			Error:     inbound.Error,
		}, nil
	case TypeAudioPlaybackError:
		if inbound.MessageID == "" {
			return nil, errors.New("invalid audio_playback_error: missing message_id")
		}
		return AudioPlaybackError{
			Type:      TypeAudioPlaybackError,
			MessageID: inbound.MessageID,
			Error:     inbound.Error,
		}, nil
	case TypeEndSession:
		return EndSession{Type: TypeEndSession}, nil
	default:
		return nil, ErrUnsupportedType
	}
}
