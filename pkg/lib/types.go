package lib

import (
	"encoding/json"
	"fmt"
)

// NotInitialized is the error reported in place of a status while no node is running.
const NotInitialized = "Node is not initialized"

// Trigger enumerates every avenue through which the process can be asked to terminate.
type Trigger int

const (
	TriggerUnspecified Trigger = iota
	TriggerInterrupt
	TriggerTerminate
	TriggerHangup
	TriggerQuit
	TriggerUser1
	TriggerUser2
	TriggerExit
	TriggerBeforeExit
	TriggerFault
	TriggerRejection
)

func (t Trigger) String() string {
	switch t {
	case TriggerInterrupt:
		return "interrupt"
	case TriggerTerminate:
		return "terminate"
	case TriggerHangup:
		return "hangup"
	case TriggerQuit:
		return "quit"
	case TriggerUser1:
		return "user1"
	case TriggerUser2:
		return "user2"
	case TriggerExit:
		return "exit"
	case TriggerBeforeExit:
		return "before-exit"
	case TriggerFault:
		return "fault"
	case TriggerRejection:
		return "rejection"
	default:
		return fmt.Sprintf("trigger(%d)", int(t))
	}
}

// ConnectionInfo keeps only the remote peer of an active connection.
type ConnectionInfo struct {
	Peer string `json:"peer"`
}

// NodeStatus is the live view of a running relay node.
type NodeStatus struct {
	Addresses   []string         `json:"addresses"`
	Peers       []string         `json:"peers"`
	Protocols   []string         `json:"protocols"`
	Connections []ConnectionInfo `json:"connections"`
}

// Snapshot is either a NodeStatus or an error marker, never both.
type Snapshot struct {
	status *NodeStatus
	err    string
}

// StatusSnapshot wraps a node status. Nil slices are replaced by empty ones so
// they encode as [] rather than null.
func StatusSnapshot(st NodeStatus) Snapshot {
	if st.Addresses == nil {
		st.Addresses = []string{}
	}
	if st.Peers == nil {
		st.Peers = []string{}
	}
	if st.Protocols == nil {
		st.Protocols = []string{}
	}
	if st.Connections == nil {
		st.Connections = []ConnectionInfo{}
	}
	return Snapshot{status: &st}
}

// ErrorSnapshot returns the error-tagged variant.
func ErrorSnapshot(msg string) Snapshot {
	return Snapshot{err: msg}
}

// Status returns the node status when the snapshot carries one.
func (s Snapshot) Status() (NodeStatus, bool) {
	if s.status == nil {
		return NodeStatus{}, false
	}
	return *s.status, true
}

// ErrorMessage returns the error marker when the snapshot carries one.
func (s Snapshot) ErrorMessage() (string, bool) {
	if s.status != nil {
		return "", false
	}
	return s.err, true
}

type errorPayload struct {
	Error string `json:"error"`
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.status != nil {
		return json.Marshal(s.status)
	}
	return json.Marshal(errorPayload{Error: s.err})
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := fields["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil {
			return err
		}
		*s = ErrorSnapshot(msg)
		return nil
	}

	var st NodeStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return err
	}
	*s = StatusSnapshot(st)
	return nil
}
