package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/dFS/lib/store"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Path   string `json:"path,omitempty"`   // Used for: every path based operation, Resolve (response)
	To     string `json:"to,omitempty"`     // Used for: Rename
	Offset int64  `json:"offset,omitempty"` // Used for: Read, Write
	Size   int64  `json:"size,omitempty"`   // Used for: Read, Truncate, Write (response)
	Data   []byte `json:"data,omitempty"`   // Used for: Write (request), Read (response)

	// Response only fields
	Files []store.FileInfo `json:"files,omitempty"` // Used for: Stat, List responses
	Names []string         `json:"names,omitempty"` // Used for: Namespaces response
	Usage store.DiskUsage  `json:"usage"`           // Used for: Usage response
	Ok    bool             `json:"ok,omitempty"`    // Used for: IsAccessible, IsTopLevel responses

	// Error fields, Code is only meaningful if Err is set
	Code store.RetCode `json:"code,omitempty"`
	Err  string        `json:"err,omitempty"`
}

// SetError stores err in the message. Store errors keep their return code,
// every other error is reported as an internal error.
func (m *Message) SetError(err error) {
	if err == nil {
		return
	}
	var se *store.Error
	if errors.As(err, &se) {
		m.Code = se.Code
		m.Err = se.Msg
		if se.Err != nil {
			m.Err = fmt.Sprintf("%s: %v", se.Msg, se.Err)
		}
		if m.Err == "" {
			m.Err = se.Code.String()
		}
		return
	}
	m.Code = store.RetCInternalError
	m.Err = err.Error()
}

// AsError returns the error carried by the message as a *store.Error, or nil
func (m *Message) AsError() error {
	if m.Err == "" && m.MsgType != MsgTError {
		return nil
	}
	code := m.Code
	if code == store.RetCSuccess {
		code = store.RetCInternalError
	}
	return store.NewError(code, m.Err)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewPathRequest creates a request that only carries a path. It is used by
// Create, Delete, Stat, List, Sync, SyncPrefix, Evict, IsAccessible,
// IsTopLevel and Resolve.
func NewPathRequest(t MessageType, path string) *Message {
	return &Message{
		MsgType: t,
		Path:    path,
	}
}

// NewResponse creates a response of type t that only carries an error
func NewResponse(t MessageType, err error) *Message {
	msg := &Message{
		MsgType: t,
	}
	msg.SetError(err)
	return msg
}

// NewReadRequest creates a new Read request
func NewReadRequest(path string, size int, offset int64) *Message {
	return &Message{
		MsgType: MsgTFSRead,
		Path:    path,
		Size:    int64(size),
		Offset:  offset,
	}
}

// NewReadResponse creates a new Read response
func NewReadResponse(data []byte, err error) *Message {
	msg := &Message{
		MsgType: MsgTFSRead,
		Data:    data,
	}
	msg.SetError(err)
	return msg
}

// NewWriteRequest creates a new Write request
func NewWriteRequest(path string, data []byte, offset int64) *Message {
	return &Message{
		MsgType: MsgTFSWrite,
		Path:    path,
		Data:    data,
		Offset:  offset,
	}
}

// NewWriteResponse creates a new Write response
func NewWriteResponse(n int, err error) *Message {
	msg := &Message{
		MsgType: MsgTFSWrite,
		Size:    int64(n),
	}
	msg.SetError(err)
	return msg
}

// NewTruncateRequest creates a new Truncate request
func NewTruncateRequest(path string, size int64) *Message {
	return &Message{
		MsgType: MsgTFSTruncate,
		Path:    path,
		Size:    size,
	}
}

// NewRenameRequest creates a new Rename request
func NewRenameRequest(from, to string) *Message {
	return &Message{
		MsgType: MsgTFSRename,
		Path:    from,
		To:      to,
	}
}

// NewStatResponse creates a new Stat response
func NewStatResponse(info store.FileInfo, err error) *Message {
	msg := &Message{
		MsgType: MsgTFSStat,
	}
	if err == nil {
		msg.Files = []store.FileInfo{info}
	}
	msg.SetError(err)
	return msg
}

// NewListResponse creates a new List response
func NewListResponse(files []store.FileInfo, err error) *Message {
	msg := &Message{
		MsgType: MsgTFSList,
		Files:   files,
	}
	msg.SetError(err)
	return msg
}

// NewUsageResponse creates a new Usage response
func NewUsageResponse(usage store.DiskUsage, err error) *Message {
	msg := &Message{
		MsgType: MsgTFSUsage,
		Usage:   usage,
	}
	msg.SetError(err)
	return msg
}

// NewOkResponse creates a response for the boolean path queries
func NewOkResponse(t MessageType, ok bool) *Message {
	return &Message{
		MsgType: t,
		Ok:      ok,
	}
}

// NewResolveResponse creates a new Resolve response
func NewResolveResponse(path string) *Message {
	return &Message{
		MsgType: MsgTFSResolve,
		Path:    path,
	}
}

// NewNamespacesResponse creates a new Namespaces response
func NewNamespacesResponse(names []string) *Message {
	return &Message{
		MsgType: MsgTFSNamespaces,
		Names:   names,
	}
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Code:    store.RetCInternalError,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

var messageTypeNames = map[MessageType]string{
	MsgTSuccess:        "success",
	MsgTError:          "error",
	MsgTFSCreate:       "create",
	MsgTFSRead:         "read",
	MsgTFSWrite:        "write",
	MsgTFSTruncate:     "truncate",
	MsgTFSDelete:       "delete",
	MsgTFSRename:       "rename",
	MsgTFSStat:         "stat",
	MsgTFSList:         "list",
	MsgTFSSync:         "sync",
	MsgTFSSyncPrefix:   "syncPrefix",
	MsgTFSEvict:        "evict",
	MsgTFSUsage:        "usage",
	MsgTFSIsAccessible: "isAccessible",
	MsgTFSIsTopLevel:   "isTopLevel",
	MsgTFSResolve:      "resolve",
	MsgTFSNamespaces:   "namespaces",
}

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	for msgType, name := range messageTypeNames {
		if name == s {
			*t = msgType
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred

	// IStore file operations

	MsgTFSCreate     // Create an empty file
	MsgTFSRead       // Read a range of a file
	MsgTFSWrite      // Write a range of a file
	MsgTFSTruncate   // Set the length of a file
	MsgTFSDelete     // Delete a file
	MsgTFSRename     // Move a file within its namespace
	MsgTFSStat       // Metadata of a file
	MsgTFSList       // Live files below a directory
	MsgTFSSync       // Flush and replicate a file
	MsgTFSSyncPrefix // Flush and replicate every cached file below a prefix
	MsgTFSEvict      // Drop a clean cache entry
	MsgTFSUsage      // Disk usage of the store root

	// IStore path queries

	MsgTFSIsAccessible // Path is the root or inside a namespace
	MsgTFSIsTopLevel   // Path is the root or a namespace root
	MsgTFSResolve      // Backing file of a path
	MsgTFSNamespaces   // Names of all namespaces
)
