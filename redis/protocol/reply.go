// Package protocol implements RESP (REdis Serialization Protocol)
// reply types. Parsing lives in redis/parser; this package only
// marshals replies to bytes.
package protocol

import (
	"bytes"
	"strconv"

	"github.com/ryanrussell/dragonfly/interface/redis"
)

// CRLF is the line separator of redis serialization protocol
const CRLF = "\r\n"

/* ---- Bulk Reply ---- */

// BulkReply stores a binary-safe string
type BulkReply struct {
	Arg []byte
}

// MakeBulkReply creates BulkReply
func MakeBulkReply(arg []byte) *BulkReply {
	return &BulkReply{Arg: arg}
}

func (r *BulkReply) ToBytes() []byte {
	if r.Arg == nil {
		return nullBulkReplyBytes
	}
	return []byte("$" + strconv.Itoa(len(r.Arg)) + CRLF + string(r.Arg) + CRLF)
}

/* ---- Null Bulk Reply ---- */

var nullBulkReplyBytes = []byte("$-1\r\n")

// NullBulkReply represents a nil saved value
type NullBulkReply struct{}

func (r *NullBulkReply) ToBytes() []byte {
	return nullBulkReplyBytes
}

// MakeNullBulkReply creates NullBulkReply
func MakeNullBulkReply() *NullBulkReply {
	return &NullBulkReply{}
}

/* ---- Multi Bulk Reply ---- */

// MultiBulkReply stores a list of string, used both to send arrays to
// clients and to represent parsed client command lines.
type MultiBulkReply struct {
	Args [][]byte
}

// MakeMultiBulkReply creates MultiBulkReply
func MakeMultiBulkReply(args [][]byte) *MultiBulkReply {
	return &MultiBulkReply{Args: args}
}

func (r *MultiBulkReply) ToBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("*" + strconv.Itoa(len(r.Args)) + CRLF)
	for _, arg := range r.Args {
		if arg == nil {
			buf.WriteString("$-1" + CRLF)
		} else {
			buf.WriteString("$" + strconv.Itoa(len(arg)) + CRLF + string(arg) + CRLF)
		}
	}
	return buf.Bytes()
}

/* ---- Empty Multi Bulk Reply ---- */

var emptyMultiBulkBytes = []byte("*0\r\n")

// EmptyMultiBulkReply represents an empty array, e.g. an aborted MULTI
type EmptyMultiBulkReply struct{}

func (r *EmptyMultiBulkReply) ToBytes() []byte {
	return emptyMultiBulkBytes
}

// MakeEmptyMultiBulkReply creates EmptyMultiBulkReply
func MakeEmptyMultiBulkReply() *EmptyMultiBulkReply {
	return &EmptyMultiBulkReply{}
}

/* ---- Multi Raw Reply ---- */

// MultiRawReply stores a list of replies of possibly different kinds,
// e.g. the 3-element DFLY greeting array or nested RESP arrays.
type MultiRawReply struct {
	Replies []redis.Reply
}

// MakeMultiRawReply creates MultiRawReply
func MakeMultiRawReply(replies []redis.Reply) *MultiRawReply {
	return &MultiRawReply{Replies: replies}
}

func (r *MultiRawReply) ToBytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("*" + strconv.Itoa(len(r.Replies)) + CRLF)
	for _, rep := range r.Replies {
		buf.Write(rep.ToBytes())
	}
	return buf.Bytes()
}

/* ---- Status Reply ---- */

// StatusReply stores a simple status string
type StatusReply struct {
	Status string
}

// MakeStatusReply creates StatusReply
func MakeStatusReply(status string) *StatusReply {
	return &StatusReply{Status: status}
}

func (r *StatusReply) ToBytes() []byte {
	return []byte("+" + r.Status + CRLF)
}

var okReply = MakeStatusReply("OK")

// MakeOkReply returns the shared +OK reply
func MakeOkReply() *StatusReply {
	return okReply
}

// IsOKReply reports whether reply is exactly +OK
func IsOKReply(reply redis.Reply) bool {
	return string(reply.ToBytes()) == "+OK\r\n"
}

var pongReply = MakeStatusReply("PONG")

// MakePongReply returns the shared +PONG reply
func MakePongReply() *StatusReply {
	return pongReply
}

var queuedReply = MakeStatusReply("QUEUED")

// MakeQueuedReply returns the shared +QUEUED reply
func MakeQueuedReply() *StatusReply {
	return queuedReply
}

/* ---- Int Reply ---- */

// IntReply stores an int64 number
type IntReply struct {
	Code int64
}

// MakeIntReply creates IntReply
func MakeIntReply(code int64) *IntReply {
	return &IntReply{Code: code}
}

func (r *IntReply) ToBytes() []byte {
	return []byte(":" + strconv.FormatInt(r.Code, 10) + CRLF)
}

/* ---- Error Reply ---- */

// ErrorReply is an error and redis.Reply at once
type ErrorReply interface {
	Error() string
	ToBytes() []byte
}

// StandardErrReply represents a generic "-<message>" server error
type StandardErrReply struct {
	Status string
}

// MakeErrReply creates StandardErrReply
func MakeErrReply(status string) *StandardErrReply {
	return &StandardErrReply{Status: status}
}

func (r *StandardErrReply) ToBytes() []byte {
	return []byte("-" + r.Status + CRLF)
}

func (r *StandardErrReply) Error() string {
	return r.Status
}

// IsErrorReply reports whether reply serializes as an error line
func IsErrorReply(reply redis.Reply) bool {
	b := reply.ToBytes()
	return len(b) > 0 && b[0] == '-'
}
